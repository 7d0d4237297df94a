package activitypub

import (
	"time"

	"github.com/deemkeen/fanout/domain"
	"github.com/google/uuid"
)

// URLs of locally created activities and objects

func CommentURL(video *domain.Video, commentId uuid.UUID) string {
	return video.URL + "/comments/" + commentId.String()
}

func RateURL(actor *domain.Actor, rating domain.Rating, video *domain.Video) string {
	if rating == domain.RatingDislike {
		return actor.URL + "/dislikes/" + video.Id.String()
	}
	return actor.URL + "/likes/" + video.Id.String()
}

func ViewURL(video *domain.Video) string {
	return video.URL + "/views/" + uuid.New().String()
}

func AcceptFollowURL(actor *domain.Actor) string {
	return actor.URL + "/accepts/follows/" + uuid.New().String()
}

// CreateCommentActivity builds the Create{Note} announcing a new comment
func CreateCommentActivity(comment *domain.VideoComment, byActor *domain.Actor, video *domain.Video) ActivityBuilder {
	return func(audience Audience) *Activity {
		note := map[string]interface{}{
			"id":           comment.URL,
			"type":         "Note",
			"content":      comment.Text,
			"inReplyTo":    video.URL,
			"attributedTo": byActor.URL,
			"published":    comment.CreatedAt.UTC().Format(time.RFC3339),
			"to":           audience.To,
			"cc":           audience.Cc,
		}
		return &Activity{
			Context: ContextActivityStreams,
			ID:      comment.URL + "/activity",
			Type:    "Create",
			Actor:   byActor.URL,
			Object:  note,
			To:      audience.To,
			Cc:      audience.Cc,
		}
	}
}

// RateActivity builds a Like or Dislike of video
func RateActivity(rate *domain.VideoRate, byActor *domain.Actor, video *domain.Video) ActivityBuilder {
	activityType := "Like"
	if rate.Type == domain.RatingDislike {
		activityType = "Dislike"
	}
	return func(audience Audience) *Activity {
		return &Activity{
			Context: ContextActivityStreams,
			ID:      rate.URL,
			Type:    activityType,
			Actor:   byActor.URL,
			Object:  video.URL,
			To:      audience.To,
			Cc:      audience.Cc,
		}
	}
}

// ViewActivity builds a View of video
func ViewActivity(id string, byActor *domain.Actor, video *domain.Video) ActivityBuilder {
	return func(audience Audience) *Activity {
		return &Activity{
			Context: ContextActivityStreams,
			ID:      id,
			Type:    "View",
			Actor:   byActor.URL,
			Object:  video.URL,
			To:      audience.To,
			Cc:      audience.Cc,
		}
	}
}

// AcceptFollowActivity answers a received Follow
func AcceptFollowActivity(byActor *domain.Actor, follow *Activity) *Activity {
	return &Activity{
		Context: ContextActivityStreams,
		ID:      AcceptFollowURL(byActor),
		Type:    "Accept",
		Actor:   byActor.URL,
		Object: map[string]interface{}{
			"id":     follow.ID,
			"type":   follow.Type,
			"actor":  follow.Actor,
			"object": follow.ObjectID(),
		},
	}
}
