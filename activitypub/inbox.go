package activitypub

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/deemkeen/fanout/db"
	"github.com/deemkeen/fanout/domain"
)

// Inbox processes activities posted to the shared inbox
type Inbox struct {
	db   *db.DB
	dist *Distributor
}

func NewInbox(database *db.DB, dist *Distributor) *Inbox {
	return &Inbox{db: database, dist: dist}
}

// Handle applies one received activity. Activities from unknown actors and
// activities seen before are ignored. ErrInvalidActivity is returned for
// payloads that cannot be parsed.
func (in *Inbox) Handle(ctx context.Context, body []byte) error {
	activity, err := ParseActivity(body)
	if err != nil {
		log.Printf("Inbox: Failed to parse activity: %v", err)
		return err
	}

	log.Printf("Inbox: Received %s from %s", activity.Type, activity.Actor)

	sender, err := in.db.ReadActorByURL(ctx, nil, activity.Actor)
	if errors.Is(err, db.ErrNotFound) {
		log.Printf("Inbox: Ignoring %s from unknown actor %s", activity.Type, activity.Actor)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read sender: %w", err)
	}

	err = in.db.WithTransaction(ctx, func(tx *db.Tx) error {
		record := &domain.Activity{
			ActivityURI:  activity.ID,
			ActivityType: activity.Type,
			ActorURI:     activity.Actor,
			ObjectURI:    activity.ObjectID(),
			RawJSON:      string(body),
		}
		if err := in.db.CreateActivity(ctx, tx, record); err != nil {
			return err
		}
		return in.process(ctx, tx, activity, sender)
	})
	if errors.Is(err, db.ErrDuplicate) {
		log.Printf("Inbox: Skipping already processed activity %s", activity.ID)
		return nil
	}
	if err != nil {
		log.Printf("Inbox: Failed to handle %s: %v", activity.Type, err)
	}
	return err
}

func (in *Inbox) process(ctx context.Context, tx *db.Tx, activity *Activity, sender *domain.Actor) error {
	switch activity.Type {
	case "Follow":
		return in.handleFollow(ctx, tx, activity, sender)
	case "Accept":
		return in.handleAccept(ctx, tx, activity, sender)
	case "Undo":
		return in.handleUndo(ctx, tx, activity, sender)
	case "Create":
		return in.handleCreate(ctx, tx, activity, sender)
	case "Announce":
		return in.handleAnnounce(ctx, tx, activity, sender)
	case "Like", "Dislike":
		return in.handleRate(ctx, tx, activity, sender)
	case "View":
		return in.handleView(ctx, tx, activity, sender)
	case "Delete":
		return in.handleDelete(ctx, tx, activity, sender)
	case "Update":
		return in.dist.ForwardActivity(ctx, activity, tx, []*domain.Actor{sender}, nil)
	default:
		log.Printf("Inbox: Unsupported activity type: %s", activity.Type)
		return nil
	}
}

func (in *Inbox) handleFollow(ctx context.Context, tx *db.Tx, activity *Activity, sender *domain.Actor) error {
	target, err := in.db.ReadActorByURL(ctx, tx, activity.ObjectID())
	if errors.Is(err, db.ErrNotFound) || (err == nil && !target.Local) {
		log.Printf("Inbox: Follow of unknown local actor %s", activity.ObjectID())
		return nil
	}
	if err != nil {
		return err
	}

	follow := &domain.Follow{
		ActorId:       sender.Id,
		TargetActorId: target.Id,
		URI:           activity.ID,
		State:         domain.FollowAccepted,
	}
	if err := in.db.CreateFollow(ctx, tx, follow); err != nil {
		return fmt.Errorf("failed to store follow: %w", err)
	}
	log.Printf("Inbox: Accepted follow of %s from %s", target.PreferredUsername, sender.URL)

	accept := AcceptFollowActivity(target, activity)
	ctx = context.WithoutCancel(ctx)
	return db.AfterCommitIfTransaction(tx, func() error {
		return in.dist.UnicastTo(ctx, accept, target, sender.InboxURL)
	})
}

func (in *Inbox) handleAccept(ctx context.Context, tx *db.Tx, activity *Activity, sender *domain.Actor) error {
	follow, err := in.db.ReadFollowByURI(ctx, tx, activity.ObjectID())
	if errors.Is(err, db.ErrNotFound) {
		log.Printf("Inbox: Accept of unknown follow %s", activity.ObjectID())
		return nil
	}
	if err != nil {
		return err
	}
	if follow.TargetActorId != sender.Id {
		log.Printf("Inbox: %s cannot accept follow %s", sender.URL, follow.URI)
		return nil
	}
	return in.db.UpdateFollowState(ctx, tx, follow.URI, domain.FollowAccepted)
}

func (in *Inbox) handleUndo(ctx context.Context, tx *db.Tx, activity *Activity, sender *domain.Actor) error {
	inner, ok := activity.InnerActivity()
	if !ok {
		log.Printf("Inbox: Undo without embedded activity from %s", sender.URL)
		return nil
	}
	if inner.Actor != "" && inner.Actor != sender.URL {
		log.Printf("Inbox: %s cannot undo activity of %s", sender.URL, inner.Actor)
		return nil
	}

	switch inner.Type {
	case "Follow":
		follow, err := in.db.ReadFollowByURI(ctx, tx, inner.ID)
		if errors.Is(err, db.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if follow.ActorId != sender.Id {
			return nil
		}
		log.Printf("Inbox: Removed follow %s", inner.ID)
		return in.db.DeleteFollowByURI(ctx, tx, inner.ID)
	case "Announce":
		if err := in.db.DeleteVideoShareByURL(ctx, tx, inner.ID); err != nil {
			return err
		}
	case "Like", "Dislike":
		if err := in.db.DeleteVideoRateByURL(ctx, tx, inner.ID); err != nil {
			return err
		}
	default:
		log.Printf("Inbox: Unsupported Undo of %s", inner.Type)
		return nil
	}

	video, err := in.lookupVideo(ctx, tx, inner.ObjectID())
	if err != nil || video == nil {
		return err
	}
	return in.forwardIfOwned(ctx, tx, activity, sender, video)
}

func (in *Inbox) handleCreate(ctx context.Context, tx *db.Tx, activity *Activity, sender *domain.Actor) error {
	if activity.ObjectType() != "Note" {
		log.Printf("Inbox: Unsupported Create of %s", activity.ObjectType())
		return nil
	}

	video, err := in.lookupVideo(ctx, tx, activity.objectField("inReplyTo"))
	if err != nil || video == nil {
		return err
	}

	comment := &domain.VideoComment{
		URL:     activity.ObjectID(),
		VideoId: video.Id,
		ActorId: sender.Id,
		Text:    activity.objectField("content"),
	}
	if err := in.db.CreateVideoComment(ctx, tx, comment); err != nil {
		return fmt.Errorf("failed to store comment: %w", err)
	}
	return in.forwardIfOwned(ctx, tx, activity, sender, video)
}

func (in *Inbox) handleAnnounce(ctx context.Context, tx *db.Tx, activity *Activity, sender *domain.Actor) error {
	video, err := in.lookupVideo(ctx, tx, activity.ObjectID())
	if err != nil || video == nil {
		return err
	}

	share := &domain.VideoShare{URL: activity.ID, ActorId: sender.Id, VideoId: video.Id}
	if err := in.db.CreateVideoShare(ctx, tx, share); err != nil {
		return fmt.Errorf("failed to store share: %w", err)
	}
	return in.forwardIfOwned(ctx, tx, activity, sender, video)
}

func (in *Inbox) handleRate(ctx context.Context, tx *db.Tx, activity *Activity, sender *domain.Actor) error {
	video, err := in.lookupVideo(ctx, tx, activity.ObjectID())
	if err != nil || video == nil {
		return err
	}

	rating := domain.RatingLike
	if activity.Type == "Dislike" {
		rating = domain.RatingDislike
	}
	rate := &domain.VideoRate{URL: activity.ID, ActorId: sender.Id, VideoId: video.Id, Type: rating}
	if err := in.db.UpsertVideoRate(ctx, tx, rate); err != nil {
		return fmt.Errorf("failed to store rate: %w", err)
	}
	return in.forwardIfOwned(ctx, tx, activity, sender, video)
}

func (in *Inbox) handleView(ctx context.Context, tx *db.Tx, activity *Activity, sender *domain.Actor) error {
	video, err := in.lookupVideo(ctx, tx, activity.ObjectID())
	if err != nil || video == nil {
		return err
	}
	return in.forwardIfOwned(ctx, tx, activity, sender, video)
}

func (in *Inbox) handleDelete(ctx context.Context, tx *db.Tx, activity *Activity, sender *domain.Actor) error {
	comment, err := in.db.ReadVideoCommentByURL(ctx, tx, activity.ObjectID())
	if errors.Is(err, db.ErrNotFound) {
		log.Printf("Inbox: Delete of unknown object %s", activity.ObjectID())
		return nil
	}
	if err != nil {
		return err
	}
	if comment.ActorId != sender.Id {
		log.Printf("Inbox: %s cannot delete comment %s", sender.URL, comment.URL)
		return nil
	}

	if err := in.db.DeleteVideoCommentByURL(ctx, tx, comment.URL); err != nil {
		return err
	}

	video, err := in.db.ReadVideoById(ctx, tx, comment.VideoId)
	if err != nil {
		return err
	}
	return in.forwardIfOwned(ctx, tx, activity, sender, video)
}

// lookupVideo resolves a video URL, or the URL of one of its comments.
// Unknown URLs yield a nil video.
func (in *Inbox) lookupVideo(ctx context.Context, tx *db.Tx, url string) (*domain.Video, error) {
	if url == "" {
		return nil, nil
	}

	video, err := in.db.ReadVideoByURL(ctx, tx, url)
	if err == nil {
		return video, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, err
	}

	comment, err := in.db.ReadVideoCommentByURL(ctx, tx, url)
	if errors.Is(err, db.ErrNotFound) {
		log.Printf("Inbox: Unknown video %s", url)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return in.db.ReadVideoById(ctx, tx, comment.VideoId)
}

// forwardIfOwned relays an activity about one of our videos to the followers
// of the actors involved in it. The origin server of a remote video does that.
func (in *Inbox) forwardIfOwned(ctx context.Context, tx *db.Tx, activity *Activity, sender *domain.Actor, video *domain.Video) error {
	if !video.IsOwned() {
		return nil
	}
	return in.dist.ForwardVideoRelatedActivity(ctx, activity, tx, []*domain.Actor{sender}, video)
}
