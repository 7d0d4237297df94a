package activitypub

import (
	"context"
	"fmt"
	"log"

	"github.com/deemkeen/fanout/db"
	"github.com/deemkeen/fanout/domain"
	"github.com/google/uuid"
)

// Store is the read side the distributor needs. *db.DB implements it.
type Store interface {
	ListAcceptedFollowerSharedInboxURLs(ctx context.Context, tx *db.Tx, actorIds []uuid.UUID) ([]string, error)
	ListActorsByFollowersURLs(ctx context.Context, tx *db.Tx, urls []string) ([]*domain.Actor, error)
	ListActorsByVideoShare(ctx context.Context, tx *db.Tx, videoId uuid.UUID) ([]*domain.Actor, error)
	ReadAccountActorByVideoId(ctx context.Context, tx *db.Tx, videoId uuid.UUID) (*domain.Actor, error)
}

// ActivityBuilder creates an activity once its audience is known
type ActivityBuilder func(audience Audience) *Activity

// Distributor turns activities into delivery jobs. Every enqueue that happens
// under a transaction waits for its commit.
type Distributor struct {
	store  Store
	jobs   JobQueue
	server *ServerActor
}

func NewDistributor(store Store, jobs JobQueue, server *ServerActor) *Distributor {
	return &Distributor{store: store, jobs: jobs, server: server}
}

// SendVideoRelatedActivity distributes an activity about video made by byActor.
// For a remote video the activity goes to the owner's shared inbox, the owner
// forwards it. For a local video it goes to the followers of every actor
// involved in the video, except byActor's.
func (d *Distributor) SendVideoRelatedActivity(ctx context.Context, build ActivityBuilder, byActor *domain.Actor, video *domain.Video, tx *db.Tx) error {
	actorsInvolved, err := d.ActorsInvolvedInVideo(ctx, tx, video)
	if err != nil {
		return err
	}

	if !video.IsOwned() {
		owner, err := d.videoOwner(ctx, tx, video)
		if err != nil {
			return err
		}
		activity := build(RemoteVideoAudience(owner, actorsInvolved))
		ctx := context.WithoutCancel(ctx)
		return db.AfterCommitIfTransaction(tx, func() error {
			return d.UnicastTo(ctx, activity, byActor, owner.SharedInboxURL)
		})
	}

	activity := build(AudienceFromFollowersOf(actorsInvolved))
	return d.BroadcastToFollowers(ctx, activity, byActor, actorsInvolved, tx, []*domain.Actor{byActor})
}

// ForwardActivity re-delivers a received activity, untouched, to the local
// followers of every followers collection it was addressed to, plus those of
// additionalFollowerURLs. Unknown collections are skipped.
func (d *Distributor) ForwardActivity(ctx context.Context, activity *Activity, tx *db.Tx, followersException []*domain.Actor, additionalFollowerURLs []string) error {
	log.Printf("Forward: Forwarding activity %s", activity.ID)

	followerURLs := append([]string(nil), additionalFollowerURLs...)
	for _, dest := range activity.Recipients() {
		if IsFollowersCollection(dest) {
			followerURLs = append(followerURLs, dest)
		}
	}

	toActorFollowers, err := d.store.ListActorsByFollowersURLs(ctx, tx, followerURLs)
	if err != nil {
		return fmt.Errorf("failed to resolve followers collections: %w", err)
	}

	uris, err := d.computeFollowerURIs(ctx, tx, toActorFollowers, followersException)
	if err != nil {
		return err
	}
	if len(uris) == 0 {
		log.Printf("Forward: 0 followers for %v, no forwarding", followerURLs)
		return nil
	}

	body, err := activity.Body()
	if err != nil {
		return err
	}

	log.Printf("Forward: Creating forwarding job for %d inboxes", len(uris))
	ctx = context.WithoutCancel(ctx)
	return db.AfterCommitIfTransaction(tx, func() error {
		_, err := Broadcast(ctx, d.jobs, body, nil, uris)
		return err
	})
}

// ForwardVideoRelatedActivity forwards activity to the followers of the actors
// involved in video, on top of the collections it names itself.
func (d *Distributor) ForwardVideoRelatedActivity(ctx context.Context, activity *Activity, tx *db.Tx, followersException []*domain.Actor, video *domain.Video) error {
	actorsInvolved, err := d.ActorsInvolvedInVideo(ctx, tx, video)
	if err != nil {
		return err
	}
	return d.ForwardActivity(ctx, activity, tx, followersException, followersURLs(actorsInvolved))
}

// BroadcastToFollowers delivers data to the followers of toFollowersOf
func (d *Distributor) BroadcastToFollowers(ctx context.Context, data any, byActor *domain.Actor, toFollowersOf []*domain.Actor, tx *db.Tx, actorsException []*domain.Actor) error {
	uris, err := d.computeFollowerURIs(ctx, tx, toFollowersOf, actorsException)
	if err != nil {
		return err
	}

	ctx = context.WithoutCancel(ctx)
	return db.AfterCommitIfTransaction(tx, func() error {
		_, err := Broadcast(ctx, d.jobs, data, byActor, uris)
		return err
	})
}

// BroadcastToActors delivers data to the given actors directly
func (d *Distributor) BroadcastToActors(ctx context.Context, data any, byActor *domain.Actor, toActors []*domain.Actor, tx *db.Tx, actorsException []*domain.Actor) error {
	uris, err := d.computeURIs(ctx, toActors, actorsException)
	if err != nil {
		return err
	}

	ctx = context.WithoutCancel(ctx)
	return db.AfterCommitIfTransaction(tx, func() error {
		_, err := Broadcast(ctx, d.jobs, data, byActor, uris)
		return err
	})
}

// UnicastTo delivers data to a single inbox
func (d *Distributor) UnicastTo(ctx context.Context, data any, byActor *domain.Actor, uri string) error {
	return Unicast(ctx, d.jobs, data, byActor, uri)
}
