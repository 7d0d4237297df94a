package activitypub

import (
	"context"
	"fmt"

	"github.com/deemkeen/fanout/db"
	"github.com/deemkeen/fanout/domain"
)

// ActorsInvolvedInVideo returns the actors that shared the video followed by
// the actor of the account owning it.
func (d *Distributor) ActorsInvolvedInVideo(ctx context.Context, tx *db.Tx, video *domain.Video) ([]*domain.Actor, error) {
	actors, err := d.store.ListActorsByVideoShare(ctx, tx, video.Id)
	if err != nil {
		return nil, fmt.Errorf("failed to list sharers of video %s: %w", video.Id, err)
	}

	owner, err := d.videoOwner(ctx, tx, video)
	if err != nil {
		return nil, err
	}
	return append(actors, owner), nil
}

func (d *Distributor) videoOwner(ctx context.Context, tx *db.Tx, video *domain.Video) (*domain.Actor, error) {
	if owner := video.OwnerActor(); owner != nil {
		return owner, nil
	}
	owner, err := d.store.ReadAccountActorByVideoId(ctx, tx, video.Id)
	if err != nil {
		return nil, fmt.Errorf("failed to load owner of video %s: %w", video.Id, err)
	}
	return owner, nil
}

// RemoteVideoAudience addresses the owner of a remote video, copying the
// followers of everyone involved.
func RemoteVideoAudience(owner *domain.Actor, actorsInvolved []*domain.Actor) Audience {
	return Audience{
		To: []string{owner.URL},
		Cc: followersURLs(actorsInvolved),
	}
}

// AudienceFromFollowersOf makes an activity public and addresses the
// followers of the given actors.
func AudienceFromFollowersOf(actors []*domain.Actor) Audience {
	return Audience{
		To: append([]string{PublicCollection}, followersURLs(actors)...),
		Cc: []string{},
	}
}

func followersURLs(actors []*domain.Actor) []string {
	urls := make([]string, 0, len(actors))
	for _, actor := range actors {
		urls = append(urls, actor.FollowersURL)
	}
	return urls
}
