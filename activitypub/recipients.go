package activitypub

import (
	"context"
	"fmt"

	"github.com/deemkeen/fanout/db"
	"github.com/deemkeen/fanout/domain"
	"github.com/google/uuid"
)

// buildSharedInboxesException returns the endpoints that must never receive a
// delivery: those of the given actors plus the server actor's own.
func (d *Distributor) buildSharedInboxesException(ctx context.Context, exceptions []*domain.Actor) (map[string]struct{}, error) {
	serverActor, err := d.server.Get(ctx)
	if err != nil {
		return nil, err
	}

	set := make(map[string]struct{}, len(exceptions)+1)
	for _, actor := range exceptions {
		set[actor.Endpoint()] = struct{}{}
	}
	set[serverActor.Endpoint()] = struct{}{}
	return set, nil
}

// computeFollowerURIs returns the distinct endpoints of the accepted followers
// of toFollowersOf, without the exception endpoints.
func (d *Distributor) computeFollowerURIs(ctx context.Context, tx *db.Tx, toFollowersOf []*domain.Actor, exceptions []*domain.Actor) ([]string, error) {
	if len(toFollowersOf) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, 0, len(toFollowersOf))
	for _, actor := range toFollowersOf {
		ids = append(ids, actor.Id)
	}

	endpoints, err := d.store.ListAcceptedFollowerSharedInboxURLs(ctx, tx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list follower inboxes: %w", err)
	}

	except, err := d.buildSharedInboxesException(ctx, exceptions)
	if err != nil {
		return nil, err
	}
	return subtract(endpoints, except), nil
}

// computeURIs maps actors to their endpoints, skipping the server actor and
// duplicates, without the exception endpoints.
func (d *Distributor) computeURIs(ctx context.Context, toActors []*domain.Actor, exceptions []*domain.Actor) ([]string, error) {
	serverActor, err := d.server.Get(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(toActors))
	endpoints := make([]string, 0, len(toActors))
	for _, actor := range toActors {
		if actor.Id == serverActor.Id {
			continue
		}
		endpoint := actor.Endpoint()
		if _, ok := seen[endpoint]; ok {
			continue
		}
		seen[endpoint] = struct{}{}
		endpoints = append(endpoints, endpoint)
	}

	except, err := d.buildSharedInboxesException(ctx, exceptions)
	if err != nil {
		return nil, err
	}
	return subtract(endpoints, except), nil
}

func subtract(uris []string, except map[string]struct{}) []string {
	out := make([]string, 0, len(uris))
	for _, uri := range uris {
		if _, ok := except[uri]; !ok {
			out = append(out, uri)
		}
	}
	return out
}
