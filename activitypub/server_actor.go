package activitypub

import (
	"context"
	"fmt"
	"sync"

	"github.com/deemkeen/fanout/domain"
)

type serverActorReader interface {
	ReadLocalActorByUsername(ctx context.Context, name string) (*domain.Actor, error)
}

// ServerActor resolves the application actor of this instance once and keeps it.
// A failed lookup is not cached, the next call tries again.
type ServerActor struct {
	reader serverActorReader
	name   string

	mu    sync.Mutex
	actor *domain.Actor
}

func NewServerActor(reader serverActorReader, name string) *ServerActor {
	return &ServerActor{reader: reader, name: name}
}

// StaticServerActor returns a cache that is already populated
func StaticServerActor(actor *domain.Actor) *ServerActor {
	return &ServerActor{name: actor.PreferredUsername, actor: actor}
}

func (s *ServerActor) Get(ctx context.Context) (*domain.Actor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.actor != nil {
		return s.actor, nil
	}
	if s.reader == nil {
		return nil, fmt.Errorf("server actor %q is not configured", s.name)
	}

	actor, err := s.reader.ReadLocalActorByUsername(ctx, s.name)
	if err != nil {
		return nil, fmt.Errorf("failed to load server actor %q: %w", s.name, err)
	}
	s.actor = actor
	return actor, nil
}
