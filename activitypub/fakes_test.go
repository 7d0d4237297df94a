package activitypub

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/deemkeen/fanout/db"
	"github.com/deemkeen/fanout/domain"
	"github.com/google/uuid"
)

type fakeStore struct {
	followers       map[uuid.UUID][]*domain.Actor
	byFollowersURL  map[string]*domain.Actor
	sharers         map[uuid.UUID][]*domain.Actor
	owners          map[uuid.UUID]*domain.Actor
	followerQueries int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		followers:      map[uuid.UUID][]*domain.Actor{},
		byFollowersURL: map[string]*domain.Actor{},
		sharers:        map[uuid.UUID][]*domain.Actor{},
		owners:         map[uuid.UUID]*domain.Actor{},
	}
}

// addFollower records follower as an accepted follower of target
func (s *fakeStore) addFollower(target, follower *domain.Actor) {
	s.followers[target.Id] = append(s.followers[target.Id], follower)
	s.byFollowersURL[target.FollowersURL] = target
}

func (s *fakeStore) ListAcceptedFollowerSharedInboxURLs(ctx context.Context, tx *db.Tx, actorIds []uuid.UUID) ([]string, error) {
	s.followerQueries++
	seen := map[string]struct{}{}
	var endpoints []string
	for _, id := range actorIds {
		for _, follower := range s.followers[id] {
			endpoint := follower.Endpoint()
			if _, ok := seen[endpoint]; ok {
				continue
			}
			seen[endpoint] = struct{}{}
			endpoints = append(endpoints, endpoint)
		}
	}
	sort.Strings(endpoints)
	return endpoints, nil
}

func (s *fakeStore) ListActorsByFollowersURLs(ctx context.Context, tx *db.Tx, urls []string) ([]*domain.Actor, error) {
	var actors []*domain.Actor
	for _, url := range urls {
		if actor, ok := s.byFollowersURL[url]; ok {
			actors = append(actors, actor)
		}
	}
	return actors, nil
}

func (s *fakeStore) ListActorsByVideoShare(ctx context.Context, tx *db.Tx, videoId uuid.UUID) ([]*domain.Actor, error) {
	return append([]*domain.Actor(nil), s.sharers[videoId]...), nil
}

func (s *fakeStore) ReadAccountActorByVideoId(ctx context.Context, tx *db.Tx, videoId uuid.UUID) (*domain.Actor, error) {
	if owner, ok := s.owners[videoId]; ok {
		return owner, nil
	}
	return nil, db.ErrNotFound
}

type fakeQueue struct {
	mu   sync.Mutex
	jobs []*domain.Job
	err  error
}

func (q *fakeQueue) CreateJob(ctx context.Context, job *domain.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

type fakeActorReader struct {
	mu    sync.Mutex
	actor *domain.Actor
	err   error
	calls int
}

func (r *fakeActorReader) ReadLocalActorByUsername(ctx context.Context, name string) (*domain.Actor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return r.actor, nil
}

var errQueueDown = errors.New("queue down")

func testActor(name, host string, sharedInbox bool) *domain.Actor {
	url := "https://" + host + "/accounts/" + name
	actor := &domain.Actor{
		Id:                uuid.New(),
		Type:              "Person",
		PreferredUsername: name,
		Host:              host,
		URL:               url,
		InboxURL:          url + "/inbox",
		FollowersURL:      url + "/followers",
	}
	if sharedInbox {
		actor.SharedInboxURL = "https://" + host + "/inbox"
	}
	return actor
}

func testServerActor() *domain.Actor {
	actor := testActor("peertube", "local.example", true)
	actor.Type = "Application"
	actor.Local = true
	return actor
}

func testVideo(owner *domain.Actor, remote bool) *domain.Video {
	account := &domain.Account{Id: uuid.New(), Name: owner.PreferredUsername, ActorId: owner.Id, Actor: owner}
	channel := &domain.VideoChannel{Id: uuid.New(), Name: owner.PreferredUsername + "_channel", AccountId: account.Id, Account: account}
	id := uuid.New()
	return &domain.Video{
		Id:        id,
		URL:       "https://" + owner.Host + "/videos/watch/" + id.String(),
		Name:      "video",
		ChannelId: channel.Id,
		Remote:    remote,
		Channel:   channel,
	}
}

func newTestDistributor(store Store, queue JobQueue) (*Distributor, *domain.Actor) {
	server := testServerActor()
	return NewDistributor(store, queue, StaticServerActor(server)), server
}
