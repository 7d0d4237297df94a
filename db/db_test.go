package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/deemkeen/fanout/domain"
	"github.com/google/uuid"
)

// setupTestDB creates a migrated sqlite database in a temp dir
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDsn(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/tmp/a.db", "/tmp/a.db?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"},
		{"file:a.db?mode=rwc", "file:a.db?mode=rwc&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"},
	}
	for _, tt := range tests {
		if got := dsn(tt.path); got != tt.want {
			t.Errorf("dsn(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestPragmasOnEveryConnection(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	// hold the connections open so the pool has to hand out distinct ones
	for i := 0; i < 3; i++ {
		conn, err := db.db.Conn(ctx)
		if err != nil {
			t.Fatalf("Failed to get connection %d: %v", i, err)
		}
		defer conn.Close()

		var foreignKeys, busyTimeout int
		if err := conn.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&foreignKeys); err != nil {
			t.Fatalf("Failed to read foreign_keys: %v", err)
		}
		if err := conn.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&busyTimeout); err != nil {
			t.Fatalf("Failed to read busy_timeout: %v", err)
		}
		if foreignKeys != 1 {
			t.Errorf("Connection %d: expected foreign_keys 1, got %d", i, foreignKeys)
		}
		if busyTimeout != 5000 {
			t.Errorf("Connection %d: expected busy_timeout 5000, got %d", i, busyTimeout)
		}
	}
}

func remoteActor(name, host string, shared bool) *domain.Actor {
	url := "https://" + host + "/accounts/" + name
	actor := &domain.Actor{
		Id:                uuid.New(),
		PreferredUsername: name,
		Host:              host,
		URL:               url,
		InboxURL:          url + "/inbox",
		FollowersURL:      url + "/followers",
	}
	if shared {
		actor.SharedInboxURL = "https://" + host + "/inbox"
	}
	return actor
}

func createActors(t *testing.T, db *DB, actors ...*domain.Actor) {
	t.Helper()
	for _, a := range actors {
		if err := db.CreateActor(context.Background(), nil, a); err != nil {
			t.Fatalf("Failed to create actor %s: %v", a.URL, err)
		}
	}
}

func follow(t *testing.T, db *DB, follower, target *domain.Actor, state domain.FollowState) {
	t.Helper()
	err := db.CreateFollow(context.Background(), nil, &domain.Follow{
		ActorId:       follower.Id,
		TargetActorId: target.Id,
		URI:           follower.URL + "/follows/" + target.PreferredUsername,
		State:         state,
	})
	if err != nil {
		t.Fatalf("Failed to create follow: %v", err)
	}
}

func TestReadActorByURL(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	alice := remoteActor("alice", "a.example", true)
	createActors(t, db, alice)

	got, err := db.ReadActorByURL(ctx, nil, alice.URL)
	if err != nil {
		t.Fatalf("ReadActorByURL failed: %v", err)
	}
	if got.Id != alice.Id {
		t.Errorf("Expected Id %s, got %s", alice.Id, got.Id)
	}
	if got.SharedInboxURL != "https://a.example/inbox" {
		t.Errorf("Expected shared inbox, got '%s'", got.SharedInboxURL)
	}
	if got.Local {
		t.Error("Expected remote actor")
	}

	if _, err := db.ReadActorByURL(ctx, nil, "https://nowhere.example/accounts/x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestEnsureServerActorIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	first, err := db.EnsureServerActor(ctx, "peertube", "local.example")
	if err != nil {
		t.Fatalf("EnsureServerActor failed: %v", err)
	}
	second, err := db.EnsureServerActor(ctx, "peertube", "local.example")
	if err != nil {
		t.Fatalf("EnsureServerActor failed: %v", err)
	}

	if first.Id != second.Id {
		t.Errorf("Expected the same server actor, got %s and %s", first.Id, second.Id)
	}
	if second.SharedInboxURL != "https://local.example/inbox" {
		t.Errorf("Unexpected shared inbox '%s'", second.SharedInboxURL)
	}
	if !second.Local || second.Type != "Application" {
		t.Errorf("Expected local Application actor, got %+v", second)
	}
}

func TestListAcceptedFollowerSharedInboxURLs(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	target := LocalActor("Person", "bob", "local.example", "accounts")
	other := LocalActor("Person", "carol", "local.example", "accounts")
	f1 := remoteActor("f1", "x.example", true)
	f2 := remoteActor("f2", "x.example", true)
	f3 := remoteActor("f3", "y.example", false)
	pending := remoteActor("p", "z.example", true)
	createActors(t, db, target, other, f1, f2, f3, pending)

	follow(t, db, f1, target, domain.FollowAccepted)
	follow(t, db, f2, target, domain.FollowAccepted)
	follow(t, db, f3, other, domain.FollowAccepted)
	follow(t, db, pending, target, domain.FollowPending)

	endpoints, err := db.ListAcceptedFollowerSharedInboxURLs(ctx, nil, []uuid.UUID{target.Id, other.Id})
	if err != nil {
		t.Fatalf("ListAcceptedFollowerSharedInboxURLs failed: %v", err)
	}

	expected := []string{"https://x.example/inbox", "https://y.example/accounts/f3/inbox"}
	if len(endpoints) != len(expected) {
		t.Fatalf("Expected %v, got %v", expected, endpoints)
	}
	for i := range expected {
		if endpoints[i] != expected[i] {
			t.Errorf("Expected %s at %d, got %s", expected[i], i, endpoints[i])
		}
	}

	none, err := db.ListAcceptedFollowerSharedInboxURLs(ctx, nil, nil)
	if err != nil || len(none) != 0 {
		t.Errorf("Expected empty result for no actors, got %v, %v", none, err)
	}
}

func TestListActorsByFollowersURLs(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	alice := remoteActor("alice", "a.example", true)
	bob := remoteActor("bob", "b.example", true)
	createActors(t, db, alice, bob)

	actors, err := db.ListActorsByFollowersURLs(ctx, nil, []string{alice.FollowersURL, "https://unknown.example/accounts/x/followers"})
	if err != nil {
		t.Fatalf("ListActorsByFollowersURLs failed: %v", err)
	}
	if len(actors) != 1 || actors[0].Id != alice.Id {
		t.Errorf("Expected only alice, got %v", actors)
	}
}

func TestFollowStateLifecycle(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	alice := LocalActor("Person", "alice", "local.example", "accounts")
	bob := remoteActor("bob", "b.example", true)
	createActors(t, db, alice, bob)
	follow(t, db, alice, bob, domain.FollowPending)
	uri := alice.URL + "/follows/bob"

	if err := db.UpdateFollowState(ctx, nil, uri, domain.FollowAccepted); err != nil {
		t.Fatalf("UpdateFollowState failed: %v", err)
	}
	f, err := db.ReadFollowByURI(ctx, nil, uri)
	if err != nil {
		t.Fatalf("ReadFollowByURI failed: %v", err)
	}
	if f.State != domain.FollowAccepted {
		t.Errorf("Expected accepted, got %s", f.State)
	}

	if err := db.UpdateFollowState(ctx, nil, "https://nope", domain.FollowAccepted); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown follow, got %v", err)
	}

	if err := db.DeleteFollowByURI(ctx, nil, uri); err != nil {
		t.Fatalf("DeleteFollowByURI failed: %v", err)
	}
	if _, err := db.ReadFollowByURI(ctx, nil, uri); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected follow to be gone, got %v", err)
	}
}

func TestVideoChainAndShares(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	accActor := remoteActor("bob", "peer.example", true)
	chActor := remoteActor("bob_channel", "peer.example", true)
	sharer := remoteActor("sharer", "s.example", false)
	createActors(t, db, accActor, chActor, sharer)

	acc := &domain.Account{Name: "bob", ActorId: accActor.Id}
	if err := db.CreateAccount(ctx, nil, acc); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	ch := &domain.VideoChannel{Name: "bob_channel", AccountId: acc.Id, ActorId: chActor.Id}
	if err := db.CreateVideoChannel(ctx, nil, ch); err != nil {
		t.Fatalf("CreateVideoChannel failed: %v", err)
	}
	video := &domain.Video{URL: "https://peer.example/videos/watch/1", Name: "V1", ChannelId: ch.Id, Remote: true}
	if err := db.CreateVideo(ctx, nil, video); err != nil {
		t.Fatalf("CreateVideo failed: %v", err)
	}

	got, err := db.ReadVideoByURL(ctx, nil, video.URL)
	if err != nil {
		t.Fatalf("ReadVideoByURL failed: %v", err)
	}
	if got.IsOwned() {
		t.Error("Expected remote video")
	}
	if owner := got.OwnerActor(); owner == nil || owner.SharedInboxURL != "https://peer.example/inbox" {
		t.Errorf("Expected owner shared inbox, got %+v", owner)
	}
	if got.Channel.Actor.Id != chActor.Id {
		t.Errorf("Expected channel actor %s, got %s", chActor.Id, got.Channel.Actor.Id)
	}

	owner, err := db.ReadAccountActorByVideoId(ctx, nil, video.Id)
	if err != nil || owner.Id != accActor.Id {
		t.Errorf("Expected account actor %s, got %v, %v", accActor.Id, owner, err)
	}

	share := &domain.VideoShare{URL: "https://s.example/announces/1", ActorId: sharer.Id, VideoId: video.Id}
	if err := db.CreateVideoShare(ctx, nil, share); err != nil {
		t.Fatalf("CreateVideoShare failed: %v", err)
	}
	sharers, err := db.ListActorsByVideoShare(ctx, nil, video.Id)
	if err != nil {
		t.Fatalf("ListActorsByVideoShare failed: %v", err)
	}
	if len(sharers) != 1 || sharers[0].Id != sharer.Id {
		t.Errorf("Expected sharer, got %v", sharers)
	}

	if err := db.DeleteVideoShareByURL(ctx, nil, share.URL); err != nil {
		t.Fatalf("DeleteVideoShareByURL failed: %v", err)
	}
	sharers, _ = db.ListActorsByVideoShare(ctx, nil, video.Id)
	if len(sharers) != 0 {
		t.Errorf("Expected no sharers, got %v", sharers)
	}

	byName, err := db.ReadAccountByNameWithHost(ctx, "bob@peer.example")
	if err != nil || byName.Id != acc.Id {
		t.Errorf("Expected account by name with host, got %v, %v", byName, err)
	}
	if _, err := db.ReadAccountByNameWithHost(ctx, "bob"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected remote account not to match a local name, got %v", err)
	}

	videos, err := db.ListVideos(ctx, VideoFilter{ChannelId: ch.Id}, 10)
	if err != nil || len(videos) != 1 {
		t.Errorf("Expected one video for the channel, got %v, %v", videos, err)
	}
	videos, _ = db.ListVideos(ctx, VideoFilter{AccountId: uuid.New()}, 10)
	if len(videos) != 0 {
		t.Errorf("Expected no videos for unknown account, got %d", len(videos))
	}
}

func TestJobsQueue(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	job, err := domain.NewJob(domain.JobBroadcast, domain.BroadcastPayload[string]{URIs: []string{"https://a.example/inbox"}, Body: "x"})
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}
	if err := db.CreateJob(ctx, job); err != nil {
		t.Fatalf("CreateJob failed: %v", err)
	}

	jobs, err := db.ReadPendingJobs(ctx, 10)
	if err != nil {
		t.Fatalf("ReadPendingJobs failed: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("Expected 1 job, got %d", len(jobs))
	}
	if jobs[0].Id != job.Id || jobs[0].Type != domain.JobBroadcast {
		t.Errorf("Unexpected job %+v", jobs[0])
	}
	if string(jobs[0].Payload) != string(job.Payload) {
		t.Errorf("Expected payload %s, got %s", job.Payload, jobs[0].Payload)
	}

	count, err := db.CountJobs(ctx, domain.JobUnicast)
	if err != nil || count != 0 {
		t.Errorf("Expected 0 unicast jobs, got %d, %v", count, err)
	}
}

func TestCreateActivityDuplicate(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	activity := &domain.Activity{
		ActivityURI:  "https://a.example/activities/1",
		ActivityType: "Like",
		ActorURI:     "https://a.example/accounts/alice",
		RawJSON:      `{}`,
	}

	if err := db.CreateActivity(ctx, nil, activity); err != nil {
		t.Fatalf("CreateActivity failed: %v", err)
	}
	dup := *activity
	dup.Id = uuid.Nil
	if err := db.CreateActivity(ctx, nil, &dup); !errors.Is(err, ErrDuplicate) {
		t.Errorf("Expected ErrDuplicate, got %v", err)
	}
}
