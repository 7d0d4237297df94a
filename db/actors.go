package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/deemkeen/fanout/domain"
	"github.com/google/uuid"
)

// actorColumns lists the actor columns of the given table alias in scanActor order
func actorColumns(alias string) string {
	cols := []string{"id", "type", "preferred_username", "host", "url", "inbox_url",
		"shared_inbox_url", "followers_url", "local", "created_at"}
	for i, c := range cols {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}

var actorSelect = `SELECT ` + actorColumns("actors") + ` FROM actors `

const (
	sqlInsertActor = `INSERT INTO actors(id, type, preferred_username, host, url, inbox_url, shared_inbox_url, followers_url, local, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
)

var (
	sqlSelectActorById            = actorSelect + `WHERE id = ?`
	sqlSelectActorByURL           = actorSelect + `WHERE url = ?`
	sqlSelectLocalActorByUsername = actorSelect + `WHERE preferred_username = ? AND local = 1`
	sqlSelectActorsByFollowersURL = actorSelect + `WHERE followers_url IN (%s)`
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanActor(row rowScanner) (*domain.Actor, error) {
	var a domain.Actor
	err := row.Scan(&a.Id, &a.Type, &a.PreferredUsername, &a.Host, &a.URL, &a.InboxURL,
		&a.SharedInboxURL, &a.FollowersURL, &a.Local, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (db *DB) CreateActor(ctx context.Context, tx *Tx, actor *domain.Actor) error {
	if actor.Id == uuid.Nil {
		actor.Id = uuid.New()
	}
	if actor.CreatedAt.IsZero() {
		actor.CreatedAt = time.Now()
	}
	if actor.Type == "" {
		actor.Type = "Person"
	}
	_, err := db.q(tx).ExecContext(ctx, sqlInsertActor,
		actor.Id.String(),
		actor.Type,
		actor.PreferredUsername,
		actor.Host,
		actor.URL,
		actor.InboxURL,
		actor.SharedInboxURL,
		actor.FollowersURL,
		actor.Local,
		actor.CreatedAt,
	)
	return err
}

func (db *DB) ReadActorById(ctx context.Context, tx *Tx, id uuid.UUID) (*domain.Actor, error) {
	actor, err := scanActor(db.q(tx).QueryRowContext(ctx, sqlSelectActorById, id.String()))
	return actor, notFound(err)
}

func (db *DB) ReadActorByURL(ctx context.Context, tx *Tx, url string) (*domain.Actor, error) {
	actor, err := scanActor(db.q(tx).QueryRowContext(ctx, sqlSelectActorByURL, url))
	return actor, notFound(err)
}

func (db *DB) ReadLocalActorByUsername(ctx context.Context, username string) (*domain.Actor, error) {
	actor, err := scanActor(db.db.QueryRowContext(ctx, sqlSelectLocalActorByUsername, username))
	return actor, notFound(err)
}

// ListActorsByFollowersURLs returns the known actors owning any of the given
// followers collections. Unknown URLs are simply absent from the result.
func (db *DB) ListActorsByFollowersURLs(ctx context.Context, tx *Tx, urls []string) ([]*domain.Actor, error) {
	if len(urls) == 0 {
		return nil, nil
	}

	args := make([]any, len(urls))
	for i, u := range urls {
		args[i] = u
	}
	rows, err := db.q(tx).QueryContext(ctx, fmt.Sprintf(sqlSelectActorsByFollowersURL, placeholders(len(urls))), args...)
	if err != nil {
		return nil, err
	}
	return collectActors(rows)
}

func collectActors(rows *sql.Rows) ([]*domain.Actor, error) {
	defer rows.Close()

	var actors []*domain.Actor
	for rows.Next() {
		actor, err := scanActor(rows)
		if err != nil {
			return actors, err
		}
		actors = append(actors, actor)
	}
	return actors, rows.Err()
}

// EnsureServerActor creates the local application actor if it does not exist yet
func (db *DB) EnsureServerActor(ctx context.Context, name string, sslDomain string) (*domain.Actor, error) {
	actor, err := db.ReadLocalActorByUsername(ctx, name)
	if err == nil {
		return actor, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	actor = LocalActor("Application", name, sslDomain, "accounts")
	if err := db.wrapTransaction(func(tx *Tx) error {
		return db.CreateActor(ctx, tx, actor)
	}); err != nil {
		return nil, fmt.Errorf("failed to create server actor: %w", err)
	}
	return actor, nil
}

// LocalActor builds the addressing of an actor hosted here. kind is the
// URL namespace, "accounts" or "video-channels".
func LocalActor(actorType string, name string, sslDomain string, kind string) *domain.Actor {
	url := fmt.Sprintf("https://%s/%s/%s", sslDomain, kind, name)
	return &domain.Actor{
		Id:                uuid.New(),
		Type:              actorType,
		PreferredUsername: name,
		Host:              sslDomain,
		URL:               url,
		InboxURL:          url + "/inbox",
		SharedInboxURL:    fmt.Sprintf("https://%s/inbox", sslDomain),
		FollowersURL:      url + "/followers",
		Local:             true,
		CreatedAt:         time.Now(),
	}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
