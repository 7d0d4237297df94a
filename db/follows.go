package db

import (
	"context"
	"fmt"
	"time"

	"github.com/deemkeen/fanout/domain"
	"github.com/google/uuid"
)

const (
	sqlInsertFollow = `INSERT INTO follows(id, actor_id, target_actor_id, uri, state, created_at) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(actor_id, target_actor_id) DO UPDATE SET uri = excluded.uri, state = excluded.state`
	sqlSelectFollowByURI       = `SELECT id, actor_id, target_actor_id, uri, state, created_at FROM follows WHERE uri = ?`
	sqlUpdateFollowStateByURI  = `UPDATE follows SET state = ? WHERE uri = ?`
	sqlDeleteFollowByURI       = `DELETE FROM follows WHERE uri = ?`
	sqlCountAcceptedFollowers  = `SELECT COUNT(*) FROM follows WHERE target_actor_id = ? AND state = 'accepted'`
	sqlSelectFollowerEndpoints = `SELECT DISTINCT CASE WHEN actors.shared_inbox_url != '' THEN actors.shared_inbox_url ELSE actors.inbox_url END AS endpoint
		FROM follows
		INNER JOIN actors ON actors.id = follows.actor_id
		WHERE follows.target_actor_id IN (%s) AND follows.state = 'accepted'
		ORDER BY endpoint`
)

// CreateFollow stores a follow, replacing an existing one between the same actors
func (db *DB) CreateFollow(ctx context.Context, tx *Tx, follow *domain.Follow) error {
	if follow.Id == uuid.Nil {
		follow.Id = uuid.New()
	}
	if follow.CreatedAt.IsZero() {
		follow.CreatedAt = time.Now()
	}
	if follow.State == "" {
		follow.State = domain.FollowPending
	}
	_, err := db.q(tx).ExecContext(ctx, sqlInsertFollow,
		follow.Id.String(),
		follow.ActorId.String(),
		follow.TargetActorId.String(),
		follow.URI,
		string(follow.State),
		follow.CreatedAt,
	)
	return err
}

func (db *DB) ReadFollowByURI(ctx context.Context, tx *Tx, uri string) (*domain.Follow, error) {
	var follow domain.Follow
	err := db.q(tx).QueryRowContext(ctx, sqlSelectFollowByURI, uri).Scan(
		&follow.Id,
		&follow.ActorId,
		&follow.TargetActorId,
		&follow.URI,
		&follow.State,
		&follow.CreatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &follow, nil
}

func (db *DB) UpdateFollowState(ctx context.Context, tx *Tx, uri string, state domain.FollowState) error {
	res, err := db.q(tx).ExecContext(ctx, sqlUpdateFollowStateByURI, string(state), uri)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DB) DeleteFollowByURI(ctx context.Context, tx *Tx, uri string) error {
	_, err := db.q(tx).ExecContext(ctx, sqlDeleteFollowByURI, uri)
	return err
}

func (db *DB) CountAcceptedFollowers(ctx context.Context, actorId uuid.UUID) (int, error) {
	var count int
	err := db.db.QueryRowContext(ctx, sqlCountAcceptedFollowers, actorId.String()).Scan(&count)
	return count, err
}

// ListAcceptedFollowerSharedInboxURLs returns the distinct delivery endpoints
// (shared inbox, else inbox) of the accepted followers of the given actors.
func (db *DB) ListAcceptedFollowerSharedInboxURLs(ctx context.Context, tx *Tx, actorIds []uuid.UUID) ([]string, error) {
	if len(actorIds) == 0 {
		return nil, nil
	}

	args := make([]any, len(actorIds))
	for i, id := range actorIds {
		args[i] = id.String()
	}
	rows, err := db.q(tx).QueryContext(ctx, fmt.Sprintf(sqlSelectFollowerEndpoints, placeholders(len(actorIds))), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var endpoints []string
	for rows.Next() {
		var endpoint string
		if err := rows.Scan(&endpoint); err != nil {
			return endpoints, err
		}
		endpoints = append(endpoints, endpoint)
	}
	return endpoints, rows.Err()
}
