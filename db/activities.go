package db

import (
	"context"
	"errors"
	"time"

	"github.com/deemkeen/fanout/domain"
	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"
)

// ErrDuplicate is returned when an activity was already logged
var ErrDuplicate = errors.New("duplicate record")

const (
	sqlInsertActivity = `INSERT INTO activities(id, activity_uri, activity_type, actor_uri, object_uri, raw_json, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`
)

// CreateActivity logs an inbound activity, returning ErrDuplicate when its
// URI was seen before.
func (db *DB) CreateActivity(ctx context.Context, tx *Tx, activity *domain.Activity) error {
	if activity.Id == uuid.Nil {
		activity.Id = uuid.New()
	}
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = time.Now()
	}
	_, err := db.q(tx).ExecContext(ctx, sqlInsertActivity,
		activity.Id.String(),
		activity.ActivityURI,
		activity.ActivityType,
		activity.ActorURI,
		activity.ObjectURI,
		activity.RawJSON,
		activity.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func isUniqueViolation(err error) bool {
	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return false
	}
	switch serr.Code() {
	case sqlitelib.SQLITE_CONSTRAINT, sqlitelib.SQLITE_CONSTRAINT_UNIQUE, sqlitelib.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}
