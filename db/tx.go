package db

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"sync"
	"time"

	"modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"
)

const maxBusyRetries = 5

// Tx is an open transaction that can carry actions to run once it commits
type Tx struct {
	tx *sql.Tx

	mu          sync.Mutex
	afterCommit []func()
}

// AfterCommit registers fn to run after the transaction commits.
// fn never runs if the transaction rolls back.
func (t *Tx) AfterCommit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.afterCommit = append(t.afterCommit, fn)
}

func (t *Tx) takeHooks() []func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	hooks := t.afterCommit
	t.afterCommit = nil
	return hooks
}

// AfterCommitIfTransaction runs fn right away without a transaction, otherwise
// once tx commits. A deferred failure can only be logged.
func AfterCommitIfTransaction(tx *Tx, fn func() error) error {
	if tx == nil {
		return fn()
	}

	tx.AfterCommit(func() {
		if err := fn(); err != nil {
			log.Printf("Tx: post-commit action failed: %v", err)
		}
	})
	return nil
}

// WithTransaction runs f within a transaction and fires the registered
// post-commit actions after a successful commit.
func (db *DB) WithTransaction(ctx context.Context, f func(tx *Tx) error) error {
	var err error
	for attempt := 0; attempt < maxBusyRetries; attempt++ {
		var committed *Tx
		committed, err = db.runTransaction(ctx, f)
		if err == nil {
			for _, hook := range committed.takeHooks() {
				hook()
			}
			return nil
		}
		if !isBusy(err) {
			return err
		}
		log.Printf("Tx: database busy, retrying (attempt %d)", attempt+1)
		time.Sleep(time.Duration(attempt+1) * 50 * time.Millisecond)
	}
	return err
}

func (db *DB) runTransaction(ctx context.Context, f func(tx *Tx) error) (*Tx, error) {
	sqlTx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		log.Printf("error starting transaction: %s", err)
		return nil, err
	}

	tx := &Tx{tx: sqlTx}
	if err := f(tx); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Printf("error rolling back transaction: %s", rbErr)
		}
		return nil, err
	}

	if err := sqlTx.Commit(); err != nil {
		log.Printf("error committing transaction: %s", err)
		return nil, err
	}
	return tx, nil
}

// wrapTransaction runs the given function within a transaction.
func (db *DB) wrapTransaction(f func(tx *Tx) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	return db.WithTransaction(ctx, f)
}

func isBusy(err error) bool {
	var serr *sqlite.Error
	// extended codes keep the primary code in the low byte
	return errors.As(err, &serr) && serr.Code()&0xff == sqlitelib.SQLITE_BUSY
}
