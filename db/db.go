package db

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/deemkeen/fanout/util"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by single-row reads that match nothing
var ErrNotFound = errors.New("record not found")

// DB is the database struct.
type DB struct {
	db *sql.DB
}

var (
	dbInstance *DB
	dbOnce     sync.Once
)

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// GetDB returns the process-wide database, opening and migrating it on first use
func GetDB() *DB {
	dbOnce.Do(func() {
		conf, err := util.ReadConf()
		if err != nil {
			panic(err)
		}
		path := conf.Conf.DatabasePath
		if path == "" {
			path = util.ResolveFilePath("database.db")
		}

		database, err := Open(path)
		if err != nil {
			panic(err)
		}
		dbInstance = database
	})

	return dbInstance
}

// connPragmas run on every pooled connection the driver opens
var connPragmas = []string{
	"busy_timeout(5000)",
	"foreign_keys(1)",
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
}

func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=" + strings.Join(connPragmas, "&_pragma=")
}

// Open opens the sqlite database at path and runs the migrations
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	var journalMode string
	if err := sqlDB.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		log.Printf("Warning: Failed to read journal mode: %v", err)
	} else {
		log.Printf("Database journal mode: %s", journalMode)
	}

	database := &DB{db: sqlDB}
	if err := database.RunMigrations(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return database, nil
}

func (db *DB) Close() error {
	return db.db.Close()
}

// q picks the transaction when there is one
func (db *DB) q(tx *Tx) querier {
	if tx != nil {
		return tx.tx
	}
	return db.db
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
