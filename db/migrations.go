package db

import (
	"log"
)

const (
	sqlCreateActorsTable = `CREATE TABLE IF NOT EXISTS actors (
		id TEXT NOT NULL PRIMARY KEY,
		type TEXT NOT NULL DEFAULT 'Person',
		preferred_username TEXT NOT NULL,
		host TEXT NOT NULL,
		url TEXT UNIQUE NOT NULL,
		inbox_url TEXT NOT NULL,
		shared_inbox_url TEXT NOT NULL DEFAULT '',
		followers_url TEXT NOT NULL,
		local INTEGER DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(preferred_username, host)
	)`

	sqlCreateActorsIndices = `
		CREATE INDEX IF NOT EXISTS idx_actors_followers_url ON actors(followers_url);
		CREATE INDEX IF NOT EXISTS idx_actors_local ON actors(local);
	`

	sqlCreateAccountsTable = `CREATE TABLE IF NOT EXISTS accounts (
		id TEXT NOT NULL PRIMARY KEY,
		name TEXT NOT NULL,
		actor_id TEXT UNIQUE NOT NULL REFERENCES actors(id) ON DELETE CASCADE
	)`

	sqlCreateVideoChannelsTable = `CREATE TABLE IF NOT EXISTS video_channels (
		id TEXT NOT NULL PRIMARY KEY,
		name TEXT NOT NULL,
		account_id TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		actor_id TEXT UNIQUE NOT NULL REFERENCES actors(id) ON DELETE CASCADE
	)`

	sqlCreateVideosTable = `CREATE TABLE IF NOT EXISTS videos (
		id TEXT NOT NULL PRIMARY KEY,
		url TEXT UNIQUE NOT NULL,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		channel_id TEXT NOT NULL REFERENCES video_channels(id) ON DELETE CASCADE,
		remote INTEGER DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	sqlCreateVideoCommentsTable = `CREATE TABLE IF NOT EXISTS video_comments (
		id TEXT NOT NULL PRIMARY KEY,
		url TEXT UNIQUE NOT NULL,
		video_id TEXT NOT NULL REFERENCES videos(id) ON DELETE CASCADE,
		actor_id TEXT NOT NULL REFERENCES actors(id) ON DELETE CASCADE,
		text TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	sqlCreateVideoSharesTable = `CREATE TABLE IF NOT EXISTS video_shares (
		id TEXT NOT NULL PRIMARY KEY,
		url TEXT UNIQUE NOT NULL,
		actor_id TEXT NOT NULL REFERENCES actors(id) ON DELETE CASCADE,
		video_id TEXT NOT NULL REFERENCES videos(id) ON DELETE CASCADE,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(actor_id, video_id)
	)`

	sqlCreateVideoRatesTable = `CREATE TABLE IF NOT EXISTS video_rates (
		id TEXT NOT NULL PRIMARY KEY,
		url TEXT NOT NULL,
		actor_id TEXT NOT NULL REFERENCES actors(id) ON DELETE CASCADE,
		video_id TEXT NOT NULL REFERENCES videos(id) ON DELETE CASCADE,
		type TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(actor_id, video_id)
	)`

	sqlCreateFollowsTable = `CREATE TABLE IF NOT EXISTS follows (
		id TEXT NOT NULL PRIMARY KEY,
		actor_id TEXT NOT NULL REFERENCES actors(id) ON DELETE CASCADE,
		target_actor_id TEXT NOT NULL REFERENCES actors(id) ON DELETE CASCADE,
		uri TEXT NOT NULL DEFAULT '',
		state TEXT NOT NULL DEFAULT 'pending',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(actor_id, target_actor_id)
	)`

	sqlCreateFollowsIndices = `
		CREATE INDEX IF NOT EXISTS idx_follows_target_state ON follows(target_actor_id, state);
		CREATE INDEX IF NOT EXISTS idx_follows_uri ON follows(uri);
	`

	sqlCreateActivitiesTable = `CREATE TABLE IF NOT EXISTS activities (
		id TEXT NOT NULL PRIMARY KEY,
		activity_uri TEXT UNIQUE NOT NULL,
		activity_type TEXT NOT NULL,
		actor_uri TEXT NOT NULL,
		object_uri TEXT,
		raw_json TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	sqlCreateJobsTable = `CREATE TABLE IF NOT EXISTS jobs (
		id TEXT NOT NULL PRIMARY KEY,
		type TEXT NOT NULL,
		payload TEXT NOT NULL,
		attempts INTEGER DEFAULT 0,
		next_retry_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	sqlCreateJobsIndices = `
		CREATE INDEX IF NOT EXISTS idx_jobs_next_retry ON jobs(next_retry_at);
	`
)

var tables = []struct {
	name string
	sql  string
}{
	{"actors", sqlCreateActorsTable},
	{"accounts", sqlCreateAccountsTable},
	{"video_channels", sqlCreateVideoChannelsTable},
	{"videos", sqlCreateVideosTable},
	{"video_comments", sqlCreateVideoCommentsTable},
	{"video_shares", sqlCreateVideoSharesTable},
	{"video_rates", sqlCreateVideoRatesTable},
	{"follows", sqlCreateFollowsTable},
	{"activities", sqlCreateActivitiesTable},
	{"jobs", sqlCreateJobsTable},
}

var indices = []struct {
	table string
	sql   string
}{
	{"actors", sqlCreateActorsIndices},
	{"follows", sqlCreateFollowsIndices},
	{"jobs", sqlCreateJobsIndices},
}

// RunMigrations executes all database migrations
func (db *DB) RunMigrations() error {
	return db.wrapTransaction(func(tx *Tx) error {
		for _, table := range tables {
			if _, err := tx.tx.Exec(table.sql); err != nil {
				log.Printf("Error creating table %s: %v", table.name, err)
				return err
			}
		}

		for _, index := range indices {
			if _, err := tx.tx.Exec(index.sql); err != nil {
				log.Printf("Warning: Failed to create %s indices: %v", index.table, err)
			}
		}

		return nil
	})
}
