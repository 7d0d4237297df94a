package db

import (
	"context"
	"time"

	"github.com/deemkeen/fanout/domain"
)

// Job queue queries
const (
	sqlInsertJob         = `INSERT INTO jobs(id, type, payload, attempts, next_retry_at, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	sqlSelectPendingJobs = `SELECT id, type, payload, attempts, next_retry_at, created_at FROM jobs WHERE next_retry_at <= ? ORDER BY created_at ASC LIMIT ?`
	sqlCountJobsByType   = `SELECT COUNT(*) FROM jobs WHERE type = ?`
)

// CreateJob appends a job to the queue. It satisfies the job queue used by
// the distribution engine; the queue is append-only from that side.
func (db *DB) CreateJob(ctx context.Context, job *domain.Job) error {
	return db.WithTransaction(ctx, func(tx *Tx) error {
		_, err := tx.tx.ExecContext(ctx, sqlInsertJob,
			job.Id.String(),
			string(job.Type),
			string(job.Payload),
			job.Attempts,
			job.NextRetryAt,
			job.CreatedAt,
		)
		return err
	})
}

func (db *DB) ReadPendingJobs(ctx context.Context, limit int) ([]domain.Job, error) {
	rows, err := db.db.QueryContext(ctx, sqlSelectPendingJobs, time.Now(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		var job domain.Job
		var payload string
		if err := rows.Scan(&job.Id, &job.Type, &payload, &job.Attempts, &job.NextRetryAt, &job.CreatedAt); err != nil {
			return jobs, err
		}
		job.Payload = []byte(payload)
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (db *DB) CountJobs(ctx context.Context, jobType domain.JobType) (int, error) {
	var count int
	err := db.db.QueryRowContext(ctx, sqlCountJobsByType, string(jobType)).Scan(&count)
	return count, err
}
