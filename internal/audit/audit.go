// Package audit provides an optional, non-authoritative append-only
// trail of job status transitions. It is a convenience for operators
// querying history directly in SQL; the in-memory Cluster Store alone
// remains authoritative for scheduling decisions.
package audit

import (
	"database/sql"
	"log"
	"time"

	_ "github.com/lib/pq"
)

// Sink writes job events to Postgres. A nil *Sink is valid and silently
// drops every event, so callers don't need to branch on whether
// auditing is enabled.
type Sink struct {
	db *sql.DB
}

// Open connects to databaseURL and ensures the job_events table exists.
// Callers should defer Close on the returned Sink.
func Open(databaseURL string) (*Sink, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	const schema = `
		CREATE TABLE IF NOT EXISTS job_events (
			id          BIGSERIAL PRIMARY KEY,
			job_id      TEXT NOT NULL,
			from_status TEXT,
			to_status   TEXT NOT NULL,
			reason      TEXT NOT NULL,
			recorded_at TIMESTAMPTZ NOT NULL
		)
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &Sink{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Sink) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RecordJobEvent appends one transition record. Failures are logged and
// swallowed: a broken audit sink must never block a job transition.
func (s *Sink) RecordJobEvent(jobID string, fromStatus *string, toStatus, reason string) {
	if s == nil || s.db == nil {
		return
	}

	const insert = `
		INSERT INTO job_events (job_id, from_status, to_status, reason, recorded_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := s.db.Exec(insert, jobID, fromStatus, toStatus, reason, time.Now().UTC()); err != nil {
		log.Printf("audit: failed to record event for job %s: %v", jobID, err)
	}
}
