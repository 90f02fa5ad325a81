package events

import (
	"context"
	"database/sql"
	"time"
)

// Repo appends domain events (AttemptStarted, AttemptSubmitted,
// AttemptGraded, SessionCreated, SessionExpired) to the event_log table.
type Repo struct{ db *sql.DB }

func NewRepo(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) Append(ctx context.Context, typ, key, dataJSON string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO event_log (typ, key, data, created_at)
		 VALUES ($1,$2,$3,$4)`,
		typ, key, dataJSON, time.Now().Unix())
	return err
}
