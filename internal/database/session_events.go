package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/bang/internal/cache"
)

const schema = `
	CREATE TABLE IF NOT EXISTS sessions (
		id         UUID PRIMARY KEY,
		started_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_event TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE TABLE IF NOT EXISTS session_events (
		session_id  UUID        NOT NULL REFERENCES sessions (id),
		event_index INTEGER     NOT NULL,
		actor_id    UUID        NOT NULL,
		event_type  TEXT        NOT NULL,
		payload     JSONB       NOT NULL,
		occurred_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (session_id, event_index)
	);
`

// EnsureSchema creates the history tables if they do not exist.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// InsertSessionEvents writes a batch of records in one transaction. Records
// already stored (same session and index) are skipped.
func InsertSessionEvents(ctx context.Context, pool *pgxpool.Pool, recs []cache.SessionEventRecord) error {
	err := pgx.BeginTxFunc(ctx, pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range recs {
			if err := insertSessionEventTx(ctx, tx, rec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("insert %d session events: %w", len(recs), err)
	}
	return nil
}

func insertSessionEventTx(ctx context.Context, tx pgx.Tx, rec cache.SessionEventRecord) error {
	upsertSessionQ := `
		INSERT INTO sessions (id, started_at, last_event)
		VALUES ($1, to_timestamp($2 / 1000.0), to_timestamp($2 / 1000.0))
		ON CONFLICT (id)
		DO UPDATE SET last_event = GREATEST(sessions.last_event, EXCLUDED.last_event)
	`
	if _, err := tx.Exec(ctx, upsertSessionQ, rec.SessionID, rec.Timestamp); err != nil {
		return err
	}

	payload, err := json.Marshal(rec.Payload)
	if err != nil {
		return err
	}
	insertEventQ := `
		INSERT INTO session_events (
			session_id, event_index, actor_id, event_type, payload, occurred_at
		) VALUES ($1, $2, $3, $4, $5, to_timestamp($6 / 1000.0))
		ON CONFLICT (session_id, event_index) DO NOTHING
	`
	_, err = tx.Exec(ctx, insertEventQ,
		rec.SessionID, rec.Index, rec.ActorID, rec.EventType, payload, rec.Timestamp,
	)
	return err
}

// SessionEventStore persists batches of session event records to a pool.
type SessionEventStore struct {
	pool *pgxpool.Pool
}

// NewSessionEventStore wraps pool.
func NewSessionEventStore(pool *pgxpool.Pool) *SessionEventStore {
	return &SessionEventStore{pool: pool}
}

// InsertSessionEvents writes recs in a single transaction.
func (s *SessionEventStore) InsertSessionEvents(ctx context.Context, recs []cache.SessionEventRecord) error {
	return InsertSessionEvents(ctx, s.pool, recs)
}
