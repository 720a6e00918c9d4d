package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/chanlock/chanlock/internal/chanlock/store"
	dbpkg "github.com/chanlock/chanlock/internal/db"
)

type UnlockEventStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewUnlockEventStore(db *sql.DB, writer *dbpkg.Worker) *UnlockEventStore {
	return &UnlockEventStore{db: db, writer: writer}
}

func (s *UnlockEventStore) RecordEvent(ctx context.Context, rec store.UnlockEventRecord) error {
	if rec.DecidedAt.IsZero() {
		rec.DecidedAt = time.Now().UTC()
	}
	decidedMs := rec.DecidedAt.UTC().UnixMilli()

	var granted int
	if rec.Granted {
		granted = 1
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO unlock_events(resource_id, subject_id, granted, reason, decided_at_ms)
VALUES (?, ?, ?, ?, ?);
`, rec.ResourceID, rec.SubjectID, granted, rec.Reason, decidedMs); err != nil {
			return fmt.Errorf("RecordEvent insert: %w", err)
		}
		return nil
	})
}
