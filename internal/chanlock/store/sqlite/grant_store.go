package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/chanlock/chanlock/internal/chanlock/store"
	dbpkg "github.com/chanlock/chanlock/internal/db"
)

type GrantStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewGrantStore(db *sql.DB, writer *dbpkg.Worker) *GrantStore {
	return &GrantStore{db: db, writer: writer}
}

// Upsert creates or replaces the grant for its (resource, subject) pair.
// A second unlock extends the expiry, it never stacks a second grant.
func (s *GrantStore) Upsert(ctx context.Context, g store.Grant) error {
	resourceID := strings.TrimSpace(g.ResourceID)
	subjectID := strings.TrimSpace(g.SubjectID)
	if resourceID == "" || subjectID == "" {
		return nil
	}

	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	createdMs := g.CreatedAt.UTC().UnixMilli()
	expiresMs := g.ExpiresAt.UTC().UnixMilli()

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO grants(resource_id, subject_id, expires_at_ms, created_at_ms)
VALUES (?, ?, ?, ?)
ON CONFLICT(resource_id, subject_id) DO UPDATE SET
  expires_at_ms = excluded.expires_at_ms;
`, resourceID, subjectID, expiresMs, createdMs); err != nil {
			return fmt.Errorf("Upsert grant: %w", err)
		}
		return nil
	})
}

func (s *GrantStore) Active(ctx context.Context, resourceID, subjectID string, now time.Time) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
SELECT COUNT(*) FROM grants
WHERE resource_id = ? AND subject_id = ? AND expires_at_ms > ?;
`, strings.TrimSpace(resourceID), strings.TrimSpace(subjectID), now.UTC().UnixMilli()).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("Active query: %w", err)
	}
	return n > 0, nil
}

// Revoke deletes the grant and reports whether a row was removed.  The
// delete runs on the single writer, so a timer firing concurrently with an
// explicit revoke sees the row exactly once between them.
func (s *GrantStore) Revoke(ctx context.Context, resourceID, subjectID string) (bool, error) {
	resourceID = strings.TrimSpace(resourceID)
	subjectID = strings.TrimSpace(subjectID)
	if resourceID == "" || subjectID == "" {
		return false, nil
	}

	var removed bool
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
DELETE FROM grants WHERE resource_id = ? AND subject_id = ?;
`, resourceID, subjectID)
		if err != nil {
			return fmt.Errorf("Revoke grant: %w", err)
		}
		n, _ := res.RowsAffected()
		removed = n > 0
		return nil
	})
	return removed, err
}

// RevokeExpired deletes the grant only if it is already past expiry.  The
// expiry guard and the delete are one statement on the single writer, so
// the check-and-clear is atomic against concurrent extensions and revokes.
func (s *GrantStore) RevokeExpired(ctx context.Context, resourceID, subjectID string, now time.Time) (bool, error) {
	resourceID = strings.TrimSpace(resourceID)
	subjectID = strings.TrimSpace(subjectID)
	if resourceID == "" || subjectID == "" {
		return false, nil
	}

	var removed bool
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
DELETE FROM grants
WHERE resource_id = ? AND subject_id = ? AND expires_at_ms <= ?;
`, resourceID, subjectID, now.UTC().UnixMilli())
		if err != nil {
			return fmt.Errorf("RevokeExpired grant: %w", err)
		}
		n, _ := res.RowsAffected()
		removed = n > 0
		return nil
	})
	return removed, err
}

// DueForExpiry returns grants already past their expiry, oldest first.
// Uses the idx_grants_expiry index for a range scan.
func (s *GrantStore) DueForExpiry(ctx context.Context, now time.Time) ([]store.Grant, error) {
	return s.queryGrants(ctx, `
SELECT resource_id, subject_id, expires_at_ms, created_at_ms
FROM grants
WHERE expires_at_ms <= ?
ORDER BY expires_at_ms;
`, now.UTC().UnixMilli())
}

func (s *GrantStore) ListLive(ctx context.Context, now time.Time) ([]store.Grant, error) {
	return s.queryGrants(ctx, `
SELECT resource_id, subject_id, expires_at_ms, created_at_ms
FROM grants
WHERE expires_at_ms > ?
ORDER BY expires_at_ms;
`, now.UTC().UnixMilli())
}

func (s *GrantStore) queryGrants(ctx context.Context, query string, args ...any) ([]store.Grant, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query grants: %w", err)
	}
	defer rows.Close()

	var grants []store.Grant
	for rows.Next() {
		var g store.Grant
		var expiresMs, createdMs int64
		if err := rows.Scan(&g.ResourceID, &g.SubjectID, &expiresMs, &createdMs); err != nil {
			return nil, fmt.Errorf("scan grant: %w", err)
		}
		g.ExpiresAt = time.UnixMilli(expiresMs).UTC()
		g.CreatedAt = time.UnixMilli(createdMs).UTC()
		grants = append(grants, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("grant rows: %w", err)
	}
	return grants, nil
}
