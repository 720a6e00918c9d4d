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

type CredentialStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewCredentialStore(db *sql.DB, writer *dbpkg.Worker) *CredentialStore {
	return &CredentialStore{db: db, writer: writer}
}

// Put upserts the credential.  Re-protecting a resource replaces its salt
// and hash wholesale; the write goes through the single-writer worker so
// two concurrent protects cannot interleave.
func (s *CredentialStore) Put(ctx context.Context, cred store.Credential) error {
	resourceID := strings.TrimSpace(cred.ResourceID)
	if resourceID == "" {
		return nil
	}

	if cred.CreatedAt.IsZero() {
		cred.CreatedAt = time.Now().UTC()
	}
	nowMs := cred.CreatedAt.UTC().UnixMilli()

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO credentials(resource_id, salt, hash, created_at_ms, updated_at_ms)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(resource_id) DO UPDATE SET
  salt = excluded.salt,
  hash = excluded.hash,
  updated_at_ms = excluded.updated_at_ms;
`, resourceID, cred.Salt, cred.Hash, nowMs, nowMs); err != nil {
			return fmt.Errorf("Put credential: %w", err)
		}
		return nil
	})
}

func (s *CredentialStore) Get(ctx context.Context, resourceID string) (store.Credential, bool, error) {
	resourceID = strings.TrimSpace(resourceID)
	if resourceID == "" {
		return store.Credential{}, false, nil
	}

	var cred store.Credential
	var createdMs int64

	err := s.db.QueryRowContext(ctx, `
SELECT resource_id, salt, hash, created_at_ms
FROM credentials
WHERE resource_id = ?;
`, resourceID).Scan(&cred.ResourceID, &cred.Salt, &cred.Hash, &createdMs)

	if err == sql.ErrNoRows {
		return store.Credential{}, false, nil
	}
	if err != nil {
		return store.Credential{}, false, fmt.Errorf("Get credential: %w", err)
	}

	cred.CreatedAt = time.UnixMilli(createdMs).UTC()
	return cred, true, nil
}

func (s *CredentialStore) Remove(ctx context.Context, resourceID string) error {
	resourceID = strings.TrimSpace(resourceID)
	if resourceID == "" {
		return nil
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
DELETE FROM credentials WHERE resource_id = ?;
`, resourceID); err != nil {
			return fmt.Errorf("Remove credential: %w", err)
		}
		return nil
	})
}

func (s *CredentialStore) ListProtected(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT resource_id FROM credentials ORDER BY resource_id;
`)
	if err != nil {
		return nil, fmt.Errorf("ListProtected query: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ListProtected scan: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListProtected rows: %w", err)
	}
	return ids, nil
}
