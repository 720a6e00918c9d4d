package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/chanlock/chanlock/internal/chanlock/store"
)

type grantKey struct {
	resourceID string
	subjectID  string
}

// GrantStore is an in-memory grant ledger for tests and dev.  The single
// mutex gives the same serialization the sqlite store gets from the db
// worker.
type GrantStore struct {
	mu     sync.Mutex
	grants map[grantKey]store.Grant
}

func NewGrantStore() *GrantStore {
	return &GrantStore{
		grants: make(map[grantKey]store.Grant),
	}
}

func (s *GrantStore) Upsert(_ context.Context, g store.Grant) error {
	g.ResourceID = strings.TrimSpace(g.ResourceID)
	g.SubjectID = strings.TrimSpace(g.SubjectID)
	if g.ResourceID == "" || g.SubjectID == "" {
		return nil
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}

	key := grantKey{g.ResourceID, g.SubjectID}

	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.grants[key]; ok {
		// Replacement keeps the first grant's creation time.
		g.CreatedAt = prev.CreatedAt
	}
	s.grants[key] = g
	return nil
}

func (s *GrantStore) Active(_ context.Context, resourceID, subjectID string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.grants[grantKey{strings.TrimSpace(resourceID), strings.TrimSpace(subjectID)}]
	return ok && now.Before(g.ExpiresAt), nil
}

func (s *GrantStore) Revoke(_ context.Context, resourceID, subjectID string) (bool, error) {
	key := grantKey{strings.TrimSpace(resourceID), strings.TrimSpace(subjectID)}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.grants[key]
	delete(s.grants, key)
	return ok, nil
}

func (s *GrantStore) RevokeExpired(_ context.Context, resourceID, subjectID string, now time.Time) (bool, error) {
	key := grantKey{strings.TrimSpace(resourceID), strings.TrimSpace(subjectID)}

	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.grants[key]
	if !ok || g.ExpiresAt.After(now) {
		return false, nil
	}
	delete(s.grants, key)
	return true, nil
}

func (s *GrantStore) DueForExpiry(_ context.Context, now time.Time) ([]store.Grant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []store.Grant
	for _, g := range s.grants {
		if !g.ExpiresAt.After(now) {
			due = append(due, g)
		}
	}
	sortByExpiry(due)
	return due, nil
}

func (s *GrantStore) ListLive(_ context.Context, now time.Time) ([]store.Grant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var live []store.Grant
	for _, g := range s.grants {
		if g.ExpiresAt.After(now) {
			live = append(live, g)
		}
	}
	sortByExpiry(live)
	return live, nil
}

func sortByExpiry(grants []store.Grant) {
	sort.Slice(grants, func(i, j int) bool {
		return grants[i].ExpiresAt.Before(grants[j].ExpiresAt)
	})
}
