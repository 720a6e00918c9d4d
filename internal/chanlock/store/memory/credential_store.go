package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/chanlock/chanlock/internal/chanlock/store"
)

// CredentialStore is an in-memory credential map for tests and dev.
type CredentialStore struct {
	mu    sync.RWMutex
	creds map[string]store.Credential
}

func NewCredentialStore() *CredentialStore {
	return &CredentialStore{
		creds: make(map[string]store.Credential),
	}
}

func (s *CredentialStore) Put(_ context.Context, cred store.Credential) error {
	cred.ResourceID = strings.TrimSpace(cred.ResourceID)
	if cred.ResourceID == "" {
		return nil
	}
	if cred.CreatedAt.IsZero() {
		cred.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds[cred.ResourceID] = cred
	return nil
}

func (s *CredentialStore) Get(_ context.Context, resourceID string) (store.Credential, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cred, ok := s.creds[strings.TrimSpace(resourceID)]
	return cred, ok, nil
}

func (s *CredentialStore) Remove(_ context.Context, resourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.creds, strings.TrimSpace(resourceID))
	return nil
}

func (s *CredentialStore) ListProtected(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.creds))
	for id := range s.creds {
		ids = append(ids, id)
	}
	return ids, nil
}
