package memory

import (
	"context"
	"sync"

	"github.com/chanlock/chanlock/internal/chanlock/store"
)

// UnlockEventStore is an in-memory append-only log of unlock decisions.
// It is intended for use in tests and dev environments.
type UnlockEventStore struct {
	mu     sync.Mutex
	events []store.UnlockEventRecord
}

func NewUnlockEventStore() *UnlockEventStore {
	return &UnlockEventStore{}
}

func (s *UnlockEventStore) RecordEvent(_ context.Context, rec store.UnlockEventRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, rec)
	return nil
}

// Events returns a copy of all recorded events.  Test-only helper.
func (s *UnlockEventStore) Events() []store.UnlockEventRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.UnlockEventRecord, len(s.events))
	copy(out, s.events)
	return out
}
