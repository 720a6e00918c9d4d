package store

import (
	"context"
	"time"
)

// UnlockEventRecord captures a single unlock decision for the audit log.
// Denied attempts are recorded with their true reason even when the
// user-facing reply deliberately does not distinguish them.
type UnlockEventRecord struct {
	ResourceID string
	SubjectID  string
	Granted    bool
	Reason     string
	DecidedAt  time.Time
}

// UnlockEventStore persists unlock decisions as an append-only audit log.
type UnlockEventStore interface {
	RecordEvent(ctx context.Context, rec UnlockEventRecord) error
}
