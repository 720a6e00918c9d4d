package store

import (
	"context"
	"time"
)

// Grant is a time-bounded visibility exception for one (resource, subject)
// pair.  Pairs are unique: a new unlock replaces the prior grant's expiry
// rather than stacking a second grant.
type Grant struct {
	ResourceID string
	SubjectID  string
	ExpiresAt  time.Time
	CreatedAt  time.Time
}

// GrantStore is the durable ledger of active temporary-access grants.
type GrantStore interface {
	// Upsert creates or replaces the grant for (ResourceID, SubjectID).
	Upsert(ctx context.Context, g Grant) error

	// Active reports whether a grant exists for the pair and now is
	// strictly before its expiry.
	Active(ctx context.Context, resourceID, subjectID string, now time.Time) (bool, error)

	// Revoke removes the grant if present and reports whether a row was
	// actually removed.  Idempotent; the bool lets the expiry scheduler
	// fire its callback at most once per grant.
	Revoke(ctx context.Context, resourceID, subjectID string) (bool, error)

	// RevokeExpired removes the grant only if its expiry is at or before
	// now, and reports whether a row was removed.  This is the scheduler's
	// check-and-clear: a grant extended by a concurrent unlock is left
	// alone, and a grant already revoked reports false so the callback
	// cannot fire twice.
	RevokeExpired(ctx context.Context, resourceID, subjectID string, now time.Time) (bool, error)

	// DueForExpiry returns grants whose expiry is at or before now.
	// Re-querying after processing returns the remaining set, so the
	// scheduler's catch-up pass after downtime can drain it.
	DueForExpiry(ctx context.Context, now time.Time) ([]Grant, error)

	// ListLive returns grants expiring after now, for re-arming timers on
	// startup.
	ListLive(ctx context.Context, now time.Time) ([]Grant, error)
}
