package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/chanlock/chanlock/internal/chanlock/store"
)

// RevokeFunc is the platform-side revocation callback, invoked after a
// grant has been cleared from the ledger.
type RevokeFunc func(ctx context.Context, g store.Grant) error

type grantKey struct {
	resourceID string
	subjectID  string
}

// ExpiryScheduler revokes every grant exactly once, at or shortly after its
// expiry, and keeps that guarantee across process restarts.
//
// Each scheduled grant gets a one-shot timer.  On Start the scheduler first
// drains everything that expired while the process was down, then re-arms
// timers from the stored expiries (never a fresh TTL).  A periodic sweep
// backstops timers lost to transient store errors.
type ExpiryScheduler struct {
	grants store.GrantStore
	revoke RevokeFunc
	logger *log.Logger

	interval  time.Duration
	onFailure func(store.Grant, error)

	mu     sync.Mutex
	timers map[grantKey]*time.Timer

	runCtx context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// SchedulerConfig holds the parameters for NewExpiryScheduler.
type SchedulerConfig struct {
	// SweepInterval is how often the backstop sweep runs.  Defaults to
	// one minute.
	SweepInterval time.Duration

	// OnRevokeFailure, if set, receives grants whose platform-side
	// revocation callback failed after the ledger entry was already
	// cleared.  An external reconciliation pass can retry from here; the
	// local access decision is authoritative regardless.
	OnRevokeFailure func(store.Grant, error)
}

// NewExpiryScheduler creates a scheduler but does not start it.
// Call Start to run the catch-up pass and begin the background loop.
func NewExpiryScheduler(grants store.GrantStore, revoke RevokeFunc, cfg SchedulerConfig, logger *log.Logger) *ExpiryScheduler {
	interval := cfg.SweepInterval
	if interval <= 0 {
		interval = time.Minute
	}

	return &ExpiryScheduler{
		grants:    grants,
		revoke:    revoke,
		logger:    logger,
		interval:  interval,
		onFailure: cfg.OnRevokeFailure,
		timers:    make(map[grantKey]*time.Timer),
		done:      make(chan struct{}),
	}
}

// Start runs the catch-up pass synchronously — grants that expired while
// the process was down are revoked before Start returns, so nothing else
// can observe them — then re-arms timers for the remaining live grants and
// begins the sweep loop.
func (s *ExpiryScheduler) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)
	s.runCtx = ctx

	s.sweep(ctx)

	live, err := s.grants.ListLive(ctx, time.Now().UTC())
	if err != nil {
		s.cancel()
		close(s.done)
		return err
	}
	for _, g := range live {
		s.Schedule(g)
	}

	go s.loop(ctx)

	s.logger.Printf("expiry scheduler started (rearmed=%d, sweep=%s)", len(live), s.interval)
	return nil
}

// Stop signals the scheduler to exit, disarms all timers, and waits for the
// sweep loop to finish.
func (s *ExpiryScheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}

	s.mu.Lock()
	for key, t := range s.timers {
		t.Stop()
		delete(s.timers, key)
	}
	s.mu.Unlock()

	<-s.done
}

// Schedule arranges the one-shot revocation for g, replacing any timer
// already armed for the same (resource, subject) pair.  An expiry already
// in the past fires immediately.
func (s *ExpiryScheduler) Schedule(g store.Grant) {
	key := grantKey{g.ResourceID, g.SubjectID}

	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[key]; ok {
		t.Stop()
	}
	s.timers[key] = time.AfterFunc(time.Until(g.ExpiresAt), func() {
		s.expire(g)
	})
}

func (s *ExpiryScheduler) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// sweep revokes every grant already past its expiry.  On startup this is
// the restart catch-up pass; afterwards it only catches grants whose timer
// was lost to a transient revoke error.
func (s *ExpiryScheduler) sweep(ctx context.Context) {
	now := time.Now().UTC()
	due, err := s.grants.DueForExpiry(ctx, now)
	if err != nil {
		s.logger.Printf("expiry sweep error: %v", err)
		return
	}
	for _, g := range due {
		s.expire(g)
	}
	if len(due) > 0 {
		s.logger.Printf("expiry sweep: processed %d overdue grants", len(due))
	}
}

// expire performs the revoke+callback sequence for one grant.  The ledger's
// RevokeExpired is the check-and-clear: if the grant was already revoked or
// has been extended past now, nothing is removed and the callback does not
// fire.  The ledger write comes first — the local access decision is
// authoritative even when the platform call then fails.
func (s *ExpiryScheduler) expire(g store.Grant) {
	ctx := s.runCtx
	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Err() != nil {
		return
	}

	key := grantKey{g.ResourceID, g.SubjectID}
	s.mu.Lock()
	if t, ok := s.timers[key]; ok {
		t.Stop()
		delete(s.timers, key)
	}
	s.mu.Unlock()

	removed, err := s.grants.RevokeExpired(ctx, g.ResourceID, g.SubjectID, time.Now().UTC())
	if err != nil {
		// The row is still there; the next sweep retries.
		s.logger.Printf("revoke failed resource=%s subject=%s: %v", g.ResourceID, g.SubjectID, err)
		return
	}
	if !removed {
		return
	}

	if err := s.revoke(ctx, g); err != nil {
		s.logger.Printf("revocation callback failed resource=%s subject=%s: %v", g.ResourceID, g.SubjectID, err)
		if s.onFailure != nil {
			s.onFailure(g, err)
		}
		return
	}

	s.logger.Printf("grant revoked resource=%s subject=%s", g.ResourceID, g.SubjectID)
}
