package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/chanlock/chanlock/internal/chanlock/passhash"
	"github.com/chanlock/chanlock/internal/chanlock/platform"
	"github.com/chanlock/chanlock/internal/chanlock/store"
	"github.com/chanlock/chanlock/internal/chanlock/types"
)

// DefaultGrantTTL is how long an unlocked resource stays visible to the
// unlocking subject.
const DefaultGrantTTL = 30 * time.Minute

var (
	ErrResourceRequired   = errors.New("resource name is required")
	ErrSubjectRequired    = errors.New("subject is required")
	ErrPassphraseRequired = errors.New("passphrase is required")

	ErrResourceNotFound  = errors.New("resource not found")
	ErrNotProtected      = errors.New("resource is not protected")
	ErrInvalidPassphrase = errors.New("invalid passphrase")

	// ErrAdapter wraps platform adapter failures that block an operation
	// outright (resolution).  Post-commit adapter failures are reported as
	// warnings instead; the local state change stands.
	ErrAdapter = errors.New("platform adapter call failed")
)

// ControllerConfig holds the tunables for NewAccessController.
type ControllerConfig struct {
	// GrantTTL is the fixed time-to-live of unlock grants.  Defaults to
	// DefaultGrantTTL.
	GrantTTL time.Duration

	// AdapterTimeout bounds each platform adapter call.  Defaults to 5s.
	AdapterTimeout time.Duration
}

// AccessController orchestrates the credential store, hasher, grant ledger,
// and expiry scheduler into the three externally visible operations.  It
// owns when visibility changes happen; the platform adapter owns how.
//
// The controller is a plain struct with context-taking methods so a guess
// rate limiter can wrap it without any interface change.
type AccessController struct {
	creds     store.CredentialStore
	grants    store.GrantStore
	events    store.UnlockEventStore
	adapter   platform.Adapter
	scheduler *ExpiryScheduler

	ttl            time.Duration
	adapterTimeout time.Duration
	logger         *log.Logger
}

func NewAccessController(
	creds store.CredentialStore,
	grants store.GrantStore,
	events store.UnlockEventStore,
	adapter platform.Adapter,
	scheduler *ExpiryScheduler,
	cfg ControllerConfig,
	logger *log.Logger,
) *AccessController {
	ttl := cfg.GrantTTL
	if ttl <= 0 {
		ttl = DefaultGrantTTL
	}
	adapterTimeout := cfg.AdapterTimeout
	if adapterTimeout <= 0 {
		adapterTimeout = 5 * time.Second
	}

	return &AccessController{
		creds:          creds,
		grants:         grants,
		events:         events,
		adapter:        adapter,
		scheduler:      scheduler,
		ttl:            ttl,
		adapterTimeout: adapterTimeout,
		logger:         logger,
	}
}

// ListProtected returns the IDs of all currently protected resources.
// Pure read, no side effects.
func (c *AccessController) ListProtected(ctx context.Context) (types.ListProtectedResponse, error) {
	ids, err := c.creds.ListProtected(ctx)
	if err != nil {
		return types.ListProtectedResponse{}, err
	}
	return types.ListProtectedResponse{
		OK:         true,
		Resources:  ids,
		ServerTime: time.Now().UTC().Format(time.RFC3339Nano),
	}, nil
}

// Protect derives and stores a credential for the named resource and hides
// it from the default member set.  Re-protecting overwrites the old
// passphrase — last protect wins.  A failed hide call is reported as a
// warning; the stored credential is authoritative.
func (c *AccessController) Protect(ctx context.Context, resourceName, passphrase string) (types.ProtectResponse, error) {
	name := strings.TrimSpace(resourceName)
	if name == "" {
		return types.ProtectResponse{}, ErrResourceRequired
	}
	if passphrase == "" {
		return types.ProtectResponse{}, ErrPassphraseRequired
	}

	resourceID, err := c.resolve(ctx, name)
	if err != nil {
		return types.ProtectResponse{}, err
	}

	salt, hash, err := passhash.Derive(passphrase)
	if err != nil {
		return types.ProtectResponse{}, fmt.Errorf("derive credential: %w", err)
	}

	if err := c.creds.Put(ctx, store.Credential{
		ResourceID: resourceID,
		Salt:       salt,
		Hash:       hash,
		CreatedAt:  time.Now().UTC(),
	}); err != nil {
		return types.ProtectResponse{}, err
	}

	warning := ""
	if err := c.hideFromDefault(ctx, resourceID); err != nil {
		c.logger.Printf("hide failed resource=%s: %v", resourceID, err)
		warning = "platform update failed; the credential is saved and will apply once the platform recovers"
	}

	return types.ProtectResponse{
		OK:         true,
		Resource:   name,
		ResourceID: resourceID,
		Warning:    warning,
		ServerTime: time.Now().UTC().Format(time.RFC3339Nano),
	}, nil
}

// Unlock verifies the passphrase and grants the subject temporary
// visibility.  A repeat unlock for the same pair replaces the grant's
// expiry rather than stacking.  A failed reveal call is reported as a
// warning; the grant and its scheduled revocation still stand.
func (c *AccessController) Unlock(ctx context.Context, resourceName, subjectID, passphrase string) (types.UnlockResponse, error) {
	name := strings.TrimSpace(resourceName)
	subject := strings.TrimSpace(subjectID)
	if name == "" {
		return types.UnlockResponse{}, ErrResourceRequired
	}
	if subject == "" {
		return types.UnlockResponse{}, ErrSubjectRequired
	}
	if passphrase == "" {
		return types.UnlockResponse{}, ErrPassphraseRequired
	}

	resourceID, err := c.resolve(ctx, name)
	if err != nil {
		return types.UnlockResponse{}, err
	}

	cred, ok, err := c.creds.Get(ctx, resourceID)
	if err != nil {
		return types.UnlockResponse{}, err
	}

	now := time.Now().UTC()
	if !ok {
		c.recordEvent(ctx, resourceID, subject, false, "not_protected", now)
		return types.UnlockResponse{}, ErrNotProtected
	}

	if !passhash.Verify(passphrase, cred.Salt, cred.Hash) {
		c.recordEvent(ctx, resourceID, subject, false, "invalid_passphrase", now)
		return types.UnlockResponse{}, ErrInvalidPassphrase
	}

	grant := store.Grant{
		ResourceID: resourceID,
		SubjectID:  subject,
		ExpiresAt:  now.Add(c.ttl),
		CreatedAt:  now,
	}
	if err := c.grants.Upsert(ctx, grant); err != nil {
		return types.UnlockResponse{}, err
	}
	c.scheduler.Schedule(grant)

	c.recordEvent(ctx, resourceID, subject, true, "passphrase_ok", now)

	warning := ""
	if err := c.revealTo(ctx, resourceID, subject); err != nil {
		c.logger.Printf("reveal failed resource=%s subject=%s: %v", resourceID, subject, err)
		warning = "platform update failed; access is granted locally and expires on schedule"
	}

	return types.UnlockResponse{
		OK:         true,
		Resource:   name,
		ResourceID: resourceID,
		Subject:    subject,
		ExpiresAt:  grant.ExpiresAt.Format(time.RFC3339),
		Warning:    warning,
		ServerTime: now.Format(time.RFC3339Nano),
	}, nil
}

func (c *AccessController) resolve(ctx context.Context, name string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.adapterTimeout)
	defer cancel()

	id, err := c.adapter.ResolveResource(ctx, name)
	if errors.Is(err, platform.ErrNotFound) {
		return "", ErrResourceNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: resolve %q: %v", ErrAdapter, name, err)
	}
	return id, nil
}

func (c *AccessController) hideFromDefault(ctx context.Context, resourceID string) error {
	ctx, cancel := context.WithTimeout(ctx, c.adapterTimeout)
	defer cancel()
	return c.adapter.HideFromDefault(ctx, resourceID)
}

func (c *AccessController) revealTo(ctx context.Context, resourceID, subjectID string) error {
	ctx, cancel := context.WithTimeout(ctx, c.adapterTimeout)
	defer cancel()
	return c.adapter.RevealTo(ctx, resourceID, subjectID)
}

// recordEvent appends the unlock decision to the audit log.  Errors are
// intentionally not returned to the caller — a failed audit write should
// not change the access decision the subject receives.
func (c *AccessController) recordEvent(ctx context.Context, resourceID, subjectID string, granted bool, reason string, decidedAt time.Time) {
	err := c.events.RecordEvent(ctx, store.UnlockEventRecord{
		ResourceID: resourceID,
		SubjectID:  subjectID,
		Granted:    granted,
		Reason:     reason,
		DecidedAt:  decidedAt,
	})
	if err != nil {
		c.logger.Printf("audit write failed resource=%s subject=%s: %v", resourceID, subjectID, err)
	}
}
