package store

import (
	"context"
	"time"
)

// Credential is the stored salted-hash representation of a resource's
// passphrase.  The plaintext passphrase is never stored; Salt and Hash are
// opaque to everything except the passhash package.
type Credential struct {
	ResourceID string
	Salt       []byte
	Hash       []byte
	CreatedAt  time.Time
}

// CredentialStore is the durable resource-ID -> credential mapping.  Every
// mutation must be persisted before the call returns.
type CredentialStore interface {
	// Put overwrites any existing credential for the resource (last
	// protect wins).
	Put(ctx context.Context, cred Credential) error

	// Get reports the credential and whether one exists.  Absence is not
	// an error.
	Get(ctx context.Context, resourceID string) (Credential, bool, error)

	// Remove deletes the credential; no-op if absent.
	Remove(ctx context.Context, resourceID string) error

	// ListProtected returns the IDs of all currently protected resources.
	ListProtected(ctx context.Context) ([]string, error)
}
