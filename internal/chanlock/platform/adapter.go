// Package platform defines the contract to the external chat platform that
// performs actual visibility changes.  The core decides when to hide and
// reveal; the adapter decides how.
package platform

import (
	"context"
	"errors"
)

// ErrNotFound is returned by ResolveResource when no resource carries the
// given name.
var ErrNotFound = errors.New("resource not found")

// Adapter is implemented by the platform-facing component.  All calls may
// fail transiently; callers treat adapter failure as non-fatal to local
// access state.
type Adapter interface {
	// ResolveResource maps a human-readable resource name to the
	// platform's stable resource ID, or ErrNotFound.
	ResolveResource(ctx context.Context, name string) (string, error)

	// HideFromDefault removes the resource from the default member set's
	// view.
	HideFromDefault(ctx context.Context, resourceID string) error

	// RevealTo makes the resource visible to one subject.
	RevealTo(ctx context.Context, resourceID, subjectID string) error

	// RevokeRevealTo undoes RevealTo for one subject.
	RevokeRevealTo(ctx context.Context, resourceID, subjectID string) error
}
