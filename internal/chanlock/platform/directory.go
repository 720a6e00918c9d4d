package platform

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Directory is an in-memory Adapter seeded with channel names.  It stands in
// for the real chat platform in dev environments and tests: it resolves
// names to stable IDs and tracks hidden state and per-subject reveals.
type Directory struct {
	mu      sync.RWMutex
	ids     map[string]string // name -> resource ID
	hidden  map[string]bool   // resource ID -> hidden from default set
	reveals map[string]map[string]bool
}

func NewDirectory(channels []string) *Directory {
	d := &Directory{
		ids:     make(map[string]string, len(channels)),
		hidden:  make(map[string]bool),
		reveals: make(map[string]map[string]bool),
	}
	for _, name := range channels {
		name = strings.TrimSpace(name)
		if name != "" {
			d.ids[name] = uuid.NewString()
		}
	}
	return d
}

// Add registers a channel and returns its ID.  Idempotent per name.
func (d *Directory) Add(name string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if id, ok := d.ids[name]; ok {
		return id
	}
	id := uuid.NewString()
	d.ids[name] = id
	return id
}

func (d *Directory) ResolveResource(_ context.Context, name string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.ids[strings.TrimSpace(name)]
	if !ok {
		return "", ErrNotFound
	}
	return id, nil
}

func (d *Directory) HideFromDefault(_ context.Context, resourceID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hidden[resourceID] = true
	return nil
}

func (d *Directory) RevealTo(_ context.Context, resourceID, subjectID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.reveals[resourceID] == nil {
		d.reveals[resourceID] = make(map[string]bool)
	}
	d.reveals[resourceID][subjectID] = true
	return nil
}

func (d *Directory) RevokeRevealTo(_ context.Context, resourceID, subjectID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.reveals[resourceID], subjectID)
	return nil
}

// Hidden reports whether the resource is hidden from the default set.
// Test helper.
func (d *Directory) Hidden(resourceID string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.hidden[resourceID]
}

// RevealedTo reports whether the subject currently has a reveal.  Test helper.
func (d *Directory) RevealedTo(resourceID, subjectID string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.reveals[resourceID][subjectID]
}
