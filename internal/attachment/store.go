// Package attachment implements the ordered Attachment Store that mentions
// resolve against.
package attachment

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/promptcraft/internal/apperr"
	"github.com/starford/promptcraft/internal/models"
)

// Store is an ordered collection of attachments. Insertion order is the
// resolution order for duplicate file names.
//
// Upload reads and URL fetches complete on their own goroutines; each
// completion is a single append under the lock.
type Store struct {
	mu    sync.RWMutex
	items []models.Attachment
	now   func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{now: time.Now}
}

// Add appends a new attachment and returns it with ID and timestamp filled in.
func (s *Store) Add(a models.Attachment) models.Attachment {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now()
	}
	if a.Source == "" {
		a.Source = models.SourceManual
	}

	s.mu.Lock()
	s.items = append(s.items, a)
	s.mu.Unlock()
	return a
}

// Remove deletes the attachment with the given ID. Mentions bound to its
// name stay in the document and render as missing.
func (s *Store) Remove(id string) (models.Attachment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, a := range s.items {
		if a.ID == id {
			s.items = slices.Delete(s.items, i, i+1)
			return a, nil
		}
	}
	return models.Attachment{}, fmt.Errorf("attachment %s: %w", id, apperr.ErrNotFound)
}

// Get returns the attachment with the given ID.
func (s *Store) Get(id string) (models.Attachment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.items {
		if a.ID == id {
			return a, nil
		}
	}
	return models.Attachment{}, fmt.Errorf("attachment %s: %w", id, apperr.ErrNotFound)
}

// List returns a copy of all attachments in store order.
func (s *Store) List() []models.Attachment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}

// Len returns the number of attachments.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Snapshot returns a point-in-time, read-only view of the store.
func (s *Store) Snapshot() Snapshot {
	return Snapshot{items: s.List()}
}

// Filter returns the attachments whose file name contains query,
// case-insensitively, in store order.
func (s *Store) Filter(query string) []models.Attachment {
	return s.Snapshot().Filter(query)
}

// Snapshot is an immutable copy of the store contents. Renderers and the
// serializer receive one explicitly instead of reading shared state.
type Snapshot struct {
	items []models.Attachment
}

// NewSnapshot builds a snapshot from attachments in the given order.
func NewSnapshot(items ...models.Attachment) Snapshot {
	return Snapshot{items: slices.Clone(items)}
}

// Lookup returns the first attachment named name.
func (s Snapshot) Lookup(name string) (models.Attachment, bool) {
	for _, a := range s.items {
		if a.FileName == name {
			return a, true
		}
	}
	return models.Attachment{}, false
}

// Exists reports whether any attachment is named name.
func (s Snapshot) Exists(name string) bool {
	_, ok := s.Lookup(name)
	return ok
}

// Items returns the attachments in order.
func (s Snapshot) Items() []models.Attachment {
	return slices.Clone(s.items)
}

// Len returns the number of attachments in the snapshot.
func (s Snapshot) Len() int { return len(s.items) }

// Filter returns the attachments whose file name contains query,
// case-insensitively, preserving order. An empty query matches everything.
func (s Snapshot) Filter(query string) []models.Attachment {
	q := strings.ToLower(query)
	out := make([]models.Attachment, 0, len(s.items))
	for _, a := range s.items {
		if strings.Contains(strings.ToLower(a.FileName), q) {
			out = append(out, a)
		}
	}
	return out
}
