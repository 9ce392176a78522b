// Package sessionstore keeps per-user sessions in memory, keyed by a random
// UUID that the HTTP layer carries in a cookie.
package sessionstore

import (
	"container/list"
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/okian/profiles/internal/app"
	"github.com/okian/profiles/pkg/metrics"
)

// Factory creates the session for a new id.
type Factory interface {
	NewSession(id string) *app.Session
}

// Store is a bounded registry of sessions. When full, the least recently
// used session is closed and dropped; its user simply starts over with an
// empty page.
type Store struct {
	mu       sync.Mutex
	factory  Factory
	capacity int
	byID     map[string]*list.Element
	order    *list.List // front = most recently used
}

// New creates a store with a default capacity of 10k sessions.
func New(factory Factory, opts ...Option) *Store {
	s := &Store{
		factory:  factory,
		capacity: 10_000,
		byID:     make(map[string]*list.Element),
		order:    list.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewID returns a fresh session id.
func NewID() string { return uuid.NewString() }

// ValidID reports whether id looks like one NewID produced.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil && len(id) == 36
}

// GetOrCreate returns the session for id, creating it when id is unknown or
// malformed. created reports whether a new session (with a new id) was made.
func (s *Store) GetOrCreate(_ context.Context, id string) (sess *app.Session, created bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ValidID(id) {
		if el, ok := s.byID[id]; ok {
			s.order.MoveToFront(el)
			return el.Value.(*app.Session), false
		}
	} else {
		id = NewID()
	}

	if s.capacity > 0 && len(s.byID) >= s.capacity {
		s.evictLRU()
	}
	sess = s.factory.NewSession(id)
	s.byID[id] = s.order.PushFront(sess)
	metrics.UpdateSessionsActive(len(s.byID))
	return sess, true
}

// Get returns an existing session.
func (s *Store) Get(_ context.Context, id string) (*app.Session, error) {
	if !ValidID(id) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	el, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.order.MoveToFront(el)
	return el.Value.(*app.Session), nil
}

// Delete closes and drops a session. Unknown ids are ignored.
func (s *Store) Delete(_ context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if el, ok := s.byID[id]; ok {
		s.remove(el)
		metrics.UpdateSessionsActive(len(s.byID))
	}
}

// Close closes and drops every session.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for el := s.order.Front(); el != nil; el = s.order.Front() {
		s.remove(el)
	}
	metrics.UpdateSessionsActive(0)
}

// Size returns the number of sessions held.
func (s *Store) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

// evictLRU must be called with s.mu held.
func (s *Store) evictLRU() {
	el := s.order.Back()
	if el == nil {
		return
	}
	s.remove(el)
	metrics.RecordSessionEvicted()
}

func (s *Store) remove(el *list.Element) {
	sess := s.order.Remove(el).(*app.Session)
	delete(s.byID, sess.ID())
	_ = sess.Close()
}
