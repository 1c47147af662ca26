// Package tree owns the single in-memory root of the workspace document.
// Every mutation commits a whole new root; readers always see a complete
// snapshot, never a tree mid-rewrite.
package tree

import (
	"sync"

	"boardsync/domain"
)

// Mutation rewrites a workspace and reports whether anything changed.
// Reducers from the mutate package are adapted to this shape at the call
// site.
type Mutation func(domain.Workspace) (domain.Workspace, bool)

// Listener observes committed roots. Listeners run synchronously after the
// commit, outside the store lock.
type Listener func(domain.Workspace)

// Store holds the canonical workspace document.
type Store struct {
	mu      sync.RWMutex
	ws      domain.Workspace
	subs    map[int]Listener
	nextSub int
}

// NewStore creates a store seeded with the given workspace. The document is
// normalized so consumers never see nil collections.
func NewStore(ws domain.Workspace) *Store {
	return &Store{
		ws:   ws.Normalize(),
		subs: make(map[int]Listener),
	}
}

// Snapshot returns the current root. The returned value shares structure
// with the store's copy; callers must treat it as read-only and route all
// edits through Apply.
func (s *Store) Snapshot() domain.Workspace {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ws
}

// Version returns the last acknowledged remote version.
func (s *Store) Version() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ws.Version
}

// Apply runs the mutation against the current root and commits the result
// when it reports a change. It returns whether a commit happened. Listeners
// fire only on commits, so structural no-ops cause no re-render and no save.
func (s *Store) Apply(m Mutation) bool {
	s.mu.Lock()
	next, changed := m(s.ws)
	if !changed {
		s.mu.Unlock()
		return false
	}
	s.ws = next
	subs := s.listeners()
	s.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
	return true
}

// Replace swaps in a freshly fetched remote document, e.g. after a realtime
// notification. The document is normalized and listeners are notified.
func (s *Store) Replace(ws domain.Workspace) {
	next := ws.Normalize()
	s.mu.Lock()
	s.ws = next
	subs := s.listeners()
	s.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
}

// SetVersion records the version acknowledged by the remote store without
// touching the document body. No listener fires; the visible tree is
// unchanged.
func (s *Store) SetVersion(v int64) {
	s.mu.Lock()
	s.ws.Version = v
	s.mu.Unlock()
}

// Subscribe registers a listener for committed roots and returns its cancel
// function.
func (s *Store) Subscribe(fn Listener) (cancel func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// listeners returns a stable copy for invocation outside the lock. Callers
// must hold s.mu.
func (s *Store) listeners() []Listener {
	if len(s.subs) == 0 {
		return nil
	}
	out := make([]Listener, 0, len(s.subs))
	for _, fn := range s.subs {
		out = append(out, fn)
	}
	return out
}
