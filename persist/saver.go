// Package persist implements the versioned save protocol between the local
// document tree and the remote workspace store. Saves are optimistic: the
// local tree is already updated when a save is scheduled, and the remote's
// version counter is the only concurrency control. A rejected version never
// overwrites local edits in either direction.
package persist

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"boardsync/domain"
	"boardsync/tree"
)

// ErrVersionConflict is returned by a Remote when the submitted version no
// longer matches the remote's current one.
var ErrVersionConflict = errors.New("workspace version conflict")

// Remote is the workspace store boundary.
type Remote interface {
	Load(ctx context.Context) (domain.Workspace, error)
	// Save submits the workspace at its embedded version and returns the
	// version assigned by the remote on acceptance.
	Save(ctx context.Context, ws domain.Workspace, requestID string) (int64, error)
}

// Status is the save state machine's current state.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusDirty    Status = "dirty"
	StatusSaving   Status = "saving"
	StatusConflict Status = "conflict"
	StatusFailed   Status = "failed"
)

const (
	defaultDebounce    = 250 * time.Millisecond
	defaultSaveTimeout = 30 * time.Second
)

// Saver drives the Idle/Dirty/Saving/Conflict/Failed state machine for one
// workspace. Saves are serialized: while one is in flight, further edits
// only mark the tree dirty, and the follow-up save carries the latest
// snapshot rather than every intermediate one.
type Saver struct {
	store       *tree.Store
	remote      Remote
	logger      *log.Logger
	debounce    time.Duration
	saveTimeout time.Duration
	onStatus    func(Status)

	mu     sync.Mutex
	status Status
	dirty  bool
	saving bool
	timer  *time.Timer
	closed bool
}

// SaverOption configures a Saver.
type SaverOption func(*Saver)

// WithDebounce sets how long after the last mutation a save is triggered.
func WithDebounce(d time.Duration) SaverOption {
	return func(s *Saver) { s.debounce = d }
}

// WithSaveTimeout bounds a single remote save attempt.
func WithSaveTimeout(d time.Duration) SaverOption {
	return func(s *Saver) { s.saveTimeout = d }
}

// WithStatusListener registers a callback invoked on every state transition,
// outside the saver's lock.
func WithStatusListener(fn func(Status)) SaverOption {
	return func(s *Saver) { s.onStatus = fn }
}

// NewSaver creates a saver for the given store and remote.
func NewSaver(store *tree.Store, remote Remote, logger *log.Logger, opts ...SaverOption) *Saver {
	s := &Saver{
		store:       store,
		remote:      remote,
		logger:      logger,
		debounce:    defaultDebounce,
		saveTimeout: defaultSaveTimeout,
		status:      StatusIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Status returns the state machine's current state.
func (s *Saver) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Dirty reports whether local edits are awaiting a successful save.
func (s *Saver) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// MarkDirty records that the tree has local mutations and schedules a save
// after the debounce window. Called once per committed mutation.
func (s *Saver) MarkDirty() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.dirty = true
	notify := s.setStatusLocked(StatusDirty)
	if !s.saving && s.timer == nil {
		s.timer = time.AfterFunc(s.debounce, s.flush)
	}
	s.mu.Unlock()
	notify()
}

// Flush triggers a save immediately, bypassing the debounce window. Used on
// teardown and by explicit retry.
func (s *Saver) Flush() {
	s.mu.Lock()
	if s.closed || s.saving || !s.dirty {
		s.mu.Unlock()
		return
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
	s.flush()
}

// Retry resends the dirty snapshot after a transport failure.
func (s *Saver) Retry() { s.Flush() }

// Close stops the debounce timer. A save already in flight completes on its
// own; its response is then ignored.
func (s *Saver) Close() {
	s.mu.Lock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
}

func (s *Saver) flush() {
	s.mu.Lock()
	s.timer = nil
	if s.closed || s.saving || !s.dirty {
		s.mu.Unlock()
		return
	}
	s.saving = true
	s.dirty = false
	notify := s.setStatusLocked(StatusSaving)
	s.mu.Unlock()
	notify()

	// the snapshot is taken after clearing dirty so edits landing during
	// the network round trip re-mark and get their own save
	snapshot := s.store.Snapshot()
	requestID := uuid.NewString()

	ctx, cancel := context.WithTimeout(context.Background(), s.saveTimeout)
	version, err := s.remote.Save(ctx, snapshot, requestID)
	cancel()

	s.mu.Lock()
	s.saving = false
	var next Status
	switch {
	case err == nil:
		s.store.SetVersion(version)
		if s.dirty {
			next = StatusDirty
		} else {
			next = StatusIdle
		}
	case errors.Is(err, ErrVersionConflict):
		// local data stays as it is; the user is told to reload
		s.logger.WithField("request_id", requestID).
			WithField("version", snapshot.Version).
			Warn("workspace save rejected: version conflict")
		next = StatusConflict
	default:
		// transport failure: the payload stays dirty so a retry resends it
		s.dirty = true
		s.logger.WithError(err).WithField("request_id", requestID).
			Error("workspace save failed")
		next = StatusFailed
	}
	notify = s.setStatusLocked(next)
	if err == nil && s.dirty && !s.closed && s.timer == nil {
		s.timer = time.AfterFunc(s.debounce, s.flush)
	}
	s.mu.Unlock()
	notify()
}

// setStatusLocked records the transition and returns the listener
// invocation to run after unlocking. Callers must hold s.mu.
func (s *Saver) setStatusLocked(next Status) func() {
	if s.status == next || s.onStatus == nil {
		s.status = next
		return func() {}
	}
	s.status = next
	fn := s.onStatus
	return func() { fn(next) }
}
