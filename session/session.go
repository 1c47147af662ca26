// Package session wires the client engine together: reducer commits mark the
// saver dirty, drag gestures resolve through the reordering engine, and
// realtime notifications trigger a re-fetch of the remote document.
package session

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"boardsync/persist"
	"boardsync/realtime"
	"boardsync/reorder"
	"boardsync/tree"
)

// Notifier is the subset of the realtime channel the session owns. It exists
// so tests can drive notifications without a socket.
type Notifier interface {
	Close()
}

// Session is one client's live view of a workspace.
type Session struct {
	store   *tree.Store
	saver   *persist.Saver
	remote  persist.Remote
	channel Notifier
	logger  *log.Logger

	loadTimeout time.Duration
}

// Config carries session construction parameters.
type Config struct {
	Remote      persist.Remote
	Logger      *log.Logger
	SaverOpts   []persist.SaverOption
	LoadTimeout time.Duration
	// StreamURL and Channel enable the realtime subscription when both are
	// set; otherwise the session works offline-style with saves only.
	StreamURL string
	Channel   string
}

// Open loads the workspace from the remote store and starts the save
// protocol and, when configured, the realtime subscription. A malformed or
// missing remote document degrades to an empty workspace rather than an
// error downstream of the initial transport failure.
func Open(ctx context.Context, cfg Config) (*Session, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	ws, err := cfg.Remote.Load(ctx)
	if err != nil {
		return nil, err
	}

	s := &Session{
		store:       tree.NewStore(ws),
		remote:      cfg.Remote,
		logger:      logger,
		loadTimeout: cfg.LoadTimeout,
	}
	if s.loadTimeout <= 0 {
		s.loadTimeout = 15 * time.Second
	}
	s.saver = persist.NewSaver(s.store, cfg.Remote, logger, cfg.SaverOpts...)

	if cfg.StreamURL != "" && cfg.Channel != "" {
		s.channel = realtime.Open(cfg.StreamURL, cfg.Channel, func([]byte) {
			s.Refresh()
		}, logger)
	}
	return s, nil
}

// Store exposes the document tree for reads and subscriptions.
func (s *Session) Store() *tree.Store { return s.store }

// SaveStatus reports the persistence state machine's current state.
func (s *Session) SaveStatus() persist.Status { return s.saver.Status() }

// Dispatch applies a mutation to the tree and, when it commits, marks the
// workspace for saving. Structural no-ops trigger neither.
func (s *Session) Dispatch(m tree.Mutation) bool {
	if !s.store.Apply(m) {
		return false
	}
	s.saver.MarkDirty()
	return true
}

// Drag resolves a drop gesture and dispatches the resulting reorder or move.
// A gesture that leaves the item where it was does nothing.
func (s *Session) Drag(g reorder.Gesture) bool {
	m, ok := reorder.Resolve(s.store.Snapshot(), g)
	if !ok {
		return false
	}
	return s.Dispatch(m)
}

// RetrySave resends the dirty snapshot after a failed save.
func (s *Session) RetrySave() { s.saver.Retry() }

// Refresh re-fetches the remote document and replaces the local tree.
// Local edits still awaiting a save win over the notification: the refresh
// is skipped and the pending save will either confirm or conflict.
func (s *Session) Refresh() {
	if s.saver.Dirty() || s.saver.Status() == persist.StatusSaving {
		s.logger.Debug("skipping refresh: local edits pending")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.loadTimeout)
	defer cancel()
	ws, err := s.remote.Load(ctx)
	if err != nil {
		s.logger.WithError(err).Error("workspace refresh failed")
		return
	}
	s.store.Replace(ws)
}

// Close tears down the realtime subscription and the save scheduler. An
// in-flight save completes on its own and its response is ignored.
func (s *Session) Close() {
	if s.channel != nil {
		s.channel.Close()
	}
	s.saver.Close()
}
