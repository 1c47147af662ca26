package persist

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"

	"boardsync/domain"
	"boardsync/mutate"
	"boardsync/tree"
)

type fakeRemote struct {
	mu        sync.Mutex
	saves     []domain.Workspace
	err       error
	version   int64
	block     chan struct{} // when set, Save waits on it before returning
	blockOnce bool
}

func (f *fakeRemote) Load(ctx context.Context) (domain.Workspace, error) {
	return domain.Workspace{}, nil
}

func (f *fakeRemote) Save(ctx context.Context, ws domain.Workspace, requestID string) (int64, error) {
	f.mu.Lock()
	block := f.block
	if f.blockOnce {
		f.block = nil
	}
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves = append(f.saves, ws.Clone())
	if f.err != nil {
		return 0, f.err
	}
	f.version++
	return f.version, nil
}

func (f *fakeRemote) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saves)
}

func (f *fakeRemote) lastSave() domain.Workspace {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saves[len(f.saves)-1]
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func newTestSaver(t *testing.T, remote Remote, store *tree.Store) *Saver {
	t.Helper()
	s := NewSaver(store, remote, log.New(), WithDebounce(10*time.Millisecond))
	t.Cleanup(s.Close)
	return s
}

func TestSaverHappyPath(t *testing.T) {
	store := tree.NewStore(domain.Workspace{Version: 4})
	remote := &fakeRemote{}
	s := newTestSaver(t, remote, store)

	store.Apply(func(ws domain.Workspace) (domain.Workspace, bool) {
		return mutate.CreateProject(ws, mutate.ProjectDraft{Name: "P"})
	})
	s.MarkDirty()

	waitFor(t, func() bool { return s.Status() == StatusIdle && remote.saveCount() == 1 })
	if got := remote.lastSave(); len(got.Projects) != 1 || got.Version != 4 {
		t.Fatalf("unexpected payload: %d projects at version %d", len(got.Projects), got.Version)
	}
	if store.Version() != 1 {
		t.Fatalf("expected acknowledged version on the tree, got %d", store.Version())
	}
	if s.Dirty() {
		t.Fatal("expected clean state after ack")
	}
}

func TestSaverDebounceCoalescesIntoLatestSnapshot(t *testing.T) {
	store := tree.NewStore(domain.Workspace{})
	remote := &fakeRemote{}
	s := newTestSaver(t, remote, store)

	store.Apply(func(ws domain.Workspace) (domain.Workspace, bool) {
		return mutate.CreateProject(ws, mutate.ProjectDraft{Name: "first"})
	})
	s.MarkDirty()
	store.Apply(func(ws domain.Workspace) (domain.Workspace, bool) {
		return mutate.CreateProject(ws, mutate.ProjectDraft{Name: "second"})
	})
	s.MarkDirty()

	waitFor(t, func() bool { return s.Status() == StatusIdle && remote.saveCount() >= 1 })
	if remote.saveCount() != 1 {
		t.Fatalf("expected one network write, got %d", remote.saveCount())
	}
	if got := remote.lastSave(); len(got.Projects) != 2 {
		t.Fatalf("expected the latest snapshot with 2 projects, got %d", len(got.Projects))
	}
}

func TestSaverSerializesInFlightSaves(t *testing.T) {
	store := tree.NewStore(domain.Workspace{})
	gate := make(chan struct{})
	remote := &fakeRemote{block: gate, blockOnce: true}
	s := newTestSaver(t, remote, store)

	store.Apply(func(ws domain.Workspace) (domain.Workspace, bool) {
		return mutate.CreateProject(ws, mutate.ProjectDraft{Name: "first"})
	})
	s.MarkDirty()
	waitFor(t, func() bool { return s.Status() == StatusSaving })

	// edits landing while the first save is in flight
	store.Apply(func(ws domain.Workspace) (domain.Workspace, bool) {
		return mutate.CreateProject(ws, mutate.ProjectDraft{Name: "second"})
	})
	s.MarkDirty()
	store.Apply(func(ws domain.Workspace) (domain.Workspace, bool) {
		return mutate.CreateProject(ws, mutate.ProjectDraft{Name: "third"})
	})
	s.MarkDirty()
	if remote.saveCount() != 0 {
		t.Fatal("second save started while first still in flight")
	}

	close(gate)
	waitFor(t, func() bool { return s.Status() == StatusIdle && remote.saveCount() == 2 })
	if got := remote.lastSave(); len(got.Projects) != 3 {
		t.Fatalf("follow-up save should carry the latest snapshot, got %d projects", len(got.Projects))
	}
}

func TestSaverVersionGateConflictLeavesLocalUntouched(t *testing.T) {
	store := tree.NewStore(domain.Workspace{Version: 5})
	remote := &fakeRemote{err: ErrVersionConflict}
	var transitions []Status
	var mu sync.Mutex
	s := NewSaver(store, remote, log.New(),
		WithDebounce(10*time.Millisecond),
		WithStatusListener(func(st Status) {
			mu.Lock()
			transitions = append(transitions, st)
			mu.Unlock()
		}))
	t.Cleanup(s.Close)

	store.Apply(func(ws domain.Workspace) (domain.Workspace, bool) {
		return mutate.CreateProject(ws, mutate.ProjectDraft{Name: "local edit"})
	})
	s.MarkDirty()

	waitFor(t, func() bool { return s.Status() == StatusConflict })
	snap := store.Snapshot()
	if len(snap.Projects) != 1 || snap.Projects[0].Name != "local edit" {
		t.Fatal("conflict must not overwrite local data")
	}
	if snap.Version != 5 {
		t.Fatalf("version must stay at 5 after rejection, got %d", snap.Version)
	}
	mu.Lock()
	got := append([]Status(nil), transitions...)
	mu.Unlock()
	want := []Status{StatusDirty, StatusSaving, StatusConflict}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected transitions %v, want %v", got, want)
	}
}

func TestSaverConflictBehavesLikeIdleForNewEdits(t *testing.T) {
	store := tree.NewStore(domain.Workspace{Version: 5})
	remote := &fakeRemote{err: ErrVersionConflict}
	s := newTestSaver(t, remote, store)

	s.MarkDirty()
	waitFor(t, func() bool { return s.Status() == StatusConflict })

	remote.mu.Lock()
	remote.err = nil
	remote.mu.Unlock()

	s.MarkDirty()
	waitFor(t, func() bool { return s.Status() == StatusIdle })
	if remote.saveCount() != 2 {
		t.Fatalf("expected a retried save, got %d writes", remote.saveCount())
	}
}

func TestSaverTransportFailureRetainsDirtyAndRetries(t *testing.T) {
	store := tree.NewStore(domain.Workspace{})
	remote := &fakeRemote{err: errors.New("connection refused")}
	s := newTestSaver(t, remote, store)

	store.Apply(func(ws domain.Workspace) (domain.Workspace, bool) {
		return mutate.CreateProject(ws, mutate.ProjectDraft{Name: "pending"})
	})
	s.MarkDirty()

	waitFor(t, func() bool { return s.Status() == StatusFailed })
	if !s.Dirty() {
		t.Fatal("dirty payload must survive a transport failure")
	}

	remote.mu.Lock()
	remote.err = nil
	remote.mu.Unlock()

	s.Retry()
	waitFor(t, func() bool { return s.Status() == StatusIdle })
	if got := remote.lastSave(); len(got.Projects) != 1 {
		t.Fatal("retry should resend the dirty snapshot")
	}
	if s.Dirty() {
		t.Fatal("expected clean state after successful retry")
	}
}

func TestSaverCloseCancelsPendingSave(t *testing.T) {
	store := tree.NewStore(domain.Workspace{})
	remote := &fakeRemote{}
	s := NewSaver(store, remote, log.New(), WithDebounce(50*time.Millisecond))

	s.MarkDirty()
	s.Close()

	time.Sleep(100 * time.Millisecond)
	if remote.saveCount() != 0 {
		t.Fatal("save fired after Close")
	}
}
