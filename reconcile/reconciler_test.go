package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/majak-app/candlesync/collection/services"
)

type fakeStore struct {
	mu    sync.Mutex
	items []services.ScheduleItem
	runs  int

	failOn     string // "delete" | "insert" | "record" | "commit"
	lockDenied bool

	// when set, InsertItems signals and then blocks until released so a
	// test can hold a transaction open
	insertStarted chan struct{}
	insertRelease chan struct{}
}

func (s *fakeStore) Begin(ctx context.Context) (Tx, error) {
	s.mu.Lock()
	staged := make([]services.ScheduleItem, len(s.items))
	copy(staged, s.items)
	s.mu.Unlock()
	return &fakeTx{store: s, staged: staged, stagedRuns: s.runs}, nil
}

func (s *fakeStore) committedItems() []services.ScheduleItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]services.ScheduleItem, len(s.items))
	copy(items, s.items)
	return items
}

type fakeTx struct {
	store      *fakeStore
	staged     []services.ScheduleItem
	stagedRuns int
	done       bool
}

func (t *fakeTx) TryReplaceLock(ctx context.Context) (bool, error) {
	return !t.store.lockDenied, nil
}

func (t *fakeTx) DeleteAllItems(ctx context.Context) error {
	if t.store.failOn == "delete" {
		return errors.New("simulated delete fault")
	}
	t.staged = nil
	return nil
}

func (t *fakeTx) InsertItems(ctx context.Context, runID uuid.UUID, items []services.ScheduleItem) (int64, error) {
	if t.store.insertStarted != nil {
		t.store.insertStarted <- struct{}{}
		<-t.store.insertRelease
	}
	if t.store.failOn == "insert" {
		return 0, errors.New("simulated constraint violation")
	}
	t.staged = append(t.staged, items...)
	return int64(len(items)), nil
}

func (t *fakeTx) RecordRun(ctx context.Context, runID uuid.UUID, snapshot services.ExtractedSchedule) error {
	if t.store.failOn == "record" {
		return errors.New("simulated run insert fault")
	}
	t.stagedRuns++
	return nil
}

func (t *fakeTx) Commit(ctx context.Context) error {
	if t.store.failOn == "commit" {
		return errors.New("simulated commit fault")
	}
	t.store.mu.Lock()
	t.store.items = t.staged
	t.store.runs = t.stagedRuns
	t.store.mu.Unlock()
	t.done = true
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	// discards the staged state, fine to call after commit
	return nil
}

func testEntry(t *testing.T) *log.Entry {
	logger := log.New()
	logger.SetLevel(log.ErrorLevel)
	return logger.WithField("test", t.Name())
}

func snapshotOf(ids ...string) services.ExtractedSchedule {
	items := make([]services.ScheduleItem, len(ids))
	for i, id := range ids {
		items[i] = services.ScheduleItem{ID: id, DayOfWeek: "Po", StartTime: "08:00", EndTime: "09:00"}
	}
	return services.ExtractedSchedule{
		Items:       items,
		ExtractedAt: time.Now(),
		SourceURL:   "https://candle.fmph.uniba.sk/hodiny-v-intervaloch/zoznam",
	}
}

func TestSynchronizeCommits(t *testing.T) {
	store := &fakeStore{items: snapshotOf("old-1", "old-2").Items}
	rec := New(store, testEntry(t))

	count, err := rec.Synchronize(context.Background(), snapshotOf("a", "b", "c"))
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Errorf("expected 3 got %d", count)
	}
	if got := store.committedItems(); len(got) != 3 || got[0].ID != "a" {
		t.Errorf("catalog was not replaced, holds %v", got)
	}
	if store.runs != 1 {
		t.Errorf("expected one recorded run got %d", store.runs)
	}
	if rec.State() != StateCommitted {
		t.Errorf("expected committed state got %s", rec.State())
	}
}

func TestSynchronizeRollsBackOnInsertFailure(t *testing.T) {
	prior := snapshotOf("keep-1", "keep-2", "keep-3", "keep-4").Items
	store := &fakeStore{items: prior, failOn: "insert"}
	rec := New(store, testEntry(t))

	_, err := rec.Synchronize(context.Background(), snapshotOf("new-1"))
	var syncErr *SyncError
	if !errors.As(err, &syncErr) {
		t.Fatalf("expected a SyncError got %v", err)
	}

	if got := store.committedItems(); len(got) != 4 {
		t.Fatalf("prior catalog must survive a failed replacement, holds %d items", len(got))
	}
	if store.runs != 0 {
		t.Errorf("no run may be recorded for a rolled back replacement, got %d", store.runs)
	}
	if rec.State() != StateFailed {
		t.Errorf("expected failed state got %s", rec.State())
	}
}

func TestSynchronizeRollsBackOnCommitFailure(t *testing.T) {
	store := &fakeStore{items: snapshotOf("keep").Items, failOn: "commit"}
	rec := New(store, testEntry(t))

	_, err := rec.Synchronize(context.Background(), snapshotOf("new"))
	var syncErr *SyncError
	if !errors.As(err, &syncErr) {
		t.Fatalf("expected a SyncError got %v", err)
	}
	if got := store.committedItems(); len(got) != 1 || got[0].ID != "keep" {
		t.Errorf("catalog changed across a failed commit: %v", got)
	}
}

func TestSynchronizeBusy(t *testing.T) {
	store := &fakeStore{
		insertStarted: make(chan struct{}),
		insertRelease: make(chan struct{}),
	}
	rec := New(store, testEntry(t))

	firstDone := make(chan error, 1)
	go func() {
		_, err := rec.Synchronize(context.Background(), snapshotOf("first"))
		firstDone <- err
	}()

	// first call is now mid transaction
	<-store.insertStarted

	_, err := rec.Synchronize(context.Background(), snapshotOf("second"))
	if !errors.Is(err, ErrSyncBusy) {
		t.Fatalf("expected ErrSyncBusy got %v", err)
	}

	close(store.insertRelease)
	if err := <-firstDone; err != nil {
		t.Fatalf("first synchronization should still commit, got %v", err)
	}
	if got := store.committedItems(); len(got) != 1 || got[0].ID != "first" {
		t.Errorf("busy attempt must not touch the catalog, holds %v", got)
	}
}

func TestSynchronizeBusyAcrossProcesses(t *testing.T) {
	// another process holding the advisory lock looks like a denied lock
	store := &fakeStore{items: snapshotOf("keep").Items, lockDenied: true}
	rec := New(store, testEntry(t))

	_, err := rec.Synchronize(context.Background(), snapshotOf("new"))
	if !errors.Is(err, ErrSyncBusy) {
		t.Fatalf("expected ErrSyncBusy got %v", err)
	}
	if got := store.committedItems(); len(got) != 1 || got[0].ID != "keep" {
		t.Errorf("catalog must be untouched, holds %v", got)
	}
}

func TestStateStartsIdle(t *testing.T) {
	rec := New(&fakeStore{}, testEntry(t))
	if rec.State() != StateIdle {
		t.Errorf("expected idle got %s", rec.State())
	}
}
