// Package reconcile replaces the persisted schedule catalog with a freshly
// extracted snapshot. Replacement is all or nothing: the catalog is either
// exactly what it was before the call or exactly the snapshot, a partially
// written catalog is never observable.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/majak-app/candlesync/collection/services"
)

// ErrSyncBusy comes back immediately when a synchronization is attempted
// while another one is still running, the second caller never queues
var ErrSyncBusy = errors.New("a catalog synchronization is already running")

// SyncError is any persistence failure while replacing the catalog, the
// whole transaction was rolled back when one of these comes back
type SyncError struct {
	Op  string
	Err error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("synchronize %s: %v", e.Op, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

type State int32

const (
	StateIdle State = iota
	StateRunning
	StateCommitted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCommitted:
		return "committed"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Store hands out one transactional handle over the persisted catalog.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
}

// Tx is a single catalog transaction. Rollback after Commit must be a
// no-op so it can sit in a defer on every exit path.
type Tx interface {
	TryReplaceLock(ctx context.Context) (bool, error)
	DeleteAllItems(ctx context.Context) error
	InsertItems(ctx context.Context, runID uuid.UUID, items []services.ScheduleItem) (int64, error)
	RecordRun(ctx context.Context, runID uuid.UUID, snapshot services.ExtractedSchedule) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Reconciler is the only writer of the catalog. At most one Synchronize is
// running at a time, in this process through the TryLock guard and across
// processes through the store's advisory lock.
type Reconciler struct {
	store  Store
	logger *log.Entry

	running sync.Mutex
	state   atomic.Int32
}

func New(store Store, logger *log.Entry) *Reconciler {
	return &Reconciler{
		store:  store,
		logger: logger,
	}
}

func (r *Reconciler) State() State {
	return State(r.state.Load())
}

// Synchronize swaps the whole catalog for the snapshot inside one
// transaction and returns the committed item count. A concurrent call
// fails fast with ErrSyncBusy and leaves the catalog alone.
func (r *Reconciler) Synchronize(ctx context.Context, snapshot services.ExtractedSchedule) (int, error) {
	if !r.running.TryLock() {
		return 0, ErrSyncBusy
	}
	defer r.running.Unlock()

	r.state.Store(int32(StateRunning))
	count, err := r.replace(ctx, snapshot)
	if err != nil {
		r.state.Store(int32(StateFailed))
		return 0, err
	}
	r.state.Store(int32(StateCommitted))
	return count, nil
}

func (r *Reconciler) replace(ctx context.Context, snapshot services.ExtractedSchedule) (int, error) {
	tx, err := r.store.Begin(ctx)
	if err != nil {
		return 0, &SyncError{Op: "begin", Err: err}
	}
	defer tx.Rollback(ctx)

	acquired, err := tx.TryReplaceLock(ctx)
	if err != nil {
		return 0, &SyncError{Op: "lock", Err: err}
	}
	if !acquired {
		// some other process holds the replacement lock
		return 0, ErrSyncBusy
	}

	if err := tx.DeleteAllItems(ctx); err != nil {
		return 0, &SyncError{Op: "delete all", Err: err}
	}

	// the run row goes in first, the items reference it
	runID := uuid.New()
	if err := tx.RecordRun(ctx, runID, snapshot); err != nil {
		return 0, &SyncError{Op: "record run", Err: err}
	}

	inserted, err := tx.InsertItems(ctx, runID, snapshot.Items)
	if err != nil {
		return 0, &SyncError{Op: "insert items", Err: err}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, &SyncError{Op: "commit", Err: err}
	}

	r.logger.WithFields(log.Fields{
		"run_id":       runID,
		"count":        inserted,
		"extracted_at": snapshot.ExtractedAt,
		"source_url":   snapshot.SourceURL,
	}).Info("catalog replaced")
	return int(inserted), nil
}
