package reconcile

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/majak-app/candlesync/collection/services"
	"github.com/majak-app/candlesync/data/db"
)

// PgStore backs the reconciler with postgres through one pgx transaction
// per replacement.
type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

func (s *PgStore) Begin(ctx context.Context) (Tx, error) {
	pgtx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &pgTx{tx: pgtx, q: db.New(pgtx)}, nil
}

type pgTx struct {
	tx pgx.Tx
	q  *db.Queries
}

func (t *pgTx) TryReplaceLock(ctx context.Context) (bool, error) {
	return t.q.TryCatalogReplaceLock(ctx)
}

func (t *pgTx) DeleteAllItems(ctx context.Context) error {
	return t.q.DeleteAllScheduleItems(ctx)
}

func (t *pgTx) InsertItems(ctx context.Context, runID uuid.UUID, items []services.ScheduleItem) (int64, error) {
	params := make([]db.InsertScheduleItemsParams, len(items))
	for i, item := range items {
		params[i] = db.InsertScheduleItemsParams{
			ID:         item.ID,
			Category:   item.Category,
			CourseName: item.CourseName,
			CourseCode: pgtype.Text{String: item.CourseCode, Valid: item.CourseCode != ""},
			DayOfWeek:  item.DayOfWeek,
			StartTime:  item.StartTime,
			EndTime:    item.EndTime,
			Room:       item.Room,
			Teacher:    item.Teacher,
			Note:       item.Note,
			RunID:      pgtype.UUID{Bytes: runID, Valid: true},
		}
	}
	return t.q.InsertScheduleItems(ctx, params)
}

func (t *pgTx) RecordRun(ctx context.Context, runID uuid.UUID, snapshot services.ExtractedSchedule) error {
	return t.q.InsertIngestionRun(ctx, db.InsertIngestionRunParams{
		ID:            pgtype.UUID{Bytes: runID, Valid: true},
		ExtractedAt:   pgtype.Timestamptz{Time: snapshot.ExtractedAt, Valid: true},
		SourceUrl:     snapshot.SourceURL,
		ItemCount:     int32(len(snapshot.Items)),
		RejectedCount: int32(len(snapshot.Rejections)),
	})
}

func (t *pgTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *pgTx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}
