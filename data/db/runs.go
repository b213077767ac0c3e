package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const insertIngestionRun = `
INSERT INTO ingestion_runs (id, extracted_at, source_url, item_count, rejected_count)
VALUES ($1, $2, $3, $4, $5)
`

type InsertIngestionRunParams struct {
	ID            pgtype.UUID        `json:"id"`
	ExtractedAt   pgtype.Timestamptz `json:"extracted_at"`
	SourceUrl     string             `json:"source_url"`
	ItemCount     int32              `json:"item_count"`
	RejectedCount int32              `json:"rejected_count"`
}

// InsertIngestionRun records the provenance of a committed snapshot so the
// last refresh time and source can be audited after the fact
func (q *Queries) InsertIngestionRun(ctx context.Context, arg InsertIngestionRunParams) error {
	_, err := q.db.Exec(ctx, insertIngestionRun,
		arg.ID,
		arg.ExtractedAt,
		arg.SourceUrl,
		arg.ItemCount,
		arg.RejectedCount,
	)
	return err
}

const listIngestionRuns = `
SELECT id, extracted_at, source_url, item_count, rejected_count, committed_at
FROM ingestion_runs
ORDER BY committed_at DESC
LIMIT $1
`

func (q *Queries) ListIngestionRuns(ctx context.Context, limit int32) ([]IngestionRun, error) {
	rows, err := q.db.Query(ctx, listIngestionRuns, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []IngestionRun
	for rows.Next() {
		var i IngestionRun
		if err := rows.Scan(
			&i.ID, &i.ExtractedAt, &i.SourceUrl, &i.ItemCount, &i.RejectedCount, &i.CommittedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
