package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// catalog queries are written by hand in the shape sqlc would generate,
// the copy based bulk insert and the advisory lock are not expressible in
// plain sqlc queries anyway

// key for pg_try_advisory_xact_lock guarding catalog replacement, any
// writer sharing the database competes on this one key
const catalogReplaceLockKey = 727001

const tryCatalogReplaceLock = `
SELECT pg_try_advisory_xact_lock($1)
`

// TryCatalogReplaceLock grabs the transaction scoped replacement lock
// without blocking. The lock releases itself on commit or rollback.
func (q *Queries) TryCatalogReplaceLock(ctx context.Context) (bool, error) {
	row := q.db.QueryRow(ctx, tryCatalogReplaceLock, catalogReplaceLockKey)
	var acquired bool
	err := row.Scan(&acquired)
	return acquired, err
}

const deleteAllScheduleItems = `
DELETE FROM schedule_items
`

func (q *Queries) DeleteAllScheduleItems(ctx context.Context) error {
	_, err := q.db.Exec(ctx, deleteAllScheduleItems)
	return err
}

type InsertScheduleItemsParams struct {
	ID         string      `json:"id"`
	Category   string      `json:"category"`
	CourseName string      `json:"course_name"`
	CourseCode pgtype.Text `json:"course_code"`
	DayOfWeek  string      `json:"day_of_week"`
	StartTime  string      `json:"start_time"`
	EndTime    string      `json:"end_time"`
	Room       string      `json:"room"`
	Teacher    string      `json:"teacher"`
	Note       string      `json:"note"`
	RunID      pgtype.UUID `json:"run_id"`
}

// InsertScheduleItems bulk inserts through the postgres copy protocol
func (q *Queries) InsertScheduleItems(ctx context.Context, arg []InsertScheduleItemsParams) (int64, error) {
	return q.db.CopyFrom(
		ctx,
		pgx.Identifier{"schedule_items"},
		[]string{
			"id", "category", "course_name", "course_code", "day_of_week",
			"start_time", "end_time", "room", "teacher", "note", "run_id",
		},
		pgx.CopyFromSlice(len(arg), func(i int) ([]any, error) {
			a := arg[i]
			return []any{
				a.ID, a.Category, a.CourseName, a.CourseCode, a.DayOfWeek,
				a.StartTime, a.EndTime, a.Room, a.Teacher, a.Note, a.RunID,
			}, nil
		}),
	)
}

// week ordered listing, the day tokens do not sort alphabetically into
// week order so the position array does it
const listScheduleItems = `
SELECT id, category, course_name, course_code, day_of_week, start_time, end_time, room, teacher, note, run_id
FROM schedule_items
ORDER BY array_position(ARRAY['Po','Ut','St','Št','Pi'], day_of_week), start_time, id
OFFSET $1
LIMIT $2
`

type ListScheduleItemsParams struct {
	Offsetvalue int32 `json:"offsetvalue"`
	Limitvalue  int32 `json:"limitvalue"`
}

func (q *Queries) ListScheduleItems(ctx context.Context, arg ListScheduleItemsParams) ([]ScheduleItem, error) {
	rows, err := q.db.Query(ctx, listScheduleItems, arg.Offsetvalue, arg.Limitvalue)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ScheduleItem
	for rows.Next() {
		var i ScheduleItem
		if err := rows.Scan(
			&i.ID, &i.Category, &i.CourseName, &i.CourseCode, &i.DayOfWeek,
			&i.StartTime, &i.EndTime, &i.Room, &i.Teacher, &i.Note, &i.RunID,
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

const searchScheduleItems = `
SELECT id, category, course_name, course_code, day_of_week, start_time, end_time, room, teacher, note, run_id
FROM schedule_items
WHERE ($1::text IS NULL
		OR course_name ILIKE '%' || $1 || '%'
		OR course_code ILIKE '%' || $1 || '%'
		OR teacher ILIKE '%' || $1 || '%'
		OR room ILIKE '%' || $1 || '%'
		OR note ILIKE '%' || $1 || '%')
	AND ($2::text IS NULL OR day_of_week = $2)
	AND ($3::text IS NULL OR category = $3)
ORDER BY array_position(ARRAY['Po','Ut','St','Št','Pi'], day_of_week), start_time, id
OFFSET $4
LIMIT $5
`

type SearchScheduleItemsParams struct {
	Query       pgtype.Text `json:"query"`
	DayOfWeek   pgtype.Text `json:"day_of_week"`
	Category    pgtype.Text `json:"category"`
	Offsetvalue int32       `json:"offsetvalue"`
	Limitvalue  int32       `json:"limitvalue"`
}

func (q *Queries) SearchScheduleItems(ctx context.Context, arg SearchScheduleItemsParams) ([]ScheduleItem, error) {
	rows, err := q.db.Query(ctx, searchScheduleItems,
		arg.Query,
		arg.DayOfWeek,
		arg.Category,
		arg.Offsetvalue,
		arg.Limitvalue,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ScheduleItem
	for rows.Next() {
		var i ScheduleItem
		if err := rows.Scan(
			&i.ID, &i.Category, &i.CourseName, &i.CourseCode, &i.DayOfWeek,
			&i.StartTime, &i.EndTime, &i.Room, &i.Teacher, &i.Note, &i.RunID,
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

const getScheduleItem = `
SELECT id, category, course_name, course_code, day_of_week, start_time, end_time, room, teacher, note, run_id
FROM schedule_items
WHERE id = $1
`

func (q *Queries) GetScheduleItem(ctx context.Context, id string) (ScheduleItem, error) {
	row := q.db.QueryRow(ctx, getScheduleItem, id)
	var i ScheduleItem
	err := row.Scan(
		&i.ID, &i.Category, &i.CourseName, &i.CourseCode, &i.DayOfWeek,
		&i.StartTime, &i.EndTime, &i.Room, &i.Teacher, &i.Note, &i.RunID,
	)
	return i, err
}
