package db

import "github.com/jackc/pgx/v5/pgtype"

type ScheduleItem struct {
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

type IngestionRun struct {
	ID            pgtype.UUID        `json:"id"`
	ExtractedAt   pgtype.Timestamptz `json:"extracted_at"`
	SourceUrl     string             `json:"source_url"`
	ItemCount     int32              `json:"item_count"`
	RejectedCount int32              `json:"rejected_count"`
	CommittedAt   pgtype.Timestamptz `json:"committed_at"`
}
