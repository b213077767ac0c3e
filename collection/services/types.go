package services

import "time"

// ScheduleItem is one timetable slot for one course occurrence as it came
// out of the source document. CourseCode is empty when the category did not
// look like a course code.
type ScheduleItem struct {
	ID         string `json:"id"`
	Category   string `json:"category"`
	CourseName string `json:"courseName"`
	CourseCode string `json:"courseCode,omitempty"`
	DayOfWeek  string `json:"dayOfWeek"`
	StartTime  string `json:"startTime"`
	EndTime    string `json:"endTime"`
	Room       string `json:"room"`
	Teacher    string `json:"teacher"`
	Note       string `json:"note"`
}

// the five day tokens the source uses, Monday through Friday
var ValidDays = []string{"Po", "Ut", "St", "Št", "Pi"}

func IsValidDay(token string) bool {
	for _, d := range ValidDays {
		if d == token {
			return true
		}
	}
	return false
}

// RowRejection records a single row which could not be turned into a
// ScheduleItem. Rejections never abort an extraction run.
type RowRejection struct {
	RowIndex int    `json:"rowIndex"`
	Reason   string `json:"reason"`
}

// ExtractedSchedule is the immutable snapshot of one extraction run.
// It is assembled once and never mutated afterwards.
type ExtractedSchedule struct {
	Items       []ScheduleItem `json:"items"`
	Rejections  []RowRejection `json:"rejections"`
	ExtractedAt time.Time      `json:"extractedAt"`
	SourceURL   string         `json:"sourceUrl"`
}
