package candle

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/majak-app/candlesync/collection/services"
)

func testLogger(t *testing.T) *log.Entry {
	logger := log.New()
	logger.SetLevel(log.ErrorLevel)
	return logger.WithField("test", t.Name())
}

// builds a result table document, each row is the 8 cell values in
// positional order, subject cells wrapped in a nested subjectName link
func buildDocument(rows [][]string) string {
	var b strings.Builder
	b.WriteString(`<html><body><table class="vysledky_podrobneho_hladania"><tbody>`)
	for _, cells := range rows {
		b.WriteString("<tr>")
		for i, cell := range cells {
			if i == subjectCol {
				fmt.Fprintf(&b, `<td><a class="subjectName">%s</a></td>`, cell)
				continue
			}
			fmt.Fprintf(&b, "<td>%s</td>", cell)
		}
		b.WriteString("</tr>")
	}
	b.WriteString(`</tbody></table></body></html>`)
	return b.String()
}

func goodRow(day string) []string {
	return []string{day, "09:00", "10:30", "1-INF-101", "Diskrétna Matematika", "Dr. Nowak", "M-I", ""}
}

func TestMapRowConcreteCase(t *testing.T) {
	row := rawRow{
		index: 0,
		cells: []string{"Ut", "07:00", "08:00", "1-INF-101", "Diskrétna Matematika", "Dr. Nowak", "M-I", ""},
	}
	item, rejection := mapRow(row, 1700000000000)
	if rejection != nil {
		t.Fatalf("expected no rejection got %q", rejection.Reason)
	}
	if item.ID != "schedule-0-1700000000000" {
		t.Errorf("unexpected id %q", item.ID)
	}
	if item.DayOfWeek != "Ut" || item.StartTime != "07:00" || item.EndTime != "08:00" {
		t.Errorf("unexpected slot %s %s-%s", item.DayOfWeek, item.StartTime, item.EndTime)
	}
	if item.Category != "1-INF-101" || item.CourseCode != "1-INF-101" {
		t.Errorf("expected category to become the course code, got %q and %q", item.Category, item.CourseCode)
	}
	if item.CourseName != "Diskrétna Matematika" || item.Teacher != "Dr. Nowak" || item.Room != "M-I" || item.Note != "" {
		t.Errorf("unexpected item %+v", item)
	}
}

func TestMapRowRejectsUnknownDay(t *testing.T) {
	row := rawRow{index: 3, cells: goodRow("Zz")}
	_, rejection := mapRow(row, 1)
	if rejection == nil {
		t.Fatal("expected a rejection for an unknown day token")
	}
	if rejection.RowIndex != 3 {
		t.Errorf("rejection should carry the row index, got %d", rejection.RowIndex)
	}
}

func TestMapRowRejectsBadTimes(t *testing.T) {
	cases := []struct {
		name       string
		start, end string
	}{
		{"not a clock", "morning", "10:00"},
		{"start equals end", "09:00", "09:00"},
		{"start after end", "11:00", "09:30"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cells := goodRow("Po")
			cells[startCol] = c.start
			cells[endCol] = c.end
			_, rejection := mapRow(rawRow{cells: cells}, 1)
			if rejection == nil {
				t.Fatalf("expected rejection for %s-%s", c.start, c.end)
			}
		})
	}
}

func TestMapRowCourseCodeShape(t *testing.T) {
	cases := []struct {
		category string
		code     string
	}{
		{"1-INF-101", "1-INF-101"},
		{"1-INF", "1-INF"},
		{"A-buAN", ""},
		{"doktorandi", ""},
	}
	for _, c := range cases {
		cells := goodRow("St")
		cells[categoryCol] = " " + c.category + " "
		item, rejection := mapRow(rawRow{cells: cells}, 1)
		if rejection != nil {
			t.Fatalf("category %q: unexpected rejection %q", c.category, rejection.Reason)
		}
		if item.Category != c.category {
			t.Errorf("category %q was not trimmed, got %q", c.category, item.Category)
		}
		if item.CourseCode != c.code {
			t.Errorf("category %q: expected code %q got %q", c.category, c.code, item.CourseCode)
		}
	}
}

func TestMapRowFallsBackToCellTextForName(t *testing.T) {
	cells := goodRow("Pi")
	cells[subjectCol] = "  Seminár z algebry  "
	item, rejection := mapRow(rawRow{cells: cells}, 1)
	if rejection != nil {
		t.Fatalf("unexpected rejection %q", rejection.Reason)
	}
	if item.CourseName != "Seminár z algebry" {
		t.Errorf("expected the whole trimmed cell text, got %q", item.CourseName)
	}
}

func TestParseRowsMissingTable(t *testing.T) {
	_, err := parseRows("<html><body><p>nothing here</p></body></html>")
	if !errors.Is(err, services.ErrNoResultTable) {
		t.Fatalf("expected ErrNoResultTable got %v", err)
	}
}

func TestParseRowsDropsShortRows(t *testing.T) {
	document := `<html><body><table class="vysledky_podrobneho_hladania"><tbody>
		<tr><td>header</td><td>junk</td></tr>
		<tr><td>Po</td><td>08:00</td><td>09:00</td><td>1-INF</td><td>Algebra</td><td>Dr. Kov</td><td>F1</td><td></td></tr>
	</tbody></table></body></html>`
	rows, err := parseRows(document)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected only the full row to survive, got %d rows", len(rows))
	}
}

func TestParseRowsNestedSubjectName(t *testing.T) {
	document := `<html><body><table class="vysledky_podrobneho_hladania"><tbody>
		<tr><td>Po</td><td>08:00</td><td>09:00</td><td>1-INF</td>
			<td>code stuff <a class="subjectName">Algebra</a></td>
			<td>Dr. Kov</td><td>F1</td><td></td></tr>
	</tbody></table></body></html>`
	rows, err := parseRows(document)
	if err != nil {
		t.Fatal(err)
	}
	if rows[0].subjectName != "Algebra" {
		t.Errorf("expected the nested element text, got %q", rows[0].subjectName)
	}
}

func newTestExtractor(t *testing.T, srv *httptest.Server) *Extractor {
	return NewExtractor(Config{
		BaseURL:        srv.URL,
		Endpoint:       "/hodiny-v-intervaloch/zoznam",
		SearchInterval: "Pondelok 00:00-Piatok 23:59",
		RequestTimeout: 5 * time.Second,
	}, testLogger(t))
}

func TestExtractWeeklyScheduleRowIsolation(t *testing.T) {
	rows := make([][]string, 0, 11)
	for i := 0; i < 10; i++ {
		rows = append(rows, goodRow(services.ValidDays[i%len(services.ValidDays)]))
	}
	rows = append(rows, goodRow("Zz"))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "expected a POST", http.StatusMethodNotAllowed)
			return
		}
		if r.FormValue("searchIntervals") != "Pondelok 00:00-Piatok 23:59" {
			http.Error(w, "missing interval form field", http.StatusBadRequest)
			return
		}
		w.Write([]byte(buildDocument(rows)))
	}))
	defer srv.Close()

	snapshot, err := newTestExtractor(t, srv).ExtractWeeklySchedule(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(snapshot.Items) != 10 {
		t.Errorf("expected 10 items got %d", len(snapshot.Items))
	}
	if len(snapshot.Rejections) != 1 {
		t.Errorf("expected 1 rejection got %d", len(snapshot.Rejections))
	}
	if snapshot.SourceURL != srv.URL+"/hodiny-v-intervaloch/zoznam" {
		t.Errorf("unexpected source url %q", snapshot.SourceURL)
	}
	if snapshot.ExtractedAt.IsZero() {
		t.Error("snapshot should carry its extraction time")
	}
}

func TestExtractWeeklyScheduleEmptyTable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(buildDocument(nil)))
	}))
	defer srv.Close()

	snapshot, err := newTestExtractor(t, srv).ExtractWeeklySchedule(context.Background())
	if err != nil {
		t.Fatalf("an empty table is a legitimate success, got %v", err)
	}
	if len(snapshot.Items) != 0 {
		t.Errorf("expected no items got %d", len(snapshot.Items))
	}
}

func TestExtractWeeklyScheduleMissingTable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>layout changed</body></html>"))
	}))
	defer srv.Close()

	_, err := newTestExtractor(t, srv).ExtractWeeklySchedule(context.Background())
	if !errors.Is(err, services.ErrNoResultTable) {
		t.Fatalf("expected ErrNoResultTable got %v", err)
	}
}

func TestFetchDocumentNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down for maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestExtractor(t, srv).ExtractWeeklySchedule(context.Background())
	var transportErr *services.TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected a TransportError got %v", err)
	}
	if transportErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected status 503 got %d", transportErr.StatusCode)
	}
}

func TestFetchDocumentHonorsDeadline(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newTestExtractor(t, srv).ExtractWeeklySchedule(ctx)
	var transportErr *services.TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected a TransportError got %v", err)
	}
}

// running the same document through twice should give the same schedule
// tuples even though the generated ids differ
func TestExtractIdempotentTuples(t *testing.T) {
	rows := [][]string{
		goodRow("Po"),
		goodRow("Ut"),
		goodRow("Pi"),
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(buildDocument(rows)))
	}))
	defer srv.Close()

	extractor := newTestExtractor(t, srv)
	first, err := extractor.ExtractWeeklySchedule(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	second, err := extractor.ExtractWeeklySchedule(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if len(first.Items) != len(second.Items) {
		t.Fatalf("item counts differ: %d vs %d", len(first.Items), len(second.Items))
	}
	tuple := func(i services.ScheduleItem) string {
		return fmt.Sprint(i.DayOfWeek, i.StartTime, i.EndTime, i.Category, i.CourseName, i.Room, i.Teacher, i.Note)
	}
	for i := range first.Items {
		if tuple(first.Items[i]) != tuple(second.Items[i]) {
			t.Errorf("row %d tuples differ", i)
		}
	}
}
