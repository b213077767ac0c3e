package candle

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/PuerkitoBio/goquery"
	"github.com/majak-app/candlesync/collection/services"
	"github.com/majak-app/candlesync/config"
)

// fixed positional layout of the result table
const (
	dayCol = iota
	startCol
	endCol
	categoryCol
	subjectCol
	teacherCol
	roomCol
	noteCol
	cellsPerRow
)

const resultTableSelector = ".vysledky_podrobneho_hladania"

// category tokens that look like a course code, e.g. "1-INF-101"
var courseCodeExpr = regexp.MustCompile(`^[A-Z]?[\d-]+[A-Z]*$`)

// 24 hour wall clock HH:MM
var clockExpr = regexp.MustCompile(`^\d{2}:\d{2}$`)

type Config struct {
	BaseURL  string
	Endpoint string

	// value of the searchIntervals form field, selects the whole week in
	// one request
	SearchInterval string

	RequestTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		BaseURL:        "https://candle.fmph.uniba.sk",
		Endpoint:       "/hodiny-v-intervaloch/zoznam",
		SearchInterval: "Pondelok 00:00-Piatok 23:59",
		RequestTimeout: 30 * time.Second,
	}
}

// Extractor pulls the weekly timetable off the candle search endpoint and
// turns it into an ExtractedSchedule snapshot. It keeps no state between
// runs other than its http client.
type Extractor struct {
	cfg    Config
	client *http.Client
	logger *log.Entry
}

// NewExtractorFromConfig maps the application level source settings onto
// an Extractor.
func NewExtractorFromConfig(src config.SourceConfig, logger *log.Entry) *Extractor {
	return NewExtractor(Config{
		BaseURL:        src.BaseURL,
		Endpoint:       src.Endpoint,
		SearchInterval: src.SearchInterval,
		RequestTimeout: src.RequestTimeout(),
	}, logger)
}

func NewExtractor(cfg Config, logger *log.Entry) *Extractor {
	limiter := services.NewAdaptiveRateLimiter(rate.Every(250*time.Millisecond), 5, rate.Every(500*time.Millisecond))
	return &Extractor{
		cfg:    cfg,
		client: services.NewSourceClient(logger, limiter, cfg.RequestTimeout),
		logger: logger,
	}
}

func (e *Extractor) Name() string { return "Candle" }

func (e *Extractor) sourceURL() string { return e.cfg.BaseURL + e.cfg.Endpoint }

// ExtractWeeklySchedule fetches the full week document once, parses the
// result table, and maps every candidate row. Transport and table failures
// propagate, bad rows only become rejections.
func (e *Extractor) ExtractWeeklySchedule(ctx context.Context) (services.ExtractedSchedule, error) {
	var snapshot services.ExtractedSchedule

	extractedAt := time.Now()
	document, err := e.fetchDocument(ctx)
	if err != nil {
		return snapshot, err
	}

	rows, err := parseRows(document)
	if err != nil {
		return snapshot, err
	}

	runStamp := extractedAt.UnixMilli()
	items := []services.ScheduleItem{}
	var rejections []services.RowRejection
	for _, row := range rows {
		item, rejection := mapRow(row, runStamp)
		if rejection != nil {
			e.logger.Warnf("rejected row %d: %s", rejection.RowIndex, rejection.Reason)
			rejections = append(rejections, *rejection)
			continue
		}
		items = append(items, item)
	}

	snapshot = services.ExtractedSchedule{
		Items:       items,
		Rejections:  rejections,
		ExtractedAt: extractedAt,
		SourceURL:   e.sourceURL(),
	}
	return snapshot, nil
}

// fetchDocument posts the full week interval and returns the raw html.
// Any non 2xx status or network problem comes back as a TransportError.
func (e *Extractor) fetchDocument(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("searchIntervals", e.cfg.SearchInterval)

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		e.sourceURL(),
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return "", &services.TransportError{Reason: "could not build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-GB,en;q=0.9")
	req.Header.Set("Cache-Control", "max-age=0")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", &services.TransportError{Reason: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return "", &services.TransportError{StatusCode: resp.StatusCode, Reason: resp.Status}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &services.TransportError{Reason: "could not read response body", Err: err}
	}
	return string(body), nil
}

type rawRow struct {
	index int
	cells []string

	// text of the nested subject name element, empty when the subject cell
	// had no such element
	subjectName string
}

// parseRows locates the single result table and collects the candidate
// rows in document order. Rows with fewer than 8 cells are malformed
// markup, not data, and are silently dropped. A missing table is a hard
// stop for the whole run.
func parseRows(document string) ([]rawRow, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(document))
	if err != nil {
		return nil, fmt.Errorf("could not parse document: %w", err)
	}

	table := doc.Find(resultTableSelector).First()
	if table.Length() == 0 {
		return nil, services.ErrNoResultTable
	}

	var rows []rawRow
	table.Find("tbody tr").Each(func(i int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() < cellsPerRow {
			return
		}
		row := rawRow{index: i, cells: make([]string, cells.Length())}
		cells.Each(func(j int, td *goquery.Selection) {
			row.cells[j] = td.Text()
		})
		row.subjectName = cells.Eq(subjectCol).Find(".subjectName").First().Text()
		rows = append(rows, row)
	})
	return rows, nil
}

// mapRow turns one raw row into a ScheduleItem or a rejection, never both
// and never an error. A panic while mapping counts as a rejection so one
// broken row cannot take down the batch.
func mapRow(row rawRow, runStamp int64) (item services.ScheduleItem, rejection *services.RowRejection) {
	defer func() {
		if r := recover(); r != nil {
			rejection = &services.RowRejection{
				RowIndex: row.index,
				Reason:   fmt.Sprintf("mapping panic: %v", r),
			}
		}
	}()

	reject := func(format string, args ...any) (services.ScheduleItem, *services.RowRejection) {
		return services.ScheduleItem{}, &services.RowRejection{
			RowIndex: row.index,
			Reason:   fmt.Sprintf(format, args...),
		}
	}

	dayOfWeek := strings.TrimSpace(row.cells[dayCol])
	if !services.IsValidDay(dayOfWeek) {
		return reject("day token %q is not one of %v", dayOfWeek, services.ValidDays)
	}

	startTime := strings.TrimSpace(row.cells[startCol])
	endTime := strings.TrimSpace(row.cells[endCol])
	if !clockExpr.MatchString(startTime) || !clockExpr.MatchString(endTime) {
		return reject("times %q-%q are not HH:MM", startTime, endTime)
	}
	// HH:MM compares correctly as text
	if startTime >= endTime {
		return reject("start time %s is not before end time %s", startTime, endTime)
	}

	category := strings.TrimSpace(row.cells[categoryCol])

	courseName := strings.TrimSpace(row.subjectName)
	if courseName == "" {
		courseName = strings.TrimSpace(row.cells[subjectCol])
	}

	courseCode := ""
	if courseCodeExpr.MatchString(category) {
		courseCode = category
	}

	item = services.ScheduleItem{
		ID:         fmt.Sprintf("schedule-%d-%d", row.index, runStamp),
		Category:   category,
		CourseName: courseName,
		CourseCode: courseCode,
		DayOfWeek:  dayOfWeek,
		StartTime:  startTime,
		EndTime:    endTime,
		Room:       strings.TrimSpace(row.cells[roomCol]),
		Teacher:    strings.TrimSpace(row.cells[teacherCol]),
		Note:       strings.TrimSpace(row.cells[noteCol]),
	}
	return item, nil
}
