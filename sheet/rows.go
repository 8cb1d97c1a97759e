package sheet

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Column names recognised in the header row (case-insensitive).
const (
	ColTopic       = "topic"
	ColAngle       = "angle"
	ColFormat      = "format"
	ColBlog        = "blog"
	ColImage       = "image"
	ColStatus      = "status"
	ColGeneratedAt = "generated_at"
)

// OutputColumns are appended to the header row when missing.
var OutputColumns = []string{ColBlog, ColImage, ColStatus, ColGeneratedAt}

const (
	StatusGenerated = "generated"

	maxStatusMessage = 200
	timestampLayout  = "2006-01-02 15:04:05"
)

// HeaderMap maps a lower-cased column name to its 1-based column index.
type HeaderMap map[string]int

// Col returns the column for name, or fallback when the header is absent.
func (h HeaderMap) Col(name string, fallback int) int {
	if idx, ok := h[strings.ToLower(strings.TrimSpace(name))]; ok {
		return idx
	}
	return fallback
}

// Row is one topic line of the sheet.
type Row struct {
	Index       int
	Topic       string
	Angle       string
	Format      string
	Blog        string
	Image       string
	Status      string
	GeneratedAt string
}

// Headers reads the header row into a HeaderMap. The first occurrence of a
// duplicated name wins.
func (w *Workbook) Headers() (HeaderMap, error) {
	names, err := w.headerNames()
	if err != nil {
		return nil, err
	}
	hm := make(HeaderMap, len(names))
	for i, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		if _, seen := hm[key]; !seen {
			hm[key] = i + 1
		}
	}
	return hm, nil
}

func (w *Workbook) headerNames() ([]string, error) {
	rows, err := w.file.GetRows(w.sheet)
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// EnsureColumns appends any missing names after the last used column of the
// sheet and returns the refreshed HeaderMap. Data columns without a header
// are never overwritten.
func (w *Workbook) EnsureColumns(names ...string) (HeaderMap, error) {
	hm, err := w.Headers()
	if err != nil {
		return nil, err
	}
	width, err := w.MaxColumn()
	if err != nil {
		return nil, err
	}
	next := width + 1
	for _, name := range names {
		if _, ok := hm[strings.ToLower(name)]; ok {
			continue
		}
		if err := w.SetCell(1, next, name); err != nil {
			return nil, fmt.Errorf("add column %s: %w", name, err)
		}
		hm[strings.ToLower(name)] = next
		next++
	}
	return hm, nil
}

// Eligible reports whether a row still needs processing: it has a topic and
// its status is not "generated". Error statuses stay eligible.
func Eligible(topic, status string) bool {
	if strings.TrimSpace(topic) == "" {
		return false
	}
	return !strings.EqualFold(strings.TrimSpace(status), StatusGenerated)
}

// FindNextRow scans from row 2 and returns the first eligible row, or 0 when
// nothing is pending. Without a topic header the topic is read from column 2.
func (w *Workbook) FindNextRow(hm HeaderMap) (int, error) {
	maxRow, err := w.MaxRow()
	if err != nil {
		return 0, err
	}
	topicCol := hm.Col(ColTopic, 2)
	statusCol := hm.Col(ColStatus, 0)
	for r := 2; r <= maxRow; r++ {
		topic, err := w.Cell(r, topicCol)
		if err != nil {
			return 0, err
		}
		status, err := w.Cell(r, statusCol)
		if err != nil {
			return 0, err
		}
		if Eligible(topic, status) {
			return r, nil
		}
	}
	return 0, nil
}

// ReadRow loads the named fields of row r.
func (w *Workbook) ReadRow(hm HeaderMap, r int) (Row, error) {
	row := Row{Index: r}
	fields := []struct {
		dst      *string
		name     string
		fallback int
	}{
		{&row.Topic, ColTopic, 2},
		{&row.Angle, ColAngle, 3},
		{&row.Format, ColFormat, 4},
		{&row.Blog, ColBlog, 0},
		{&row.Image, ColImage, 0},
		{&row.Status, ColStatus, 0},
		{&row.GeneratedAt, ColGeneratedAt, 0},
	}
	for _, f := range fields {
		v, err := w.Cell(r, hm.Col(f.name, f.fallback))
		if err != nil {
			return Row{}, fmt.Errorf("read row %d %s: %w", r, f.name, err)
		}
		*f.dst = v
	}
	return row, nil
}

// WriteRow stores the generated fields of row back into the sheet.
func (w *Workbook) WriteRow(hm HeaderMap, row Row) error {
	fields := []struct {
		name  string
		value string
	}{
		{ColBlog, row.Blog},
		{ColImage, row.Image},
		{ColStatus, row.Status},
		{ColGeneratedAt, row.GeneratedAt},
	}
	for _, f := range fields {
		col := hm.Col(f.name, 0)
		if col == 0 {
			return fmt.Errorf("write row %d: missing %s column", row.Index, f.name)
		}
		if err := w.SetCell(row.Index, col, f.value); err != nil {
			return fmt.Errorf("write row %d %s: %w", row.Index, f.name, err)
		}
	}
	return nil
}

// SetStatus writes only the status cell of row r.
func (w *Workbook) SetStatus(hm HeaderMap, r int, status string) error {
	col := hm.Col(ColStatus, 0)
	if col == 0 {
		return fmt.Errorf("set status row %d: missing status column", r)
	}
	return w.SetCell(r, col, status)
}

// ErrorStatus renders err as a status cell value, truncated to a bounded length.
func ErrorStatus(err error) string {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	if utf8.RuneCountInString(msg) > maxStatusMessage {
		msg = string([]rune(msg)[:maxStatusMessage])
	}
	return "error: " + msg
}

// Timestamp renders t in the generated_at cell format.
func Timestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout) + " UTC"
}
