package sheet

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/xuri/excelize/v2"
)

// ErrPersistence is returned when neither the primary nor the alternate
// path could be written.
var ErrPersistence = errors.New("persist workbook")

// Workbook is one open spreadsheet file bound to a single sheet. The process
// holds an advisory lock on <path>.lock while the workbook is open.
type Workbook struct {
	path   string
	sheet  string
	file   *excelize.File
	lock   *flock.Flock
	locked bool
	now    func() time.Time
}

// SaveResult reports where the workbook actually landed.
type SaveResult struct {
	Path      string
	Alternate bool
	Reason    error
}

// Open loads the workbook at path. An empty sheet name selects the active sheet.
func Open(path, sheet string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	name := strings.TrimSpace(sheet)
	if name == "" {
		name = f.GetSheetName(f.GetActiveSheetIndex())
	} else if idx, err := f.GetSheetIndex(name); err != nil || idx < 0 {
		_ = f.Close()
		return nil, fmt.Errorf("open workbook %s: sheet %q not found", path, name)
	}

	w := &Workbook{
		path:  path,
		sheet: name,
		file:  f,
		lock:  flock.New(path + ".lock"),
		now:   time.Now,
	}
	ok, err := w.lock.TryLock()
	if err != nil || !ok {
		w.locked = true
	}
	return w, nil
}

// Path returns the primary workbook path.
func (w *Workbook) Path() string { return w.path }

// Locked reports whether another process held the workbook lock at Open.
func (w *Workbook) Locked() bool { return w.locked }

// SetClock overrides the clock used for alternate filenames.
func (w *Workbook) SetClock(now func() time.Time) {
	if now != nil {
		w.now = now
	}
}

// MaxRow returns the last populated row number (1-based, header included).
func (w *Workbook) MaxRow() (int, error) {
	rows, err := w.file.GetRows(w.sheet)
	if err != nil {
		return 0, fmt.Errorf("read rows: %w", err)
	}
	return len(rows), nil
}

// MaxColumn returns the widest populated column across all rows.
func (w *Workbook) MaxColumn() (int, error) {
	rows, err := w.file.GetRows(w.sheet)
	if err != nil {
		return 0, fmt.Errorf("read rows: %w", err)
	}
	width := 0
	for _, row := range rows {
		width = max(width, len(row))
	}
	return width, nil
}

// Cell returns the formatted value at (row, col), both 1-based.
func (w *Workbook) Cell(row, col int) (string, error) {
	if row < 1 || col < 1 {
		return "", nil
	}
	ref, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return "", err
	}
	return w.file.GetCellValue(w.sheet, ref)
}

// SetCell writes value at (row, col), both 1-based.
func (w *Workbook) SetCell(row, col int, value any) error {
	ref, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return w.file.SetCellValue(w.sheet, ref, value)
}

// Save persists the workbook. When the primary path is locked or cannot be
// written, it falls back to <base>_updated_<unix>.xlsx next to it.
func (w *Workbook) Save() (SaveResult, error) {
	var reason error
	if w.locked {
		reason = fmt.Errorf("workbook %s is locked by another process", w.path)
	} else if err := w.file.SaveAs(w.path); err != nil {
		reason = err
	} else {
		return SaveResult{Path: w.path}, nil
	}

	alt := w.alternatePath()
	if err := w.file.SaveAs(alt); err != nil {
		return SaveResult{}, fmt.Errorf("%w: primary %s: %v; alternate %s: %v", ErrPersistence, w.path, reason, alt, err)
	}
	return SaveResult{Path: alt, Alternate: true, Reason: reason}, nil
}

func (w *Workbook) alternatePath() string {
	ext := filepath.Ext(w.path)
	if ext == "" {
		ext = ".xlsx"
	}
	base := strings.TrimSuffix(w.path, filepath.Ext(w.path))
	return fmt.Sprintf("%s_updated_%d%s", base, w.now().Unix(), ext)
}

// Close releases the file and the workbook lock.
func (w *Workbook) Close() error {
	err := w.file.Close()
	if !w.locked && w.lock != nil {
		if uerr := w.lock.Unlock(); uerr == nil {
			_ = os.Remove(w.lock.Path())
		}
	}
	return err
}
