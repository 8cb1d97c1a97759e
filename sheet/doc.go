// Package sheet reads and writes the posting calendar workbook.
//
// Row 1 holds the headers; output columns are appended after the last used
// column when missing. Save falls back to <base>_updated_<unix>.xlsx when the
// primary file is locked or cannot be written.
package sheet
