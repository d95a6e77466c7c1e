/*
writer.go - Ledger Writer

PURPOSE:
  Appends fully-derived DailyRecords to the ledger file, one row at a
  time, flushing after every row so a crash mid-run never leaves a
  partially written row behind the last flushed one.

MODES:
  OpenAppend  - extend an existing ledger (update runs)
  OpenRebuild - truncate and write the header (refresh runs)

The writer does NOT validate that appended dates are contiguous with the
existing file; that is the orchestrator's responsibility.
*/
package ledger

import (
	"encoding/csv"
	"fmt"
	"os"
)

// Writer appends ledger rows in the fixed column order.
type Writer struct {
	f *os.File
	w *csv.Writer
}

// OpenAppend opens the ledger for appending, creating it (without a
// header) if it does not exist.
func OpenAppend(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("ledger: open %s for append: %w", path, err)
	}
	return &Writer{f: f, w: csv.NewWriter(f)}, nil
}

// OpenRebuild truncates the ledger and writes the header row.
func OpenRebuild(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("ledger: open %s for rebuild: %w", path, err)
	}
	w := &Writer{f: f, w: csv.NewWriter(f)}
	if err := w.w.Write(Columns); err != nil {
		f.Close()
		return nil, fmt.Errorf("ledger: write header: %w", err)
	}
	w.w.Flush()
	if err := w.w.Error(); err != nil {
		f.Close()
		return nil, fmt.Errorf("ledger: write header: %w", err)
	}
	return w, nil
}

// Append writes one record and flushes it to disk.
func (w *Writer) Append(rec DailyRecord) error {
	if err := w.w.Write(rec.Row()); err != nil {
		return fmt.Errorf("ledger: append row for %s: %w", rec.Date.Format(DateLayout), err)
	}
	w.w.Flush()
	if err := w.w.Error(); err != nil {
		return fmt.Errorf("ledger: append row for %s: %w", rec.Date.Format(DateLayout), err)
	}
	return nil
}

// Close closes the underlying file.
func (w *Writer) Close() error {
	w.w.Flush()
	if err := w.w.Error(); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}
