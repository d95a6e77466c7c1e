/*
resolver.go - Date-Range Resolver

PURPOSE:
  Determines the next date the ledger is missing by reading only the
  tail of the file. The ledger can grow unbounded (one row per day,
  forever), so the last row is recovered with a backward byte scan from
  EOF instead of loading the whole file.

EDGE CASES:
  - Trailing newline: the scan skips it and recovers the last DATA row,
    never an empty string.
  - Empty or header-only file: *ParseError wrapping ErrEmptyLedger.
    The resolver never guesses a start date; the caller must abort
    (or run a refresh instead).
*/
package ledger

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// NextDate returns the date immediately following the last recorded date
// in the ledger at path.
func NextDate(path string) (time.Time, error) {
	return NextDateLayout(path, DateLayout)
}

// NextDateLayout is NextDate for tabular files whose first column uses a
// different date layout.
func NextDateLayout(path, layout string) (time.Time, error) {
	line, err := LastLine(path)
	if err != nil {
		return time.Time{}, err
	}

	field := line
	if i := strings.IndexByte(line, ','); i >= 0 {
		field = line[:i]
	}

	last, err := time.Parse(layout, field)
	if err != nil {
		return time.Time{}, &ParseError{Field: "date", Value: field, Err: err}
	}
	return last.AddDate(0, 0, 1), nil
}

// LastLine returns the final non-empty line of the file without reading
// more than the trailing chunks needed to find it. Callers whose date
// field is not the first column parse the returned line themselves.
func LastLine(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("ledger: open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("ledger: stat %s: %w", path, err)
	}
	size := info.Size()
	if size == 0 {
		return "", &ParseError{Field: "date", Value: "", Err: ErrEmptyLedger}
	}

	const chunk = 4096
	var tail []byte
	offset := size

	for offset > 0 {
		n := int64(chunk)
		if offset < n {
			n = offset
		}
		offset -= n

		buf := make([]byte, n)
		if _, err := f.ReadAt(buf, offset); err != nil && err != io.EOF {
			return "", fmt.Errorf("ledger: read %s: %w", path, err)
		}
		tail = append(buf, tail...)

		// Drop trailing newlines once, then look for the preceding line
		// boundary in what we have so far.
		trimmed := bytes.TrimRight(tail, "\r\n")
		if i := bytes.LastIndexByte(trimmed, '\n'); i >= 0 {
			return strings.TrimRight(string(trimmed[i+1:]), "\r"), nil
		}
		if offset == 0 {
			if len(trimmed) == 0 {
				return "", &ParseError{Field: "date", Value: "", Err: ErrEmptyLedger}
			}
			// Single-line file: the only line is the last line.
			return strings.TrimRight(string(trimmed), "\r"), nil
		}
	}

	return "", &ParseError{Field: "date", Value: "", Err: ErrEmptyLedger}
}
