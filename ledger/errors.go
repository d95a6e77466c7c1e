package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrEmptyLedger is returned when the file has no data row to resolve
	// a date from (empty or header-only file).
	ErrEmptyLedger = errors.New("ledger has no data rows")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ParseError reports a malformed field in the ledger. A ParseError from
// the resolver is fatal: guessing a start date would corrupt the ledger,
// so the whole run must abort.
type ParseError struct {
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("ledger: cannot parse %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
