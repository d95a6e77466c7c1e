package aggregate

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrPaginationLimit is returned when a single day keeps producing
	// continuation cursors past the configured page cap. A pathological
	// cursor sequence must fail loudly rather than loop forever.
	ErrPaginationLimit = errors.New("pagination limit exceeded")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// FetchError is a day whose payment pages could not be fetched after
// all retries. The day is NOT written to the ledger; the run stops so
// the resolver retries the same date on the next run. A zero-valued row
// would be indistinguishable from a day with no sales.
type FetchError struct {
	Date     time.Time
	Page     int
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("aggregate: fetch %s page %d failed after %d attempts: %v",
		e.Date.Format("2006-01-02"), e.Page, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
