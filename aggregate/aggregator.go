/*
aggregator.go - Daily Aggregator

PURPOSE:
  Reduces every payment of one local calendar day into a single
  DailyRecord. This is the heart of the pipeline:

    1. Compute the day's local-time window (window.go).
    2. Page through ListPayments with the window fixed, following the
       continuation cursor until it is empty.
    3. Accumulate integer cents per field across all pages, counting
       only COMPLETED/APPROVED payments.
    4. Derive the record (ledger.FromCents) - the one cents->dollars
       conversion.

FAILURE MODEL:
  Each page fetch is retried with capped exponential backoff. Exhausted
  retries surface as *FetchError and NO record is produced - a failed
  day must never be written as an all-zero row. Pages are capped per
  day; blowing the cap is ErrPaginationLimit wrapped in a *FetchError.

SIDE EFFECTS:
  None. The aggregator never touches the ledger file.
*/
package aggregate

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sunrise/sales-engine/ledger"
	"github.com/sunrise/sales-engine/square"
)

const (
	// DefaultMaxPages caps cursor-following per day.
	DefaultMaxPages = 100

	// DefaultMaxAttempts is fetch attempts per page (1 try + retries).
	DefaultMaxAttempts = 3

	// defaultBackoff is the first retry delay; it doubles per attempt.
	defaultBackoff = 500 * time.Millisecond
)

// DayStats describes how a day's aggregation went. Recorded in the run
// journal so a thin day can be told apart from a failed one.
type DayStats struct {
	Pages    int // pages fetched
	Counted  int // payments that contributed to the totals
	Excluded int // payments dropped by the status filter
}

// Aggregator turns one calendar day into one DailyRecord.
type Aggregator struct {
	payments    square.PaymentLister
	loc         *time.Location
	maxPages    int
	maxAttempts int
	backoff     time.Duration
	log         *logrus.Logger
}

// NewAggregator wires an aggregator with default paging and retry caps.
func NewAggregator(payments square.PaymentLister, loc *time.Location, log *logrus.Logger) *Aggregator {
	return &Aggregator{
		payments:    payments,
		loc:         loc,
		maxPages:    DefaultMaxPages,
		maxAttempts: DefaultMaxAttempts,
		backoff:     defaultBackoff,
		log:         log,
	}
}

// WithLimits overrides the page cap and per-page attempt cap.
func (a *Aggregator) WithLimits(maxPages, maxAttempts int, backoff time.Duration) *Aggregator {
	a.maxPages = maxPages
	a.maxAttempts = maxAttempts
	a.backoff = backoff
	return a
}

// AggregateDay produces exactly one DailyRecord for date, or an error
// and no record. date is interpreted as a calendar date in the
// aggregator's location.
func (a *Aggregator) AggregateDay(ctx context.Context, date time.Time) (ledger.DailyRecord, DayStats, error) {
	begin, end := DayWindow(date, a.loc)

	var (
		totals ledger.Cents
		stats  DayStats
		cursor string
	)

	for page := 1; ; page++ {
		if page > a.maxPages {
			return ledger.DailyRecord{}, stats, &FetchError{
				Date: date, Page: page, Attempts: 0, Err: ErrPaginationLimit,
			}
		}

		resp, err := a.fetchPage(ctx, begin, end, cursor)
		if err != nil {
			return ledger.DailyRecord{}, stats, &FetchError{
				Date: date, Page: page, Attempts: a.maxAttempts, Err: err,
			}
		}
		stats.Pages = page

		for _, p := range resp.Payments {
			if !p.Countable() {
				stats.Excluded++
				continue
			}
			totals.Add(ledger.Cents{
				Gross:    p.Gross(),
				Tip:      p.Tip(),
				Refunded: p.Refunded(),
				Total:    p.Total(),
				Fees:     p.FeeTotal(),
			})
			stats.Counted++
		}

		if resp.Cursor == "" {
			break
		}
		cursor = resp.Cursor
	}

	a.log.WithFields(logrus.Fields{
		"date":     date.Format(ledger.DateLayout),
		"pages":    stats.Pages,
		"counted":  stats.Counted,
		"excluded": stats.Excluded,
	}).Debug("day aggregated")

	return ledger.FromCents(date, totals), stats, nil
}

// fetchPage retries one page with exponential backoff. Context
// cancellation cuts the wait short and aborts the day.
func (a *Aggregator) fetchPage(ctx context.Context, begin, end time.Time, cursor string) (square.Page, error) {
	var lastErr error
	delay := a.backoff

	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		page, err := a.payments.ListPayments(ctx, begin, end, cursor)
		if err == nil {
			return page, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return square.Page{}, ctx.Err()
		}
		if attempt == a.maxAttempts {
			break
		}

		a.log.WithFields(logrus.Fields{
			"attempt": attempt,
			"delay":   delay.String(),
		}).WithError(err).Warn("page fetch failed, retrying")

		select {
		case <-ctx.Done():
			return square.Page{}, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return square.Page{}, lastErr
}
