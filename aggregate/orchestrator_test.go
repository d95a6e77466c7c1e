package aggregate_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunrise/sales-engine/aggregate"
	"github.com/sunrise/sales-engine/journal"
	"github.com/sunrise/sales-engine/ledger"
	"github.com/sunrise/sales-engine/square"
)

// =============================================================================
// TEST FIXTURES
// =============================================================================

// dayLister serves a fixed page of payments per calendar date and can be
// told to fail specific dates. Dates are keyed off the window begin.
type dayLister struct {
	grossByDate map[string]int64 // "2006-01-02" -> gross cents
	failDates   map[string]bool
	calls       []string
}

func (d *dayLister) ListPayments(ctx context.Context, begin, end time.Time, cursor string) (square.Page, error) {
	key := begin.Format("2006-01-02")
	d.calls = append(d.calls, key)
	if d.failDates[key] {
		return square.Page{}, errors.New("square unavailable")
	}
	cents := d.grossByDate[key]
	if cents == 0 {
		return square.Page{}, nil
	}
	return square.Page{Payments: []square.Payment{completedPayment(cents, 0, 0, cents, 0)}}, nil
}

func newOrchestrator(t *testing.T, lister square.PaymentLister, path string, epoch, today time.Time, rec aggregate.Recorder) *aggregate.Orchestrator {
	t.Helper()
	agg := aggregate.NewAggregator(lister, time.UTC, quietLogger()).
		WithLimits(aggregate.DefaultMaxPages, 1, time.Millisecond)
	o := aggregate.NewOrchestrator(agg, path, epoch, time.UTC, rec, quietLogger())
	o.Now = func() time.Time { return today.Add(10 * time.Hour) } // mid-day clock
	return o
}

func seedLedger(t *testing.T, path string, dates ...time.Time) {
	t.Helper()
	w, err := ledger.OpenRebuild(path)
	require.NoError(t, err)
	for _, d := range dates {
		require.NoError(t, w.Append(ledger.FromCents(d, ledger.Cents{Gross: 100, Total: 100})))
	}
	require.NoError(t, w.Close())
}

func ledgerDates(t *testing.T, path string) []time.Time {
	t.Helper()
	records, err := ledger.ReadAll(path)
	require.NoError(t, err)
	dates := make([]time.Time, len(records))
	for i, r := range records {
		dates[i] = r.Date
	}
	return dates
}

// =============================================================================
// UPDATE TESTS
// =============================================================================

func TestUpdate_AppendsMissingDaysInOrder(t *testing.T) {
	// GIVEN: a ledger ending 03/10, today is 03/13
	// WHEN: updating
	// THEN: 03/11, 03/12, 03/13 are appended, in that order, once each

	path := filepath.Join(t.TempDir(), "ledger.csv")
	seedLedger(t, path, day(2024, time.March, 10))

	lister := &dayLister{grossByDate: map[string]int64{
		"2024-03-11": 1100, "2024-03-12": 1200, "2024-03-13": 1300,
	}}
	o := newOrchestrator(t, lister, path, day(2024, time.March, 1), day(2024, time.March, 13), nil)

	require.NoError(t, o.Update(context.Background()))

	dates := ledgerDates(t, path)
	require.Len(t, dates, 4)
	assert.Equal(t, []string{"2024-03-11", "2024-03-12", "2024-03-13"}, lister.calls)
	assert.True(t, dates[3].Equal(day(2024, time.March, 13)))
}

func TestUpdate_AlreadyUpToDate_NoOp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.csv")
	seedLedger(t, path, day(2024, time.March, 13))

	lister := &dayLister{}
	o := newOrchestrator(t, lister, path, day(2024, time.March, 1), day(2024, time.March, 13), nil)

	require.NoError(t, o.Update(context.Background()))
	assert.Empty(t, lister.calls, "no fetch when the ledger is current")
	assert.Len(t, ledgerDates(t, path), 1)
}

func TestUpdate_FailedDayStopsRun_EarlierRowsKept(t *testing.T) {
	// GIVEN: 03/12 cannot be fetched
	// WHEN: updating through 03/13
	// THEN: the run stops with an error; 03/11 is already persisted and
	//       03/13 was never attempted

	path := filepath.Join(t.TempDir(), "ledger.csv")
	seedLedger(t, path, day(2024, time.March, 10))

	lister := &dayLister{
		grossByDate: map[string]int64{"2024-03-11": 1100, "2024-03-13": 1300},
		failDates:   map[string]bool{"2024-03-12": true},
	}
	o := newOrchestrator(t, lister, path, day(2024, time.March, 1), day(2024, time.March, 13), nil)

	err := o.Update(context.Background())
	require.Error(t, err)
	var fetchErr *aggregate.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.True(t, fetchErr.Date.Equal(day(2024, time.March, 12)))

	dates := ledgerDates(t, path)
	require.Len(t, dates, 2, "only 03/10 (seed) and 03/11 should be present")
	assert.True(t, dates[1].Equal(day(2024, time.March, 11)))
	assert.Equal(t, []string{"2024-03-11", "2024-03-12"}, lister.calls, "03/13 never attempted")
}

func TestUpdate_ResumesAtFailedDate(t *testing.T) {
	// After a failed run, the next update starts at the failed date - no
	// gap and no duplicate.

	path := filepath.Join(t.TempDir(), "ledger.csv")
	seedLedger(t, path, day(2024, time.March, 10))

	lister := &dayLister{
		grossByDate: map[string]int64{"2024-03-11": 1100, "2024-03-12": 1200, "2024-03-13": 1300},
		failDates:   map[string]bool{"2024-03-12": true},
	}
	o := newOrchestrator(t, lister, path, day(2024, time.March, 1), day(2024, time.March, 13), nil)
	require.Error(t, o.Update(context.Background()))

	// The outage clears; run again.
	lister.failDates = nil
	require.NoError(t, o.Update(context.Background()))

	dates := ledgerDates(t, path)
	require.Len(t, dates, 4)
	for i, want := range []time.Time{
		day(2024, time.March, 10), day(2024, time.March, 11),
		day(2024, time.March, 12), day(2024, time.March, 13),
	} {
		assert.True(t, dates[i].Equal(want), "row %d", i)
	}
}

func TestUpdate_HeaderOnlyLedger_FailsLoudly(t *testing.T) {
	// A fresh header-only file has no last date to resume from; update
	// must refuse rather than guess.
	path := filepath.Join(t.TempDir(), "ledger.csv")
	w, err := ledger.OpenRebuild(path)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	o := newOrchestrator(t, &dayLister{}, path, day(2024, time.March, 1), day(2024, time.March, 13), nil)

	var parseErr *ledger.ParseError
	assert.ErrorAs(t, o.Update(context.Background()), &parseErr)
}

// =============================================================================
// REFRESH TESTS
// =============================================================================

func TestRefresh_RebuildsFromEpoch(t *testing.T) {
	// GIVEN: a ledger with stale content
	// WHEN: refreshing with epoch 03/10 and today 03/12
	// THEN: exactly 03/10..03/12 remain

	path := filepath.Join(t.TempDir(), "ledger.csv")
	seedLedger(t, path, day(2020, time.January, 1)) // stale

	lister := &dayLister{grossByDate: map[string]int64{
		"2024-03-10": 1000, "2024-03-11": 1100, "2024-03-12": 1200,
	}}
	o := newOrchestrator(t, lister, path, day(2024, time.March, 10), day(2024, time.March, 12), nil)

	require.NoError(t, o.Refresh(context.Background()))

	dates := ledgerDates(t, path)
	require.Len(t, dates, 3)
	assert.True(t, dates[0].Equal(day(2024, time.March, 10)))
	assert.True(t, dates[2].Equal(day(2024, time.March, 12)))
}

// =============================================================================
// JOURNAL INTEGRATION
// =============================================================================

func TestUpdate_JournalsOutcomes(t *testing.T) {
	// GIVEN: a run that fails on its second day, journaled to SQLite
	// THEN: the run is recorded as failed, per-day outcomes are recorded,
	//       and the failed date shows up as incomplete until a later run
	//       succeeds on it

	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.csv")
	seedLedger(t, path, day(2024, time.March, 10))

	store, err := journal.New(filepath.Join(dir, "journal.db"))
	require.NoError(t, err)
	defer store.Close()

	lister := &dayLister{
		grossByDate: map[string]int64{"2024-03-11": 1100, "2024-03-12": 1200},
		failDates:   map[string]bool{"2024-03-12": true},
	}
	o := newOrchestrator(t, lister, path, day(2024, time.March, 1), day(2024, time.March, 12), store)
	require.Error(t, o.Update(context.Background()))

	ctx := context.Background()

	runs, err := store.RecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "update", runs[0].Mode)
	assert.Equal(t, aggregate.DayFailed, runs[0].Status)

	days, err := store.RunDays(ctx, runs[0].ID)
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, aggregate.DayOK, days[0].Status)
	assert.Equal(t, "11", days[0].GrossUSD)
	assert.Equal(t, aggregate.DayFailed, days[1].Status)
	assert.NotEmpty(t, days[1].Error)

	incomplete, err := store.IncompleteDays(ctx)
	require.NoError(t, err)
	require.Len(t, incomplete, 1)
	assert.Equal(t, "2024-03-12", incomplete[0].Date)

	// A later successful run clears the incomplete day.
	lister.failDates = nil
	require.NoError(t, o.Update(ctx))

	incomplete, err = store.IncompleteDays(ctx)
	require.NoError(t, err)
	assert.Empty(t, incomplete)
}
