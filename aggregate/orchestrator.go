/*
orchestrator.go - Refresh/Update Orchestrator

PURPOSE:
  Drives the pipeline across a date range, one day at a time, strictly
  in increasing date order, synchronously:

    resolve start date -> for each day: aggregate -> append -> journal

MODES (mutually exclusive):
  Update  - start at the ledger's next unrecorded date, append through
            today. A resolver ParseError aborts the run: guessing a
            start date would corrupt the ledger.
  Refresh - ignore the existing ledger; rewrite it from the configured
            epoch date through today, header first.

FAILURE MODEL:
  A day that cannot be aggregated stops the run. Rows already appended
  stay (each append is discrete and flushed); the resolver picks up at
  the failed date on the next run, so no gap and no zero row is ever
  recorded. Every day outcome is journaled either way.
*/
package aggregate

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sunrise/sales-engine/ledger"
)

// =============================================================================
// RUN JOURNAL INTERFACE
// =============================================================================

// Day outcome statuses recorded in the journal.
const (
	DayOK     = "ok"
	DayFailed = "failed"
)

// DayOutcome is one journaled day result.
type DayOutcome struct {
	Status   string
	Stats    DayStats
	Error    string // empty unless Status == DayFailed
	GrossUSD string // decimal text, empty on failure
}

// Recorder persists run and per-day outcomes. Implemented by
// journal.Store; NopRecorder disables journaling.
type Recorder interface {
	BeginRun(ctx context.Context, mode string, from, to time.Time) (int64, error)
	RecordDay(ctx context.Context, runID int64, date time.Time, outcome DayOutcome) error
	FinishRun(ctx context.Context, runID int64, status, message string) error
}

// NopRecorder is a Recorder that records nothing.
type NopRecorder struct{}

func (NopRecorder) BeginRun(context.Context, string, time.Time, time.Time) (int64, error) {
	return 0, nil
}
func (NopRecorder) RecordDay(context.Context, int64, time.Time, DayOutcome) error { return nil }
func (NopRecorder) FinishRun(context.Context, int64, string, string) error        { return nil }

// =============================================================================
// ORCHESTRATOR
// =============================================================================

// Orchestrator runs update/refresh passes over the ledger.
type Orchestrator struct {
	agg        *Aggregator
	ledgerPath string
	epoch      time.Time
	loc        *time.Location
	recorder   Recorder
	log        *logrus.Logger

	// DayTimeout bounds one day's fetch+aggregate. Zero disables it.
	DayTimeout time.Duration

	// Now is swappable for tests.
	Now func() time.Time
}

// NewOrchestrator wires an orchestrator. recorder may be nil.
func NewOrchestrator(agg *Aggregator, ledgerPath string, epoch time.Time, loc *time.Location, recorder Recorder, log *logrus.Logger) *Orchestrator {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &Orchestrator{
		agg:        agg,
		ledgerPath: ledgerPath,
		epoch:      epoch,
		loc:        loc,
		recorder:   recorder,
		log:        log,
		Now:        time.Now,
	}
}

// Update appends every missing day (ledger's next date through today).
func (o *Orchestrator) Update(ctx context.Context) error {
	start, err := ledger.NextDate(o.ledgerPath)
	if err != nil {
		return err
	}

	today := o.today()
	if start.After(today) {
		o.log.WithField("ledger", o.ledgerPath).Info("ledger already up to date")
		return nil
	}

	w, err := ledger.OpenAppend(o.ledgerPath)
	if err != nil {
		return err
	}
	defer w.Close()

	return o.run(ctx, w, "update", start, today)
}

// Refresh rebuilds the ledger from the epoch date through today.
func (o *Orchestrator) Refresh(ctx context.Context) error {
	w, err := ledger.OpenRebuild(o.ledgerPath)
	if err != nil {
		return err
	}
	defer w.Close()

	return o.run(ctx, w, "refresh", o.epoch, o.today())
}

// today is the current calendar date in the configured zone, carried as
// a UTC midnight so it compares cleanly with resolver and epoch dates
// (which are bare calendar dates, also at UTC midnight).
func (o *Orchestrator) today() time.Time {
	now := o.Now().In(o.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// run walks [start, end] in date order, one synchronous day at a time.
func (o *Orchestrator) run(ctx context.Context, w *ledger.Writer, mode string, start, end time.Time) error {
	runID, err := o.recorder.BeginRun(ctx, mode, start, end)
	if err != nil {
		return err
	}

	o.log.WithFields(logrus.Fields{
		"mode": mode,
		"from": start.Format(ledger.DateLayout),
		"to":   end.Format(ledger.DateLayout),
	}).Info("run started")

	for date := start; !date.After(end); date = date.AddDate(0, 0, 1) {
		rec, stats, dayErr := o.aggregateDay(ctx, date)
		if dayErr != nil {
			outcome := DayOutcome{Status: DayFailed, Stats: stats, Error: dayErr.Error()}
			if jerr := o.recorder.RecordDay(ctx, runID, date, outcome); jerr != nil {
				o.log.WithError(jerr).Warn("journal write failed")
			}
			_ = o.recorder.FinishRun(ctx, runID, DayFailed, dayErr.Error())
			return dayErr
		}

		// The row is written only after every field is fully derived;
		// a discrete flushed append per day keeps earlier rows safe.
		if err := w.Append(rec); err != nil {
			_ = o.recorder.FinishRun(ctx, runID, DayFailed, err.Error())
			return err
		}

		outcome := DayOutcome{Status: DayOK, Stats: stats, GrossUSD: rec.GrossSales.String()}
		if jerr := o.recorder.RecordDay(ctx, runID, date, outcome); jerr != nil {
			o.log.WithError(jerr).Warn("journal write failed")
		}
	}

	return o.recorder.FinishRun(ctx, runID, DayOK, "")
}

func (o *Orchestrator) aggregateDay(ctx context.Context, date time.Time) (ledger.DailyRecord, DayStats, error) {
	if o.DayTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.DayTimeout)
		defer cancel()
	}
	return o.agg.AggregateDay(ctx, date)
}
