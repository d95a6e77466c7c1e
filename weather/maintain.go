package weather

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sunrise/sales-engine/ledger"
)

// Maintainer keeps the observations CSV current, mirroring the ledger's
// update/refresh split.
type Maintainer struct {
	source   DailySource
	location string
	path     string
	epoch    time.Time
	loc      *time.Location
	log      *logrus.Logger

	// Now is swappable for tests.
	Now func() time.Time
}

func NewMaintainer(source DailySource, location, path string, epoch time.Time, loc *time.Location, log *logrus.Logger) *Maintainer {
	return &Maintainer{
		source:   source,
		location: location,
		path:     path,
		epoch:    epoch,
		loc:      loc,
		log:      log,
		Now:      time.Now,
	}
}

// Update appends observations from the day after the file's last
// recorded date through today. The response header row is dropped so
// the file keeps a single header.
func (m *Maintainer) Update(ctx context.Context) error {
	start, err := nextDate(m.path)
	if err != nil {
		return err
	}
	today := m.today()
	if start.After(today) {
		m.log.WithField("weather", m.path).Info("weather file already up to date")
		return nil
	}

	body, err := m.source.DailyCSV(ctx, m.location, start, today)
	if err != nil {
		return err
	}
	rows, err := dataRows(body)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(m.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("weather: open %s for append: %w", m.path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("weather: append rows: %w", err)
	}
	m.log.WithFields(logrus.Fields{
		"from": start.Format(DateLayout),
		"to":   today.Format(DateLayout),
		"rows": len(rows),
	}).Info("weather updated")
	return nil
}

// Refresh rewrites the file with the full history from the epoch,
// header included.
func (m *Maintainer) Refresh(ctx context.Context) error {
	body, err := m.source.DailyCSV(ctx, m.location, m.epoch, m.today())
	if err != nil {
		return err
	}
	if err := os.WriteFile(m.path, body, 0o644); err != nil {
		return fmt.Errorf("weather: write %s: %w", m.path, err)
	}
	return nil
}

// today is the current calendar date in the configured zone at UTC
// midnight, matching the resolver's bare-date representation.
func (m *Maintainer) today() time.Time {
	now := m.Now().In(m.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// nextDate returns the day after the file's last recorded observation.
// The date column is located by header name, not position: timeline
// responses lead with a location name column, so the first field of a
// row is not the date (and may contain a quoted comma).
func nextDate(path string) (time.Time, error) {
	f, err := os.Open(path)
	if err != nil {
		return time.Time{}, fmt.Errorf("weather: open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return time.Time{}, fmt.Errorf("weather: read header of %s: %w", path, err)
	}
	col := dateColumn(header)
	if col < 0 {
		return time.Time{}, fmt.Errorf("weather: %s has no date column", path)
	}

	line, err := ledger.LastLine(path)
	if err != nil {
		return time.Time{}, err
	}
	row, err := csv.NewReader(strings.NewReader(line)).Read()
	if err != nil {
		return time.Time{}, fmt.Errorf("weather: parse last row of %s: %w", path, err)
	}
	if col >= len(row) {
		return time.Time{}, fmt.Errorf("weather: last row of %s has no date field", path)
	}

	last, err := time.Parse(DateLayout, row[col])
	if err != nil {
		return time.Time{}, fmt.Errorf("weather: parse last date %q in %s: %w", row[col], path, err)
	}
	return last.AddDate(0, 0, 1), nil
}

// dateColumn finds the date column in an observations header.
func dateColumn(header []string) int {
	for i, name := range header {
		switch name {
		case "datetime", "date", "time":
			return i
		}
	}
	return -1
}

// dataRows parses the response CSV and strips the header row.
func dataRows(body []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(body))
	r.FieldsPerRecord = -1
	all, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("weather: parse response CSV: %w", err)
	}
	if len(all) <= 1 {
		return nil, nil
	}
	return all[1:], nil
}
