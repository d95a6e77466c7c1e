/*
Package forecast prepares the daily revenue series and drives the
external forecasting engine.

PURPOSE:
  The engine itself (trend/seasonality/holiday model) is an external
  collaborator reached over HTTP. This package owns everything around
  it: shaping the ledger into the engine's (ds, y) schema, dropping
  closed days, joining weather observations on as regressors, and
  writing the returned forecast as a CSV artifact.

SCHEMA:
  ds - the date column
  y  - the modeled value (daily gross sales, major units)
  any further columns are regressors the engine conditions on.
*/
package forecast

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sunrise/sales-engine/ledger"
	"github.com/sunrise/sales-engine/weather"
)

// Point is one observation handed to the engine.
type Point struct {
	DS         time.Time          `json:"ds"`
	Y          float64            `json:"y"`
	Regressors map[string]float64 `json:"regressors,omitempty"`
}

// Series is the prepared model input.
type Series struct {
	Points     []Point  `json:"points"`
	Regressors []string `json:"regressors,omitempty"`
}

// PrepareSeries shapes ledger rows into the engine schema. Zero-revenue
// days are dropped: they are closed days, and letting the model see
// them as observations drags every seasonal component toward zero.
func PrepareSeries(records []ledger.DailyRecord) Series {
	var s Series
	for _, rec := range records {
		if rec.GrossSales.IsZero() {
			continue
		}
		y, _ := rec.GrossSales.Float64()
		s.Points = append(s.Points, Point{DS: rec.Date, Y: y})
	}
	return s
}

// MergeRegressors inner-joins weather observations onto the series by
// date and declares vars as regressor columns. Days without a matching
// observation are dropped (the engine cannot take missing regressors).
func MergeRegressors(s Series, obs map[string]map[string]float64, vars []string) (Series, error) {
	if len(vars) == 0 {
		return s, nil
	}

	merged := Series{Regressors: vars}
	for _, p := range s.Points {
		day, ok := obs[p.DS.Format(weather.DateLayout)]
		if !ok {
			continue
		}
		regs := make(map[string]float64, len(vars))
		complete := true
		for _, v := range vars {
			val, ok := day[v]
			if !ok {
				complete = false
				break
			}
			regs[v] = val
		}
		if !complete {
			continue
		}
		p.Regressors = regs
		merged.Points = append(merged.Points, p)
	}

	if len(merged.Points) == 0 {
		return Series{}, fmt.Errorf("forecast: no overlap between series and weather observations")
	}
	return merged, nil
}

// LoadObservations reads the weather CSV into date -> column -> value.
// Non-numeric cells (station names, conditions) are skipped.
func LoadObservations(path string) (map[string]map[string]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("forecast: open weather file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("forecast: read weather header: %w", err)
	}

	dateCol := -1
	for i, name := range header {
		if name == "datetime" || name == "time" || name == "date" {
			dateCol = i
			break
		}
	}
	if dateCol < 0 {
		return nil, fmt.Errorf("forecast: weather file has no date column")
	}

	obs := make(map[string]map[string]float64)
	for {
		row, err := r.Read()
		if err != nil {
			break
		}
		if dateCol >= len(row) {
			continue
		}
		day := make(map[string]float64)
		for i, cell := range row {
			if i == dateCol || i >= len(header) {
				continue
			}
			if v, err := strconv.ParseFloat(cell, 64); err == nil {
				day[header[i]] = v
			}
		}
		obs[row[dateCol]] = day
	}
	return obs, nil
}
