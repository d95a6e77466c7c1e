package forecast_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunrise/sales-engine/forecast"
	"github.com/sunrise/sales-engine/ledger"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func record(d time.Time, grossCents int64) ledger.DailyRecord {
	return ledger.FromCents(d, ledger.Cents{Gross: grossCents, Total: grossCents})
}

// =============================================================================
// SERIES PREPARATION
// =============================================================================

func TestPrepareSeries_DropsZeroDays(t *testing.T) {
	// GIVEN: a ledger with two closed (zero-gross) days
	// THEN: the series carries only the trading days

	records := []ledger.DailyRecord{
		record(day(2024, time.March, 10), 123456),
		record(day(2024, time.March, 11), 0), // closed
		record(day(2024, time.March, 12), 98700),
		record(day(2024, time.March, 13), 0), // closed
	}

	s := forecast.PrepareSeries(records)

	require.Len(t, s.Points, 2)
	assert.True(t, s.Points[0].DS.Equal(day(2024, time.March, 10)))
	assert.InDelta(t, 1234.56, s.Points[0].Y, 1e-9)
	assert.True(t, s.Points[1].DS.Equal(day(2024, time.March, 12)))
	assert.InDelta(t, 987.00, s.Points[1].Y, 1e-9)
}

func TestPrepareSeries_EmptyLedger(t *testing.T) {
	s := forecast.PrepareSeries(nil)
	assert.Empty(t, s.Points)
}

// =============================================================================
// REGRESSOR MERGING
// =============================================================================

func TestMergeRegressors_InnerJoinOnDate(t *testing.T) {
	// GIVEN: 3 series points but observations for only 2 of them
	// THEN: the unmatched point is dropped, matched points carry values

	s := forecast.PrepareSeries([]ledger.DailyRecord{
		record(day(2024, time.March, 10), 100000),
		record(day(2024, time.March, 11), 110000),
		record(day(2024, time.March, 12), 120000),
	})
	obs := map[string]map[string]float64{
		"2024-03-10": {"temp": 12.5, "windspeed": 8.1},
		"2024-03-12": {"temp": 14.0, "windspeed": 5.5},
	}

	merged, err := forecast.MergeRegressors(s, obs, []string{"temp", "windspeed"})
	require.NoError(t, err)

	assert.Equal(t, []string{"temp", "windspeed"}, merged.Regressors)
	require.Len(t, merged.Points, 2)
	assert.InDelta(t, 12.5, merged.Points[0].Regressors["temp"], 1e-9)
	assert.InDelta(t, 5.5, merged.Points[1].Regressors["windspeed"], 1e-9)
}

func TestMergeRegressors_MissingVariableDropsDay(t *testing.T) {
	s := forecast.PrepareSeries([]ledger.DailyRecord{
		record(day(2024, time.March, 10), 100000),
		record(day(2024, time.March, 11), 110000),
	})
	obs := map[string]map[string]float64{
		"2024-03-10": {"temp": 12.5}, // no precip reading
		"2024-03-11": {"temp": 13.1, "precip": 0.4},
	}

	merged, err := forecast.MergeRegressors(s, obs, []string{"temp", "precip"})
	require.NoError(t, err)
	require.Len(t, merged.Points, 1)
	assert.True(t, merged.Points[0].DS.Equal(day(2024, time.March, 11)))
}

func TestMergeRegressors_NoVars_PassThrough(t *testing.T) {
	s := forecast.PrepareSeries([]ledger.DailyRecord{record(day(2024, time.March, 10), 100000)})

	merged, err := forecast.MergeRegressors(s, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, s, merged)
}

func TestMergeRegressors_NoOverlap(t *testing.T) {
	s := forecast.PrepareSeries([]ledger.DailyRecord{record(day(2024, time.March, 10), 100000)})

	_, err := forecast.MergeRegressors(s, map[string]map[string]float64{}, []string{"temp"})
	assert.Error(t, err)
}

// =============================================================================
// OBSERVATION LOADING
// =============================================================================

func TestLoadObservations(t *testing.T) {
	// Non-numeric cells (station list, conditions text) must be skipped,
	// numeric columns kept.

	path := filepath.Join(t.TempDir(), "weather.csv")
	csv := "name,datetime,temp,windspeed,conditions\n" +
		"Oakland,2024-03-10,12.5,8.1,Partially cloudy\n" +
		"Oakland,2024-03-11,13.0,6.2,Rain\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))

	obs, err := forecast.LoadObservations(path)
	require.NoError(t, err)
	require.Len(t, obs, 2)

	d := obs["2024-03-10"]
	assert.InDelta(t, 12.5, d["temp"], 1e-9)
	assert.InDelta(t, 8.1, d["windspeed"], 1e-9)
	_, hasConditions := d["conditions"]
	assert.False(t, hasConditions)
	_, hasName := d["name"]
	assert.False(t, hasName)
}

func TestLoadObservations_NoDateColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weather.csv")
	require.NoError(t, os.WriteFile(path, []byte("temp,windspeed\n12.5,8.1\n"), 0o644))

	_, err := forecast.LoadObservations(path)
	assert.Error(t, err)
}
