package forecast

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sunrise/sales-engine/ledger"
)

// Job loads the ledger, prepares the series, and runs the engine once
// per configured regressor set, writing one artifact per run.
type Job struct {
	Engine      Engine
	LedgerPath  string
	WeatherPath string // may be empty when no regressors are configured
	OutputDir   string
	Config      JobConfig
	Log         *logrus.Logger

	// Now is swappable for tests.
	Now func() time.Time
}

// Run executes the job and returns the artifact paths it wrote.
func (j *Job) Run(ctx context.Context) ([]string, error) {
	records, err := ledger.ReadAll(j.LedgerPath)
	if err != nil {
		return nil, err
	}
	base := PrepareSeries(records)
	if len(base.Points) == 0 {
		return nil, fmt.Errorf("forecast: ledger has no non-zero days to model")
	}

	sets := j.Config.RegressorSets
	if len(sets) == 0 {
		sets = [][]string{j.Config.Regressors}
	}

	var obs map[string]map[string]float64
	for _, set := range sets {
		if len(set) > 0 {
			obs, err = LoadObservations(j.WeatherPath)
			if err != nil {
				return nil, err
			}
			break
		}
	}

	stamp := j.timestamp()
	var artifacts []string
	for _, set := range sets {
		series := base
		if len(set) > 0 {
			series, err = MergeRegressors(base, obs, set)
			if err != nil {
				return nil, err
			}
		}

		result, err := j.Engine.Forecast(ctx, Request{
			Series:  series,
			Country: j.Config.Country,
			Horizon: j.Config.HorizonDays,
		})
		if err != nil {
			return nil, err
		}

		path := filepath.Join(j.OutputDir, artifactName(stamp, set))
		if err := WriteCSV(result, path); err != nil {
			return nil, err
		}

		j.Log.WithFields(logrus.Fields{
			"regressors": strings.Join(set, ","),
			"points":     len(result.Points),
			"artifact":   path,
		}).Info("forecast written")
		artifacts = append(artifacts, path)
	}
	return artifacts, nil
}

func (j *Job) timestamp() string {
	now := time.Now
	if j.Now != nil {
		now = j.Now
	}
	return now().Format("20060102")
}

func artifactName(stamp string, regressors []string) string {
	if len(regressors) == 0 {
		return fmt.Sprintf("forecast_%s.csv", stamp)
	}
	return fmt.Sprintf("forecast_%s_%s.csv", stamp, strings.Join(regressors, "-"))
}
