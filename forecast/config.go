package forecast

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// JobConfig selects the forecast horizon, holiday calendar, and which
// weather columns (if any) the engine conditions on. Loaded from a YAML
// file so regressor experiments don't need a rebuild.
//
// Example:
//
//	country: US
//	horizon_days: 365
//	regressors: [temp, windspeed, precip]
//	regressor_sets:
//	  - []
//	  - [temp]
//	  - [temp, windspeed, precip]
type JobConfig struct {
	Country     string     `yaml:"country"`
	HorizonDays int        `yaml:"horizon_days"`
	Regressors  []string   `yaml:"regressors"`
	// RegressorSets drives comparison runs: one forecast per set, so
	// the owner can see which weather variables actually help.
	RegressorSets [][]string `yaml:"regressor_sets"`
}

// DefaultJobConfig mirrors the deployed setup: US holidays, a one-year
// horizon, no regressors.
func DefaultJobConfig() JobConfig {
	return JobConfig{Country: "US", HorizonDays: 365}
}

// LoadJobConfig reads a YAML job config; a missing path returns the
// defaults.
func LoadJobConfig(path string) (JobConfig, error) {
	if path == "" {
		return DefaultJobConfig(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultJobConfig(), nil
		}
		return JobConfig{}, fmt.Errorf("forecast: read config %s: %w", path, err)
	}

	cfg := DefaultJobConfig()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return JobConfig{}, fmt.Errorf("forecast: parse config %s: %w", path, err)
	}
	if cfg.HorizonDays <= 0 {
		cfg.HorizonDays = 365
	}
	return cfg, nil
}
