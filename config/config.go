/*
Package config loads runtime configuration from the environment.

All credentials, paths and locale settings are carried in an explicit
Config struct handed to constructors - no package initializes API
clients from ambient environment state. A .env file is honored when
present (local development); real deployments set the variables
directly.
*/
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Defaults for the observed deployment.
const (
	DefaultTimezone  = "America/Los_Angeles"
	DefaultEpochDate = "2022-11-01"
)

// Config is the full runtime configuration.
type Config struct {
	// Payments source
	SquareAccessToken string
	SquareLocation    string
	SquareBaseURL     string // empty = production

	// Weather source
	VisualCrossingKey string
	WeatherLocation   string // zip code or "lat,lon"
	WeatherBaseURL    string // empty = public endpoint

	// Files
	LedgerPath  string
	WeatherPath string
	JournalPath string
	OutputDir   string

	// Locale
	Timezone  string
	EpochDate string // first ledger date for refresh runs, YYYY-MM-DD

	// Forecasting
	ForecastEngineURL  string
	ForecastConfigPath string

	// HTTP surface
	ListenAddr string

	// Logging
	LogLevel string
	LogJSON  bool
}

// Load reads the configuration from the environment, after loading a
// .env file if one exists.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		SquareAccessToken: os.Getenv("SQUARE_ACCESS_TOKEN"),
		SquareLocation:    os.Getenv("SQUARE_LOCATION"),
		SquareBaseURL:     os.Getenv("SQUARE_BASE_URL"),

		VisualCrossingKey: os.Getenv("VISUAL_CROSSING_KEY"),
		WeatherLocation:   os.Getenv("WEATHER_LOCATION"),
		WeatherBaseURL:    os.Getenv("WEATHER_BASE_URL"),

		LedgerPath:  envDefault("LEDGER_PATH", "data/aggregated_sales.csv"),
		WeatherPath: envDefault("WEATHER_PATH", "data/weather.csv"),
		JournalPath: envDefault("JOURNAL_PATH", "data/journal.db"),
		OutputDir:   envDefault("OUTPUT_DIR", "output"),

		Timezone:  envDefault("SALES_TZ", DefaultTimezone),
		EpochDate: envDefault("EPOCH_DATE", DefaultEpochDate),

		ForecastEngineURL:  os.Getenv("FORECAST_ENGINE_URL"),
		ForecastConfigPath: os.Getenv("FORECAST_CONFIG"),

		ListenAddr: envDefault("LISTEN_ADDR", ":8080"),

		LogLevel: envDefault("LOG_LEVEL", "info"),
		LogJSON:  os.Getenv("LOG_JSON") == "true",
	}
}

func envDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Location resolves the configured time zone.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: invalid SALES_TZ %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Epoch resolves the refresh start date.
func (c Config) Epoch() (time.Time, error) {
	t, err := time.Parse("2006-01-02", c.EpochDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("config: invalid EPOCH_DATE %q: %w", c.EpochDate, err)
	}
	return t, nil
}

// RequireSquare validates the payments-source settings.
func (c Config) RequireSquare() error {
	if c.SquareAccessToken == "" {
		return fmt.Errorf("config: SQUARE_ACCESS_TOKEN is required")
	}
	if c.SquareLocation == "" {
		return fmt.Errorf("config: SQUARE_LOCATION is required")
	}
	return nil
}

// RequireWeather validates the weather-source settings.
func (c Config) RequireWeather() error {
	if c.VisualCrossingKey == "" {
		return fmt.Errorf("config: VISUAL_CROSSING_KEY is required")
	}
	if c.WeatherLocation == "" {
		return fmt.Errorf("config: WEATHER_LOCATION is required")
	}
	return nil
}

// RequireForecast validates the forecasting-engine settings.
func (c Config) RequireForecast() error {
	if c.ForecastEngineURL == "" {
		return fmt.Errorf("config: FORECAST_ENGINE_URL is required")
	}
	return nil
}
