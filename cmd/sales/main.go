/*
main.go - CLI entry point

PURPOSE:
  One binary for the whole pipeline. Subcommands map onto the batch
  jobs the owner runs on demand plus an optional dashboard server:

    sales update            append missing days to the ledger
    sales refresh           rebuild the ledger from the epoch date
    sales weather update    append missing weather observations
    sales weather refresh   rebuild the weather file
    sales forecast          run the forecasting engine, write artifacts
    sales report merge      transpose + combine dashboard summary CSVs
    sales report export     export the ledger to XLSX and a monthly PDF
    sales serve             read-only HTTP API + on-demand update

CONFIGURATION:
  Environment variables (a .env file is honored). See config package.

EXAMPLES:
  sales update
  sales refresh
  sales weather update
  sales forecast
  sales report merge --out combined.csv summary-2022.csv summary-2023.csv
  sales serve
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/sunrise/sales-engine/aggregate"
	"github.com/sunrise/sales-engine/api"
	"github.com/sunrise/sales-engine/config"
	"github.com/sunrise/sales-engine/forecast"
	"github.com/sunrise/sales-engine/journal"
	"github.com/sunrise/sales-engine/ledger"
	"github.com/sunrise/sales-engine/reports"
	"github.com/sunrise/sales-engine/square"
	"github.com/sunrise/sales-engine/weather"
)

func main() {
	cfg := config.Load()
	log := config.NewLogger(cfg)

	app := &cli.App{
		Name:  "sales",
		Usage: "daily sales aggregation, weather ingestion and forecasting",
		Commands: []*cli.Command{
			{
				Name:  "update",
				Usage: "append missing days to the sales ledger",
				Action: func(c *cli.Context) error {
					return runPipeline(c.Context, cfg, log, false)
				},
			},
			{
				Name:  "refresh",
				Usage: "rebuild the sales ledger from the epoch date",
				Action: func(c *cli.Context) error {
					return runPipeline(c.Context, cfg, log, true)
				},
			},
			{
				Name:  "weather",
				Usage: "maintain the weather observations file",
				Subcommands: []*cli.Command{
					{
						Name:  "update",
						Usage: "append missing observations",
						Action: func(c *cli.Context) error {
							return runWeather(c.Context, cfg, log, false)
						},
					},
					{
						Name:  "refresh",
						Usage: "rewrite the observations file from the epoch date",
						Action: func(c *cli.Context) error {
							return runWeather(c.Context, cfg, log, true)
						},
					},
				},
			},
			{
				Name:  "forecast",
				Usage: "run the forecasting engine and write artifacts",
				Action: func(c *cli.Context) error {
					return runForecast(c.Context, cfg, log)
				},
			},
			{
				Name:  "report",
				Usage: "merge dashboard summaries / export the ledger",
				Subcommands: []*cli.Command{
					{
						Name:      "merge",
						Usage:     "transpose and combine dashboard summary CSVs",
						ArgsUsage: "FILE...",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "out", Usage: "combined output path"},
						},
						Action: func(c *cli.Context) error {
							return runMerge(cfg, c.String("out"), c.Args().Slice())
						},
					},
					{
						Name:  "export",
						Usage: "export the ledger to XLSX and a monthly PDF",
						Action: func(c *cli.Context) error {
							return runExport(cfg, log)
						},
					},
				},
			},
			{
				Name:  "serve",
				Usage: "serve the read-only dashboard API",
				Action: func(c *cli.Context) error {
					return runServe(c.Context, cfg, log)
				},
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.WithError(err).Fatal("command failed")
	}
}

// =============================================================================
// COMMAND WIRING
// =============================================================================

// buildPipeline wires the aggregation pipeline from config. The
// returned journal store must be closed by the caller; it is nil when
// no journal path is configured.
func buildPipeline(cfg config.Config, log *logrus.Logger) (*aggregate.Orchestrator, *journal.Store, error) {
	var store *journal.Store
	if cfg.JournalPath != "" {
		var err error
		store, err = journal.New(cfg.JournalPath)
		if err != nil {
			return nil, nil, err
		}
	}
	orch, err := buildPipelineWithStore(cfg, log, store)
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, nil, err
	}
	return orch, store, nil
}

func runPipeline(ctx context.Context, cfg config.Config, log *logrus.Logger, rebuild bool) error {
	orch, store, err := buildPipeline(cfg, log)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}
	if rebuild {
		return orch.Refresh(ctx)
	}
	return orch.Update(ctx)
}

func runWeather(ctx context.Context, cfg config.Config, log *logrus.Logger, rebuild bool) error {
	if err := cfg.RequireWeather(); err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	epoch, err := cfg.Epoch()
	if err != nil {
		return err
	}

	client := weather.NewClient(cfg.WeatherBaseURL, cfg.VisualCrossingKey)
	m := weather.NewMaintainer(client, cfg.WeatherLocation, cfg.WeatherPath, epoch, loc, log)
	if rebuild {
		return m.Refresh(ctx)
	}
	return m.Update(ctx)
}

func runForecast(ctx context.Context, cfg config.Config, log *logrus.Logger) error {
	if err := cfg.RequireForecast(); err != nil {
		return err
	}
	jobCfg, err := forecast.LoadJobConfig(cfg.ForecastConfigPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	job := &forecast.Job{
		Engine:      forecast.NewHTTPEngine(cfg.ForecastEngineURL),
		LedgerPath:  cfg.LedgerPath,
		WeatherPath: cfg.WeatherPath,
		OutputDir:   cfg.OutputDir,
		Config:      jobCfg,
		Log:         log,
	}
	artifacts, err := job.Run(ctx)
	if err != nil {
		return err
	}
	for _, a := range artifacts {
		fmt.Println(a)
	}
	return nil
}

func runMerge(cfg config.Config, out string, files []string) error {
	if len(files) == 0 {
		return errors.New("report merge: at least one summary CSV is required")
	}
	if out == "" {
		out = filepath.Join(cfg.OutputDir, fmt.Sprintf("combined_sales_%s.csv", time.Now().Format("20060102")))
	}

	transposed := make([]string, 0, len(files))
	for _, f := range files {
		t, err := reports.Transpose(f, "")
		if err != nil {
			return err
		}
		transposed = append(transposed, t)
	}
	return reports.Combine(transposed, out)
}

func runExport(cfg config.Config, log *logrus.Logger) error {
	records, err := ledger.ReadAll(cfg.LedgerPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	stamp := time.Now().Format("20060102")
	xlsxPath := filepath.Join(cfg.OutputDir, fmt.Sprintf("ledger_%s.xlsx", stamp))
	pdfPath := filepath.Join(cfg.OutputDir, fmt.Sprintf("monthly_summary_%s.pdf", stamp))

	if err := reports.ExportXLSX(records, xlsxPath); err != nil {
		return err
	}
	if err := reports.MonthlyPDF(records, pdfPath); err != nil {
		return err
	}
	log.WithField("xlsx", xlsxPath).WithField("pdf", pdfPath).Info("ledger exported")
	return nil
}

func runServe(ctx context.Context, cfg config.Config, log *logrus.Logger) error {
	var store *journal.Store
	if cfg.JournalPath != "" {
		var err error
		store, err = journal.New(cfg.JournalPath)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	// The update trigger is only wired when payment credentials exist;
	// otherwise the server is read-only.
	var updater api.Updater
	if cfg.RequireSquare() == nil {
		orch, err := buildPipelineWithStore(cfg, log, store)
		if err != nil {
			return err
		}
		updater = orch
	}

	handler := api.NewHandler(cfg.LedgerPath, cfg.OutputDir, store, updater, log)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // synchronous update trigger
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.ListenAddr).Info("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// buildPipelineWithStore wires the orchestrator around an already-open
// journal store (the serve command shares it with the read endpoints).
func buildPipelineWithStore(cfg config.Config, log *logrus.Logger, store *journal.Store) (*aggregate.Orchestrator, error) {
	if err := cfg.RequireSquare(); err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	epoch, err := cfg.Epoch()
	if err != nil {
		return nil, err
	}

	var recorder aggregate.Recorder
	if store != nil {
		recorder = store
	}

	client := square.NewClient(cfg.SquareBaseURL, cfg.SquareAccessToken, cfg.SquareLocation)
	agg := aggregate.NewAggregator(client, loc, log)
	orch := aggregate.NewOrchestrator(agg, cfg.LedgerPath, epoch, loc, recorder, log)
	orch.DayTimeout = 2 * time.Minute
	return orch, nil
}
