package forecast

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// Request is one forecasting job.
type Request struct {
	Series  Series `json:"series"`
	Country string `json:"country,omitempty"` // holiday calendar, e.g. "US"
	Horizon int    `json:"horizon_days"`      // days past the last observation
}

// ForecastPoint is one predicted date with its interval and trend
// decomposition.
type ForecastPoint struct {
	DS         time.Time `json:"ds"`
	YHat       float64   `json:"yhat"`
	YHatLower  float64   `json:"yhat_lower"`
	YHatUpper  float64   `json:"yhat_upper"`
	Trend      float64   `json:"trend"`
	TrendLower float64   `json:"trend_lower"`
	TrendUpper float64   `json:"trend_upper"`
}

// Result is the engine's response.
type Result struct {
	Points []ForecastPoint `json:"points"`
}

// Engine produces forecasts from a prepared series. The production
// implementation is HTTPEngine; tests fake it.
type Engine interface {
	Forecast(ctx context.Context, req Request) (Result, error)
}

// HTTPEngine calls a forecasting sidecar over JSON.
type HTTPEngine struct {
	url        string
	httpClient *http.Client
}

// NewHTTPEngine points at the sidecar's forecast endpoint. Model fits
// can be slow on long histories, hence the generous timeout.
func NewHTTPEngine(url string) *HTTPEngine {
	return &HTTPEngine{
		url:        strings.TrimRight(url, "/"),
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

func (e *HTTPEngine) Forecast(ctx context.Context, req Request) (Result, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return Result{}, fmt.Errorf("forecast: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url+"/forecast", bytes.NewReader(payload))
	if err != nil {
		return Result{}, fmt.Errorf("forecast: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("forecast: call engine: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Result{}, fmt.Errorf("forecast: engine status %d: %s", resp.StatusCode, string(body))
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Result{}, fmt.Errorf("forecast: decode response: %w", err)
	}
	return result, nil
}

// WriteCSV writes the forecast as a CSV artifact for the plotting and
// dashboard collaborators.
func WriteCSV(result Result, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("forecast: create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"ds", "yhat", "yhat_lower", "yhat_upper", "trend", "trend_lower", "trend_upper"}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, p := range result.Points {
		row := []string{
			p.DS.Format("2006-01-02"),
			formatFloat(p.YHat),
			formatFloat(p.YHatLower),
			formatFloat(p.YHatUpper),
			formatFloat(p.Trend),
			formatFloat(p.TrendLower),
			formatFloat(p.TrendUpper),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
