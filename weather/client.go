/*
Package weather maintains the daily weather observations CSV.

The observations feed the forecasting path as optional regressors
(average temperature, wind speed, precipitation). The source is the
Visual Crossing timeline API, fetched as CSV so rows pass straight
through to the local file. A non-200 response is fatal: a partially
ingested weather range would silently skew the regressors.
*/
package weather

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL is the Visual Crossing timeline endpoint.
const DefaultBaseURL = "https://weather.visualcrossing.com/VisualCrossingWebServices/rest/services/timeline"

// DateLayout is the date format of the API path and the CSV's first column.
const DateLayout = "2006-01-02"

// DailySource fetches daily observation rows as CSV. Implemented by
// *Client; tests provide fakes.
type DailySource interface {
	DailyCSV(ctx context.Context, location string, start, end time.Time) ([]byte, error)
}

// Client talks to the timeline API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient builds a client; empty baseURL means the public endpoint.
func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// DailyCSV fetches daily observations for location in [start, end] as
// CSV (header row included), metric units.
func (c *Client) DailyCSV(ctx context.Context, location string, start, end time.Time) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/%s/%s/%s?unitGroup=metric&include=days&contentType=csv&key=%s",
		c.baseURL, location, start.Format(DateLayout), end.Format(DateLayout), c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("weather: build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather: fetch observations: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("weather: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Status: resp.StatusCode, Body: truncate(string(body), 4096)}
	}
	return body, nil
}

// StatusError is a non-200 response from the weather source. Always
// fatal; the run aborts rather than ingesting a partial range.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("weather: unexpected status %d: %s", e.Status, e.Body)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
