/*
client.go - HTTP client for the payments API

AUTH:
  Bearer token. The token and location ID come from config; there is no
  package-level client or credential state.

TIME BOUNDS:
  begin_time / end_time are RFC3339 instants with millisecond precision,
  zone offset included. The caller (aggregate) owns window semantics;
  this client only transports them.
*/
package square

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ProductionBaseURL is the live API endpoint.
const ProductionBaseURL = "https://connect.squareup.com"

// rfc3339Millis preserves the millisecond precision of window bounds.
const rfc3339Millis = "2006-01-02T15:04:05.000Z07:00"

// PaymentLister lists payments in a closed time window, one page at a
// time. Implemented by *Client; tests provide fakes.
type PaymentLister interface {
	ListPayments(ctx context.Context, begin, end time.Time, cursor string) (Page, error)
}

// Client talks to the payments API over HTTP.
type Client struct {
	baseURL     string
	accessToken string
	locationID  string
	httpClient  *http.Client
}

// NewClient builds a client. baseURL is overridable for tests and
// sandbox environments; empty means production.
func NewClient(baseURL, accessToken, locationID string) *Client {
	if baseURL == "" {
		baseURL = ProductionBaseURL
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		locationID:  locationID,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
}

// ListPayments fetches one page of payments in [begin, end]. Pass the
// previous page's cursor to continue; an empty cursor starts over.
func (c *Client) ListPayments(ctx context.Context, begin, end time.Time, cursor string) (Page, error) {
	q := url.Values{}
	q.Set("begin_time", begin.Format(rfc3339Millis))
	q.Set("end_time", end.Format(rfc3339Millis))
	if c.locationID != "" {
		q.Set("location_id", c.locationID)
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}

	endpoint := c.baseURL + "/v2/payments?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Page{}, fmt.Errorf("square: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("square: list payments: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Page{}, &APIError{Status: resp.StatusCode, Body: string(body)}
	}

	var page Page
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return Page{}, fmt.Errorf("square: decode response: %w", err)
	}
	return page, nil
}

// APIError is a non-success response from the payments API. Whether it
// is worth retrying is the caller's decision (see aggregate's backoff).
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("square: status %d: %s", e.Status, e.Body)
}
