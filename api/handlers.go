/*
handlers.go - HTTP API handlers

ENDPOINTS:
  GET  /api/ledger?days=N    Most recent N daily records (default 30)
  GET  /api/ledger/summary   Month-by-month rollup
  GET  /api/runs?limit=N     Recent journal runs
  GET  /api/runs/incomplete  Days whose latest outcome is a failure
  POST /api/update           Run an update pass, synchronously
  GET  /healthz              Liveness

ERROR HANDLING:
  Errors are returned as JSON:
  - 404: ledger file missing
  - 409: update already running
  - 500: everything else
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"sort"
	"strconv"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/sunrise/sales-engine/journal"
	"github.com/sunrise/sales-engine/ledger"
)

// Updater runs one update pass. Implemented by aggregate.Orchestrator.
type Updater interface {
	Update(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	LedgerPath string
	OutputDir  string
	Journal    *journal.Store // may be nil
	Updater    Updater        // may be nil (read-only server)
	Log        *logrus.Logger

	updateMu sync.Mutex // one update at a time; the ledger is not re-entrant
}

// NewHandler creates a handler. Journal and Updater are optional.
func NewHandler(ledgerPath, outputDir string, j *journal.Store, u Updater, log *logrus.Logger) *Handler {
	return &Handler{
		LedgerPath: ledgerPath,
		OutputDir:  outputDir,
		Journal:    j,
		Updater:    u,
		Log:        log,
	}
}

// =============================================================================
// DTOS
// =============================================================================

// LedgerRowDTO is one daily record serialized for the dashboard.
type LedgerRowDTO struct {
	Date       string `json:"date"`
	GrossSales string `json:"gross_sales"`
	NetSales   string `json:"net_sales"`
	Tip        string `json:"tip"`
	Refunds    string `json:"refunds"`
	Total      string `json:"total"`
	Fees       string `json:"fees"`
	NetTotal   string `json:"net_total"`
}

// MonthSummaryDTO is one month's rollup.
type MonthSummaryDTO struct {
	Month      string `json:"month"`
	GrossSales string `json:"gross_sales"`
	NetTotal   string `json:"net_total"`
	OpenDays   int    `json:"open_days"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toRowDTO(rec ledger.DailyRecord) LedgerRowDTO {
	return LedgerRowDTO{
		Date:       rec.Date.Format(ledger.DateLayout),
		GrossSales: rec.GrossSales.String(),
		NetSales:   rec.NetSales.String(),
		Tip:        rec.Tip.String(),
		Refunds:    rec.RefundsByAmount.String(),
		Total:      rec.Total.String(),
		Fees:       rec.Fees.String(),
		NetTotal:   rec.NetTotal.String(),
	}
}

// =============================================================================
// LEDGER ENDPOINTS
// =============================================================================

// ListLedger returns the most recent N rows, oldest first.
func (h *Handler) ListLedger(w http.ResponseWriter, r *http.Request) {
	records, ok := h.readLedger(w)
	if !ok {
		return
	}

	days := 30
	if v := r.URL.Query().Get("days"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			days = n
		}
	}
	if len(records) > days {
		records = records[len(records)-days:]
	}

	dtos := make([]LedgerRowDTO, 0, len(records))
	for _, rec := range records {
		dtos = append(dtos, toRowDTO(rec))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// LedgerSummary returns per-month gross/net totals.
func (h *Handler) LedgerSummary(w http.ResponseWriter, r *http.Request) {
	records, ok := h.readLedger(w)
	if !ok {
		return
	}

	type acc struct {
		gross, net decimal.Decimal
		openDays   int
	}
	months := map[string]*acc{}
	for _, rec := range records {
		key := rec.Date.Format("2006-01")
		a, ok := months[key]
		if !ok {
			a = &acc{}
			months[key] = a
		}
		a.gross = a.gross.Add(rec.GrossSales)
		a.net = a.net.Add(rec.NetTotal)
		if !rec.GrossSales.IsZero() {
			a.openDays++
		}
	}

	keys := make([]string, 0, len(months))
	for k := range months {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	dtos := make([]MonthSummaryDTO, 0, len(keys))
	for _, k := range keys {
		a := months[k]
		dtos = append(dtos, MonthSummaryDTO{
			Month:      k,
			GrossSales: a.gross.String(),
			NetTotal:   a.net.String(),
			OpenDays:   a.openDays,
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) readLedger(w http.ResponseWriter) ([]ledger.DailyRecord, bool) {
	records, err := ledger.ReadAll(h.LedgerPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			writeError(w, http.StatusNotFound, "ledger file not found", err)
		} else {
			writeError(w, http.StatusInternalServerError, "failed to read ledger", err)
		}
		return nil, false
	}
	return records, true
}

// =============================================================================
// JOURNAL ENDPOINTS
// =============================================================================

// ListRuns returns recent pipeline runs, newest first.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.Journal == nil {
		writeJSON(w, http.StatusOK, []journal.Run{})
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	runs, err := h.Journal.RecentRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read journal", err)
		return
	}
	if runs == nil {
		runs = []journal.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// IncompleteDays returns days still missing from the ledger because
// their last aggregation attempt failed.
func (h *Handler) IncompleteDays(w http.ResponseWriter, r *http.Request) {
	if h.Journal == nil {
		writeJSON(w, http.StatusOK, []journal.Day{})
		return
	}
	days, err := h.Journal.IncompleteDays(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read journal", err)
		return
	}
	if days == nil {
		days = []journal.Day{}
	}
	writeJSON(w, http.StatusOK, days)
}

// =============================================================================
// UPDATE TRIGGER
// =============================================================================

// TriggerUpdate runs one synchronous update pass.
func (h *Handler) TriggerUpdate(w http.ResponseWriter, r *http.Request) {
	if h.Updater == nil {
		writeError(w, http.StatusNotImplemented, "server is read-only", nil)
		return
	}
	if !h.updateMu.TryLock() {
		writeError(w, http.StatusConflict, "an update is already running", nil)
		return
	}
	defer h.updateMu.Unlock()

	if err := h.Updater.Update(r.Context()); err != nil {
		h.Log.WithError(err).Error("update run failed")
		writeError(w, http.StatusInternalServerError, "update failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Health is the liveness endpoint.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
