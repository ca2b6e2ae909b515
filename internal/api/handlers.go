// Package api exposes HTTP handlers for on-demand time reports.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"golang.org/x/text/encoding"

	"example.com/timereport/internal/auth"
	"example.com/timereport/internal/domain"
	"example.com/timereport/internal/export"
	"example.com/timereport/internal/logging"
	"example.com/timereport/internal/persistence/postgres"
	"example.com/timereport/internal/report"
)

// ReportRunner produces a fresh report table.
type ReportRunner interface {
	Run(ctx context.Context) (report.Table, report.RunSummary, error)
}

// RunArchive reads previously archived runs.
type RunArchive interface {
	Rows(ctx context.Context, runID string) ([]report.Row, error)
}

// Handler coordinates HTTP requests with the report pipeline.
type Handler struct {
	runner  ReportRunner
	archive RunArchive
	sheet   string
	logger  *logging.Logger
}

// Option configures optional Handler behaviour.
type Option func(*Handler)

// WithArchive enables GET /v1/reports/runs/{id}.
func WithArchive(archive RunArchive) Option {
	return func(h *Handler) {
		h.archive = archive
	}
}

// WithSheetName overrides the worksheet name of xlsx downloads.
func WithSheetName(sheet string) Option {
	return func(h *Handler) {
		h.sheet = sheet
	}
}

// WithLogger overrides the handler logger.
func WithLogger(logger *logging.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// NewHandler builds a Handler.
func NewHandler(runner ReportRunner, opts ...Option) *Handler {
	h := &Handler{runner: runner, logger: logging.Nop()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/reports/time", h.timeReport)
	mux.HandleFunc("/v1/reports/runs/", h.archivedRun)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) timeReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	if !authorized(w, r) {
		return
	}

	query := r.URL.Query()
	format := strings.ToLower(query.Get("format"))
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "xlsx" {
		writeError(w, http.StatusBadRequest, "validation_failed", "format must be csv or xlsx")
		return
	}
	encodingLabel := strings.ToLower(strings.TrimSpace(query.Get("encoding")))
	var enc encoding.Encoding
	if encodingLabel != "" {
		if format != "csv" {
			writeError(w, http.StatusBadRequest, "validation_failed", "encoding applies to csv only")
			return
		}
		resolved, err := export.LookupEncoding(encodingLabel)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}
		enc = resolved
	}

	table, summary, err := h.runner.Run(r.Context())
	if err != nil {
		h.logger.Error("report request failed", "error", err)
		writeError(w, statusFor(err), "report_failed", err.Error())
		return
	}

	body := &bytes.Buffer{}
	if err := export.WriteCSV(body, table); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	contentType := "text/csv; charset=utf-8"
	filename := "output.csv"
	switch {
	case format == "xlsx":
		book := &bytes.Buffer{}
		if err := export.ConvertToSpreadsheet(body, book, h.sheet); err != nil {
			writeError(w, http.StatusInternalServerError, "server_error", err.Error())
			return
		}
		body = book
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		filename = "output.xlsx"
	case enc != nil:
		encoded := &bytes.Buffer{}
		if err := export.Transcode(body, encoded, enc); err != nil {
			writeError(w, http.StatusInternalServerError, "server_error", err.Error())
			return
		}
		body = encoded
		contentType = "text/csv; charset=" + encodingLabel
		filename = encodingLabel + ".csv"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("X-Report-Run-Id", summary.RunID)
	w.WriteHeader(http.StatusOK)
	_, _ = body.WriteTo(w)
}

func (h *Handler) archivedRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	if !authorized(w, r) {
		return
	}
	if h.archive == nil {
		writeError(w, http.StatusNotFound, "not_found", "report archive disabled")
		return
	}

	runID := strings.TrimPrefix(r.URL.Path, "/v1/reports/runs/")
	if runID == "" || strings.Contains(runID, "/") {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing run id")
		return
	}

	rows, err := h.archive.Rows(r.Context(), runID)
	if err != nil {
		if errors.Is(err, postgres.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "report run not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	resp := ArchivedRunResponse{RunID: runID, Rows: make([]RowView, 0, len(rows))}
	for _, row := range rows {
		resp.Rows = append(resp.Rows, toRowView(row))
	}
	writeJSON(w, http.StatusOK, resp)
}

func authorized(w http.ResponseWriter, r *http.Request) bool {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return false
	}
	if !claims.HasScope(auth.ScopeReportsRead) {
		writeError(w, http.StatusForbidden, "forbidden", "scope reports:read required")
		return false
	}
	return true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrConnection):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// RowView is the JSON rendering of one archived report row.
type RowView struct {
	ID             string  `json:"id"`
	DisplayName    string  `json:"display_name"`
	Placeholder    string  `json:"placeholder"`
	OnCampus       float64 `json:"on_campus"`
	OffCampus      float64 `json:"off_campus"`
	SocialPractice float64 `json:"social_practice"`
	Total          float64 `json:"total"`
}

// ArchivedRunResponse packages the rows of one archived run.
type ArchivedRunResponse struct {
	RunID string    `json:"run_id"`
	Rows  []RowView `json:"rows"`
}

func toRowView(row report.Row) RowView {
	return RowView{
		ID:             row.ID,
		DisplayName:    row.DisplayName,
		Placeholder:    row.Placeholder,
		OnCampus:       row.Totals.OnCampus,
		OffCampus:      row.Totals.OffCampus,
		SocialPractice: row.Totals.SocialPractice,
		Total:          row.Totals.Total,
	}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
