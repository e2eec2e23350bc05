package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/couchcryptid/rainfall-event-etl/internal/adapter/decoder"
	"github.com/couchcryptid/rainfall-event-etl/internal/adapter/xlsx"
	"github.com/couchcryptid/rainfall-event-etl/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxUploadBytes bounds the size of an uploaded series.
const maxUploadBytes = 32 << 20

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Server exposes health, readiness, metrics, and on-demand analysis endpoints.
type Server struct {
	httpServer *http.Server
	analyzer   domain.Analyzer
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, and /metrics routes.
// POST /v1/analyze is registered when analyzer is non-nil.
func NewServer(addr string, ready sharedobs.ReadinessChecker, analyzer domain.Analyzer, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		analyzer: analyzer,
		logger:   logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	if analyzer != nil {
		mux.HandleFunc("POST /v1/analyze", s.handleAnalyze)
	}

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// handleAnalyze decodes an uploaded series and responds with its report.
//
// The input format comes from ?format= (csv, json) or else the Content-Type.
// ?series_id= names the series when the payload does not. ?output=xlsx
// returns the export workbook instead of JSON.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	format, ok := requestFormat(r)
	if !ok {
		writeError(w, http.StatusUnsupportedMediaType, errors.New("send text/csv or application/json, or set ?format="))
		return
	}

	body := http.MaxBytesReader(w, r.Body, maxUploadBytes)
	table, err := decoder.Decode(body, format, r.URL.Query().Get("series_id"))
	if err != nil {
		s.writeAnalysisError(w, r, err)
		return
	}

	report, err := s.analyzer.Analyze(r.Context(), table)
	if err != nil {
		s.writeAnalysisError(w, r, err)
		return
	}

	s.logger.InfoContext(r.Context(), "series analyzed",
		"series_id", report.SeriesID,
		"samples", report.SampleCount,
		"events", len(report.Events),
	)

	if r.URL.Query().Get("output") == "xlsx" {
		s.writeWorkbook(w, r, report)
		return
	}

	data, err := json.Marshal(report)
	if err != nil {
		s.writeAnalysisError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data) //nolint:errcheck // client went away
}

func (s *Server) writeWorkbook(w http.ResponseWriter, r *http.Request, report domain.Report) {
	var buf bytes.Buffer
	if err := xlsx.Write(&buf, report); err != nil {
		s.writeAnalysisError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition",
		mime.FormatMediaType("attachment", map[string]string{"filename": xlsx.FileName(report.SeriesID)}))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w) //nolint:errcheck // client went away
}

// writeAnalysisError maps decode failures to 400, a missing precipitation
// column to 422, oversized bodies to 413, and anything else to 500.
func (s *Server) writeAnalysisError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		decodeErr  *domain.DecodeError
		missingErr *domain.MissingColumnError
		tooLarge   *http.MaxBytesError
	)
	switch {
	case errors.As(err, &tooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err)
	case errors.As(err, &decodeErr):
		writeError(w, http.StatusBadRequest, err)
	case errors.As(err, &missingErr):
		writeError(w, http.StatusUnprocessableEntity, err)
	default:
		s.logger.ErrorContext(r.Context(), "analysis failed", "error", err)
		writeError(w, http.StatusInternalServerError, errors.New("analysis failed"))
	}
}

// requestFormat picks the decoder for a request.
func requestFormat(r *http.Request) (decoder.Format, bool) {
	switch f := decoder.Format(r.URL.Query().Get("format")); f {
	case decoder.FormatCSV, decoder.FormatJSON:
		return f, true
	case "":
	default:
		return "", false
	}

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return "", false
	}
	switch mediaType {
	case "text/csv", "application/csv":
		return decoder.FormatCSV, true
	case "application/json":
		return decoder.FormatJSON, true
	default:
		return "", false
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort error response
}
