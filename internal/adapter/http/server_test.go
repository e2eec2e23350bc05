package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	httpadapter "github.com/couchcryptid/rainfall-event-etl/internal/adapter/http"
	"github.com/couchcryptid/rainfall-event-etl/internal/adapter/xlsx"
	"github.com/couchcryptid/rainfall-event-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type failingAnalyzer struct{}

func (failingAnalyzer) Analyze(context.Context, domain.Table) (domain.Report, error) {
	return domain.Report{}, fmt.Errorf("fit failed")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, readyErr error) *httpadapter.Server {
	t.Helper()
	engine, err := domain.NewEngine(domain.DefaultOptions(), discardLogger())
	require.NoError(t, err)
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, engine, discardLogger())
}

func post(srv *httpadapter.Server, target, contentType, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	srv.ServeHTTP(rec, req)
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv := newTestServer(t, fmt.Errorf("not ready yet"))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestAnalyze_CSV(t *testing.T) {
	srv := newTestServer(t, nil)
	body := "fecha,valor\na,0\nb,1\nc,2\nd,0\ne,3\n"

	rec := post(srv, "/v1/analyze?series_id=gauge-9", "text/csv; charset=utf-8", body)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var report domain.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "gauge-9", report.SeriesID)
	assert.Equal(t, 5, report.SampleCount)
	require.Len(t, report.Events, 2)
	assert.InDelta(t, 3.0, report.Events[0].TotalPrecipitation, 1e-12)
	require.NotNil(t, report.Overall)
	assert.Equal(t, 2, report.Overall.EventCount)
}

func TestAnalyze_JSONViaFormatParam(t *testing.T) {
	srv := newTestServer(t, nil)
	body := `{"series_id":"s-1","columns":{"Precipitacion":[1,1,1,0]}}`

	rec := post(srv, "/v1/analyze?format=json", "", body)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var report domain.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "s-1", report.SeriesID)
	assert.Equal(t, []domain.CategoryCount{{Category: domain.CategoryUnder30, Count: 1}}, report.Counts)
}

func TestAnalyze_Workbook(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := post(srv, "/v1/analyze?series_id=gauge/9&output=xlsx", "text/csv", "valor\n1\n2\n0\n")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename=gauge_9.xlsx`, rec.Header().Get("Content-Disposition"))

	wb, err := xlsx.Read(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, []string{xlsx.EventsSheet, "<30min", xlsx.CountsSheet, xlsx.PatternsSheet, xlsx.CurvesSheet}, wb.Sheets)
}

func TestAnalyze_Errors(t *testing.T) {
	tests := []struct {
		name        string
		target      string
		contentType string
		body        string
		wantStatus  int
		wantError   string
	}{
		{
			name:        "missing precipitation column",
			target:      "/v1/analyze",
			contentType: "text/csv",
			body:        "fecha,temperatura\na,12\n",
			wantStatus:  http.StatusUnprocessableEntity,
			wantError:   `column "Precipitacion" not found (available: temperatura)`,
		},
		{
			name:        "malformed json",
			target:      "/v1/analyze",
			contentType: "application/json",
			body:        `{"columns":`,
			wantStatus:  http.StatusBadRequest,
			wantError:   "decode json",
		},
		{
			name:        "bad precipitation cell",
			target:      "/v1/analyze",
			contentType: "text/csv",
			body:        "valor\n1\nmucha\n",
			wantStatus:  http.StatusBadRequest,
			wantError:   `invalid number "mucha"`,
		},
		{
			name:        "overflowing event total",
			target:      "/v1/analyze",
			contentType: "text/csv",
			body:        "valor\n1e308\n1e308\n",
			wantStatus:  http.StatusBadRequest,
			wantError:   "total precipitation +Inf is not finite",
		},
		{
			name:        "unsupported content type",
			target:      "/v1/analyze",
			contentType: "application/x-spss-sav",
			body:        "binary",
			wantStatus:  http.StatusUnsupportedMediaType,
		},
		{
			name:        "unsupported format param",
			target:      "/v1/analyze?format=sav",
			contentType: "text/csv",
			body:        "valor\n1\n",
			wantStatus:  http.StatusUnsupportedMediaType,
		},
	}

	srv := newTestServer(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(srv, tt.target, tt.contentType, tt.body)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Contains(t, body["error"], tt.wantError)
		})
	}
}

func TestAnalyze_InternalErrorIsNotLeaked(t *testing.T) {
	srv := httpadapter.NewServer(":0", &mockReadiness{}, failingAnalyzer{}, discardLogger())

	rec := post(srv, "/v1/analyze", "text/csv", "valor\n1\n")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "fit failed")
}

func TestAnalyze_NotRegisteredWithoutAnalyzer(t *testing.T) {
	srv := httpadapter.NewServer(":0", &mockReadiness{}, nil, discardLogger())

	rec := post(srv, "/v1/analyze", "text/csv", "valor\n1\n")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
