package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	commonerrors "query-orchestrator/internal/common/errors"
	"query-orchestrator/internal/common/logger"
	"query-orchestrator/internal/common/validation"
	"query-orchestrator/internal/models"
	"query-orchestrator/pkg/registry"
)

type fakeOrchestrator struct {
	text, tenant string
}

func (f *fakeOrchestrator) Orchestrate(ctx context.Context, text, tenant string) *models.Response {
	f.text, f.tenant = text, tenant
	resp := models.NewResponse()
	resp.Answer = "answer for " + text
	resp.ToolsUsed = []models.Tool{models.ToolDirect}
	return resp
}

type fakeVisualizer struct{}

func (fakeVisualizer) Visualize(ctx context.Context, chartType models.ChartType, title string) models.Result[models.VisualizationOutput] {
	return models.OK(models.VisualizationOutput{
		Success:     true,
		ChartConfig: &models.ChartConfig{Type: chartType, Title: title, Labels: []string{"a"}, Values: []float64{1}},
	})
}

type fakeFetcher struct {
	docs []models.Document
	err  error
}

func (f fakeFetcher) FetchByIDs(ctx context.Context, ids []string, tenant string) ([]models.Document, error) {
	return f.docs, f.err
}

func newTestServer(t *testing.T, orch Orchestrator, fetcher DocumentFetcher) *Server {
	t.Helper()
	reg, err := registry.Default()
	require.NoError(t, err)
	validator, err := validation.NewValidator(reg)
	require.NoError(t, err)

	return NewServer(Config{Address: ":0", DefaultTenant: "acme"}, orch, fakeVisualizer{}, fetcher, validator, reg, logger.NewTestLogger(t))
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) commonerrors.StandardError {
	t.Helper()
	var stdErr commonerrors.StandardError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stdErr))
	return stdErr
}

// ==========================
// /api/query
// ==========================

func TestHandleQuery(t *testing.T) {
	orch := &fakeOrchestrator{}
	h := newTestServer(t, orch, fakeFetcher{}).Handler()

	rec := do(t, h, http.MethodPost, "/api/query", `{"query":"hello there"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	var resp models.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "answer for hello there", resp.Answer)
	assert.Equal(t, []models.Tool{models.ToolDirect}, resp.ToolsUsed)
	assert.Equal(t, "acme", orch.tenant)
}

func TestHandleQuery_ExplicitTenant(t *testing.T) {
	orch := &fakeOrchestrator{}
	h := newTestServer(t, orch, fakeFetcher{}).Handler()

	rec := do(t, h, http.MethodPost, "/api/query", `{"query":"what is the refund policy?","tenant":"globex"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "globex", orch.tenant)
	assert.Equal(t, "what is the refund policy?", orch.text)
}

func TestHandleQuery_Rejected(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing query", `{}`},
		{"empty query", `{"query":""}`},
		{"blank query", `{"query":"   "}`},
		{"wrong type", `{"query":42}`},
		{"malformed json", `{"query":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orch := &fakeOrchestrator{}
			h := newTestServer(t, orch, fakeFetcher{}).Handler()

			rec := do(t, h, http.MethodPost, "/api/query", tt.body)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			stdErr := decodeError(t, rec)
			assert.Equal(t, commonerrors.ErrCodeValidationFailed, stdErr.Code)
			assert.Equal(t, rec.Header().Get(RequestIDHeader), stdErr.Metadata["requestId"])
			assert.Empty(t, orch.text)
		})
	}
}

func TestHandleQuery_MethodNotAllowed(t *testing.T) {
	h := newTestServer(t, &fakeOrchestrator{}, fakeFetcher{}).Handler()
	rec := do(t, h, http.MethodGet, "/api/query", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRequestIDPassthrough(t *testing.T) {
	h := newTestServer(t, &fakeOrchestrator{}, fakeFetcher{}).Handler()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get(RequestIDHeader))
}

// ==========================
// /api/chart
// ==========================

func TestHandleChart(t *testing.T) {
	h := newTestServer(t, &fakeOrchestrator{}, fakeFetcher{}).Handler()

	rec := do(t, h, http.MethodPost, "/api/chart", `{"chartType":"pie","title":"Devices"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var out models.VisualizationOutput
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.True(t, out.Success)
	require.NotNil(t, out.ChartConfig)
	assert.Equal(t, models.ChartTypePie, out.ChartConfig.Type)
	assert.Equal(t, "Devices", out.ChartConfig.Title)
}

func TestHandleChart_UnknownType(t *testing.T) {
	h := newTestServer(t, &fakeOrchestrator{}, fakeFetcher{}).Handler()

	rec := do(t, h, http.MethodPost, "/api/chart", `{"chartType":"radar"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, commonerrors.ErrCodeValidationFailed, decodeError(t, rec).Code)
}

// ==========================
// /api/documents
// ==========================

func TestHandleDocuments(t *testing.T) {
	docs := []models.Document{{ID: "d1", Question: "q", Answer: "a", Tenant: "acme"}}
	h := newTestServer(t, &fakeOrchestrator{}, fakeFetcher{docs: docs}).Handler()

	rec := do(t, h, http.MethodPost, "/api/documents", `{"fileIds":["d1"]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var out DocumentsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, docs, out.Documents)
}

func TestHandleDocuments_EmptyIsArray(t *testing.T) {
	h := newTestServer(t, &fakeOrchestrator{}, fakeFetcher{}).Handler()

	rec := do(t, h, http.MethodPost, "/api/documents", `{"fileIds":[]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"documents":[]}`, rec.Body.String())
}

func TestHandleDocuments_FetchFailed(t *testing.T) {
	h := newTestServer(t, &fakeOrchestrator{}, fakeFetcher{err: errors.New("connection refused")}).Handler()

	rec := do(t, h, http.MethodPost, "/api/documents", `{"fileIds":["d1"],"tenant":"acme"}`)

	require.Equal(t, http.StatusBadGateway, rec.Code)
	stdErr := decodeError(t, rec)
	assert.Equal(t, commonerrors.ErrCodeDocumentFetchFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
}

// ==========================
// Operational endpoints
// ==========================

func TestHandleCapabilities(t *testing.T) {
	h := newTestServer(t, &fakeOrchestrator{}, fakeFetcher{}).Handler()

	rec := do(t, h, http.MethodGet, "/api/capabilities", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var reg registry.ActivityRegistry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reg))
	_, ok := reg.Find("orchestrate-query")
	assert.True(t, ok)
}

func TestHealthAndMetrics(t *testing.T) {
	h := newTestServer(t, &fakeOrchestrator{}, fakeFetcher{}).Handler()

	rec := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")

	rec = do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleReady(t *testing.T) {
	srv := newTestServer(t, &fakeOrchestrator{}, fakeFetcher{})
	srv.AddReadinessCheck("store", func(ctx context.Context) error { return nil })

	rec := do(t, srv.Handler(), http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	srv.AddReadinessCheck("zeebe", func(ctx context.Context) error { return errors.New("unavailable") })
	rec = do(t, srv.Handler(), http.MethodGet, "/ready", "")

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not_ready", body.Status)
	assert.Equal(t, "ok", body.Checks["store"])
	assert.Equal(t, "unavailable", body.Checks["zeebe"])
}

func TestStart_ShutsDownOnCancel(t *testing.T) {
	srv := newTestServer(t, &fakeOrchestrator{}, fakeFetcher{})
	srv.config.Address = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	cancel()
	assert.NoError(t, <-done)
}
