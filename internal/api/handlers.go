package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	commonerrors "query-orchestrator/internal/common/errors"
	"query-orchestrator/internal/models"
)

const (
	taskOrchestrate = "orchestrate-query"
	taskBuildChart  = "build-chart"
	taskFetchDocs   = "fetch-documents"
)

type QueryRequest struct {
	Query  string `json:"query"`
	Tenant string `json:"tenant,omitempty"`
}

type ChartRequest struct {
	ChartType models.ChartType `json:"chartType"`
	Title     string           `json:"title,omitempty"`
}

type DocumentsRequest struct {
	FileIDs []string `json:"fileIds"`
	Tenant  string   `json:"tenant,omitempty"`
}

type DocumentsResponse struct {
	Documents []models.Document `json:"documents"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if !s.decode(w, r, taskOrchestrate, &req) {
		return
	}

	resp := s.orchestrator.Orchestrate(r.Context(), req.Query, s.tenant(req.Tenant))
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	var req ChartRequest
	if !s.decode(w, r, taskBuildChart, &req) {
		return
	}

	result := s.visualizer.Visualize(r.Context(), req.ChartType, req.Title)
	writeJSON(w, http.StatusOK, result.Value)
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	var req DocumentsRequest
	if !s.decode(w, r, taskFetchDocs, &req) {
		return
	}

	tenant := s.tenant(req.Tenant)
	docs, err := s.documents.FetchByIDs(r.Context(), req.FileIDs, tenant)
	if err != nil {
		s.logger.Error("document fetch failed", map[string]interface{}{
			"requestId": RequestID(r.Context()),
			"tenant":    tenant,
			"error":     err.Error(),
		})
		writeError(w, r, http.StatusBadGateway, commonerrors.NewDocumentFetchFailedError(tenant, err))
		return
	}
	if docs == nil {
		docs = []models.Document{}
	}
	writeJSON(w, http.StatusOK, DocumentsResponse{Documents: docs})
}

func (s *Server) handleCapabilities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not_ready"
	}
	writeJSON(w, status, map[string]interface{}{
		"status": state,
		"checks": checks,
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (s *Server) tenant(t string) string {
	return models.ResolveTenant(t, s.config.DefaultTenant)
}

// decode reads, validates and unmarshals the request body into dst. On
// failure it writes a 400 response and returns false.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, taskType string, dst interface{}) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, r, http.StatusRequestEntityTooLarge, commonerrors.NewValidationFailedError(err.Error()))
		return false
	}

	if s.validator != nil {
		if result := s.validator.ValidateJSON(taskType, body); !result.Valid {
			s.logger.Warn("request rejected", map[string]interface{}{
				"requestId": RequestID(r.Context()),
				"taskType":  taskType,
				"errors":    result.Summary(),
			})
			writeError(w, r, http.StatusBadRequest, commonerrors.NewValidationFailedError(result.Summary()))
			return false
		}
	}

	if err := json.Unmarshal(body, dst); err != nil {
		writeError(w, r, http.StatusBadRequest, commonerrors.NewValidationFailedError(err.Error()))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, stdErr *commonerrors.StandardError) {
	if id := RequestID(r.Context()); id != "" {
		stdErr = stdErr.WithMetadata("requestId", id)
	}
	writeJSON(w, status, stdErr)
}
