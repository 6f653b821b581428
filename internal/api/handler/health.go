// Package handler provides HTTP handlers for the REST API.
package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/signbridge/signbridge/internal/api/dto"
)

// ReadyCheck probes one dependency of the server. It returns false when the
// dependency cannot currently serve requests.
type ReadyCheck func(ctx context.Context) bool

// HealthHandler handles health and readiness endpoints.
type HealthHandler struct {
	version  string
	services []string
	checks   map[string]ReadyCheck
}

// NewHealthHandler creates a new HealthHandler. checks are run on every
// readiness request; a nil map means only the server itself is probed.
func NewHealthHandler(version string, services []string, checks map[string]ReadyCheck) *HealthHandler {
	return &HealthHandler{
		version:  version,
		services: services,
		checks:   checks,
	}
}

// Health handles GET /health.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	serviceStatus := make(map[string]string)
	for _, s := range h.services {
		serviceStatus[s] = "ok"
	}

	resp := dto.HealthResponse{
		Status:   "ok",
		Version:  h.version,
		Services: serviceStatus,
	}

	respondJSON(w, http.StatusOK, resp)
}

// Ready handles GET /ready.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	checks := map[string]bool{
		"server": true,
	}
	for name, probe := range h.checks {
		checks[name] = probe(r.Context())
	}

	allReady := true
	for _, ready := range checks {
		if !ready {
			allReady = false
			break
		}
	}

	resp := dto.ReadyResponse{
		Ready:  allReady,
		Checks: checks,
	}

	status := http.StatusOK
	if !allReady {
		status = http.StatusServiceUnavailable
	}

	respondJSON(w, status, resp)
}

// respondJSON writes a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

// respondError writes an error response.
func respondError(w http.ResponseWriter, status int, apiErr *dto.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiErr)
}
