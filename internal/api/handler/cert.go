package handler

import (
	"encoding/json"
	"net/http"

	"github.com/signbridge/signbridge/internal/api/dto"
	"github.com/signbridge/signbridge/internal/api/service"
)

// CertHandler handles certificate inspection requests.
type CertHandler struct {
	service *service.CertService
}

// NewCertHandler creates a new CertHandler.
func NewCertHandler(certService *service.CertService) *CertHandler {
	return &CertHandler{service: certService}
}

// Inspect handles POST /api/v1/certificates/inspect
func (h *CertHandler) Inspect(w http.ResponseWriter, r *http.Request) {
	var req dto.InspectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, &dto.APIError{
			Code:    "INVALID_REQUEST",
			Message: "Invalid JSON request body",
		})
		return
	}

	resp, err := h.service.Inspect(&req)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}
