package handler

import (
	"net/http"

	"github.com/signbridge/signbridge/internal/api/service"
)

// RemoteHandler handles remote device discovery requests.
type RemoteHandler struct {
	service *service.RemoteService
}

// NewRemoteHandler creates a new RemoteHandler.
func NewRemoteHandler(remoteService *service.RemoteService) *RemoteHandler {
	return &RemoteHandler{service: remoteService}
}

// Certificates handles GET /api/v1/remote/certificates
func (h *RemoteHandler) Certificates(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.Certificates(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// SoftCards handles GET /api/v1/remote/softcards
func (h *RemoteHandler) SoftCards(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.SoftCards(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// Ping handles GET /api/v1/remote/ping
func (h *RemoteHandler) Ping(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.Ping(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}
