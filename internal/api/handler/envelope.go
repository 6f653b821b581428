package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/signbridge/signbridge/internal/api/dto"
	"github.com/signbridge/signbridge/internal/api/service"
	"github.com/signbridge/signbridge/internal/envelope"
	"github.com/signbridge/signbridge/internal/remote"
)

// EnvelopeHandler handles envelope signing and verification requests.
type EnvelopeHandler struct {
	service *service.EnvelopeService
}

// NewEnvelopeHandler creates a new EnvelopeHandler.
func NewEnvelopeHandler(envelopeService *service.EnvelopeService) *EnvelopeHandler {
	return &EnvelopeHandler{service: envelopeService}
}

// Sign handles POST /api/v1/envelopes/sign
func (h *EnvelopeHandler) Sign(w http.ResponseWriter, r *http.Request) {
	var req dto.SignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, &dto.APIError{
			Code:    "INVALID_REQUEST",
			Message: "Invalid JSON request body",
		})
		return
	}

	resp, err := h.service.Sign(r.Context(), &req)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// Verify handles POST /api/v1/envelopes/verify
func (h *EnvelopeHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req dto.VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, &dto.APIError{
			Code:    "INVALID_REQUEST",
			Message: "Invalid JSON request body",
		})
		return
	}

	resp, err := h.service.Verify(r.Context(), &req)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// handleServiceError maps service errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		respondError(w, http.StatusBadRequest, &dto.APIError{
			Code:    "INVALID_REQUEST",
			Message: err.Error(),
		})
	case errors.Is(err, service.ErrNoSigner):
		respondError(w, http.StatusPreconditionFailed, &dto.APIError{
			Code:    "NO_SIGNER",
			Message: err.Error(),
		})
	case errors.Is(err, service.ErrNoRemote):
		respondError(w, http.StatusPreconditionFailed, &dto.APIError{
			Code:    "NO_REMOTE_DEVICE",
			Message: err.Error(),
		})
	case errors.Is(err, envelope.ErrVerificationSetup):
		respondError(w, http.StatusUnprocessableEntity, &dto.APIError{
			Code:    "NOT_VERIFIABLE",
			Message: err.Error(),
		})
	case errors.Is(err, envelope.ErrSigningKey),
		errors.Is(err, envelope.ErrCertificateMismatch):
		respondError(w, http.StatusUnprocessableEntity, &dto.APIError{
			Code:    "SIGNER_ERROR",
			Message: err.Error(),
		})
	case errors.Is(err, remote.ErrConnectTimeout),
		errors.Is(err, remote.ErrCommandTimeout):
		respondError(w, http.StatusGatewayTimeout, &dto.APIError{
			Code:    "DEVICE_TIMEOUT",
			Message: err.Error(),
		})
	case errors.Is(err, remote.ErrConnectionRefused):
		respondError(w, http.StatusBadGateway, &dto.APIError{
			Code:    "DEVICE_UNREACHABLE",
			Message: err.Error(),
		})
	case errors.Is(err, remote.ErrAuthenticationFailed):
		respondError(w, http.StatusUnauthorized, &dto.APIError{
			Code:    "DEVICE_AUTH_FAILED",
			Message: err.Error(),
		})
	default:
		respondError(w, http.StatusInternalServerError, &dto.APIError{
			Code:    "INTERNAL_ERROR",
			Message: err.Error(),
		})
	}
}
