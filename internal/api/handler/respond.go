package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/notifyhub/tenantq/internal/domain"
)

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// mapError translates domain sentinel errors to HTTP status codes.
// All mapping lives here so individual handlers stay concise.
//
// Routing misses map to 422: an unmapped event type or channel is a
// deployment mismatch the caller cannot retry away. Missing tenants map to
// 404, never 500 — a request against a dropped tenant is a client error.
func mapError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrTenantNotFound),
		errors.Is(err, domain.ErrTenantUnknown),
		errors.Is(err, domain.ErrQueueNotFound),
		errors.Is(err, domain.ErrItemNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrTenantExists),
		errors.Is(err, domain.ErrItemNotClaimed):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrUnknownEventType),
		errors.Is(err, domain.ErrUnknownConsumerChannel),
		errors.Is(err, domain.ErrInvalidTier),
		errors.Is(err, domain.ErrInvalidDisplayName),
		errors.Is(err, domain.ErrInvalidTenantID),
		errors.Is(err, domain.ErrInvalidPayload):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrMissingTenant),
		errors.Is(err, domain.ErrMissingChannel),
		errors.Is(err, domain.ErrInvalidClaimCount):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrPartialProvisioning):
		respondError(w, http.StatusInternalServerError, err.Error())
	case errors.Is(err, domain.ErrStorageUnavailable):
		respondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}
