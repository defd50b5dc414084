package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"shopify-hubspot-sync/internal/application"
	"shopify-hubspot-sync/internal/domain"

	"github.com/rs/zerolog"
)

type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps service errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrUpstreamRejected), errors.Is(err, domain.ErrNetwork):
		return http.StatusBadGateway
	case errors.Is(err, application.ErrQueueFull):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, err error) {
	status := statusFor(err)
	event := logger.Warn()
	msg := err.Error()
	if status == http.StatusInternalServerError {
		event = logger.Error()
		msg = "internal server error"
	}
	event.Err(err).Str("method", r.Method).Str("path", r.URL.Path).Int("status", status).Msg("Request failed")
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}
