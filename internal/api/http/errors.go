package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"assettracker-backend/internal/domain"
	"assettracker-backend/internal/logger"
	"assettracker-backend/internal/security"
	"assettracker-backend/internal/service"
)

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to encode response", "error", err)
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageResponse{Message: msg})
}

// statusFor maps domain and auth errors to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrDuplicateRequest),
		errors.Is(err, domain.ErrAssetUnavailable),
		errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrEmailTaken):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, security.ErrInvalidToken),
		errors.Is(err, security.ErrExpiredToken),
		errors.Is(err, security.ErrWrongTokenType):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case domain.IsNotFound(err):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as {"message": ...}. Internal failures are logged and their
// text is never sent to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeMessage(w, status, "Internal server error")
		return
	}
	writeMessage(w, status, err.Error())
}
