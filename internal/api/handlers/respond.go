package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"

	"github.com/rs/zerolog/log"
	"github.com/tasklane/tasklane-be/internal/services"
)

// ExposeErrorDetail controls whether 500 responses echo the underlying error.
// The router enables it in development mode only.
var ExposeErrorDetail = false

// errorEnvelope is the uniform failure shape returned by every endpoint.
type errorEnvelope struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func validEmail(email string) bool {
	return emailPattern.MatchString(email)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	env := errorEnvelope{Message: message}
	if err != nil && ExposeErrorDetail {
		env.Error = err.Error()
	}
	writeJSON(w, status, env)
}

// writeServiceError maps service-layer sentinels onto the error taxonomy.
// Ownership mismatches arrive as ErrNotFound and stay 404.
func writeServiceError(w http.ResponseWriter, err error, notFoundMessage string) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		writeError(w, http.StatusNotFound, notFoundMessage, nil)
	case errors.Is(err, services.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, services.ErrDuplicateEmail):
		writeError(w, http.StatusBadRequest, "email already in use", nil)
	case errors.Is(err, services.ErrInvalidCredentials):
		writeError(w, http.StatusBadRequest, "invalid credentials", nil)
	default:
		log.Error().Err(err).Msg("Unhandled service error")
		writeError(w, http.StatusInternalServerError, "internal server error", err)
	}
}
