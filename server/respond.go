package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	apperr "github.com/clone-prom-team-2025/server/internal/errors"
)

const (
	contentTypeJSON = "application/json"
	maxBodyBytes    = 1 << 20
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeJSONError(w http.ResponseWriter, errorCode, description string, statusCode int) {
	writeJSON(w, statusCode, map[string]string{
		"error":             errorCode,
		"error_description": description,
	})
}

// writeError maps a service error onto its HTTP status. Only invalid operations echo
// their detail back; everything else gets a fixed description.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSONError(w, "not_found", "not found", http.StatusNotFound)
	case errors.Is(err, apperr.ErrInvalidOperation):
		writeJSONError(w, "invalid_operation", detail(err, "invalid operation"), http.StatusBadRequest)
	case errors.Is(err, apperr.ErrInvalidCredentials):
		writeJSONError(w, "invalid_credentials", "invalid credentials", http.StatusUnauthorized)
	case errors.Is(err, apperr.ErrAccessDenied):
		writeJSONError(w, "access_denied", "access denied", http.StatusForbidden)
	default:
		log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
		writeJSONError(w, "internal_error", "internal server error", http.StatusInternalServerError)
	}
}

// detail returns the first human readable part of a wrapped error message, skipping
// the "[Type.Method]" call-site tags.
func detail(err error, fallback string) string {
	for _, part := range strings.Split(err.Error(), ": ") {
		part = strings.TrimSpace(part)
		for strings.HasPrefix(part, "[") {
			end := strings.Index(part, "]")
			if end < 0 {
				break
			}
			part = strings.TrimSpace(part[end+1:])
		}
		if part != "" && part != fallback {
			return part
		}
	}
	return fallback
}

// decode reads a JSON body into dst and validates it.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSONError(w, "invalid_request", "invalid request body", http.StatusBadRequest)
		return false
	}
	if err := s.validator.Struct(dst); err != nil {
		writeJSONError(w, "invalid_request", formatValidationErrors(err), http.StatusBadRequest)
		return false
	}
	return true
}

func formatValidationErrors(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err.Error()
	}
	messages := make([]string, 0, len(validationErrors))
	for _, fieldError := range validationErrors {
		switch fieldError.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required", fieldError.Field()))
		case "email":
			messages = append(messages, fmt.Sprintf("%s must be a valid email address", fieldError.Field()))
		case "min":
			messages = append(messages, fmt.Sprintf("%s must be at least %s characters long", fieldError.Field(), fieldError.Param()))
		case "max":
			messages = append(messages, fmt.Sprintf("%s must be at most %s characters long", fieldError.Field(), fieldError.Param()))
		default:
			messages = append(messages, fmt.Sprintf("%s is invalid", fieldError.Field()))
		}
	}
	return strings.Join(messages, "; ")
}
