package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/MATHILDEdemariable/mariable-fr-sub003/internal/assistant"
	"github.com/MATHILDEdemariable/mariable-fr-sub003/internal/gateway"
	"github.com/MATHILDEdemariable/mariable-fr-sub003/internal/storage"
)

// Error types carried in the "type" field of error responses.
const (
	ErrTypeRateLimited    = "RATE_LIMITED"
	ErrTypeQuotaExceeded  = "QUOTA_EXCEEDED"
	ErrTypeUpstream       = "UPSTREAM_ERROR"
	ErrTypePersistence    = "PERSISTENCE_ERROR"
	ErrTypeInvalidRequest = "invalid_request_error"
	ErrTypeAuthentication = "authentication_error"
	ErrTypeNotFound       = "not_found"
	ErrTypeInternal       = "api_error"
)

// ErrorBody is the JSON envelope of every error response.
type ErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

// classify maps a service error to its HTTP status and error type.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, assistant.ErrInvalidRequest):
		return http.StatusBadRequest, ErrTypeInvalidRequest
	case errors.Is(err, gateway.ErrRateLimited):
		return http.StatusTooManyRequests, ErrTypeRateLimited
	case errors.Is(err, gateway.ErrQuotaExceeded):
		return http.StatusPaymentRequired, ErrTypeQuotaExceeded
	case errors.Is(err, assistant.ErrPersistence):
		return http.StatusInternalServerError, ErrTypePersistence
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound, ErrTypeNotFound
	default:
		return http.StatusBadGateway, ErrTypeUpstream
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
