package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/gray-logic-miio/internal/accessory"
	"github.com/nerrad567/gray-logic-miio/internal/binding"
)

// Error is the body of every non-2xx response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeNotFound     = "not_found"
	ErrCodeInternal     = "internal_error"
	ErrCodeReadOnly     = "read_only"
	ErrCodeInvalidValue = "invalid_value"
	ErrCodeDevice       = "device_error"
	ErrCodeTimeout      = "timeout"
)

// characteristicErrors maps characteristic failures to responses, first
// match wins. Anything unmatched is a device failure.
var characteristicErrors = []struct {
	target error
	status int
	code   string
}{
	{accessory.ErrReadOnly, http.StatusMethodNotAllowed, ErrCodeReadOnly},
	{accessory.ErrInvalidValue, http.StatusUnprocessableEntity, ErrCodeInvalidValue},
	{binding.ErrInvalidValue, http.StatusUnprocessableEntity, ErrCodeInvalidValue},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, ErrCodeTimeout},
}

func characteristicStatus(err error) (int, string) {
	for _, e := range characteristicErrors {
		if errors.Is(err, e.target) {
			return e.status, e.code
		}
	}
	return http.StatusBadGateway, ErrCodeDevice
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}
