package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/juju/errors"

	"jeeptrack-service/internal/domain/entity"
)

// Response is the envelope of every JSON reply.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

type ErrorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error codes
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeNotFound          = "NOT_FOUND"
	CodeInvalidCheckpoint = "INVALID_CHECKPOINT"
	CodeRejected          = "REJECTED"
	CodeSequenceAnomaly   = "SEQUENCE_ANOMALY"
	CodeStoreConflict     = "STORE_CONFLICT"
	CodeTimeout           = "TIMEOUT"
	CodeInternal          = "INTERNAL_ERROR"
)

// statusFor maps a domain error onto an HTTP status and error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, errors.NotValid):
		return http.StatusBadRequest, CodeValidation
	case errors.Is(err, errors.NotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, entity.ErrInvalidCheckpoint):
		return http.StatusUnprocessableEntity, CodeInvalidCheckpoint
	case errors.Is(err, entity.ErrSequenceAnomaly):
		return http.StatusConflict, CodeSequenceAnomaly
	case errors.Is(err, entity.ErrRejected):
		return http.StatusConflict, CodeRejected
	case errors.Is(err, entity.ErrStoreConflict):
		return http.StatusServiceUnavailable, CodeStoreConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, CodeTimeout
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

func writeJSON(w http.ResponseWriter, status int, body Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, Response{Success: true, Data: data})
}

func writeFailure(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Response{Error: &ErrorBody{Message: message, Code: code}})
}
