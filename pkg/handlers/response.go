package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mergetab/mergetab-engine/pkg/apperrors"
)

// ApiResponse is the standard envelope for successful responses.
type ApiResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
}

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// ParsePathUUID extracts a UUID path value, writing a 400 on failure.
func ParsePathUUID(w http.ResponseWriter, r *http.Request, name string, logger *zap.Logger) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_id", "Invalid "+name); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return uuid.Nil, false
	}
	return id, true
}

// WriteServiceError maps known service errors to HTTP statuses and writes
// the response. Unknown errors become a 500.
func WriteServiceError(w http.ResponseWriter, err error, errorCode string, logger *zap.Logger) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperrors.ErrConflict),
		errors.Is(err, apperrors.ErrColumnExists),
		errors.Is(err, apperrors.ErrNameTaken):
		status = http.StatusConflict
	case errors.Is(err, apperrors.ErrLastColumn),
		errors.Is(err, apperrors.ErrQueryRejected):
		status = http.StatusBadRequest
	case errors.Is(err, apperrors.ErrFileTooLarge),
		errors.Is(err, apperrors.ErrTooManyRows),
		errors.Is(err, apperrors.ErrTooManyColumns):
		status = http.StatusRequestEntityTooLarge
	}

	if writeErr := ErrorResponse(w, status, errorCode, err.Error()); writeErr != nil {
		logger.Error("Failed to write error response", zap.Error(writeErr))
	}
}
