package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"storefront/internal/model"

	"github.com/rs/zerolog"
)

// statusFor maps stable domain error codes to HTTP status codes.
var statusFor = map[string]int{
	model.ErrCodeInvalidJSON:          http.StatusBadRequest,
	model.ErrCodeMissingField:         http.StatusBadRequest,
	model.ErrCodeInvalidQuantity:      http.StatusBadRequest,
	model.ErrCodeInvalidMovement:      http.StatusBadRequest,
	model.ErrCodeCartNotFound:         http.StatusBadRequest,
	model.ErrCodeCartEmpty:            http.StatusBadRequest,
	model.ErrCodeProductNotFound:      http.StatusNotFound,
	model.ErrCodeOrderNotFound:        http.StatusNotFound,
	model.ErrCodeCartItemNotFound:     http.StatusNotFound,
	model.ErrCodeInsufficientStock:    http.StatusBadRequest,
	model.ErrCodeOrderNotCancellable:  http.StatusBadRequest,
	model.ErrCodeOrderNotPending:      http.StatusBadRequest,
	model.ErrCodeDuplicateTransaction: http.StatusBadRequest,
	model.ErrCodeUnauthorised:         http.StatusUnauthorized,
	model.ErrCodeForbidden:            http.StatusForbidden,
	model.ErrCodeRateLimited:          http.StatusTooManyRequests,
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but don't expose it to the client
		return
	}
}

// writeError writes an error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, code, message string, logger zerolog.Logger) {
	logger.Debug().Str("code", code).Int("status", status).Msg("request failed")
	writeJSON(w, status, model.ErrorResponse{Error: code, Message: message})
}

// writeDomainError maps a service error onto the wire. Domain errors keep
// their code and message; anything else becomes an opaque 500.
func writeDomainError(w http.ResponseWriter, err error, logger zerolog.Logger) {
	var domainErr *model.DomainError
	if errors.As(err, &domainErr) {
		status, ok := statusFor[domainErr.Code]
		if !ok {
			status = http.StatusInternalServerError
		}
		writeError(w, status, domainErr.Code, domainErr.Message, logger)
		return
	}

	logger.Error().Err(err).Msg("unhandled service error")
	writeError(w, http.StatusInternalServerError, model.ErrCodeInternalError, "something went wrong", logger)
}
