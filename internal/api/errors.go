package api

import (
	"errors"
	"fmt"
	"net/http"

	"trading-backtestv1/internal/model"
	"trading-backtestv1/internal/service"
	"trading-backtestv1/internal/strategy"
)

// AppError is an error with an HTTP status and a stable code.
type AppError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Field   string         `json:"field,omitempty"`
	Params  map[string]any `json:"params,omitempty"`
	Status  int            `json:"-"`
	Err     error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// NewAppError creates a new application error.
func NewAppError(code, field, message string, status int) *AppError {
	return &AppError{Code: code, Field: field, Message: message, Status: status}
}

// WithError wraps an underlying error.
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

func NotFoundError(message string) *AppError {
	return NewAppError("ERR_NOT_FOUND", "", message, http.StatusNotFound)
}

func BadRequestError(message string) *AppError {
	return NewAppError("ERR_BAD_REQUEST", "", message, http.StatusBadRequest)
}

func BadRequestErrorf(format string, a ...any) *AppError {
	return BadRequestError(fmt.Sprintf(format, a...))
}

func InternalError(message string) *AppError {
	return NewAppError("ERR_INTERNAL", "", message, http.StatusInternalServerError)
}

// classify maps a service error onto a response status and body.
// Strategy validation failures keep their per-field detail.
func classify(err error) (int, any) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status, []*AppError{appErr}
	}

	var verr *strategy.ValidationError
	if errors.As(err, &verr) {
		out := make([]ValidationError, 0, len(verr.Fields))
		for _, f := range verr.Fields {
			out = append(out, ValidationError{Code: "ERR_MALFORMED_STRATEGY", Field: f.Field, Message: f.Message})
		}
		return http.StatusBadRequest, out
	}

	switch {
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, []*AppError{NotFoundError(err.Error())}
	case errors.Is(err, model.ErrMalformedStrategy):
		return http.StatusBadRequest, []*AppError{NewAppError("ERR_MALFORMED_STRATEGY", "", err.Error(), http.StatusBadRequest)}
	case errors.Is(err, model.ErrInvalidCandle):
		return http.StatusBadRequest, []*AppError{NewAppError("ERR_INVALID_CANDLE", "", err.Error(), http.StatusBadRequest)}
	case errors.Is(err, model.ErrUnknownIndicator):
		return http.StatusBadRequest, []*AppError{NewAppError("ERR_UNKNOWN_INDICATOR", "", err.Error(), http.StatusBadRequest)}
	case errors.Is(err, service.ErrIngestUnsupported):
		return http.StatusNotImplemented, []*AppError{NewAppError("ERR_NOT_IMPLEMENTED", "", err.Error(), http.StatusNotImplemented)}
	}
	return http.StatusInternalServerError, "Something went wrong"
}
