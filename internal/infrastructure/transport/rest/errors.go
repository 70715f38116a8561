package rest

import (
	"errors"
	"net/http"

	"github.com/parascope/calcengine/internal/domain/model"
)

// APIError is the JSON envelope every non-2xx response carries.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
}

func (e *APIError) Error() string { return e.Message }

// NewAPIError builds an APIError.
func NewAPIError(code, message string, httpStatus int) *APIError {
	return &APIError{Code: code, Message: message, HTTPStatus: httpStatus}
}

var (
	ErrBadRequest       = NewAPIError("BAD_REQUEST", "invalid request", http.StatusBadRequest)
	ErrInvalidJSON      = NewAPIError("INVALID_JSON", "invalid JSON in request body", http.StatusBadRequest)
	ErrValidationFailed = NewAPIError("VALIDATION_FAILED", "validation failed", http.StatusBadRequest)
	ErrInternalServer   = NewAPIError("INTERNAL_ERROR", "internal server error", http.StatusInternalServerError)
	ErrSheetNotFound    = NewAPIError("SHEET_NOT_FOUND", "sheet not found", http.StatusNotFound)
)

// TranslateError maps a domain/service error to the APIError a caller
// should see, defaulting to a 500 for anything unrecognized.
func TranslateError(err error) *APIError {
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	switch {
	case errors.Is(err, model.ErrSheetNotFound), errors.Is(err, model.ErrSheetVersionNotFound):
		return ErrSheetNotFound
	case errors.Is(err, model.ErrNodeNotFound):
		return NewAPIError("NODE_NOT_FOUND", "node not found", http.StatusNotFound)
	default:
		var valErr *model.ValidationError
		if errors.As(err, &valErr) {
			return NewAPIError("VALIDATION_FAILED", valErr.Error(), http.StatusBadRequest)
		}
		return NewAPIError("INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
	}
}
