package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeTimeout    ErrorType = "timeout"
	ErrorTypeInternal   ErrorType = "internal"

	// Pipeline error kinds
	ErrorTypeAuth                ErrorType = "auth"
	ErrorTypeNoData              ErrorType = "no_data"
	ErrorTypeBandMismatch        ErrorType = "band_mismatch"
	ErrorTypeGeometryMismatch    ErrorType = "geometry_mismatch"
	ErrorTypeModelNotReady       ErrorType = "model_not_ready"
	ErrorTypeInvalidAOI          ErrorType = "invalid_aoi"
	ErrorTypePixelBudgetExceeded ErrorType = "pixel_budget_exceeded"
	ErrorTypeDegenerateMatrix    ErrorType = "degenerate_matrix"
	ErrorTypeUnknownModule       ErrorType = "unknown_module"
)

var kindNames = map[ErrorType]string{
	ErrorTypeValidation:          "ValidationError",
	ErrorTypeNetwork:             "NetworkError",
	ErrorTypeTimeout:             "TimeoutError",
	ErrorTypeInternal:            "InternalError",
	ErrorTypeAuth:                "AuthError",
	ErrorTypeNoData:              "NoDataError",
	ErrorTypeBandMismatch:        "BandMismatchError",
	ErrorTypeGeometryMismatch:    "GeometryMismatchError",
	ErrorTypeModelNotReady:       "ModelNotReadyError",
	ErrorTypeInvalidAOI:          "InvalidAOIError",
	ErrorTypePixelBudgetExceeded: "PixelBudgetExceededError",
	ErrorTypeDegenerateMatrix:    "DegenerateMatrixError",
	ErrorTypeUnknownModule:       "UnknownModuleError",
}

var statusCodes = map[ErrorType]int{
	ErrorTypeValidation:          http.StatusBadRequest,
	ErrorTypeNetwork:             http.StatusBadGateway,
	ErrorTypeTimeout:             http.StatusGatewayTimeout,
	ErrorTypeInternal:            http.StatusInternalServerError,
	ErrorTypeAuth:                http.StatusUnauthorized,
	ErrorTypeNoData:              http.StatusNotFound,
	ErrorTypeBandMismatch:        http.StatusUnprocessableEntity,
	ErrorTypeGeometryMismatch:    http.StatusUnprocessableEntity,
	ErrorTypeModelNotReady:       http.StatusConflict,
	ErrorTypeInvalidAOI:          http.StatusBadRequest,
	ErrorTypePixelBudgetExceeded: http.StatusRequestEntityTooLarge,
	ErrorTypeDegenerateMatrix:    http.StatusUnprocessableEntity,
	ErrorTypeUnknownModule:       http.StatusNotFound,
}

// Kind returns the user-facing name of the error kind, e.g. "NoDataError".
func (t ErrorType) Kind() string {
	if name, ok := kindNames[t]; ok {
		return name
	}
	return string(t)
}

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	StatusCode int       `json:"status_code"`
	Cause      error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type.Kind(), e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type.Kind(), e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails returns a copy of the error carrying extra detail text
func (e *AppError) WithDetails(details string) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

func newError(t ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:       t,
		Message:    message,
		StatusCode: statusCodes[t],
		Cause:      cause,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string, cause error) *AppError {
	return newError(ErrorTypeValidation, message, cause)
}

// NewNetworkError creates a new network error
func NewNetworkError(message string, cause error) *AppError {
	return newError(ErrorTypeNetwork, message, cause)
}

// NewTimeoutError creates a new timeout error
func NewTimeoutError(message string, cause error) *AppError {
	return newError(ErrorTypeTimeout, message, cause)
}

// NewInternalError creates a new internal error
func NewInternalError(message string, cause error) *AppError {
	return newError(ErrorTypeInternal, message, cause)
}

// NewAuthError creates a session-fatal authentication error
func NewAuthError(message string, cause error) *AppError {
	return newError(ErrorTypeAuth, message, cause)
}

// NewNoDataError reports a filtered collection with nothing left to composite
func NewNoDataError(message string, cause error) *AppError {
	return newError(ErrorTypeNoData, message, cause)
}

// NewBandMismatchError reports a band table or band name that does not fit the image
func NewBandMismatchError(message string, cause error) *AppError {
	return newError(ErrorTypeBandMismatch, message, cause)
}

// NewGeometryMismatchError reports rasters that are not co-registered
func NewGeometryMismatchError(message string, cause error) *AppError {
	return newError(ErrorTypeGeometryMismatch, message, cause)
}

// NewModelNotReadyError reports a classifier that has not been trained
func NewModelNotReadyError(message string, cause error) *AppError {
	return newError(ErrorTypeModelNotReady, message, cause)
}

// NewInvalidAOIError reports a malformed or non-intersecting area of interest
func NewInvalidAOIError(message string, cause error) *AppError {
	return newError(ErrorTypeInvalidAOI, message, cause)
}

// NewPixelBudgetExceededError reports an aggregation that would read too many pixels
func NewPixelBudgetExceededError(message string, cause error) *AppError {
	return newError(ErrorTypePixelBudgetExceeded, message, cause)
}

// NewDegenerateMatrixError reports a confusion matrix with no usable metric
func NewDegenerateMatrixError(message string, cause error) *AppError {
	return newError(ErrorTypeDegenerateMatrix, message, cause)
}

// NewUnknownModuleError reports a module tag outside the enumerated set
func NewUnknownModuleError(message string, cause error) *AppError {
	return newError(ErrorTypeUnknownModule, message, cause)
}

// As extracts the first AppError in the chain
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsType checks if the error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	if appErr, ok := As(err); ok {
		return appErr.Type == errorType
	}
	return false
}

// TypeOf returns the error type, or internal for foreign errors
func TypeOf(err error) ErrorType {
	if appErr, ok := As(err); ok {
		return appErr.Type
	}
	return ErrorTypeInternal
}

// IsTransient reports whether a retry may succeed
func IsTransient(err error) bool {
	return IsType(err, ErrorTypeNetwork) || IsType(err, ErrorTypeTimeout)
}

// IsSessionFatal reports whether the error blocks every module until re-authentication
func IsSessionFatal(err error) bool {
	return IsType(err, ErrorTypeAuth)
}

// GetStatusCode extracts the HTTP status code from an error
func GetStatusCode(err error) int {
	if appErr, ok := As(err); ok {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}
