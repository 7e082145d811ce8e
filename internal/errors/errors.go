package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation          ErrorType = "validation"
	ErrorTypeNetwork             ErrorType = "network"
	ErrorTypeProcessing          ErrorType = "processing"
	ErrorTypeTimeout             ErrorType = "timeout"
	ErrorTypeNotFound            ErrorType = "not_found"
	ErrorTypeInternal            ErrorType = "internal"
	ErrorTypeInsufficientSamples ErrorType = "insufficient_samples"
	ErrorTypeUnreadableImage     ErrorType = "unreadable_image"
	ErrorTypeMissingAsset        ErrorType = "missing_asset"
)

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
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

func newAppError(errorType ErrorType, statusCode int, message string, cause error) *AppError {
	appErr := &AppError{
		Type:       errorType,
		Message:    message,
		StatusCode: statusCode,
		Cause:      cause,
	}
	if cause != nil {
		appErr.Details = cause.Error()
	}
	return appErr
}

// NewValidationError creates a new validation error
func NewValidationError(message string, cause error) *AppError {
	return newAppError(ErrorTypeValidation, http.StatusBadRequest, message, cause)
}

// NewNetworkError creates a new network error
func NewNetworkError(message string, cause error) *AppError {
	return newAppError(ErrorTypeNetwork, http.StatusBadGateway, message, cause)
}

// NewProcessingError creates a new processing error
func NewProcessingError(message string, cause error) *AppError {
	return newAppError(ErrorTypeProcessing, http.StatusUnprocessableEntity, message, cause)
}

// NewTimeoutError creates a new timeout error
func NewTimeoutError(message string, cause error) *AppError {
	return newAppError(ErrorTypeTimeout, http.StatusGatewayTimeout, message, cause)
}

// NewInternalError creates a new internal error
func NewInternalError(message string, cause error) *AppError {
	return newAppError(ErrorTypeInternal, http.StatusInternalServerError, message, cause)
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, cause error) *AppError {
	return newAppError(ErrorTypeNotFound, http.StatusNotFound, message, cause)
}

// NewInsufficientSamplesError reports an image with too few non-neutral pixels to cluster
func NewInsufficientSamplesError(message string, cause error) *AppError {
	return newAppError(ErrorTypeInsufficientSamples, http.StatusUnprocessableEntity, message, cause)
}

// NewUnreadableImageError reports input that cannot be decoded as an image
func NewUnreadableImageError(message string, cause error) *AppError {
	return newAppError(ErrorTypeUnreadableImage, http.StatusUnsupportedMediaType, message, cause)
}

// NewMissingAssetError reports a missing static asset such as the palette swatch
func NewMissingAssetError(message string, cause error) *AppError {
	return newAppError(ErrorTypeMissingAsset, http.StatusNotFound, message, cause)
}

// IsType checks if the error chain holds an AppError of a specific type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// GetStatusCode extracts the HTTP status code from an error
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

// GetType returns the AppError type of err, or ErrorTypeInternal
func GetType(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeInternal
}
