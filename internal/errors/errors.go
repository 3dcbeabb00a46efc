// Package errors defines the service error taxonomy shared by all gateway
// components. Internal errors propagate unchanged to the HTTP boundary,
// which maps them to transport status codes via HTTPStatus.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Code identifies an error class in the taxonomy.
type Code string

const (
	CodeValidation          Code = "VALIDATION_ERROR"
	CodeInvalidCredential   Code = "INVALID_CREDENTIAL"
	CodeForbidden           Code = "FORBIDDEN"
	CodeNotFound            Code = "NOT_FOUND"
	CodeAlreadyActed        Code = "ALREADY_ACTED"
	CodeUpstreamUnavailable Code = "UPSTREAM_UNAVAILABLE"
	CodeConfiguration       Code = "CONFIGURATION_ERROR"
	CodeInternal            Code = "INTERNAL_ERROR"
)

// ServiceError carries an error class, a caller-safe message, the HTTP
// status the boundary should emit, and optional structured details.
type ServiceError struct {
	Code       Code
	Message    string
	HTTPStatus int
	Details    map[string]interface{}
	cause      error
}

func (e *ServiceError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As chains.
func (e *ServiceError) Unwrap() error { return e.cause }

// WithDetails attaches a structured detail and returns the error for
// chaining.
func (e *ServiceError) WithDetails(key string, value interface{}) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Validation reports malformed caller input.
func Validation(message string) *ServiceError {
	return &ServiceError{Code: CodeValidation, Message: message, HTTPStatus: http.StatusBadRequest}
}

// InvalidCredential reports an expired, malformed, or badly signed
// credential. All three collapse here so the response does not reveal which
// check failed.
func InvalidCredential(cause error) *ServiceError {
	return &ServiceError{
		Code:       CodeInvalidCredential,
		Message:    "invalid or expired credential",
		HTTPStatus: http.StatusUnauthorized,
		cause:      cause,
	}
}

// Forbidden reports a valid identity lacking a required permission.
func Forbidden(message string) *ServiceError {
	return &ServiceError{Code: CodeForbidden, Message: message, HTTPStatus: http.StatusForbidden}
}

// NotFound reports an absent entity.
func NotFound(entity, id string) *ServiceError {
	return &ServiceError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s %s not found", entity, id),
		HTTPStatus: http.StatusNotFound,
	}
}

// AlreadyActed reports an idempotent no-op: the action was previously
// recorded and state has not changed.
func AlreadyActed(message string) *ServiceError {
	return &ServiceError{Code: CodeAlreadyActed, Message: message, HTTPStatus: http.StatusConflict}
}

// UpstreamUnavailable reports a failed or timed-out external collaborator.
// Retriable by the caller with backoff.
func UpstreamUnavailable(message string, cause error) *ServiceError {
	return &ServiceError{
		Code:       CodeUpstreamUnavailable,
		Message:    message,
		HTTPStatus: http.StatusBadGateway,
		cause:      cause,
	}
}

// Configuration reports a fatal configuration problem (missing signing
// secret, corrupt tier catalog). Must not be swallowed.
func Configuration(message string) *ServiceError {
	return &ServiceError{Code: CodeConfiguration, Message: message, HTTPStatus: http.StatusInternalServerError}
}

// Internal wraps an unexpected error.
func Internal(message string, cause error) *ServiceError {
	return &ServiceError{
		Code:       CodeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		cause:      cause,
	}
}

// GetServiceError extracts a ServiceError from an error chain, or nil.
func GetServiceError(err error) *ServiceError {
	var se *ServiceError
	if stderrors.As(err, &se) {
		return se
	}
	return nil
}

// IsCode reports whether err carries the given taxonomy code.
func IsCode(err error, code Code) bool {
	se := GetServiceError(err)
	return se != nil && se.Code == code
}
