// Package errors provides shared error types for the Incubator import server.
package errors

import (
	"errors"
	"fmt"
)

// APIError is a well-formed MediaWiki API error envelope, decoded once at the
// client boundary from the response's "error" object.
type APIError struct {
	Code string // machine-readable code, e.g. "mwoauth-invalid-authorization"
	Info string // human-readable description from the API
}

func (e *APIError) Error() string {
	if e.Info != "" {
		return fmt.Sprintf("API error [%s]: %s", e.Code, e.Info)
	}
	return fmt.Sprintf("API error [%s]", e.Code)
}

// NewAPIError creates an APIError.
func NewAPIError(code, info string) *APIError {
	return &APIError{Code: code, Info: info}
}

// UndecodableMarker is the fixed free-text marker stored in a Page record
// when an import response cannot be decoded at all.
const UndecodableMarker = "undecodable response"

// UndecodableResponseError indicates a response body that could not be parsed
// as the expected format.
type UndecodableResponseError struct {
	Action string // API action that produced the response
	Body   string // truncated response body for diagnostics
}

func (e *UndecodableResponseError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("%s from action=%s", UndecodableMarker, e.Action)
	}
	return UndecodableMarker
}

// ValidationError indicates invalid tool input parameters.
type ValidationError struct {
	Field   string // field name that failed validation
	Value   string // the invalid value (may be empty for sensitive data)
	Message string // human-readable error message
}

func (e *ValidationError) Error() string {
	if e.Field != "" && e.Value != "" {
		return fmt.Sprintf("validation failed for %s=%q: %s", e.Field, e.Value, e.Message)
	}
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// NewValidationError creates a ValidationError.
func NewValidationError(field, value, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// NotFoundError indicates a stored record was not found.
type NotFoundError struct {
	Kind       string // "wiki", "user"
	Identifier string // dbname, username or record ID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Identifier)
}

// NewNotFoundError creates a NotFoundError.
func NewNotFoundError(kind, identifier string) *NotFoundError {
	return &NotFoundError{Kind: kind, Identifier: identifier}
}

// IsAPIError returns the APIError if err wraps one.
func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsUndecodable returns true if the error is an UndecodableResponseError.
func IsUndecodable(err error) bool {
	var u *UndecodableResponseError
	return errors.As(err, &u)
}

// IsValidation returns true if the error is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	var n *NotFoundError
	return errors.As(err, &n)
}
