package util

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

// NewAuthenticationRequired signals a missing or malformed bearer credential.
func NewAuthenticationRequired(message string) error {
	if message == "" {
		message = "authentication required"
	}
	return NewDomainError("AUTHENTICATION_REQUIRED", message, http.StatusUnauthorized, nil)
}

// NewInvalidToken signals a token that failed verification or expired.
func NewInvalidToken(message string) error {
	if message == "" {
		message = "invalid or expired token"
	}
	return NewDomainError("INVALID_TOKEN", message, http.StatusUnauthorized, nil)
}

// NewRateLimited signals an exhausted rate-limit window.
func NewRateLimited(message string, retryAfterSeconds int) error {
	if message == "" {
		message = "too many requests"
	}
	return NewDomainError("RATE_LIMIT_EXCEEDED", message, http.StatusTooManyRequests, map[string]any{
		"retry_after_seconds": retryAfterSeconds,
	})
}

// NewPermissionDenied names every permission that could have satisfied the check.
func NewPermissionDenied(missing ...string) error {
	return NewDomainError(
		"PERMISSION_DENIED",
		fmt.Sprintf("missing permission: %s", strings.Join(missing, ", ")),
		http.StatusForbidden,
		map[string]any{"required_any_of": missing},
	)
}

// NewMenuAccessDenied names the menu key the caller cannot reach.
func NewMenuAccessDenied(menuKey string) error {
	return NewDomainError(
		"MENU_ACCESS_DENIED",
		fmt.Sprintf("menu not accessible: %s", menuKey),
		http.StatusForbidden,
		map[string]any{"menu_key": menuKey},
	)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError("CONFLICT", message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}
