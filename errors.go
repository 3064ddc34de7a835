package bridge

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/User184/apple-signin-bridge/providers"
	"github.com/User184/apple-signin-bridge/server"
)

// Error messages returned in the "error" field of JSON responses
const (
	MessageMethodNotAllowed     = "Method not allowed"
	MessageNotFound             = "Not found"
	MessageInvalidRequestBody   = "Invalid request body"
	MessageCodeRequired         = "Authorization code required"
	MessageNoRevocableToken     = "No valid token found for revocation"
	MessageTokenExchangeFailed  = "Token exchange failed"
	MessageRevocationFailed     = "Failed to revoke token"
	MessageInternalServerError  = "Internal server error"
	MessageCallbackFailed       = "Sign in with Apple failed"
	MessageServiceUnavailable   = "Service unavailable"
	messageRequestCanceled      = "Request canceled"
	messageConfigurationProblem = "Server is misconfigured"
)

// APIError is an error rendered as a JSON response
type APIError struct {
	Status   int    // HTTP status code
	Message  string // Value of the "error" field
	Details  string // Optional human-readable details
	Attempts []providers.Attempt

	// Failure adds "success": false to the body. Request validation errors
	// omit it and only carry "error".
	Failure bool
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, e.Message, e.Details)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Message)
}

// NewAPIError creates a new API error
func NewAPIError(status int, message string) *APIError {
	return &APIError{
		Status:  status,
		Message: message,
	}
}

// Response renders the error as a JSON body
func (e *APIError) Response() *ErrorResponse {
	resp := &ErrorResponse{
		Error:    e.Message,
		Details:  e.Details,
		Attempts: attemptResponses(e.Attempts),
	}
	if e.Failure {
		resp.Success = new(bool)
	}
	return resp
}

// Common API errors
var (
	// ErrMethodNotAllowed is returned for unsupported HTTP methods
	ErrMethodNotAllowed = func() *APIError {
		return NewAPIError(http.StatusMethodNotAllowed, MessageMethodNotAllowed)
	}

	// ErrNotFound is returned for unknown routes
	ErrNotFound = func() *APIError {
		return NewAPIError(http.StatusNotFound, MessageNotFound)
	}

	// ErrInvalidRequestBody is returned when the body cannot be decoded
	ErrInvalidRequestBody = func(err error) *APIError {
		e := NewAPIError(http.StatusBadRequest, MessageInvalidRequestBody)
		e.Details = err.Error()
		return e
	}
)

// exchangeError maps a failed /exchange-token request to its response
func exchangeError(err error) *APIError {
	if errors.Is(err, server.ErrMissingAuthorizationCode) {
		return NewAPIError(http.StatusBadRequest, MessageCodeRequired)
	}

	var exhausted *providers.ExchangeExhaustedError
	if errors.As(err, &exhausted) {
		return &APIError{
			Status:   http.StatusInternalServerError,
			Message:  MessageTokenExchangeFailed,
			Details:  err.Error(),
			Attempts: exhausted.Attempts,
			Failure:  true,
		}
	}

	e := internalError(err)
	e.Message = MessageTokenExchangeFailed
	return e
}

// revokeError maps a failed /revoke-apple-token request to its response
func revokeError(err error) *APIError {
	if errors.Is(err, server.ErrNoRevocableToken) {
		return NewAPIError(http.StatusBadRequest, MessageNoRevocableToken)
	}

	var exhausted *providers.RevocationExhaustedError
	if errors.As(err, &exhausted) {
		return &APIError{
			Status:   http.StatusBadRequest,
			Message:  MessageRevocationFailed,
			Details:  err.Error(),
			Attempts: exhausted.Attempts,
			Failure:  true,
		}
	}

	return internalError(err)
}

// callbackError maps an aborted callback (FailClosed) to its response
func callbackError(err error) *APIError {
	var exhausted *providers.ExchangeExhaustedError
	if errors.As(err, &exhausted) {
		return &APIError{
			Status:   http.StatusBadGateway,
			Message:  MessageCallbackFailed,
			Details:  MessageTokenExchangeFailed,
			Attempts: exhausted.Attempts,
			Failure:  true,
		}
	}

	e := internalError(err)
	if e.Status == http.StatusInternalServerError && !providers.IsConfigurationError(err) {
		e.Status = http.StatusBadGateway
	}
	e.Message = MessageCallbackFailed
	return e
}

// internalError maps errors that are not the caller's fault.
// Configuration error details stay in the logs.
func internalError(err error) *APIError {
	e := &APIError{
		Status:  http.StatusInternalServerError,
		Message: MessageInternalServerError,
		Failure: true,
	}
	switch {
	case providers.IsConfigurationError(err):
		e.Details = messageConfigurationProblem
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		e.Status = http.StatusServiceUnavailable
		e.Details = messageRequestCanceled
	default:
		e.Details = err.Error()
	}
	return e
}
