package types

import "net/http"

// ErrorResponse represents an OpenAI-compatible error response.
// It is returned for every error condition so OpenAI SDKs can parse it.
type ErrorResponse struct {
	// Error contains the error details.
	Error ErrorDetail `json:"error"`

	// Status overrides the HTTP status derived from the error type. Upstream
	// failures keep the status the upstream reported.
	Status int `json:"-"`
}

// ErrorDetail contains detailed error information.
type ErrorDetail struct {
	// Message is a human-readable error message.
	Message string `json:"message"`

	// Type categorizes the error.
	Type string `json:"type"`

	// Param is the name of the parameter that caused the error (if applicable).
	Param string `json:"param,omitempty"`

	// Code is a machine-readable error code. Upstream failures carry their
	// classified category here.
	Code string `json:"code,omitempty"`
}

// Error type constants.
const (
	// ErrorTypeInvalidRequest indicates a client-side error (400).
	ErrorTypeInvalidRequest = "invalid_request_error"

	// ErrorTypeAuthentication indicates an authentication failure (401).
	ErrorTypeAuthentication = "authentication_error"

	// ErrorTypePermissionDenied indicates the upstream refused the caller (403).
	ErrorTypePermissionDenied = "permission_denied"

	// ErrorTypeNotFound indicates a resource was not found (404).
	ErrorTypeNotFound = "not_found"

	// ErrorTypeRateLimitExceeded indicates too many requests (429).
	ErrorTypeRateLimitExceeded = "rate_limit_exceeded"

	// ErrorTypeBilling indicates a billing problem on the upstream account.
	ErrorTypeBilling = "billing_error"

	// ErrorTypeCancelled indicates the client cancelled the request (499).
	ErrorTypeCancelled = "request_cancelled"

	// ErrorTypeAPI indicates an upstream failure with no finer classification.
	ErrorTypeAPI = "api_error"

	// ErrorTypeServerError indicates an internal server error (500).
	ErrorTypeServerError = "server_error"

	// ErrorTypeServiceUnavailable indicates temporary unavailability (503).
	ErrorTypeServiceUnavailable = "service_unavailable"
)

// Error code constants for errors raised by the relay itself.
const (
	// CodeMissingField indicates a required field is missing.
	CodeMissingField = "missing_field"

	// CodeInvalidValue indicates a field has an invalid value.
	CodeInvalidValue = "invalid_value"

	// CodeInvalidJSON indicates the request body is not valid JSON.
	CodeInvalidJSON = "invalid_json"

	// CodeInvalidAPIKey indicates the caller's key was missing or rejected.
	CodeInvalidAPIKey = "invalid_api_key"

	// CodeRequestTooLarge indicates the request payload is too large.
	CodeRequestTooLarge = "request_too_large"

	// CodeMethodNotAllowed indicates the HTTP method is not supported.
	CodeMethodNotAllowed = "method_not_allowed"

	// CodeUnavailable indicates the relay is shutting down.
	CodeUnavailable = "unavailable"

	// CodeInternalError indicates an internal server error.
	CodeInternalError = "internal_error"

	// CodeUpstreamMisconfigured indicates the relay's upstream settings
	// cannot produce a connection.
	CodeUpstreamMisconfigured = "upstream_misconfigured"
)

// NewErrorResponse creates a new error response with the given details.
func NewErrorResponse(message, errorType, param, code string) *ErrorResponse {
	return &ErrorResponse{
		Error: ErrorDetail{
			Message: message,
			Type:    errorType,
			Param:   param,
			Code:    code,
		},
	}
}

// NewInvalidRequestError creates an error response for invalid requests (400).
func NewInvalidRequestError(message, param, code string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeInvalidRequest, param, code)
}

// NewAuthenticationError creates an error response for rejected callers (401).
func NewAuthenticationError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeAuthentication, "", CodeInvalidAPIKey)
}

// NewServerError creates an error response for internal server errors (500).
func NewServerError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeServerError, "", CodeInternalError)
}

// NewUpstreamConfigError creates an error response for an upstream the relay
// is not configured to reach (502).
func NewUpstreamConfigError(message string) *ErrorResponse {
	resp := NewErrorResponse(message, ErrorTypeServerError, "", CodeUpstreamMisconfigured)
	resp.Status = http.StatusBadGateway
	return resp
}

// NewServiceUnavailableError creates an error response for temporary unavailability (503).
func NewServiceUnavailableError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeServiceUnavailable, "", CodeUnavailable)
}

// StatusCode returns the HTTP status to send with the response.
func (e *ErrorResponse) StatusCode() int {
	if e.Status > 0 {
		return e.Status
	}
	return e.Error.HTTPStatusCode()
}

// HTTPStatusCode returns the appropriate HTTP status code for the error type.
func (e *ErrorDetail) HTTPStatusCode() int {
	switch e.Type {
	case ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case ErrorTypeAuthentication:
		return http.StatusUnauthorized
	case ErrorTypeBilling:
		return http.StatusPaymentRequired
	case ErrorTypePermissionDenied:
		return http.StatusForbidden
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeRateLimitExceeded:
		return http.StatusTooManyRequests
	case ErrorTypeCancelled:
		return 499
	case ErrorTypeServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
