package proxy

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"mercator-hq/relay/pkg/providers"
	"mercator-hq/relay/pkg/proxy/types"
)

const (
	// MaxRequestBodySize is the maximum allowed request body size (10MB).
	MaxRequestBodySize = 10 * 1024 * 1024

	// AuthorizationHeader carries "Bearer <key>".
	AuthorizationHeader = "Authorization"

	// APIKeyHeader carries the caller's key directly and wins over
	// AuthorizationHeader.
	APIKeyHeader = "X-Api-Key"

	// RequestIDHeader is the HTTP header for request ID propagation.
	RequestIDHeader = "X-Request-ID"
)

// ParseChatRequest parses an HTTP request body into a chat completion
// request. The body is relayed as-is apart from the fields the relay
// rewrites, so only the fields every upstream requires are validated.
func ParseChatRequest(r *http.Request) (providers.Request, error) {
	var req providers.Request
	if err := decodeBody(r, &req); err != nil {
		return providers.Request{}, err
	}

	if req.Model == "" {
		return providers.Request{}, &RequestError{
			Message: "model is required",
			Code:    types.CodeMissingField,
			Param:   "model",
		}
	}
	if len(req.Messages) == 0 {
		return providers.Request{}, &RequestError{
			Message: "messages must contain at least one message",
			Code:    types.CodeMissingField,
			Param:   "messages",
		}
	}
	for i, msg := range req.Messages {
		if msg.Role == "" {
			return providers.Request{}, &RequestError{
				Message: "message role is required",
				Code:    types.CodeMissingField,
				Param:   fmt.Sprintf("messages[%d].role", i),
			}
		}
	}
	if req.MaxTokens < 0 {
		return providers.Request{}, &RequestError{
			Message: "max_tokens must be greater than 0",
			Code:    types.CodeInvalidValue,
			Param:   "max_tokens",
		}
	}

	return req, nil
}

// ParseCountTokensRequest parses the body of a token counting request.
func ParseCountTokensRequest(r *http.Request) (*types.CountTokensRequest, error) {
	var req types.CountTokensRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}

	if err := req.Validate(); err != nil {
		var valErr *types.ValidationError
		if errors.As(err, &valErr) {
			return nil, &RequestError{
				Message: valErr.Message,
				Code:    types.CodeInvalidValue,
				Param:   valErr.Field,
			}
		}
		return nil, err
	}
	return &req, nil
}

// decodeBody reads at most MaxRequestBodySize bytes and unmarshals them.
func decodeBody(r *http.Request, v interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxRequestBodySize+1))
	if err != nil {
		return fmt.Errorf("failed to read request body: %w", err)
	}

	if len(body) > MaxRequestBodySize {
		return &RequestError{
			Message: fmt.Sprintf("request body exceeds maximum size of %d bytes", MaxRequestBodySize),
			Code:    types.CodeRequestTooLarge,
			Param:   "body",
		}
	}

	if err := json.Unmarshal(body, v); err != nil {
		return &RequestError{
			Message: fmt.Sprintf("invalid JSON: %v", err),
			Code:    types.CodeInvalidJSON,
			Param:   "body",
		}
	}
	return nil
}

// ExtractAPIKey returns the caller's key from the x-api-key header, or
// failing that from "Authorization: Bearer <key>". It returns an empty
// string when neither is usable.
func ExtractAPIKey(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get(APIKeyHeader)); key != "" {
		return key
	}

	authHeader := r.Header.Get(AuthorizationHeader)
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

// ExtractRequestID returns the client-supplied request ID, if any.
func ExtractRequestID(r *http.Request) string {
	return r.Header.Get(RequestIDHeader)
}

// RequestError represents a request parsing or validation error.
type RequestError struct {
	Message string
	Code    string
	Param   string
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	return e.Message
}

// ToErrorResponse converts a RequestError to an OpenAI-compatible error response.
func (e *RequestError) ToErrorResponse() *types.ErrorResponse {
	return types.NewInvalidRequestError(e.Message, e.Param, e.Code)
}
