package proxy

import (
	"errors"
	"fmt"
	"net/http"

	"mercator-hq/relay/pkg/providers"
	"mercator-hq/relay/pkg/proxy/types"
	"mercator-hq/relay/pkg/session"
)

// HandleError converts an error into an OpenAI-compatible error response.
// Dispatch failures keep their status and classified message. Request
// errors map to 400 and upstream misconfiguration to 502. Anything else
// becomes an opaque 500.
//
// Example usage:
//
//	if err != nil {
//	    WriteErrorResponse(w, HandleError(err))
//	    return
//	}
func HandleError(err error) *types.ErrorResponse {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.ToErrorResponse()
	}

	var dispatchErr *providers.Error
	if errors.As(err, &dispatchErr) {
		return handleDispatchError(dispatchErr)
	}

	var configErr *providers.ConfigError
	if errors.As(err, &configErr) {
		return types.NewUpstreamConfigError(
			fmt.Sprintf("The relay's upstream settings are invalid (%s: %s).", configErr.Field, configErr.Message),
		)
	}

	if errors.Is(err, session.ErrPoolClosed) {
		return types.NewServiceUnavailableError("The relay is shutting down. Please retry shortly.")
	}

	return types.NewServerError(
		"An internal error occurred. Please try again later.",
	)
}

// handleDispatchError maps a classified dispatch failure to an error body.
// The upstream status is kept so callers see what the upstream reported.
func handleDispatchError(err *providers.Error) *types.ErrorResponse {
	resp := types.NewErrorResponse(err.Message, errorType(err), "", string(err.Category))
	resp.Status = err.Status
	if resp.Status < http.StatusBadRequest {
		resp.Status = http.StatusInternalServerError
	}
	return resp
}

func errorType(err *providers.Error) string {
	switch err.Category {
	case providers.CategoryAuthenticationFailed:
		return types.ErrorTypeAuthentication
	case providers.CategoryRateLimited:
		return types.ErrorTypeRateLimitExceeded
	case providers.CategoryInvalidRequest:
		return types.ErrorTypeInvalidRequest
	case providers.CategoryModelNotFound:
		return types.ErrorTypeNotFound
	case providers.CategoryRegionRestricted:
		return types.ErrorTypePermissionDenied
	case providers.CategoryBillingIssue:
		return types.ErrorTypeBilling
	case providers.CategoryRequestCancelled:
		return types.ErrorTypeCancelled
	default:
		return types.ErrorTypeAPI
	}
}
