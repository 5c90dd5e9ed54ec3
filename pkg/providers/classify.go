package providers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Fixed messages for the recognised failure kinds.
const (
	MessageRegionRestricted = "OpenAI API is not available in your region. Consider using a VPN or Azure OpenAI service."
	MessageInvalidAPIKey    = "Invalid API key. Please check your OPENAI_API_KEY configuration."
	MessageRateLimited      = "Rate limit exceeded. Please wait and try again, or upgrade your API plan."
	MessageModelNotFound    = "Model not found. Please check your BIG_MODEL and SMALL_MODEL configuration."
	MessageBillingIssue     = "Billing issue. Please check your OpenAI account billing status."
)

// classifierRule matches lower-cased error text.
type classifierRule struct {
	category Category
	message  string
	match    func(text string) bool
}

func containsAny(phrases ...string) func(string) bool {
	return func(text string) bool {
		for _, p := range phrases {
			if strings.Contains(text, p) {
				return true
			}
		}
		return false
	}
}

// Order matters: the first matching rule wins.
var classifierRules = []classifierRule{
	{
		category: CategoryRegionRestricted,
		message:  MessageRegionRestricted,
		match:    containsAny("unsupported_country_region_territory", "country, region, or territory not supported"),
	},
	{
		category: CategoryAuthenticationFailed,
		message:  MessageInvalidAPIKey,
		match:    containsAny("invalid_api_key", "invalid api key", "incorrect api key", "unauthorized"),
	},
	{
		category: CategoryRateLimited,
		message:  MessageRateLimited,
		match:    containsAny("rate_limit", "rate limit", "quota"),
	},
	{
		category: CategoryModelNotFound,
		message:  MessageModelNotFound,
		match: func(text string) bool {
			return strings.Contains(text, "model") &&
				(strings.Contains(text, "not found") || strings.Contains(text, "does not exist"))
		},
	},
	{
		category: CategoryBillingIssue,
		message:  MessageBillingIssue,
		match:    containsAny("billing", "payment"),
	},
}

// Classify maps raw upstream error text to a category and a human-actionable
// message. Unmatched text yields CategoryUnknown with the text unchanged.
func Classify(text string) (Category, string) {
	lower := strings.ToLower(text)
	for _, rule := range classifierRules {
		if rule.match(lower) {
			return rule.category, rule.message
		}
	}
	return CategoryUnknown, text
}

// FromUpstream converts an error returned by an upstream call into an *Error.
//
// Status mapping:
//   - 401 -> 401
//   - 429 -> 429
//   - 400 -> 400
//   - any other upstream API error -> its reported status, or 500 if absent
//   - anything else -> 500 "Unexpected error: ..."
//
// The message comes from Classify. The category is the classifier's when it
// recognised the text, otherwise it is derived from the status.
func FromUpstream(err error) *Error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return e
	}

	status, text, ok := upstreamDetail(err)
	if !ok {
		return &Error{
			Status:   http.StatusInternalServerError,
			Category: CategoryUnknown,
			Message:  fmt.Sprintf("Unexpected error: %v", err),
			Cause:    err,
		}
	}

	category, message := Classify(text)
	if category == CategoryUnknown {
		category = categoryForStatus(status)
	}
	if status == 0 {
		status = http.StatusInternalServerError
	}

	return &Error{
		Status:   status,
		Category: category,
		Message:  message,
		Cause:    err,
	}
}

// upstreamDetail extracts the reported status and a classification text from
// the SDK's error types. The text mirrors the SDK's own rendering so that
// machine codes such as "invalid_api_key" are visible to Classify.
func upstreamDetail(err error) (int, string, bool) {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		var parts []string
		if apiErr.HTTPStatusCode > 0 {
			parts = append(parts, fmt.Sprintf("Error code: %d", apiErr.HTTPStatusCode))
		}
		if apiErr.Message != "" {
			parts = append(parts, apiErr.Message)
		}
		if apiErr.Type != "" {
			parts = append(parts, "type: "+apiErr.Type)
		}
		if apiErr.Code != nil {
			parts = append(parts, fmt.Sprintf("code: %v", apiErr.Code))
		}
		return apiErr.HTTPStatusCode, strings.Join(parts, " - "), true
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode, reqErr.Error(), true
	}

	return 0, "", false
}

func categoryForStatus(status int) Category {
	switch status {
	case http.StatusUnauthorized:
		return CategoryAuthenticationFailed
	case http.StatusTooManyRequests:
		return CategoryRateLimited
	case http.StatusBadRequest:
		return CategoryInvalidRequest
	default:
		return CategoryUpstreamError
	}
}
