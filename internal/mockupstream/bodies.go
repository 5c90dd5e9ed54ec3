package mockupstream

import (
	"encoding/json"
	"net/http"
	"time"
)

// Completion creates a chat completion response body.
func Completion(content, model string) map[string]interface{} {
	return map[string]interface{}{
		"id":      "chatcmpl-123",
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   model,
		"choices": []map[string]interface{}{
			{
				"index": 0,
				"message": map[string]interface{}{
					"role":    "assistant",
					"content": content,
				},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]interface{}{
			"prompt_tokens":     10,
			"completion_tokens": 20,
			"total_tokens":      30,
		},
	}
}

// Chunk creates one streaming chunk carrying a content delta.
func Chunk(delta, finishReason string) string {
	choice := map[string]interface{}{
		"index": 0,
		"delta": map[string]interface{}{
			"content": delta,
		},
	}
	if finishReason != "" {
		choice["finish_reason"] = finishReason
	}

	chunk := map[string]interface{}{
		"id":      "chatcmpl-123",
		"object":  "chat.completion.chunk",
		"created": time.Now().Unix(),
		"model":   "gpt-4o",
		"choices": []map[string]interface{}{choice},
	}

	bytes, _ := json.Marshal(chunk)
	return string(bytes)
}

// UsageChunk creates the final usage-only chunk sent when usage is requested.
func UsageChunk(prompt, completion int) string {
	chunk := map[string]interface{}{
		"id":      "chatcmpl-123",
		"object":  "chat.completion.chunk",
		"created": time.Now().Unix(),
		"model":   "gpt-4o",
		"choices": []map[string]interface{}{},
		"usage": map[string]interface{}{
			"prompt_tokens":     prompt,
			"completion_tokens": completion,
			"total_tokens":      prompt + completion,
		},
	}

	bytes, _ := json.Marshal(chunk)
	return string(bytes)
}

// Chunks creates n content chunks with deltas "a", "b", "c" and so on.
func Chunks(n int) []string {
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Chunk(string(rune('a'+i)), ""))
	}
	return out
}

// Error creates an OpenAI-style error response.
func Error(statusCode int, message, errType string, code interface{}) Response {
	return Response{
		StatusCode: statusCode,
		Body: map[string]interface{}{
			"error": map[string]interface{}{
				"message": message,
				"type":    errType,
				"param":   nil,
				"code":    code,
			},
		},
	}
}

// AuthError creates a 401 invalid key response.
func AuthError() Response {
	return Error(http.StatusUnauthorized, "Incorrect API key provided: sk-bad***", "invalid_request_error", "invalid_api_key")
}

// RateLimitError creates a 429 quota response.
func RateLimitError() Response {
	return Error(http.StatusTooManyRequests, "You exceeded your current quota, please check your plan and billing details.", "insufficient_quota", "insufficient_quota")
}

// ModelNotFoundError creates a 404 unknown model response.
func ModelNotFoundError(model string) Response {
	return Error(http.StatusNotFound, "The model `"+model+"` does not exist or you do not have access to it.", "invalid_request_error", "model_not_found")
}

// ServerError creates a 500 internal server error response.
func ServerError() Response {
	return Error(http.StatusInternalServerError, "The server had an error while processing your request.", "server_error", nil)
}
