package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys used on dispatch spans. Custom keys use the "relay.*"
// namespace.
const (
	AttrRequestID = "relay.request_id"
	AttrKeyPrefix = "relay.key_prefix"
	AttrModel     = "relay.model"
	AttrStream    = "relay.stream"
	AttrAzure     = "relay.azure"

	AttrStatus        = "relay.status"
	AttrErrorCategory = "relay.error.category"
	AttrFrames        = "relay.stream.frames"

	AttrTokensPrompt     = "relay.tokens.prompt"
	AttrTokensCompletion = "relay.tokens.completion"
	AttrTokensTotal      = "relay.tokens.total"
)

// DispatchAttributes returns the start attributes of a dispatch span.
func DispatchAttributes(requestID, keyPrefix, model string, stream, azure bool) trace.SpanStartOption {
	attrs := []attribute.KeyValue{
		attribute.String(AttrKeyPrefix, keyPrefix),
		attribute.String(AttrModel, model),
		attribute.Bool(AttrStream, stream),
		attribute.Bool(AttrAzure, azure),
	}
	if requestID != "" {
		attrs = append(attrs, attribute.String(AttrRequestID, requestID))
	}
	return trace.WithAttributes(attrs...)
}

// SetTokenAttributes sets token count attributes on a span.
func SetTokenAttributes(span trace.Span, promptTokens, completionTokens, totalTokens int) {
	span.SetAttributes(
		attribute.Int(AttrTokensPrompt, promptTokens),
		attribute.Int(AttrTokensCompletion, completionTokens),
		attribute.Int(AttrTokensTotal, totalTokens),
	)
}

// SetOutcomeAttributes records the final status and, for streams, the number
// of frames delivered.
func SetOutcomeAttributes(span trace.Span, status, frames int, stream bool) {
	span.SetAttributes(attribute.Int(AttrStatus, status))
	if stream {
		span.SetAttributes(attribute.Int(AttrFrames, frames))
	}
}
