package providers

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
)

// Request is the normalized chat completion request relayed to the upstream.
// Apart from the streaming flag and usage options, it is passed through as-is.
type Request = openai.ChatCompletionRequest

// Response is a single-shot chat completion response.
type Response = openai.ChatCompletionResponse

// Chunk is one element of an upstream streaming response.
type Chunk = openai.ChatCompletionStreamResponse

// Usage is the token accounting reported by the upstream.
type Usage = openai.Usage

// StreamOptions controls extra metadata on streaming responses.
type StreamOptions = openai.StreamOptions

// Conn is one upstream connection bound to a single credential.
// It is the capability wrapped by a session handle.
//
// Implementations must be safe for concurrent use: many requests are expected
// to share one Conn at the same time.
type Conn interface {
	// CreateChatCompletion performs a single-shot completion.
	// The call honours ctx cancellation and the connection's own timeout.
	CreateChatCompletion(ctx context.Context, req Request) (Response, error)

	// CreateChatCompletionStream opens a streaming completion.
	// The returned stream must be closed by the caller.
	CreateChatCompletionStream(ctx context.Context, req Request) (ChunkStream, error)

	// Close releases the connection's resources. Calls made after Close
	// fail with ErrConnClosed.
	Close() error
}

// ChunkStream is the upstream's native chunk sequence.
type ChunkStream interface {
	// Recv returns the next chunk, or io.EOF once the upstream sequence is exhausted.
	Recv() (Chunk, error)

	// Close releases the underlying response body.
	Close() error
}
