// Package providers wraps the upstream chat completion API behind a small
// connection abstraction and defines the error taxonomy for upstream failures.
//
// # Overview
//
// A Conn is one upstream connection bound to a single credential. It exposes
// exactly three operations:
//
//   - CreateChatCompletion: a single-shot call
//   - CreateChatCompletionStream: a streaming call returning a ChunkStream
//   - Close: releases pooled transport connections
//
// OpenAIConn implements Conn on top of github.com/sashabaranov/go-openai. The
// Azure variant is selected by setting ConnConfig.APIVersion.
//
// # Basic Usage
//
//	conn, err := providers.NewOpenAIConn(providers.ConnConfig{
//	    Credential: os.Getenv("OPENAI_API_KEY"),
//	    BaseURL:    "https://api.openai.com/v1",
//	    Timeout:    90 * time.Second,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer conn.Close()
//
//	resp, err := conn.CreateChatCompletion(ctx, providers.Request{
//	    Model:    "gpt-4o",
//	    Messages: []openai.ChatCompletionMessage{{Role: "user", Content: "Hello!"}},
//	})
//
// # Error Handling
//
// Upstream failures are converted with FromUpstream into a single *Error type
// carrying an HTTP status analogue, a Category and a human-actionable message:
//
//   - 401 AuthenticationFailed
//   - 429 RateLimited
//   - 400 InvalidRequest
//   - upstream status (or 500) UpstreamError
//   - 500 Unknown for anything that is not an upstream API error
//
// Classify refines the category by substring matching on the error text in a
// fixed priority order: region restriction, invalid key, rate limit or quota,
// missing model, billing. Unmatched text is passed through verbatim.
//
// Status 499 (RequestCancelled) is never produced by the classifier. It is
// reserved for client cancellation, see Cancelled.
//
// # Connection Pooling
//
// Each OpenAIConn owns an http.Transport with idle connection pooling:
//
//	config := providers.ConnConfig{
//	    MaxIdleConns:        100,
//	    MaxIdleConnsPerHost: 10,
//	    IdleConnTimeout:     90 * time.Second,
//	}
//
// # Thread Safety
//
// OpenAIConn is safe for concurrent use. Many in-flight requests routinely
// share one connection.
package providers
