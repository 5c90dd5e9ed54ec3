// Package types defines the JSON bodies exchanged by the relay's HTTP surface.
//
// Chat completion requests and responses are the upstream's own wire types
// and pass through untouched. This package only holds what the relay itself
// produces or inspects:
//
//   - ErrorResponse: OpenAI-compatible error body, with the HTTP status the
//     relay should send
//   - CountTokensRequest and ContentBlocks: input of the token estimator,
//     accepting string or block-list content
//   - Health, test-connection, pool, cancel and banner responses
package types
