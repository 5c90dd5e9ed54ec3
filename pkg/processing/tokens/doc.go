// Package tokens estimates input token counts without calling the upstream.
//
// The estimator counts characters of the system prompt and of every
// message (plain string content or the text of text blocks) and divides by
// four, never returning less than one token:
//
//	estimator := tokens.NewCharEstimator(tokens.DefaultCharsPerToken)
//	n := estimator.EstimateRequest(req)
//
// The estimate backs POST /v1/messages/count_tokens. The request model is
// ignored.
package tokens
