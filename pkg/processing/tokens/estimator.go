package tokens

import (
	"mercator-hq/relay/pkg/proxy/types"
)

// DefaultCharsPerToken is the character-to-token ratio used by the
// character estimator.
const DefaultCharsPerToken = 4

// Estimator estimates input token counts for token counting requests.
type Estimator interface {
	// EstimateText estimates tokens for a single text string.
	EstimateText(text string) int

	// EstimateRequest estimates input tokens for a whole request: the system
	// prompt plus the text of every message. The result is at least 1.
	EstimateRequest(req *types.CountTokensRequest) int
}

// CharEstimator counts characters and divides by a fixed ratio. It holds no
// state and is safe for concurrent use.
type CharEstimator struct {
	charsPerToken int
}

// NewCharEstimator creates an estimator. A non-positive ratio selects
// DefaultCharsPerToken.
func NewCharEstimator(charsPerToken int) *CharEstimator {
	if charsPerToken <= 0 {
		charsPerToken = DefaultCharsPerToken
	}
	return &CharEstimator{charsPerToken: charsPerToken}
}

// EstimateText returns the token estimate for text. Empty text is zero
// tokens.
func (e *CharEstimator) EstimateText(text string) int {
	return len([]rune(text)) / e.charsPerToken
}

// EstimateRequest sums characters across the system prompt and all message
// content (string or text blocks), divides by the ratio, and never returns
// less than 1.
func (e *CharEstimator) EstimateRequest(req *types.CountTokensRequest) int {
	chars := req.System.Characters()
	for _, msg := range req.Messages {
		chars += msg.Content.Characters()
	}
	return max(1, chars/e.charsPerToken)
}
