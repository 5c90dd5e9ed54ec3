package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ValidationError represents a request validation error.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return e.Message
}

// ContentBlocks is message content that is either a plain string or a list
// of typed blocks. Only the text of text blocks is kept.
type ContentBlocks struct {
	Text   string
	Blocks []ContentBlock
}

// ContentBlock is one element of a block-list content field.
type ContentBlock struct {
	Type string  `json:"type"`
	Text *string `json:"text,omitempty"`
}

// UnmarshalJSON accepts a string, a block list, or null.
func (c *ContentBlocks) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" || trimmed == "" {
		*c = ContentBlocks{}
		return nil
	}

	if strings.HasPrefix(trimmed, `"`) {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		*c = ContentBlocks{Text: text}
		return nil
	}

	var blocks []ContentBlock
	if err := json.Unmarshal(data, &blocks); err != nil {
		return fmt.Errorf("content must be a string or a list of blocks: %w", err)
	}
	*c = ContentBlocks{Blocks: blocks}
	return nil
}

// Characters returns the number of characters of text carried by the content.
func (c ContentBlocks) Characters() int {
	n := len([]rune(c.Text))
	for _, block := range c.Blocks {
		if block.Text != nil {
			n += len([]rune(*block.Text))
		}
	}
	return n
}

// CountTokensMessage is one message of a token counting request.
type CountTokensMessage struct {
	Role    string        `json:"role"`
	Content ContentBlocks `json:"content"`
}

// CountTokensRequest is the body of POST /v1/messages/count_tokens.
type CountTokensRequest struct {
	Model    string               `json:"model"`
	System   ContentBlocks        `json:"system"`
	Messages []CountTokensMessage `json:"messages"`
}

// Validate checks the fields the estimator depends on.
func (r *CountTokensRequest) Validate() error {
	if len(r.Messages) == 0 {
		return &ValidationError{
			Field:   "messages",
			Message: "messages must contain at least one message",
		}
	}
	return nil
}
