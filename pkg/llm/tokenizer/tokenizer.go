// Package tokenizer provides client-side token counting so the controller
// can log transcript growth per step without a round trip to the API.
package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/navimate/navimate/pkg/types"
)

// encodingName is the encoding shared by the gpt-4o model family.
const encodingName = "o200k_base"

// perMessageOverhead approximates the wrapping tokens the chat format adds
// around each message (role markers and separators).
const perMessageOverhead = 4

// Tokenizer counts tokens using the tiktoken BPE tables.
type Tokenizer struct {
	encoding *tiktoken.Tiktoken
}

// New creates a tokenizer. Fails if the encoding tables cannot be loaded;
// callers treat a nil tokenizer as "counting disabled", not a startup error.
func New() (*Tokenizer, error) {
	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s encoding: %w", encodingName, err)
	}
	return &Tokenizer{encoding: enc}, nil
}

// CountTokens returns the token count of a single string.
func (t *Tokenizer) CountTokens(text string) int {
	if t == nil || t.encoding == nil {
		return 0
	}
	return len(t.encoding.Encode(text, nil, nil))
}

// CountMessagesTokens approximates the prompt-side token count of a
// transcript, including per-message chat formatting overhead.
func (t *Tokenizer) CountMessagesTokens(messages []*types.Message) int {
	if t == nil || t.encoding == nil {
		return 0
	}
	total := 0
	for _, msg := range messages {
		total += perMessageOverhead
		total += t.CountTokens(msg.Content)
		for _, call := range msg.ToolCalls {
			total += t.CountTokens(call.Name)
			total += t.CountTokens(call.Arguments)
		}
	}
	return total
}
