// Package llm defines the completion-service boundary for the navimate agent.
//
// Providers are deliberately narrow: one call carries the full transcript and
// the fixed tool schema, and returns exactly one assistant message that either
// contains free text or a non-empty list of tool calls. Streaming, retries,
// and transcript management are the controller's concern, not the provider's.
package llm

import (
	"context"

	"github.com/navimate/navimate/pkg/types"
)

// ToolDefinition describes one declared tool in the schema handed to the
// completion service. Parameters is a JSON Schema object for the tool's
// argument structure.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
}

// Provider is the completion-service boundary.
type Provider interface {
	// Complete sends the transcript and tool schema to the model and
	// returns its single response message. Tool choice is auto and the
	// temperature is low; the model either speaks (Content, no ToolCalls)
	// or acts (one or more ToolCalls with JSON-encoded arguments).
	//
	// A response with no message at all is an error, never a nil message.
	Complete(ctx context.Context, messages []*types.Message, tools []ToolDefinition) (*types.Message, error)

	// Model returns the model id in use.
	Model() string
}
