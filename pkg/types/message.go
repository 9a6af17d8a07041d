// Package types defines the shared data types for the navimate agent:
// transcript messages, tool call requests, and tool outcomes that flow
// between the controller, the completion provider, and the tool executor.
package types

// Role identifies the author of a transcript message.
type Role string

const (
	// RoleSystem is the system instruction block seeded at run start.
	RoleSystem Role = "system"

	// RoleUser carries observations, tool results, and human replies.
	RoleUser Role = "user"

	// RoleAssistant carries decision-step output (text or tool calls).
	RoleAssistant Role = "assistant"

	// RoleTool carries a tool execution result tied to a tool call id.
	RoleTool Role = "tool"
)

// ToolCall is a structured action request emitted by the decision step.
// Arguments is the raw JSON-encoded argument object exactly as the model
// produced it; validation happens at the executor boundary.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// Message is one entry in the run transcript. The transcript is append-only
// within a run and is the sole conversational state carried across steps.
type Message struct {
	Role    Role
	Content string

	// ToolCalls is set on assistant messages that requested actions.
	ToolCalls []ToolCall

	// ToolCallID ties a RoleTool message back to the call it answers.
	ToolCallID string
}

// NewSystemMessage creates a system-role message.
func NewSystemMessage(content string) *Message {
	return &Message{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a user-role message.
func NewUserMessage(content string) *Message {
	return &Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates an assistant-role message with optional tool calls.
func NewAssistantMessage(content string, calls ...ToolCall) *Message {
	return &Message{Role: RoleAssistant, Content: content, ToolCalls: calls}
}

// NewToolMessage creates a tool-result message for the given call id.
func NewToolMessage(callID, content string) *Message {
	return &Message{Role: RoleTool, Content: content, ToolCallID: callID}
}

// HasToolCalls reports whether this message requested any actions.
func (m *Message) HasToolCalls() bool {
	return m != nil && len(m.ToolCalls) > 0
}

// ToolOutcome is the tool executor's report of whether an action succeeded.
// Failures never raise past the executor boundary: every driver-level error
// is translated into OK=false with an explanatory Detail that is fed back
// into the transcript as model-visible context.
type ToolOutcome struct {
	OK     bool
	Detail string
}

// Ok builds a successful outcome.
func Ok(detail string) ToolOutcome {
	return ToolOutcome{OK: true, Detail: detail}
}

// Fail builds a failed outcome.
func Fail(detail string) ToolOutcome {
	return ToolOutcome{OK: false, Detail: detail}
}
