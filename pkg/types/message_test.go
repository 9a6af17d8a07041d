package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasToolCalls(t *testing.T) {
	assert.False(t, NewAssistantMessage("just text").HasToolCalls())
	assert.True(t, NewAssistantMessage("", ToolCall{ID: "c1", Name: "click"}).HasToolCalls())

	var nilMsg *Message
	assert.False(t, nilMsg.HasToolCalls())
}

func TestToolMessageCarriesCallID(t *testing.T) {
	msg := NewToolMessage("call-7", "OK: clicked element 3")

	assert.Equal(t, RoleTool, msg.Role)
	assert.Equal(t, "call-7", msg.ToolCallID)
	assert.Equal(t, "OK: clicked element 3", msg.Content)
}

func TestOutcomeHelpers(t *testing.T) {
	assert.True(t, Ok("done").OK)
	assert.Equal(t, "done", Ok("done").Detail)
	assert.False(t, Fail("nope").OK)
	assert.Equal(t, "nope", Fail("nope").Detail)
}
