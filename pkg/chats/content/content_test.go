package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPartKinds(t *testing.T) {
	parts := []Part{
		Text{Text: "hi"},
		ToolCall{ID: "1", Name: "get_weather", Arguments: `{"city":"Lahore"}`},
		ToolResult{ToolCallID: "1", Content: "sunny"},
	}

	expected := []string{"text", "tool_call", "tool_result"}
	for i, p := range parts {
		assert.Equal(t, expected[i], p.PartKind())
	}
}
