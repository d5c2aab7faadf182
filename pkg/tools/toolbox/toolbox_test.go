package toolbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/germanamz/agentapi/pkg/chats/content"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoHandler(_ context.Context, input json.RawMessage) (string, error) {
	return string(input), nil
}

func errorHandler(_ context.Context, _ json.RawMessage) (string, error) {
	return "", errors.New("tool failed")
}

func newEchoTool(name string) Tool {
	return Tool{
		Name:        name,
		Description: "Echoes input",
		InputSchema: json.RawMessage(`{"type":"object"}`),
		Handler:     echoHandler,
	}
}

func TestNew(t *testing.T) {
	tb := New()
	assert.NotNil(t, tb)
	assert.Empty(t, tb.Tools())
	assert.Equal(t, 0, tb.Len())
}

func TestRegisterAndGet(t *testing.T) {
	tb := New(newEchoTool("echo"))

	got, ok := tb.Get("echo")
	assert.True(t, ok)
	assert.Equal(t, "echo", got.Name)

	_, ok = tb.Get("missing")
	assert.False(t, ok)
}

func TestToolsKeepRegistrationOrder(t *testing.T) {
	tb := New(newEchoTool("c"), newEchoTool("a"), newEchoTool("b"))

	var names []string
	for _, tool := range tb.Tools() {
		names = append(names, tool.Name)
	}
	assert.Equal(t, []string{"c", "a", "b"}, names)
}

func TestRegisterReplaceKeepsPosition(t *testing.T) {
	tb := New(newEchoTool("a"), newEchoTool("b"))
	tb.Register(Tool{Name: "a", Description: "replaced", Handler: echoHandler})

	tools := tb.Tools()
	require.Len(t, tools, 2)
	assert.Equal(t, "a", tools[0].Name)
	assert.Equal(t, "replaced", tools[0].Description)
}

func TestMerge(t *testing.T) {
	tb1 := New(newEchoTool("a"), newEchoTool("b"))
	tb2 := New(newEchoTool("c"))

	tb1.Merge(tb2)

	assert.Equal(t, 3, tb1.Len())
	_, ok := tb1.Get("c")
	assert.True(t, ok)
	assert.Equal(t, 1, tb2.Len())
}

func TestCallSuccess(t *testing.T) {
	tb := New(newEchoTool("echo"))

	result := tb.Call(context.Background(), content.ToolCall{
		ID:        "call-1",
		Name:      "echo",
		Arguments: `{"msg":"hi"}`,
	})

	assert.Equal(t, "call-1", result.ToolCallID)
	assert.JSONEq(t, `{"msg":"hi"}`, result.Content)
	assert.False(t, result.IsError)
}

func TestCallEmptyArgumentsBecomeObject(t *testing.T) {
	tb := New(newEchoTool("echo"))

	result := tb.Call(context.Background(), content.ToolCall{ID: "call-1", Name: "echo"})

	assert.Equal(t, "{}", result.Content)
}

func TestCallNotFound(t *testing.T) {
	tb := New()

	result := tb.Call(context.Background(), content.ToolCall{ID: "call-2", Name: "missing"})

	assert.Equal(t, "call-2", result.ToolCallID)
	assert.Contains(t, result.Content, "tool not found: missing")
	assert.True(t, result.IsError)
}

func TestCallHandlerError(t *testing.T) {
	tb := New(Tool{Name: "fail", Handler: errorHandler})

	result := tb.Call(context.Background(), content.ToolCall{ID: "call-3", Name: "fail"})

	assert.Equal(t, "call-3", result.ToolCallID)
	assert.Equal(t, "tool failed", result.Content)
	assert.True(t, result.IsError)
}
