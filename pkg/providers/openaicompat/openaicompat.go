// Package openaicompat implements modeladapter.Completer for any provider that
// speaks the OpenAI Chat Completions wire format. The defaults point at the
// Gemini OpenAI-compatible endpoint.
package openaicompat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/germanamz/agentapi/pkg/chats/chat"
	"github.com/germanamz/agentapi/pkg/chats/content"
	"github.com/germanamz/agentapi/pkg/chats/message"
	"github.com/germanamz/agentapi/pkg/chats/role"
	"github.com/germanamz/agentapi/pkg/modeladapter"
	"github.com/germanamz/agentapi/pkg/tools/toolbox"
)

const (
	// DefaultBaseURL is Gemini's OpenAI-compatible API root.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"
	// DefaultModel is the model both personas use unless configured otherwise.
	DefaultModel = "gemini-2.0-flash"

	completionsPath = "/chat/completions"
)

// ErrEmptyChoices is returned when the provider answers without any choice.
var ErrEmptyChoices = errors.New("empty choices in response")

// Client is a reusable handle on an OpenAI-compatible provider. Creating it
// performs no I/O; a bad key or unreachable host only surfaces when a Model
// bound to it is asked for a completion.
type Client struct {
	modeladapter.Client
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient sets the *http.Client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.HTTP = hc }
}

// WithHeader adds a header sent with every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		if c.Headers == nil {
			c.Headers = make(map[string]string)
		}
		c.Headers[key] = value
	}
}

// NewClient creates a Client. An empty baseURL selects DefaultBaseURL.
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{
		Client: modeladapter.NewClient(baseURL, modeladapter.Auth{Key: apiKey}, nil),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Model binds a model name to the client. Models bound to the same Client
// share its network configuration.
func (c *Client) Model(name string) *Model {
	if name == "" {
		name = DefaultModel
	}
	return &Model{client: c, Name: name}
}

// Model is a Completer for one model of an OpenAI-compatible provider.
type Model struct {
	client *Client

	Name        string
	Temperature float64 // Zero leaves the provider default.
	MaxTokens   int     // Zero leaves the provider default.
}

var _ modeladapter.Completer = (*Model)(nil)

// Complete sends the conversation and tool declarations and returns the
// assistant's reply, which may contain text, tool calls, or both.
func (m *Model) Complete(ctx context.Context, c *chat.Chat, tools []toolbox.Tool) (message.Message, error) {
	var resp apiResponse
	if err := m.client.PostJSON(ctx, completionsPath, m.buildRequest(c, tools), &resp); err != nil {
		return message.Message{}, fmt.Errorf("openaicompat: %w", err)
	}

	if len(resp.Choices) == 0 {
		return message.Message{}, fmt.Errorf("openaicompat: %w", ErrEmptyChoices)
	}

	return parseChoice(resp.Choices[0]), nil
}

// --- wire types ---

type apiRequest struct {
	Model       string       `json:"model"`
	Messages    []apiMessage `json:"messages"`
	MaxTokens   int          `json:"max_tokens,omitempty"`
	Temperature *float64     `json:"temperature,omitempty"`
	Tools       []apiToolDef `json:"tools,omitempty"`
}

type apiMessage struct {
	Role       string        `json:"role"`
	Content    *string       `json:"content"`
	ToolCalls  []apiToolCall `json:"tool_calls,omitempty"`
	ToolCallID string        `json:"tool_call_id,omitempty"`
}

type apiToolCall struct {
	ID       string          `json:"id"`
	Type     string          `json:"type"`
	Function apiToolFunction `json:"function"`
}

type apiToolFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type apiToolDef struct {
	Type     string         `json:"type"`
	Function apiToolDefFunc `json:"function"`
}

type apiToolDefFunc struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters"`
}

type apiResponse struct {
	Choices []apiChoice `json:"choices"`
}

type apiChoice struct {
	Message      apiMessage `json:"message"`
	FinishReason string     `json:"finish_reason"`
}

// --- conversion ---

func (m *Model) buildRequest(c *chat.Chat, tools []toolbox.Tool) apiRequest {
	req := apiRequest{
		Model:     m.Name,
		MaxTokens: m.MaxTokens,
	}

	if m.Temperature != 0 {
		t := m.Temperature
		req.Temperature = &t
	}

	for _, t := range tools {
		schema := t.InputSchema
		if schema == nil {
			schema = json.RawMessage(`{"type":"object","properties":{}}`)
		}
		req.Tools = append(req.Tools, apiToolDef{
			Type: "function",
			Function: apiToolDefFunc{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  schema,
			},
		})
	}

	for _, msg := range c.Messages() {
		req.Messages = appendMessage(req.Messages, msg)
	}

	return req
}

func appendMessage(msgs []apiMessage, m message.Message) []apiMessage {
	switch m.Role {
	case role.System, role.User:
		text := m.TextContent()
		return append(msgs, apiMessage{Role: m.Role.String(), Content: &text})

	case role.Assistant:
		out := apiMessage{Role: "assistant"}
		if text := m.TextContent(); text != "" {
			out.Content = &text
		}
		for _, tc := range m.ToolCalls() {
			out.ToolCalls = append(out.ToolCalls, apiToolCall{
				ID:   tc.ID,
				Type: "function",
				Function: apiToolFunction{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		return append(msgs, out)

	case role.Tool:
		for _, p := range m.Parts {
			if tr, ok := p.(content.ToolResult); ok {
				text := tr.Content
				msgs = append(msgs, apiMessage{
					Role:       "tool",
					Content:    &text,
					ToolCallID: tr.ToolCallID,
				})
			}
		}
	}

	return msgs
}

func parseChoice(choice apiChoice) message.Message {
	var parts []content.Part

	if choice.Message.Content != nil && strings.TrimSpace(*choice.Message.Content) != "" {
		parts = append(parts, content.Text{Text: *choice.Message.Content})
	}

	for _, tc := range choice.Message.ToolCalls {
		args := tc.Function.Arguments
		if args == "" {
			args = "{}"
		}
		parts = append(parts, content.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}

	return message.New("", role.Assistant, parts...)
}
