// Package mcpclient imports the tools of external MCP servers into a
// toolbox, so agents can call them like local tools.
package mcpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/germanamz/agentapi/pkg/tools/toolbox"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Client is a session with one MCP server.
type Client struct {
	session *mcp.ClientSession
}

// Dial spawns command as an MCP server speaking over stdio and connects to it.
func Dial(ctx context.Context, command string, args ...string) (*Client, error) {
	return Connect(ctx, &mcp.CommandTransport{
		Command: exec.Command(command, args...), //nolint:gosec // command comes from operator configuration
	})
}

// Connect opens a session over transport.
func Connect(ctx context.Context, transport mcp.Transport) (*Client, error) {
	client := mcp.NewClient(&mcp.Implementation{Name: "agentapi", Version: "0.1.0"}, nil)

	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("mcpclient: connect: %w", err)
	}

	return &Client{session: session}, nil
}

// ToolBox lists the server's tools. Each tool's handler calls back into the
// session.
func (c *Client) ToolBox(ctx context.Context) (*toolbox.ToolBox, error) {
	result, err := c.session.ListTools(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("mcpclient: list tools: %w", err)
	}

	tb := toolbox.New()
	for _, t := range result.Tools {
		tool, err := c.toolFromSDK(t)
		if err != nil {
			return nil, fmt.Errorf("mcpclient: tool %q: %w", t.Name, err)
		}
		tb.Register(tool)
	}

	return tb, nil
}

// Call invokes the named tool. A result flagged as an error by the server is
// returned as an error carrying its text.
func (c *Client) Call(ctx context.Context, name string, input json.RawMessage) (string, error) {
	var args map[string]any
	if len(input) > 0 {
		if err := json.Unmarshal(input, &args); err != nil {
			return "", fmt.Errorf("mcpclient: invalid arguments: %w", err)
		}
	}

	result, err := c.session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return "", fmt.Errorf("mcpclient: call %q: %w", name, err)
	}

	text := joinText(result)
	if result.IsError {
		return "", fmt.Errorf("mcpclient: %s: %s", name, text)
	}

	return text, nil
}

// Close ends the session. For Dial clients the SDK also stops the process.
func (c *Client) Close() error {
	return c.session.Close()
}

func (c *Client) toolFromSDK(t *mcp.Tool) (toolbox.Tool, error) {
	schema, err := json.Marshal(t.InputSchema)
	if err != nil {
		return toolbox.Tool{}, fmt.Errorf("marshal input schema: %w", err)
	}

	name := t.Name

	return toolbox.Tool{
		Name:        name,
		Description: t.Description,
		InputSchema: schema,
		Handler: func(ctx context.Context, input json.RawMessage) (string, error) {
			return c.Call(ctx, name, input)
		},
	}, nil
}

func joinText(result *mcp.CallToolResult) string {
	var texts []string
	for _, item := range result.Content {
		if tc, ok := item.(*mcp.TextContent); ok {
			texts = append(texts, tc.Text)
		}
	}
	return strings.Join(texts, "\n")
}
