package runner

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/germanamz/agentapi/pkg/agents"
	"github.com/germanamz/agentapi/pkg/tools/toolbox"
)

// TransferPrefix prefixes the name of every handoff tool.
const TransferPrefix = "transfer_to_"

// HandoffError signals that the active agent wants to transfer control. It is
// returned by transfer tool handlers and caught by the run loop.
type HandoffError struct {
	Target string
}

func (e *HandoffError) Error() string {
	return fmt.Sprintf("handoff to %q", e.Target)
}

// TransferToolName returns the tool name that hands off to agent.
func TransferToolName(agent string) string {
	return TransferPrefix + agent
}

func transferTool(target *agents.Definition) toolbox.Tool {
	desc := fmt.Sprintf("Handoff to the %s agent to handle the request.", target.Name)
	if target.Description != "" {
		desc += " " + target.Description
	}

	name := target.Name

	return toolbox.Tool{
		Name:        TransferToolName(name),
		Description: desc,
		InputSchema: json.RawMessage(`{"type":"object","properties":{}}`),
		Handler: func(context.Context, json.RawMessage) (string, error) {
			return "", &HandoffError{Target: name}
		},
	}
}

// agentToolBox combines a definition's own tools with one transfer tool per
// handoff.
func agentToolBox(d *agents.Definition) *toolbox.ToolBox {
	tb := toolbox.New(d.Tools...)
	for _, h := range d.Handoffs {
		tb.Register(transferTool(h))
	}
	return tb
}
