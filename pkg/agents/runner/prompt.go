package runner

import (
	"fmt"
	"strings"

	"github.com/germanamz/agentapi/pkg/agents"
)

// systemPrompt renders the system message for d: its instructions followed by
// the agents it can hand off to.
func systemPrompt(d *agents.Definition) string {
	var b strings.Builder

	if d.Instructions != "" {
		b.WriteString(d.Instructions)
	} else {
		fmt.Fprintf(&b, "You are %s.", d.Name)
	}
	b.WriteString("\n")

	if len(d.Handoffs) > 0 {
		b.WriteString("\n## Handoffs\n\n")
		b.WriteString("Call the matching transfer tool to hand the conversation to another agent:\n")
		for _, h := range d.Handoffs {
			fmt.Fprintf(&b, "- %s (%s)", h.Name, TransferToolName(h.Name))
			if h.Description != "" {
				fmt.Fprintf(&b, ": %s", h.Description)
			}
			b.WriteString("\n")
		}
	}

	return b.String()
}
