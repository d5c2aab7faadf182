package agents

import (
	"context"

	"github.com/germanamz/agentapi/pkg/modeladapter"
	"github.com/germanamz/agentapi/pkg/tools/toolbox"
)

// Definition is an agent persona. Handoffs lists the agents this one may
// transfer the conversation to.
type Definition struct {
	Name         string
	Description  string
	Instructions string
	Model        modeladapter.Completer
	Tools        []toolbox.Tool
	Handoffs     []*Definition
}

// Handoff returns the handoff target with the given name.
func (d *Definition) Handoff(name string) (*Definition, bool) {
	for _, h := range d.Handoffs {
		if h != nil && h.Name == name {
			return h, true
		}
	}
	return nil, false
}

// Result is the outcome of asking an agent. FinalOutput is the complete text
// of the last reply; it is never a partial answer.
type Result struct {
	FinalOutput string
	LastAgent   string // Agent that produced FinalOutput.
	Turns       int    // Model calls made.
	Handoffs    int    // Transfers between agents.
}

// Asker answers a single user message.
type Asker interface {
	Ask(ctx context.Context, input string) (Result, error)
}

// AskerFunc adapts a function to the Asker interface.
type AskerFunc func(ctx context.Context, input string) (Result, error)

// Ask calls f.
func (f AskerFunc) Ask(ctx context.Context, input string) (Result, error) {
	return f(ctx, input)
}
