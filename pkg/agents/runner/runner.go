// Package runner executes agent definitions. A run drives the active agent
// through cycles of model completion and tool execution until the model
// answers without calling a tool. Calling a transfer_to_<name> tool hands the
// shared conversation to another agent, which continues the loop.
package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/germanamz/agentapi/pkg/agents"
	"github.com/germanamz/agentapi/pkg/chats/chat"
	"github.com/germanamz/agentapi/pkg/chats/content"
	"github.com/germanamz/agentapi/pkg/chats/message"
	"github.com/germanamz/agentapi/pkg/chats/role"
	"github.com/germanamz/agentapi/pkg/tools/toolbox"
)

const (
	DefaultMaxTurns    = 10
	DefaultMaxHandoffs = 5
)

var (
	// ErrMaxTurns is returned when the model keeps calling tools past MaxTurns.
	ErrMaxTurns = errors.New("runner: max turns reached")
	// ErrMaxHandoffs is returned when agents keep transferring past MaxHandoffs.
	ErrMaxHandoffs = errors.New("runner: max handoffs reached")
	// ErrUnknownHandoff is returned when a transfer names an agent that is not
	// a handoff of the active agent.
	ErrUnknownHandoff = errors.New("runner: unknown handoff target")
)

// Options configures a Runner. Zero limits select the defaults.
type Options struct {
	MaxTurns    int
	MaxHandoffs int
	Classifier  Classifier // Optional pre-routing; nil lets the model decide.
	Logger      *slog.Logger
}

// Runner executes agent definitions. It keeps no per-run state and is safe
// for concurrent use.
type Runner struct {
	opts Options
	log  *slog.Logger
}

// New creates a Runner.
func New(opts Options) *Runner {
	if opts.MaxTurns <= 0 {
		opts.MaxTurns = DefaultMaxTurns
	}
	if opts.MaxHandoffs <= 0 {
		opts.MaxHandoffs = DefaultMaxHandoffs
	}

	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Runner{opts: opts, log: log}
}

// Bind returns an Asker that runs entry for every message.
func (r *Runner) Bind(entry *agents.Definition) agents.Asker {
	return agents.AskerFunc(func(ctx context.Context, input string) (agents.Result, error) {
		return r.Run(ctx, entry, input)
	})
}

// Run answers input starting with the entry agent. Model errors are returned
// wrapped with the name of the agent that was active.
func (r *Runner) Run(ctx context.Context, entry *agents.Definition, input string) (agents.Result, error) {
	if entry == nil {
		return agents.Result{}, errors.New("runner: nil agent")
	}

	var res agents.Result

	active := entry
	if r.opts.Classifier != nil {
		target, err := r.opts.Classifier.Classify(ctx, entry, input)
		if err != nil {
			return agents.Result{}, fmt.Errorf("runner: classify: %w", err)
		}
		if target != nil && target != entry {
			if _, ok := entry.Handoff(target.Name); !ok {
				return agents.Result{}, fmt.Errorf("%w %q from %q", ErrUnknownHandoff, target.Name, entry.Name)
			}
			r.log.DebugContext(ctx, "classified", "from", entry.Name, "to", target.Name)
			active = target
			res.Handoffs++
		}
	}

	c := chat.New()
	c.SetSystemPrompt(active.Name, systemPrompt(active))
	c.Append(message.NewText("user", role.User, input))

	boxes := make(map[string]*toolbox.ToolBox)
	toolsFor := func(d *agents.Definition) *toolbox.ToolBox {
		tb, ok := boxes[d.Name]
		if !ok {
			tb = agentToolBox(d)
			boxes[d.Name] = tb
		}
		return tb
	}

	for res.Turns < r.opts.MaxTurns {
		if err := ctx.Err(); err != nil {
			return agents.Result{}, err
		}

		tb := toolsFor(active)

		reply, err := active.Model.Complete(ctx, c, tb.Tools())
		res.Turns++
		if err != nil {
			return agents.Result{}, fmt.Errorf("runner: agent %q: %w", active.Name, err)
		}

		reply.Sender = active.Name
		c.Append(reply)

		calls := reply.ToolCalls()
		if len(calls) == 0 {
			res.FinalOutput = reply.TextContent()
			res.LastAgent = active.Name
			return res, nil
		}

		target := r.callTools(ctx, c, active, tb, calls)
		if target == "" {
			continue
		}

		next, ok := active.Handoff(target)
		if !ok {
			return agents.Result{}, fmt.Errorf("%w %q from %q", ErrUnknownHandoff, target, active.Name)
		}

		res.Handoffs++
		if res.Handoffs > r.opts.MaxHandoffs {
			return agents.Result{}, ErrMaxHandoffs
		}

		r.log.DebugContext(ctx, "handoff", "from", active.Name, "to", next.Name)
		active = next
		c.SetSystemPrompt(active.Name, systemPrompt(active))
	}

	return agents.Result{}, ErrMaxTurns
}

// callTools executes calls in order, appending one tool message per call. It
// returns the target of the first transfer requested, or "".
func (r *Runner) callTools(ctx context.Context, c *chat.Chat, active *agents.Definition, tb *toolbox.ToolBox, calls []content.ToolCall) string {
	var target string

	for _, tc := range calls {
		var result content.ToolResult

		switch t, ok := tb.Get(tc.Name); {
		case !ok:
			result = tb.Call(ctx, tc)
		case target != "":
			result = content.ToolResult{
				ToolCallID: tc.ID,
				Content:    fmt.Sprintf("skipped: already handing off to %s", target),
				IsError:    true,
			}
		default:
			result, target = invoke(ctx, t, tc)
		}

		r.log.DebugContext(ctx, "tool call",
			"agent", active.Name,
			"tool", tc.Name,
			"error", result.IsError,
		)

		c.Append(message.New(active.Name, role.Tool, result))
	}

	return target
}

// invoke runs one tool. A HandoffError from the handler becomes an
// acknowledgement for the model plus the transfer target.
func invoke(ctx context.Context, t toolbox.Tool, tc content.ToolCall) (content.ToolResult, string) {
	args := json.RawMessage(tc.Arguments)
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	out, err := t.Handler(ctx, args)

	var he *HandoffError
	switch {
	case errors.As(err, &he):
		ack, _ := json.Marshal(map[string]string{"assistant": he.Target})
		return content.ToolResult{ToolCallID: tc.ID, Content: string(ack)}, he.Target
	case err != nil:
		return content.ToolResult{ToolCallID: tc.ID, Content: err.Error(), IsError: true}, ""
	default:
		return content.ToolResult{ToolCallID: tc.ID, Content: out}, ""
	}
}
