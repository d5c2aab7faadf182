// Package middleware provides composable decorators for agents.Asker. Each
// middleware wraps Ask, and the wrapped value is itself an Asker, so they
// compose via Chain or Apply.
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/germanamz/agentapi/pkg/agents"
)

// Middleware wraps an Asker, returning a new Asker with added behaviour.
type Middleware func(next agents.Asker) agents.Asker

// Chain composes middleware into one. The first is the outermost.
func Chain(mws ...Middleware) Middleware {
	return func(next agents.Asker) agents.Asker {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}

// Apply wraps asker with mws. The first middleware is the outermost.
func Apply(asker agents.Asker, mws ...Middleware) agents.Asker {
	return Chain(mws...)(asker)
}

// --- Timeout ---

// Timeout bounds every Ask with a deadline. A non-positive d disables it.
func Timeout(d time.Duration) Middleware {
	return func(next agents.Asker) agents.Asker {
		if d <= 0 {
			return next
		}
		return agents.AskerFunc(func(ctx context.Context, input string) (agents.Result, error) {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()

			return next.Ask(ctx, input)
		})
	}
}

// --- Recovery ---

// Recovery converts a panic inside Ask into an error.
func Recovery(log *slog.Logger) Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next agents.Asker) agents.Asker {
		return agents.AskerFunc(func(ctx context.Context, input string) (res agents.Result, err error) {
			defer func() {
				if r := recover(); r != nil {
					log.ErrorContext(ctx, "agent panicked", "panic", r, "stack", string(debug.Stack()))
					res = agents.Result{}
					err = fmt.Errorf("agent panicked: %v", r)
				}
			}()

			return next.Ask(ctx, input)
		})
	}
}

// --- Logger ---

// Logger records the start, duration, and outcome of every Ask.
func Logger(log *slog.Logger) Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next agents.Asker) agents.Asker {
		return agents.AskerFunc(func(ctx context.Context, input string) (agents.Result, error) {
			log.DebugContext(ctx, "ask started", "input_len", len(input))

			start := time.Now()
			res, err := next.Ask(ctx, input)
			duration := time.Since(start)

			if err != nil {
				log.ErrorContext(ctx, "ask failed",
					"duration", duration,
					"error", err,
				)
				return res, err
			}

			log.InfoContext(ctx, "ask finished",
				"agent", res.LastAgent,
				"turns", res.Turns,
				"handoffs", res.Handoffs,
				"duration", duration,
			)

			return res, nil
		})
	}
}
