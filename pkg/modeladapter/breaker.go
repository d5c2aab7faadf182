package modeladapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/germanamz/agentapi/pkg/chats/chat"
	"github.com/germanamz/agentapi/pkg/chats/message"
	"github.com/germanamz/agentapi/pkg/tools/toolbox"
	"github.com/sony/gobreaker/v2"
)

// BreakerConfig configures a Breaker. MaxFailures of zero disables it.
type BreakerConfig struct {
	MaxFailures uint32        `yaml:"max_failures"` // Consecutive failures before opening.
	Timeout     time.Duration `yaml:"timeout"`      // Time spent open before a probe.
	Interval    time.Duration `yaml:"interval"`     // Closed-state window for clearing counts.
}

// Enabled reports whether the configuration asks for a breaker.
func (c BreakerConfig) Enabled() bool { return c.MaxFailures > 0 }

// Breaker wraps a Completer with a circuit breaker. After MaxFailures
// consecutive errors it fails fast until Timeout elapses. It never retries.
type Breaker struct {
	name    string
	inner   Completer
	breaker *gobreaker.CircuitBreaker[message.Message]
}

var _ Completer = (*Breaker)(nil)

// NewBreaker wraps inner. name identifies the model in errors and logs.
func NewBreaker(name string, inner Completer, cfg BreakerConfig, log *slog.Logger) *Breaker {
	if log == nil {
		log = slog.Default()
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	maxFailures := cfg.MaxFailures

	cb := gobreaker.NewCircuitBreaker[message.Message](gobreaker.Settings{
		Name:        "model:" + name,
		MaxRequests: 1,
		Interval:    cfg.Interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		IsSuccessful: func(err error) bool {
			// The caller giving up is not the model failing.
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &Breaker{name: name, inner: inner, breaker: cb}
}

// Complete routes the call through the circuit breaker.
func (b *Breaker) Complete(ctx context.Context, c *chat.Chat, tools []toolbox.Tool) (message.Message, error) {
	msg, err := b.breaker.Execute(func() (message.Message, error) {
		return b.inner.Complete(ctx, c, tools)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return message.Message{}, fmt.Errorf("model %q circuit open: %w", b.name, err)
	}
	return msg, err
}

// State returns the current breaker state.
func (b *Breaker) State() gobreaker.State { return b.breaker.State() }
