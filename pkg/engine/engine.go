package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/germanamz/agentapi/pkg/agents"
	"github.com/germanamz/agentapi/pkg/agents/middleware"
	"github.com/germanamz/agentapi/pkg/agents/runner"
	"github.com/germanamz/agentapi/pkg/modeladapter"
	"github.com/germanamz/agentapi/pkg/providers/openaicompat"
	"github.com/germanamz/agentapi/pkg/tools/mcpclient"
	"github.com/germanamz/agentapi/pkg/tools/toolbox"
	"github.com/germanamz/agentapi/pkg/tools/weather"
)

// Persona names.
const (
	TriageName  = "Assistant"
	WeatherName = "weather_Assistant"
)

// Default persona instructions.
const (
	TriageInstructions = "You are a assistant of user provide the user which he demand if the user ask about weather " +
		"hands off the task to weather agent. if the user enter a random word then you should say that you are not " +
		"able to understand the user's demand."
	WeatherInstructions = "You are a weather assistant provide the information of weather to user.."
)

// Options adjusts how an Engine is assembled.
type Options struct {
	// NoHandoff builds the triage agent without its weather handoff, so every
	// message is answered by triage alone.
	NoHandoff bool
	// Completer replaces the OpenAI-compatible model. Used by tests.
	Completer modeladapter.Completer
	// HTTPClient is used for model requests when Completer is nil.
	HTTPClient *http.Client
	// DialMCP connects to a configured MCP server. Defaults to spawning the
	// command over stdio.
	DialMCP func(ctx context.Context, mc MCPConfig) (*mcpclient.Client, error)
	Logger  *slog.Logger
}

// Engine owns the agent graph and answers messages through it. It is safe
// for concurrent use.
type Engine struct {
	cfg      Config
	registry *agents.Registry
	entry    *agents.Definition
	asker    agents.Asker
	mcp      []*mcpclient.Client
}

var _ agents.Asker = (*Engine)(nil)

// New creates an Engine from cfg. It validates the configuration, builds
// the model adapter and both personas, connects configured MCP servers, and
// checks the agent graph. The model is not contacted.
func New(ctx context.Context, cfg Config, opts Options) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	completer := opts.Completer
	if completer == nil {
		completer = buildCompleter(cfg.Model, opts.HTTPClient)
	}
	if cfg.Model.Breaker.Enabled() {
		completer = modeladapter.NewBreaker(cfg.Model.Name, completer, cfg.Model.Breaker, log)
	}

	e := &Engine{cfg: cfg}

	weatherTools := weather.ToolBox()
	for _, mc := range cfg.MCPServers {
		tb, err := e.connectMCP(ctx, mc, opts.DialMCP)
		if err != nil {
			_ = e.Close()
			return nil, err
		}
		log.Info("mcp server connected", "name", mc.Name, "tools", tb.Len())
		weatherTools.Merge(tb)
	}

	weatherAgent := &agents.Definition{
		Name:         cfg.Agents.Weather.Name,
		Description:  cfg.Agents.Weather.Description,
		Instructions: cfg.Agents.Weather.Instructions,
		Model:        completer,
		Tools:        weatherTools.Tools(),
	}

	triage := &agents.Definition{
		Name:         cfg.Agents.Triage.Name,
		Description:  cfg.Agents.Triage.Description,
		Instructions: cfg.Agents.Triage.Instructions,
		Model:        completer,
	}
	if !opts.NoHandoff {
		triage.Handoffs = []*agents.Definition{weatherAgent}
	}

	registry, err := agents.NewRegistry(triage, weatherAgent)
	if err == nil {
		err = registry.Validate()
	}
	if err != nil {
		_ = e.Close()
		return nil, fmt.Errorf("engine: %w", err)
	}

	ropts := runner.Options{
		MaxTurns:    cfg.MaxTurns,
		MaxHandoffs: cfg.MaxHandoffs,
		Logger:      log,
	}
	if len(cfg.Routes) > 0 {
		ropts.Classifier = runner.NewKeywordClassifier(cfg.Routes...)
	}

	asker := middleware.Apply(
		runner.New(ropts).Bind(triage),
		middleware.Logger(log),
		middleware.Recovery(log),
		middleware.Timeout(cfg.RequestTimeout),
	)

	e.registry = registry
	e.entry = triage
	e.asker = asker

	return e, nil
}

func (e *Engine) connectMCP(
	ctx context.Context, mc MCPConfig, dial func(context.Context, MCPConfig) (*mcpclient.Client, error),
) (*toolbox.ToolBox, error) {
	if dial == nil {
		dial = func(ctx context.Context, mc MCPConfig) (*mcpclient.Client, error) {
			return mcpclient.Dial(ctx, mc.Command, mc.Args...)
		}
	}

	client, err := dial(ctx, mc)
	if err != nil {
		return nil, fmt.Errorf("engine: mcp %q: %w", mc.Name, err)
	}
	e.mcp = append(e.mcp, client)

	tb, err := client.ToolBox(ctx)
	if err != nil {
		return nil, fmt.Errorf("engine: mcp %q: %w", mc.Name, err)
	}

	return tb, nil
}

// Close disconnects MCP servers.
func (e *Engine) Close() error {
	var errs []error
	for _, c := range e.mcp {
		errs = append(errs, c.Close())
	}
	e.mcp = nil
	return errors.Join(errs...)
}

func buildCompleter(mc ModelConfig, hc *http.Client) modeladapter.Completer {
	var copts []openaicompat.Option
	if hc != nil {
		copts = append(copts, openaicompat.WithHTTPClient(hc))
	}

	m := openaicompat.NewClient(mc.BaseURL, mc.APIKey, copts...).Model(mc.Name)
	m.Temperature = mc.Temperature
	m.MaxTokens = mc.MaxTokens

	return m
}

// Ask answers input starting at the triage agent.
func (e *Engine) Ask(ctx context.Context, input string) (agents.Result, error) {
	return e.asker.Ask(ctx, input)
}

// Asker returns the engine as an agents.Asker.
func (e *Engine) Asker() agents.Asker { return e }

// Registry returns the agent registry.
func (e *Engine) Registry() *agents.Registry { return e.registry }

// Entry returns the agent every message starts at.
func (e *Engine) Entry() *agents.Definition { return e.entry }

// Config returns the configuration the engine was built from.
func (e *Engine) Config() Config { return e.cfg }
