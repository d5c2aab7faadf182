package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/germanamz/agentapi/pkg/agents/runner"
	"github.com/germanamz/agentapi/pkg/modeladapter"
	"github.com/germanamz/agentapi/pkg/providers/openaicompat"
	"gopkg.in/yaml.v3"
)

// DefaultAPIKey is the shared secret used when API_KEY is unset.
const DefaultAPIKey = "your-secret-api-key-here" //nolint:gosec // documented default, not a credential

// DefaultAddr is the address the HTTP service listens on.
const DefaultAddr = "0.0.0.0:8000"

// Config is the top-level configuration.
type Config struct {
	APIKey         string         `yaml:"api_key"` //nolint:gosec // configuration field, not a hardcoded secret
	LogLevel       string         `yaml:"log_level"`
	RequestTimeout time.Duration  `yaml:"request_timeout"` // Zero means no deadline.
	MaxTurns       int            `yaml:"max_turns"`
	MaxHandoffs    int            `yaml:"max_handoffs"`
	Model          ModelConfig    `yaml:"model"`
	Agents         AgentsConfig   `yaml:"agents"`
	Routes         []runner.Route `yaml:"routes"`
	Server         ServerConfig   `yaml:"server"`
	MCPServers     []MCPConfig    `yaml:"mcp_servers"`
}

// MCPConfig describes an MCP server whose tools are given to the weather
// agent alongside get_weather.
type MCPConfig struct {
	Name    string   `yaml:"name"`
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

// ModelConfig describes the OpenAI-compatible model both personas share.
type ModelConfig struct {
	BaseURL     string                     `yaml:"base_url"`
	APIKey      string                     `yaml:"api_key"` //nolint:gosec // configuration field, not a hardcoded secret
	Name        string                     `yaml:"name"`
	Temperature float64                    `yaml:"temperature"`
	MaxTokens   int                        `yaml:"max_tokens"`
	Breaker     modeladapter.BreakerConfig `yaml:"breaker"`
}

// AgentsConfig holds the two personas.
type AgentsConfig struct {
	Triage  AgentConfig `yaml:"triage"`
	Weather AgentConfig `yaml:"weather"`
}

// AgentConfig overrides a persona. Empty fields keep the defaults.
type AgentConfig struct {
	Name         string `yaml:"name"`
	Description  string `yaml:"description"`
	Instructions string `yaml:"instructions"`
}

// ServerConfig holds HTTP service settings.
type ServerConfig struct {
	Addr        string          `yaml:"addr"`
	CORSOrigins []string        `yaml:"cors_origins"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig controls per-client rate limiting of /chat.
type RateLimitConfig struct {
	RequestsPerMin int `yaml:"requests_per_min"` // Zero disables limiting.
	Burst          int `yaml:"burst"`            // Defaults to RequestsPerMin.
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		APIKey:      DefaultAPIKey,
		LogLevel:    "info",
		MaxTurns:    runner.DefaultMaxTurns,
		MaxHandoffs: runner.DefaultMaxHandoffs,
		Model: ModelConfig{
			BaseURL: openaicompat.DefaultBaseURL,
			Name:    openaicompat.DefaultModel,
		},
		Agents: AgentsConfig{
			Triage: AgentConfig{
				Name:         TriageName,
				Description:  "Answers general queries and routes weather questions.",
				Instructions: TriageInstructions,
			},
			Weather: AgentConfig{
				Name:         WeatherName,
				Description:  "Answers weather questions using the get_weather tool.",
				Instructions: WeatherInstructions,
			},
		},
		Server: ServerConfig{
			Addr:        DefaultAddr,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig. Environment
// variables referenced as ${VAR} or $VAR are expanded before parsing.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path) //nolint:gosec // path is caller-provided configuration, not user input
	if err != nil {
		return Config{}, fmt.Errorf("engine: load config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, fmt.Errorf("engine: parse config: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides fields from environment variables. lookup has the
// signature of os.LookupEnv; variables that are unset leave the field alone.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	strs := []struct {
		key string
		dst *string
	}{
		{"API_KEY", &c.APIKey},
		{"GEMINI_API_KEY", &c.Model.APIKey},
		{"MODEL_BASE_URL", &c.Model.BaseURL},
		{"MODEL_NAME", &c.Model.Name},
		{"ADDR", &c.Server.Addr},
		{"LOG_LEVEL", &c.LogLevel},
	}
	for _, s := range strs {
		if v, ok := lookup(s.key); ok {
			*s.dst = v
		}
	}

	if v, ok := lookup("REQUEST_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("engine: env REQUEST_TIMEOUT: %w", err)
		}
		c.RequestTimeout = d
	}

	if v, ok := lookup("MAX_TURNS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("engine: env MAX_TURNS: %w", err)
		}
		c.MaxTurns = n
	}

	return nil
}

// Validate checks that the configuration is internally consistent.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return errors.New("engine: config: api_key is required")
	}
	if c.Model.Name == "" {
		return errors.New("engine: config: model name is required")
	}
	if c.RequestTimeout < 0 {
		return errors.New("engine: config: request_timeout must not be negative")
	}
	if c.MaxTurns < 0 || c.MaxHandoffs < 0 {
		return errors.New("engine: config: max_turns and max_handoffs must not be negative")
	}
	if c.Server.RateLimit.RequestsPerMin < 0 || c.Server.RateLimit.Burst < 0 {
		return errors.New("engine: config: rate_limit values must not be negative")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}

	triage, weather := c.Agents.Triage.Name, c.Agents.Weather.Name
	if triage == "" || weather == "" {
		return errors.New("engine: config: agent names are required")
	}
	if triage == weather {
		return fmt.Errorf("engine: config: duplicate agent name %q", triage)
	}

	mcpNames := make(map[string]struct{}, len(c.MCPServers))
	for _, m := range c.MCPServers {
		if m.Name == "" {
			return errors.New("engine: config: mcp server name is required")
		}
		if m.Command == "" {
			return fmt.Errorf("engine: config: mcp server %q: command is required", m.Name)
		}
		if _, dup := mcpNames[m.Name]; dup {
			return fmt.Errorf("engine: config: duplicate mcp server name %q", m.Name)
		}
		mcpNames[m.Name] = struct{}{}
	}

	for i, r := range c.Routes {
		if r.Agent != weather {
			return fmt.Errorf("engine: config: route %d: unknown handoff target %q", i, r.Agent)
		}
		if len(r.Keywords) == 0 {
			return fmt.Errorf("engine: config: route %d: keywords are required", i)
		}
	}

	return nil
}

// ParseLevel maps a level name to a slog.Level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("engine: config: unknown log level %q", s)
	}
}
