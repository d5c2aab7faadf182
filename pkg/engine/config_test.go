package engine

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/germanamz/agentapi/pkg/agents/runner"
	"github.com/germanamz/agentapi/pkg/providers/openaicompat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
api_key: from-file
log_level: debug
request_timeout: 45s
max_turns: 6

model:
  base_url: http://localhost:11434/v1
  api_key: ${TEST_AGENTAPI_MODEL_KEY}
  name: llama3
  temperature: 0.2
  breaker:
    max_failures: 3
    timeout: 10s

agents:
  triage:
    instructions: Be brief.

routes:
  - agent: weather_Assistant
    keywords: [weather, forecast]

server:
  addr: 127.0.0.1:9000
  rate_limit:
    requests_per_min: 60
`

func lookupFrom(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "your-secret-api-key-here", cfg.APIKey)
	assert.Equal(t, openaicompat.DefaultBaseURL, cfg.Model.BaseURL)
	assert.Equal(t, "gemini-2.0-flash", cfg.Model.Name)
	assert.Equal(t, "0.0.0.0:8000", cfg.Server.Addr)
	assert.Equal(t, "Assistant", cfg.Agents.Triage.Name)
	assert.Equal(t, "weather_Assistant", cfg.Agents.Weather.Name)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.Server.CORSOrigins)
	assert.Zero(t, cfg.RequestTimeout)
	assert.Empty(t, cfg.Routes)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("TEST_AGENTAPI_MODEL_KEY", "secret-from-env")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.APIKey)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 45*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 6, cfg.MaxTurns)
	assert.Equal(t, runner.DefaultMaxHandoffs, cfg.MaxHandoffs)

	assert.Equal(t, "http://localhost:11434/v1", cfg.Model.BaseURL)
	assert.Equal(t, "secret-from-env", cfg.Model.APIKey)
	assert.Equal(t, "llama3", cfg.Model.Name)
	assert.InDelta(t, 0.2, cfg.Model.Temperature, 1e-9)
	assert.Equal(t, uint32(3), cfg.Model.Breaker.MaxFailures)
	assert.Equal(t, 10*time.Second, cfg.Model.Breaker.Timeout)

	assert.Equal(t, "Be brief.", cfg.Agents.Triage.Instructions)
	assert.Equal(t, "Assistant", cfg.Agents.Triage.Name)
	assert.Equal(t, WeatherInstructions, cfg.Agents.Weather.Instructions)

	require.Len(t, cfg.Routes, 1)
	assert.Equal(t, []string{"weather", "forecast"}, cfg.Routes[0].Keywords)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, 60, cfg.Server.RateLimit.RequestsPerMin)

	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := LoadConfig("/nonexistent/config.yaml")
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model: [unclosed"), 0o600))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestApplyEnv(t *testing.T) {
	cfg := DefaultConfig()

	err := cfg.ApplyEnv(lookupFrom(map[string]string{
		"API_KEY":         "env-secret",
		"GEMINI_API_KEY":  "gem",
		"MODEL_BASE_URL":  "http://proxy/v1",
		"MODEL_NAME":      "gemini-1.5-pro",
		"ADDR":            ":8080",
		"LOG_LEVEL":       "warn",
		"REQUEST_TIMEOUT": "2m",
		"MAX_TURNS":       "4",
	}))
	require.NoError(t, err)

	assert.Equal(t, "env-secret", cfg.APIKey)
	assert.Equal(t, "gem", cfg.Model.APIKey)
	assert.Equal(t, "http://proxy/v1", cfg.Model.BaseURL)
	assert.Equal(t, "gemini-1.5-pro", cfg.Model.Name)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 2*time.Minute, cfg.RequestTimeout)
	assert.Equal(t, 4, cfg.MaxTurns)
}

func TestApplyEnv_UnsetKeepsValues(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.ApplyEnv(lookupFrom(nil)))
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestApplyEnv_BadValues(t *testing.T) {
	cfg := DefaultConfig()
	require.Error(t, cfg.ApplyEnv(lookupFrom(map[string]string{"REQUEST_TIMEOUT": "soon"})))

	cfg = DefaultConfig()
	require.Error(t, cfg.ApplyEnv(lookupFrom(map[string]string{"MAX_TURNS": "many"})))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"empty api key", func(c *Config) { c.APIKey = "" }, "api_key is required"},
		{"empty model", func(c *Config) { c.Model.Name = "" }, "model name is required"},
		{"negative timeout", func(c *Config) { c.RequestTimeout = -time.Second }, "request_timeout"},
		{"negative turns", func(c *Config) { c.MaxTurns = -1 }, "max_turns"},
		{"negative rate", func(c *Config) { c.Server.RateLimit.RequestsPerMin = -1 }, "rate_limit"},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, "unknown log level"},
		{"same names", func(c *Config) { c.Agents.Weather.Name = c.Agents.Triage.Name }, "duplicate agent name"},
		{"empty agent name", func(c *Config) { c.Agents.Triage.Name = "" }, "agent names are required"},
		{
			"route to triage",
			func(c *Config) { c.Routes = []runner.Route{{Agent: "Assistant", Keywords: []string{"x"}}} },
			"unknown handoff target",
		},
		{"mcp without name", func(c *Config) { c.MCPServers = []MCPConfig{{Command: "x"}} }, "mcp server name"},
		{"mcp without command", func(c *Config) { c.MCPServers = []MCPConfig{{Name: "x"}} }, "command is required"},
		{
			"duplicate mcp",
			func(c *Config) { c.MCPServers = []MCPConfig{{Name: "x", Command: "a"}, {Name: "x", Command: "b"}} },
			"duplicate mcp server",
		},
		{
			"route without keywords",
			func(c *Config) { c.Routes = []runner.Route{{Agent: "weather_Assistant"}} },
			"keywords are required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"":        slog.LevelInfo,
		"info":    slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("verbose")
	require.Error(t, err)
}
