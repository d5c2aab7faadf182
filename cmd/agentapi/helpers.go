package main

import (
	"errors"
	"os"

	"github.com/germanamz/agentapi/pkg/engine"
	"github.com/joho/godotenv"
)

// loadDotEnv loads environment variables from path. Missing files are ignored.
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// loadConfig layers defaults, the optional YAML file, and the environment,
// in increasing order of precedence.
func loadConfig(path string, lookup func(string) (string, bool)) (engine.Config, error) {
	cfg := engine.DefaultConfig()
	if path != "" {
		var err error
		if cfg, err = engine.LoadConfig(path); err != nil {
			return engine.Config{}, err
		}
	}

	if err := cfg.ApplyEnv(lookup); err != nil {
		return engine.Config{}, err
	}

	return cfg, cfg.Validate()
}
