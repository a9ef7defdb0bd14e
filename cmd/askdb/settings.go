package main

import (
	"fmt"
	"os"

	"github.com/jonathan/askdb/internal/config"
	"github.com/jonathan/askdb/internal/llm"
	"github.com/jonathan/askdb/internal/prompts"
)

// resolveSettings layers flags over the environment over the config file at path
func resolveSettings(flags config.Config, path string, getenv func(string) string) (config.Config, error) {
	var file *config.Config
	if path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return config.Config{}, fmt.Errorf("failed to load config: %w", err)
		}
		file = loaded
	}
	return config.Resolve(flags, config.FromEnv(getenv), file), nil
}

// loadSettings resolves and validates the settings for a command
func loadSettings() (config.Config, error) {
	cfg, err := resolveSettings(flagConfig, configPath, os.Getenv)
	if err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// dialectFor returns the configured dialect, or the one implied by the driver
func dialectFor(cfg config.Config) prompts.Dialect {
	if cfg.SQLDialect != "" {
		return prompts.ParseDialect(cfg.SQLDialect)
	}
	return prompts.ParseDialect(cfg.DBDriver)
}

// llmConfigFor builds the generation-service configuration
func llmConfigFor(cfg config.Config) *llm.Config {
	out := llm.ConfigFor(cfg.LLMProvider)
	if cfg.LLMModel != "" {
		out = out.WithAllTiers(cfg.LLMModel)
	}
	out.Temperature = cfg.Temperature
	if cfg.GroqBaseURL != "" && out.Provider == llm.ProviderGroq {
		out.BaseURL = cfg.GroqBaseURL
	}
	return out
}
