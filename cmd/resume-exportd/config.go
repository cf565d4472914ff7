package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/alnah/go-resume-exporter/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound = errors.New("config file not found")
	ErrConfigParse    = errors.New("failed to parse config")
)

// Config holds the daemon configuration.
type Config struct {
	Listen   string         `yaml:"listen"`   // bind address, default ":8085"
	LogLevel string         `yaml:"logLevel"` // "debug", "info", "warn", "error"
	Frontend FrontendConfig `yaml:"frontend"`
	Browser  BrowserConfig  `yaml:"browser"`
	Render   RenderConfig   `yaml:"render"`
	Database DatabaseConfig `yaml:"database"`
}

// FrontendConfig locates the front-end serving the export views.
type FrontendConfig struct {
	BaseURL          string   `yaml:"baseUrl"`
	AllowedLogoHosts []string `yaml:"allowedLogoHosts"`
}

// BrowserConfig configures the shared Chrome session.
type BrowserConfig struct {
	Bin       string `yaml:"bin"`       // pre-installed Chrome binary (empty = rod resolves)
	RemoteURL string `yaml:"remoteUrl"` // external Chrome WebSocket URL
	NoSandbox bool   `yaml:"noSandbox"`
}

// RenderConfig tunes the concurrency governor and deadlines.
type RenderConfig struct {
	Ceiling         int    `yaml:"ceiling"`         // 0 = derive from CPUs
	QueueDepth      int    `yaml:"queueDepth"`      // 0 = 2× ceiling
	Policy          string `yaml:"policy"`          // "queue" or "reject"
	TimeoutSeconds  int    `yaml:"timeoutSeconds"`  // per-request deadline, default 30
	LogoWaitSeconds int    `yaml:"logoWaitSeconds"` // banner logo sub-timeout, default 5
	SkipPDFCheck    bool   `yaml:"skipPdfCheck"`    // disable structural PDF validation
}

// DatabaseConfig locates the read-only projection database.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// DefaultConfig returns a configuration suitable for local development.
func DefaultConfig() *Config {
	return &Config{
		Listen:   ":8085",
		LogLevel: "info",
		Frontend: FrontendConfig{BaseURL: "http://localhost:3000"},
		Database: DatabaseConfig{Path: "resume.db"},
		Render:   RenderConfig{TimeoutSeconds: 30, LogoWaitSeconds: 5},
	}
}

// applyEnv layers environment overrides on top of file values. Applied
// before flags, so flags still win.
func (c *Config) applyEnv() {
	if v := os.Getenv("RESUME_EXPORTD_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("RESUME_EXPORTD_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("RESUME_EXPORTD_FRONTEND_URL"); v != "" {
		c.Frontend.BaseURL = v
	}
	if v := os.Getenv("RESUME_EXPORTD_DB"); v != "" {
		c.Database.Path = v
	}
}

// LoadConfig reads and strictly parses a YAML config file, layered over the
// defaults. Returns an error if the file is missing (no silent fallback).
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- config path is operator-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yamlutil.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}
	return cfg, nil
}
