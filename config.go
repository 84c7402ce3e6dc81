package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	defaultRegion = "europe-west1"
	defaultModel  = "gemini-2.5-flash"
)

// GeminiConfig selects the Vertex AI project used for photo extraction.
// An empty Project disables the feature.
type GeminiConfig struct {
	Project string `yaml:"project"`
	Region  string `yaml:"region"`
	Model   string `yaml:"model"`
}

// LimitsConfig holds the per-IP request limits.
type LimitsConfig struct {
	UploadsPerMinute int `yaml:"uploads_per_minute"`
	ClaimsPerSecond  int `yaml:"claims_per_second"`
}

// Config is the server configuration.
type Config struct {
	Addr         string       `yaml:"addr"`
	LogLevel     string       `yaml:"log_level"`
	LogFormat    string       `yaml:"log_format"`
	SolveWorkers int          `yaml:"solve_workers"`
	Gemini       GeminiConfig `yaml:"gemini"`
	Limits       LimitsConfig `yaml:"limits"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Addr:         ":8080",
		LogLevel:     "info",
		LogFormat:    "text",
		SolveWorkers: 4,
		Gemini: GeminiConfig{
			Region: defaultRegion,
			Model:  defaultModel,
		},
		Limits: LimitsConfig{
			UploadsPerMinute: 5,
			ClaimsPerSecond:  20,
		},
	}
}

// LoadConfig layers defaults, the optional YAML file at path, then the
// environment (PORT, GCP_PROJECT_ID, GCP_REGION, GEMINI_MODEL, LOG_LEVEL,
// LOG_FORMAT).
func LoadConfig(path string, getenv func(string) string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if getenv == nil {
		getenv = os.Getenv
	}
	if port := getenv("PORT"); port != "" {
		if _, err := strconv.Atoi(port); err != nil {
			return Config{}, fmt.Errorf("invalid PORT %q", port)
		}
		cfg.Addr = ":" + port
	}
	if v := getenv("GCP_PROJECT_ID"); v != "" {
		cfg.Gemini.Project = v
	}
	if v := getenv("GCP_REGION"); v != "" {
		cfg.Gemini.Region = v
	}
	if v := getenv("GEMINI_MODEL"); v != "" {
		cfg.Gemini.Model = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := getenv("LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg, cfg.Validate()
}

// Validate checks value ranges and enumerations.
func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if c.SolveWorkers < 1 {
		errs = append(errs, fmt.Errorf("solve_workers must be positive, got %d", c.SolveWorkers))
	}
	if c.Limits.UploadsPerMinute < 1 {
		errs = append(errs, fmt.Errorf("limits.uploads_per_minute must be positive, got %d", c.Limits.UploadsPerMinute))
	}
	if c.Limits.ClaimsPerSecond < 1 {
		errs = append(errs, fmt.Errorf("limits.claims_per_second must be positive, got %d", c.Limits.ClaimsPerSecond))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q (valid: text, json)", c.LogFormat))
	}
	return errors.Join(errs...)
}
