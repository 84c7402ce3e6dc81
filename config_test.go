package main

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("", envMap(nil))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Empty(t, cfg.Gemini.Project)
}

func TestLoadConfigFile(t *testing.T) {
	path := writeFile(t, "wordsearch.yaml", `
addr: ":9000"
log_format: json
solve_workers: 8
gemini:
  project: my-project
limits:
  claims_per_second: 50
`)

	cfg, err := LoadConfig(path, envMap(nil))
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 8, cfg.SolveWorkers)
	assert.Equal(t, "my-project", cfg.Gemini.Project)
	// Unset keys keep their defaults.
	assert.Equal(t, defaultRegion, cfg.Gemini.Region)
	assert.Equal(t, 5, cfg.Limits.UploadsPerMinute)
	assert.Equal(t, 50, cfg.Limits.ClaimsPerSecond)
}

func TestLoadConfigEmptyFile(t *testing.T) {
	cfg, err := LoadConfig(writeFile(t, "empty.yaml", ""), envMap(nil))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigFileErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), envMap(nil))
	assert.ErrorContains(t, err, "read config")

	_, err = LoadConfig(writeFile(t, "typo.yaml", "adress: \":9000\"\n"), envMap(nil))
	assert.ErrorContains(t, err, "parse config")

	_, err = LoadConfig(writeFile(t, "bad.yaml", "solve_workers: 0\nlog_level: loud\n"), envMap(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "solve_workers")
	assert.Contains(t, err.Error(), "loud")
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	path := writeFile(t, "wordsearch.yaml", "addr: \":9000\"\ngemini:\n  project: from-file\n")

	cfg, err := LoadConfig(path, envMap(map[string]string{
		"PORT":           "9090",
		"GCP_PROJECT_ID": "from-env",
		"GCP_REGION":     "us-central1",
		"GEMINI_MODEL":   "gemini-2.5-pro",
		"LOG_LEVEL":      "debug",
		"LOG_FORMAT":     "JSON",
	}))
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "from-env", cfg.Gemini.Project)
	assert.Equal(t, "us-central1", cfg.Gemini.Region)
	assert.Equal(t, "gemini-2.5-pro", cfg.Gemini.Model)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "JSON", cfg.LogFormat)

	_, err = LoadConfig("", envMap(map[string]string{"PORT": "http"}))
	assert.ErrorContains(t, err, "invalid PORT")
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"no addr", func(c *Config) { c.Addr = "" }, "addr is required"},
		{"workers", func(c *Config) { c.SolveWorkers = -1 }, "solve_workers"},
		{"uploads", func(c *Config) { c.Limits.UploadsPerMinute = 0 }, "uploads_per_minute"},
		{"claims", func(c *Config) { c.Limits.ClaimsPerSecond = 0 }, "claims_per_second"},
		{"level", func(c *Config) { c.LogLevel = "trace" }, "unknown log level"},
		{"format", func(c *Config) { c.LogFormat = "xml" }, "unknown log format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}

	assert.NoError(t, DefaultConfig().Validate())
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"":        slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	} {
		got, err := parseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := parseLevel("verbose")
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger("warn", "json", &buf)
	logger.Info("hidden")
	logger.Warn("shown", "word", "HELLO")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"word":"HELLO"`)

	buf.Reset()
	newLogger("debug", "text", &buf).Debug("probe", "row", 3)
	assert.Contains(t, buf.String(), "msg=probe row=3")
}
