package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, 3, cfg.MaxConcurrent)
	assert.Equal(t, ProviderOpenAI, cfg.LLMProvider)
	assert.Equal(t, "gpt-4o-mini", cfg.LLMModel)
	assert.Equal(t, 3, cfg.RetryAttempts)
	assert.Equal(t, StoreSurrealDB, cfg.Store)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	require.NoError(t, cfg.Validate())
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("OCULUS_MAX_CONCURRENT", "7")
	t.Setenv("OCULUS_RETRY_ATTEMPTS", "5")
	t.Setenv("OCULUS_RETRY_INITIAL", "250ms")
	t.Setenv("OCULUS_RETRY_MULTIPLIER", "1.5")
	t.Setenv("OCULUS_CALL_TIMEOUT", "2s")
	t.Setenv("OCULUS_LLM_PROVIDER", "Anthropic")
	t.Setenv("OCULUS_LOG_LEVEL", "debug")

	cfg := Load()
	assert.Equal(t, 7, cfg.MaxConcurrent)
	assert.Equal(t, ProviderAnthropic, cfg.LLMProvider)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)

	policy := cfg.RetryPolicy()
	assert.Equal(t, 5, policy.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, policy.InitialInterval)
	assert.Equal(t, 1.5, policy.Multiplier)
	assert.Equal(t, 2*time.Second, policy.CallTimeout)

	assert.Equal(t, 7, cfg.Orchestrator().MaxConcurrent)
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	t.Setenv("OCULUS_MAX_CONCURRENT", "many")
	t.Setenv("OCULUS_CALL_TIMEOUT", "soon")

	cfg := Load()
	assert.Equal(t, 3, cfg.MaxConcurrent)
	assert.Equal(t, 90*time.Second, cfg.CallTimeout)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oculus.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
max_concurrent: 2
outage_cooldown: 5s
llm_provider: vertex
vertex_project: oculus-dev
store: memory
log_level: warn
`), 0o644))

	t.Setenv("OCULUS_MAX_CONCURRENT", "4")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	// Environment wins over the file.
	assert.Equal(t, 4, cfg.MaxConcurrent)
	assert.Equal(t, 5*time.Second, cfg.OutageCooldown)
	assert.Equal(t, ProviderVertex, cfg.LLMProvider)
	assert.Equal(t, "oculus-dev", cfg.VertexProject)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel)
	// Untouched keys keep their defaults.
	assert.Equal(t, "gpt-4o-mini", cfg.LLMModel)
}

func TestLoadFile_Errors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_concurrent: [1"), 0o644))
	_, err = LoadFile(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"zero concurrency", func(c *Config) { c.MaxConcurrent = 0 }, "max_concurrent"},
		{"zero retries", func(c *Config) { c.RetryAttempts = 0 }, "retry_attempts"},
		{"shrinking backoff", func(c *Config) { c.RetryMultiplier = 0.5 }, "retry_multiplier"},
		{"zero batch size", func(c *Config) { c.ClassifyBatchSize = 0 }, "classify_batch_size"},
		{"unknown provider", func(c *Config) { c.LLMProvider = "palm" }, "unsupported LLM provider"},
		{"unknown store", func(c *Config) { c.Store = "neo4j" }, "unsupported store"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSetupLoggerWithWriters(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)

	logger.Debug("hidden")
	logger.Info("document completed", "document", "vol1.xml")

	assert.NotContains(t, stderr.String(), "hidden")
	assert.Contains(t, stderr.String(), "document=vol1.xml")

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(file.String())), &entry))
	assert.Equal(t, "document completed", entry["msg"])
	assert.Equal(t, "oculus", entry["app"])
}

func TestSetupLogger_StderrOnly(t *testing.T) {
	logger, cleanup := SetupLogger("", slog.LevelInfo)
	require.NotNil(t, logger)
	assert.NoError(t, cleanup())
}
