// Package config loads pipeline settings from the environment and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tclaughridge/Oculus-Data-Pipeline/internal/pipeline"
)

// LLM providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
	ProviderBedrock   = "bedrock"
	ProviderVertex    = "vertex"
)

// Graph stores.
const (
	StoreSurrealDB = "surrealdb"
	StoreMemory    = "memory"
)

// Config holds all configuration values.
type Config struct {
	// Orchestration
	MaxConcurrent     int           `yaml:"max_concurrent"`
	OutageCooldown    time.Duration `yaml:"outage_cooldown"`
	ClassifyBatchSize int           `yaml:"classify_batch_size"`
	SourceDir         string        `yaml:"source_dir"`

	// Retry policy shared by classification, resolution and persistence
	RetryAttempts   int           `yaml:"retry_attempts"`
	RetryInitial    time.Duration `yaml:"retry_initial"`
	RetryMax        time.Duration `yaml:"retry_max"`
	RetryMultiplier float64       `yaml:"retry_multiplier"`
	CallTimeout     time.Duration `yaml:"call_timeout"`

	// Classification
	LLMProvider     string `yaml:"llm_provider"`
	LLMModel        string `yaml:"llm_model"`
	OpenAIAPIKey    string `yaml:"-"`
	AnthropicAPIKey string `yaml:"-"`
	OllamaHost      string `yaml:"ollama_host"`
	AWSRegion       string `yaml:"aws_region"`
	VertexProject   string `yaml:"vertex_project"`
	VertexRegion    string `yaml:"vertex_region"`

	// Persistence
	Store              string `yaml:"store"`
	SurrealDBURL       string `yaml:"surrealdb_url"`
	SurrealDBNamespace string `yaml:"surrealdb_namespace"`
	SurrealDBDatabase  string `yaml:"surrealdb_database"`
	SurrealDBUser      string `yaml:"surrealdb_user"`
	SurrealDBPass      string `yaml:"-"`
	SurrealDBAuthLevel string `yaml:"surrealdb_auth_level"`
	SessionPoolSize    int    `yaml:"session_pool_size"`

	// Resolution; empty disables the authority lookup
	AuthorityDB string `yaml:"authority_db"`

	// Logging
	LogFile  string     `yaml:"log_file"`
	LogLevel slog.Level `yaml:"-"`
}

func defaults() Config {
	return Config{
		MaxConcurrent:     3,
		OutageCooldown:    30 * time.Second,
		ClassifyBatchSize: 50,
		SourceDir:         "data/xml",

		RetryAttempts:   3,
		RetryInitial:    time.Second,
		RetryMax:        30 * time.Second,
		RetryMultiplier: 2.0,
		CallTimeout:     90 * time.Second,

		LLMProvider:  ProviderOpenAI,
		LLMModel:     "gpt-4o-mini",
		OllamaHost:   "http://localhost:11434",
		AWSRegion:    "us-east-1",
		VertexRegion: "us-central1",

		Store:              StoreSurrealDB,
		SurrealDBURL:       "ws://localhost:8000/rpc",
		SurrealDBNamespace: "oculus",
		SurrealDBDatabase:  "graph",
		SurrealDBUser:      "root",
		SurrealDBPass:      "root",
		SurrealDBAuthLevel: "root",
		SessionPoolSize:    8,

		LogFile:  "/tmp/oculus.log",
		LogLevel: slog.LevelInfo,
	}
}

// Load reads configuration from environment variables over built-in defaults.
func Load() Config {
	return fromEnv(defaults())
}

// LoadFile reads a YAML file over the built-in defaults, then applies
// environment variables on top.
func LoadFile(path string) (Config, error) {
	base := defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var file struct {
		Config   `yaml:",inline"`
		LogLevel string `yaml:"log_level"`
	}
	file.Config = base
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	base = file.Config
	if file.LogLevel != "" {
		base.LogLevel = parseLogLevel(file.LogLevel)
	}
	return fromEnv(base), nil
}

func fromEnv(d Config) Config {
	return Config{
		MaxConcurrent:     getInt("OCULUS_MAX_CONCURRENT", d.MaxConcurrent),
		OutageCooldown:    getDuration("OCULUS_OUTAGE_COOLDOWN", d.OutageCooldown),
		ClassifyBatchSize: getInt("OCULUS_CLASSIFY_BATCH_SIZE", d.ClassifyBatchSize),
		SourceDir:         getEnv("OCULUS_SOURCE_DIR", d.SourceDir),

		RetryAttempts:   getInt("OCULUS_RETRY_ATTEMPTS", d.RetryAttempts),
		RetryInitial:    getDuration("OCULUS_RETRY_INITIAL", d.RetryInitial),
		RetryMax:        getDuration("OCULUS_RETRY_MAX", d.RetryMax),
		RetryMultiplier: getFloat("OCULUS_RETRY_MULTIPLIER", d.RetryMultiplier),
		CallTimeout:     getDuration("OCULUS_CALL_TIMEOUT", d.CallTimeout),

		LLMProvider:     strings.ToLower(getEnv("OCULUS_LLM_PROVIDER", d.LLMProvider)),
		LLMModel:        getEnv("OCULUS_LLM_MODEL", d.LLMModel),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", d.OpenAIAPIKey),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", d.AnthropicAPIKey),
		OllamaHost:      getEnv("OLLAMA_HOST", d.OllamaHost),
		AWSRegion:       getEnv("AWS_REGION", d.AWSRegion),
		VertexProject:   getEnv("OCULUS_VERTEX_PROJECT", d.VertexProject),
		VertexRegion:    getEnv("OCULUS_VERTEX_REGION", d.VertexRegion),

		Store:              strings.ToLower(getEnv("OCULUS_STORE", d.Store)),
		SurrealDBURL:       getEnv("SURREALDB_URL", d.SurrealDBURL),
		SurrealDBNamespace: getEnv("SURREALDB_NAMESPACE", d.SurrealDBNamespace),
		SurrealDBDatabase:  getEnv("SURREALDB_DATABASE", d.SurrealDBDatabase),
		SurrealDBUser:      getEnv("SURREALDB_USER", d.SurrealDBUser),
		SurrealDBPass:      getEnv("SURREALDB_PASS", d.SurrealDBPass),
		SurrealDBAuthLevel: getEnv("SURREALDB_AUTH_LEVEL", d.SurrealDBAuthLevel),
		SessionPoolSize:    getInt("OCULUS_SESSION_POOL_SIZE", d.SessionPoolSize),

		AuthorityDB: getEnv("OCULUS_AUTHORITY_DB", d.AuthorityDB),

		LogFile:  getEnv("OCULUS_LOG_FILE", d.LogFile),
		LogLevel: parseLogLevel(getEnv("OCULUS_LOG_LEVEL", d.LogLevel.String())),
	}
}

// Validate rejects settings the pipeline cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.MaxConcurrent < 1 {
		errs = append(errs, fmt.Errorf("max_concurrent must be >= 1, got %d", c.MaxConcurrent))
	}
	if c.RetryAttempts < 1 {
		errs = append(errs, fmt.Errorf("retry_attempts must be >= 1, got %d", c.RetryAttempts))
	}
	if c.RetryMultiplier < 1 {
		errs = append(errs, fmt.Errorf("retry_multiplier must be >= 1, got %g", c.RetryMultiplier))
	}
	if c.ClassifyBatchSize < 1 {
		errs = append(errs, fmt.Errorf("classify_batch_size must be >= 1, got %d", c.ClassifyBatchSize))
	}
	if c.SessionPoolSize < 1 {
		errs = append(errs, fmt.Errorf("session_pool_size must be >= 1, got %d", c.SessionPoolSize))
	}
	switch c.LLMProvider {
	case ProviderOpenAI, ProviderAnthropic, ProviderOllama, ProviderBedrock, ProviderVertex:
	default:
		errs = append(errs, fmt.Errorf("unsupported LLM provider: %q", c.LLMProvider))
	}
	switch c.Store {
	case StoreSurrealDB, StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("unsupported store: %q", c.Store))
	}
	return errors.Join(errs...)
}

// RetryPolicy returns the bounded retry policy for external calls.
func (c Config) RetryPolicy() pipeline.RetryPolicy {
	return pipeline.RetryPolicy{
		MaxAttempts:     c.RetryAttempts,
		InitialInterval: c.RetryInitial,
		MaxInterval:     c.RetryMax,
		Multiplier:      c.RetryMultiplier,
		CallTimeout:     c.CallTimeout,
	}
}

// Orchestrator returns the admission settings for a batch run.
func (c Config) Orchestrator() pipeline.Config {
	return pipeline.Config{
		MaxConcurrent:  c.MaxConcurrent,
		OutageCooldown: c.OutageCooldown,
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if n, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return n
	}
	return defaultVal
}

func getFloat(key string, defaultVal float64) float64 {
	if f, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return f
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if d, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return d
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
