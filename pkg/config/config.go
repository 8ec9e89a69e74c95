package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete application configuration
type Config struct {
	LLM           LLMConfig           `yaml:"llm"`
	Orchestration OrchestrationConfig `yaml:"orchestration"`
	Session       SessionConfig       `yaml:"session"`
	Sources       SourcesConfig       `yaml:"sources"`
	Digest        DigestConfig        `yaml:"digest"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// LLMConfig contains reasoning executor configuration
type LLMConfig struct {
	BaseURL     string  `yaml:"base_url"`
	APIKey      string  `yaml:"api_key,omitempty"`
	Environment string  `yaml:"environment"` // "development", "production"
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	Timeout     string  `yaml:"timeout"`
}

// OrchestrationConfig contains DAG scheduler configuration
type OrchestrationConfig struct {
	MaxConcurrency int    `yaml:"max_concurrency"`
	NodeTimeout    string `yaml:"node_timeout"`
	RunTimeout     string `yaml:"run_timeout"`
	MaxRetries     int    `yaml:"max_retries"`
	RetryBase      string `yaml:"retry_base"`
	RetryMax       string `yaml:"retry_max"`
}

// SessionConfig contains per-user context store configuration
type SessionConfig struct {
	Window    int    `yaml:"window"`
	IdleTTL   string `yaml:"idle_ttl"`
	StoreType string `yaml:"store_type"` // "memory", "kv"
	StorePath string `yaml:"store_path,omitempty"`
}

// SourcesConfig contains data gateway configuration per source
type SourcesConfig struct {
	CRM        SourceConfig `yaml:"crm"`
	Warehouse  SourceConfig `yaml:"warehouse"`
	Transforms SourceConfig `yaml:"transforms"`
}

// SourceConfig contains one data gateway endpoint
type SourceConfig struct {
	Enabled bool   `yaml:"enabled"`
	BaseURL string `yaml:"base_url,omitempty"`
	Timeout string `yaml:"timeout,omitempty"`
}

// DigestConfig contains scheduled briefing configuration
type DigestConfig struct {
	Enabled          bool   `yaml:"enabled"`
	DefaultFrequency string `yaml:"default_frequency"` // "hourly", "daily", "weekly"
}

// ObservabilityConfig contains observability configuration
type ObservabilityConfig struct {
	Tracing TracingConfig `yaml:"tracing"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

// TracingConfig contains tracing configuration
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"sampling_rate"`
	Insecure     bool    `yaml:"insecure"`
}

// MetricsConfig contains metrics configuration
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json", "text"
	Output string `yaml:"output"` // "stdout", "file"
}

// Load loads configuration from a file
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.applyDefaults()
	config.overrideFromEnv()

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// LoadOrDefault loads configuration from a file or returns default config
func LoadOrDefault(path string) *Config {
	config, err := Load(path)
	if err != nil {
		config = Default()
	}
	return config
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			BaseURL:     "https://api.openai.com/v1",
			Environment: "development",
			Temperature: 0.2,
			MaxTokens:   1000,
			Timeout:     "30s",
		},
		Orchestration: OrchestrationConfig{
			MaxConcurrency: 5,
			NodeTimeout:    "30s",
			RunTimeout:     "2m",
			MaxRetries:     2,
			RetryBase:      "100ms",
			RetryMax:       "2s",
		},
		Session: SessionConfig{
			Window:    10,
			IdleTTL:   "24h",
			StoreType: "memory",
		},
		Sources: SourcesConfig{
			CRM: SourceConfig{
				Enabled: true,
				BaseURL: "http://localhost:8081",
				Timeout: "15s",
			},
			Warehouse: SourceConfig{
				Enabled: true,
				BaseURL: "http://localhost:8082",
				Timeout: "30s",
			},
			Transforms: SourceConfig{
				Enabled: true,
				BaseURL: "http://localhost:8083",
				Timeout: "30s",
			},
		},
		Digest: DigestConfig{
			Enabled:          false,
			DefaultFrequency: "daily",
		},
		Observability: ObservabilityConfig{
			Tracing: TracingConfig{
				Enabled:      true,
				Endpoint:     "localhost:4317",
				SamplingRate: 1.0,
				Insecure:     true,
			},
			Metrics: MetricsConfig{
				Enabled: true,
				Port:    2223,
			},
			Logging: LoggingConfig{
				Level:  "info",
				Format: "json",
				Output: "stdout",
			},
		},
	}
}

// applyDefaults applies default values to missing fields
func (c *Config) applyDefaults() {
	defaults := Default()

	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaults.LLM.BaseURL
	}
	if c.LLM.Environment == "" {
		c.LLM.Environment = defaults.LLM.Environment
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = defaults.LLM.MaxTokens
	}
	if c.LLM.Timeout == "" {
		c.LLM.Timeout = defaults.LLM.Timeout
	}

	if c.Orchestration.MaxConcurrency == 0 {
		c.Orchestration.MaxConcurrency = defaults.Orchestration.MaxConcurrency
	}
	if c.Orchestration.NodeTimeout == "" {
		c.Orchestration.NodeTimeout = defaults.Orchestration.NodeTimeout
	}
	if c.Orchestration.RunTimeout == "" {
		c.Orchestration.RunTimeout = defaults.Orchestration.RunTimeout
	}
	if c.Orchestration.RetryBase == "" {
		c.Orchestration.RetryBase = defaults.Orchestration.RetryBase
	}
	if c.Orchestration.RetryMax == "" {
		c.Orchestration.RetryMax = defaults.Orchestration.RetryMax
	}

	if c.Session.Window == 0 {
		c.Session.Window = defaults.Session.Window
	}
	if c.Session.IdleTTL == "" {
		c.Session.IdleTTL = defaults.Session.IdleTTL
	}
	if c.Session.StoreType == "" {
		c.Session.StoreType = defaults.Session.StoreType
	}

	if c.Digest.DefaultFrequency == "" {
		c.Digest.DefaultFrequency = defaults.Digest.DefaultFrequency
	}

	if c.Observability.Logging.Level == "" {
		c.Observability.Logging.Level = defaults.Observability.Logging.Level
	}
	if c.Observability.Logging.Format == "" {
		c.Observability.Logging.Format = defaults.Observability.Logging.Format
	}
	if c.Observability.Logging.Output == "" {
		c.Observability.Logging.Output = defaults.Observability.Logging.Output
	}
}

// overrideFromEnv overrides configuration from environment variables
func (c *Config) overrideFromEnv() {
	if url := os.Getenv("LLM_BASE_URL"); url != "" {
		c.LLM.BaseURL = url
	}
	if key := os.Getenv("LLM_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
	if env := os.Getenv("ENVIRONMENT"); env != "" {
		c.LLM.Environment = strings.ToLower(env)
	}

	if port := os.Getenv("METRICS_PORT"); port != "" {
		_, err := fmt.Sscanf(port, "%d", &c.Observability.Metrics.Port)
		if err != nil {
			log.Printf("Invalid METRICS_PORT value: %s, using default: %d", port, c.Observability.Metrics.Port)
		}
	}

	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		c.Observability.Tracing.Endpoint = endpoint
	}
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.LLM.BaseURL == "" {
		return fmt.Errorf("llm base_url is required")
	}
	if c.LLM.Environment != "development" && c.LLM.Environment != "production" {
		return fmt.Errorf("llm environment must be development or production, got %q", c.LLM.Environment)
	}

	if c.Orchestration.MaxConcurrency < 1 {
		return fmt.Errorf("orchestration max_concurrency must be at least 1")
	}
	if c.Orchestration.MaxRetries < 0 {
		return fmt.Errorf("orchestration max_retries must not be negative")
	}
	if c.Session.Window < 1 {
		return fmt.Errorf("session window must be at least 1")
	}

	for _, d := range []struct{ name, value string }{
		{"orchestration node_timeout", c.Orchestration.NodeTimeout},
		{"orchestration run_timeout", c.Orchestration.RunTimeout},
		{"orchestration retry_base", c.Orchestration.RetryBase},
		{"orchestration retry_max", c.Orchestration.RetryMax},
		{"session idle_ttl", c.Session.IdleTTL},
		{"llm timeout", c.LLM.Timeout},
	} {
		if _, err := time.ParseDuration(d.value); err != nil {
			return fmt.Errorf("invalid %s: %w", d.name, err)
		}
	}

	switch c.Digest.DefaultFrequency {
	case "hourly", "daily", "weekly":
	default:
		return fmt.Errorf("digest default_frequency must be hourly, daily or weekly, got %q", c.Digest.DefaultFrequency)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetDuration parses a duration string from config
func (c *Config) GetDuration(value string) (time.Duration, error) {
	return time.ParseDuration(value)
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.LLM.Environment == "production"
}
