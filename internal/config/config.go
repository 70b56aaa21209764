// Package config provides configuration management for the query
// understanding service. Values are read once at startup from an optional
// config file and CBQ_-prefixed environment variables; there is no
// hot-reload.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the complete service configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Registry RegistryConfig `mapstructure:"registry"`
	Router   RouterConfig   `mapstructure:"router"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// LLMConfig selects and bounds the LLM backend.
type LLMConfig struct {
	Provider          string        `mapstructure:"provider"`
	APIKey            string        `mapstructure:"api_key"`
	Model             string        `mapstructure:"model"`
	BaseURL           string        `mapstructure:"base_url"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
}

// RegistryConfig configures the external gene registry feed.
type RegistryConfig struct {
	BaseURL              string        `mapstructure:"base_url"`
	FetchTimeout         time.Duration `mapstructure:"fetch_timeout"`
	RefreshInterval      time.Duration `mapstructure:"refresh_interval"`
	MaxGenes             int           `mapstructure:"max_genes"`
	MissRefreshThreshold int           `mapstructure:"miss_refresh_threshold"`
}

// RouterConfig holds the confidence router's acceptance criteria.
type RouterConfig struct {
	// AcceptConfidence is the minimum LLM confidence (0-10 scale) required
	// to keep the LLM parse. Kept low so the LLM result is preferred
	// whenever the backend replies at all.
	AcceptConfidence float64 `mapstructure:"accept_confidence"`
	// MaxQueryLength is the input size bound. Oversized queries are
	// rejected with an input error rather than truncated, since truncation
	// can cut a gene symbol in half and produce a confidently wrong parse.
	MaxQueryLength int `mapstructure:"max_query_length"`
}

// LoggingConfig configures structured logging output.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file, environment, and defaults.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/cbioportal-nlq/")

	v.SetEnvPrefix("CBQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using defaults and environment variables
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")

	// LLM defaults
	v.SetDefault("llm.provider", "anthropic")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.request_timeout", "30s")
	v.SetDefault("llm.requests_per_minute", 60)

	// Gene registry defaults
	v.SetDefault("registry.base_url", "https://www.cbioportal.org/api")
	v.SetDefault("registry.fetch_timeout", "30s")
	v.SetDefault("registry.refresh_interval", "24h")
	v.SetDefault("registry.max_genes", 5000)
	v.SetDefault("registry.miss_refresh_threshold", 50)

	// Router defaults
	v.SetDefault("router.accept_confidence", 3.0)
	v.SetDefault("router.max_query_length", 500)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks the configuration for internally consistent values.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	validProviders := map[string]bool{
		"anthropic": true, "openai": true, "ollama": true,
	}
	if !validProviders[strings.ToLower(c.LLM.Provider)] {
		return fmt.Errorf("invalid LLM provider: %s", c.LLM.Provider)
	}
	if c.LLM.RequestTimeout <= 0 {
		return fmt.Errorf("LLM request timeout must be positive")
	}
	if c.LLM.RequestsPerMinute <= 0 {
		return fmt.Errorf("LLM requests per minute must be positive")
	}

	if c.Registry.BaseURL == "" {
		return fmt.Errorf("gene registry base URL is required")
	}
	if c.Registry.MaxGenes <= 0 {
		return fmt.Errorf("registry max genes must be positive")
	}

	if c.Router.AcceptConfidence < 0 || c.Router.AcceptConfidence > 10 {
		return fmt.Errorf("accept confidence must be on the 0-10 scale, got %g", c.Router.AcceptConfidence)
	}
	if c.Router.MaxQueryLength <= 0 {
		return fmt.Errorf("max query length must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	return nil
}

// CredentialsPresent reports whether the selected provider has the
// credential material it needs. Ollama runs locally and needs none.
func (c *Config) CredentialsPresent() bool {
	if strings.ToLower(c.LLM.Provider) == "ollama" {
		return true
	}
	return c.LLM.APIKey != ""
}
