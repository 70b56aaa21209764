package llm

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/cbioportal-nlq-server/internal/config"
)

// NewProvider builds the configured backend adapter, wrapped with the
// process-wide request throttle and a circuit breaker. Selection happens
// once at startup; there is no runtime provider switching.
func NewProvider(cfg config.LLMConfig, logger *logrus.Logger) (Provider, error) {
	var base Provider

	switch strings.ToLower(cfg.Provider) {
	case "anthropic":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("anthropic provider requires an API key")
		}
		base = NewAnthropicClient(cfg.APIKey, cfg.Model, cfg.BaseURL)
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai provider requires an API key")
		}
		base = NewOpenAIClient(cfg.APIKey, cfg.Model, cfg.BaseURL)
	case "ollama":
		base = NewOllamaClient(cfg.Model, cfg.BaseURL)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.Provider)
	}

	logger.WithFields(logrus.Fields{
		"provider":            base.Name(),
		"requests_per_minute": cfg.RequestsPerMinute,
	}).Info("Configured LLM provider")

	throttled := NewThrottledProvider(base, cfg.RequestsPerMinute)
	return NewBreakerProvider(throttled, logger), nil
}
