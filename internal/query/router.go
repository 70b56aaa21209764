// Package query contains the confidence router, the sole entry point of
// the query understanding pipeline.
package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/cbioportal-nlq-server/internal/domain"
)

// LLMQueryParser is the LLM-backed parser the router attempts first.
type LLMQueryParser interface {
	Parse(ctx context.Context, text string) (*domain.ParsedQuery, error)
}

// FallbackParser is the deterministic parser used when the LLM parse is
// unavailable or rejected.
type FallbackParser interface {
	Parse(text string) *domain.ParsedQuery
}

// GeneValidator checks extracted gene symbols against the reference cache.
type GeneValidator interface {
	Validate(symbols []string) *domain.GeneValidationResult
}

// Config holds the router's acceptance criteria.
type Config struct {
	// AcceptConfidence is the minimum LLM confidence (0-10) to keep the
	// LLM parse.
	AcceptConfidence float64
	// MaxQueryLength bounds the input; longer text is rejected, not
	// truncated.
	MaxQueryLength int
	// RequestTimeout bounds the LLM call.
	RequestTimeout time.Duration
}

// Router decides which parse to trust. It attempts the LLM parser,
// validates the outcome, and falls back to the pattern parser when the
// acceptance criteria are not met. A single pass, no loops: the only retry
// in the pipeline is the LLM parser's internal retry on a malformed reply.
type Router struct {
	llm       LLMQueryParser
	fallback  FallbackParser
	validator GeneValidator
	config    Config
	logger    *logrus.Logger
}

// NewRouter creates a confidence router.
func NewRouter(llm LLMQueryParser, fallback FallbackParser, validator GeneValidator, config Config, logger *logrus.Logger) *Router {
	if config.AcceptConfidence == 0 {
		config.AcceptConfidence = 3.0
	}
	if config.MaxQueryLength == 0 {
		config.MaxQueryLength = 500
	}
	if config.RequestTimeout == 0 {
		config.RequestTimeout = 30 * time.Second
	}

	return &Router{
		llm:       llm,
		fallback:  fallback,
		validator: validator,
		config:    config,
		logger:    logger,
	}
}

// Understand turns free text into a structured query. The only error it
// can return is *domain.InputError; every LLM-path failure is recovered by
// the pattern fallback.
func (r *Router) Understand(ctx context.Context, text string) (*domain.ParsedQuery, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, domain.NewInputError("query text is empty")
	}
	if len(trimmed) > r.config.MaxQueryLength {
		return nil, domain.NewInputError(
			fmt.Sprintf("query text exceeds %d characters", r.config.MaxQueryLength))
	}

	log := r.logger.WithField("request_id", uuid.NewString())

	llmCtx, cancel := context.WithTimeout(ctx, r.config.RequestTimeout)
	defer cancel()

	result, err := r.llm.Parse(llmCtx, trimmed)
	if err != nil {
		log.WithError(err).Warn("LLM parse failed, using pattern fallback")
		return r.fallback.Parse(trimmed), nil
	}

	validation := r.validator.Validate(result.Genes)

	if result.Confidence < r.config.AcceptConfidence {
		log.WithFields(logrus.Fields{
			"confidence": result.Confidence,
			"threshold":  r.config.AcceptConfidence,
		}).Info("LLM confidence below threshold, using pattern fallback")
		return r.fallback.Parse(trimmed), nil
	}

	if len(result.Genes) > 0 && len(validation.Valid) == 0 && len(validation.Suggestions) == 0 {
		log.WithField("genes", result.Genes).Info(
			"No extracted gene validated and no suggestions found, using pattern fallback")
		return r.fallback.Parse(trimmed), nil
	}

	// Accept: attach diagnostics without altering the extracted entities.
	result.Validation = validation
	result.Source = domain.SourceLLM

	log.WithFields(logrus.Fields{
		"genes":      result.Genes,
		"query_type": result.QueryType,
		"confidence": result.Confidence,
	}).Debug("LLM parse accepted")

	return result, nil
}
