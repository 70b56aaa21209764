package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cbioportal-nlq-server/internal/api"
	"github.com/cbioportal-nlq-server/internal/config"
	"github.com/cbioportal-nlq-server/internal/genes"
	"github.com/cbioportal-nlq-server/internal/llm"
	"github.com/cbioportal-nlq-server/internal/logging"
	"github.com/cbioportal-nlq-server/internal/parser"
	"github.com/cbioportal-nlq-server/internal/query"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	logger := logging.New(cfg.Logging)

	if !cfg.CredentialsPresent() {
		logger.Warn("No LLM credentials configured; every query will use the pattern fallback")
	}

	// Gene reference cache: load once at startup, refresh in background.
	registry := genes.NewRegistryClient(genes.RegistryConfig{
		BaseURL:  cfg.Registry.BaseURL,
		Timeout:  cfg.Registry.FetchTimeout,
		MaxGenes: cfg.Registry.MaxGenes,
	}, logger)

	geneCache := genes.NewReferenceCache(registry, genes.CacheConfig{
		RefreshInterval:      cfg.Registry.RefreshInterval,
		MissRefreshThreshold: cfg.Registry.MissRefreshThreshold,
	}, logger)

	initCtx, cancelInit := context.WithTimeout(context.Background(), cfg.Registry.FetchTimeout+5*time.Second)
	if err := geneCache.Init(initCtx); err != nil {
		logger.WithError(err).Warn("Continuing with fallback gene list")
	}
	cancelInit()

	validator, err := genes.NewValidator(geneCache, logger)
	if err != nil {
		log.Fatalf("Failed to create gene validator: %v", err)
	}

	provider, err := llm.NewProvider(cfg.LLM, logger)
	if err != nil {
		log.Fatalf("Failed to configure LLM provider: %v", err)
	}

	router := query.NewRouter(
		parser.NewLLMParser(provider, logger),
		parser.NewPatternParser(),
		validator,
		query.Config{
			AcceptConfidence: cfg.Router.AcceptConfidence,
			MaxQueryLength:   cfg.Router.MaxQueryLength,
			RequestTimeout:   cfg.LLM.RequestTimeout,
		},
		logger,
	)

	server := api.NewServer(cfg.Server, router, validator, geneCache, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	geneCache.Start(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down")
		cancel()
	}()

	logger.Infof("Starting query understanding server on %s:%d", cfg.Server.Host, cfg.Server.Port)
	if err := server.Start(ctx); err != nil {
		log.Fatalf("Server failed: %v", err)
	}

	logger.Info("Server stopped")
}
