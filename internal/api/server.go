// Package api provides the thin HTTP surface over the query understanding
// pipeline.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/cbioportal-nlq-server/internal/config"
	"github.com/cbioportal-nlq-server/internal/domain"
	"github.com/cbioportal-nlq-server/internal/genes"
)

// Understander is the query pipeline entry point the server fronts.
type Understander interface {
	Understand(ctx context.Context, text string) (*domain.ParsedQuery, error)
}

// GeneValidator exposes standalone gene validation.
type GeneValidator interface {
	Validate(symbols []string) *domain.GeneValidationResult
}

// Server represents the HTTP server
type Server struct {
	cfg        config.ServerConfig
	router     *gin.Engine
	server     *http.Server
	understand Understander
	validator  GeneValidator
	geneCache  *genes.ReferenceCache
	logger     *logrus.Logger
}

// NewServer creates a new HTTP server instance
func NewServer(cfg config.ServerConfig, understand Understander, validator GeneValidator, geneCache *genes.ReferenceCache, logger *logrus.Logger) *Server {
	if logger.GetLevel() == logrus.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(requestIDMiddleware())

	s := &Server{
		cfg:        cfg,
		router:     router,
		understand: understand,
		validator:  validator,
		geneCache:  geneCache,
		logger:     logger,
	}
	s.setupRoutes()
	return s
}

// Start starts the HTTP server and blocks until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

// Handler exposes the route tree for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/query", s.handleQueryGet)
		v1.POST("/query", s.handleQueryPost)
		v1.GET("/genes", s.handleListGenes)
		v1.POST("/genes/validate", s.handleValidateGenes)
	}
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	snap := s.geneCache.Current()
	c.JSON(http.StatusOK, gin.H{
		"status":        "healthy",
		"timestamp":     time.Now().UTC(),
		"known_genes":   snap.Len(),
		"gene_snapshot": snap.Version(),
	})
}

type queryRequest struct {
	Text string `json:"text" binding:"required"`
}

// handleQueryGet handles browser-friendly GET queries (?text=...).
func (s *Server) handleQueryGet(c *gin.Context) {
	s.processQuery(c, c.Query("text"))
}

// handleQueryPost handles POSTed queries, the preferred form for clients.
func (s *Server) handleQueryPost(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request body must be JSON with a text field"})
		return
	}
	s.processQuery(c, req.Text)
}

func (s *Server) processQuery(c *gin.Context, text string) {
	result, err := s.understand.Understand(c.Request.Context(), text)
	if err != nil {
		var inputErr *domain.InputError
		if errors.As(err, &inputErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": inputErr.Error()})
			return
		}
		// The router contract only surfaces input errors; anything else is
		// a bug worth a 500.
		s.logger.WithError(err).Error("Unexpected error from query router")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, result)
}

type validateGenesRequest struct {
	Genes []string `json:"genes" binding:"required"`
}

// handleValidateGenes validates gene symbols without running a full parse.
func (s *Server) handleValidateGenes(c *gin.Context) {
	var req validateGenesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request body must be JSON with a genes list"})
		return
	}

	c.JSON(http.StatusOK, s.validator.Validate(req.Genes))
}

// handleListGenes returns the current reference gene listing.
func (s *Server) handleListGenes(c *gin.Context) {
	snap := s.geneCache.Current()
	c.JSON(http.StatusOK, gin.H{
		"count":   snap.Len(),
		"genes":   snap.Symbols(),
		"version": snap.Version(),
	})
}

// corsMiddleware adds CORS headers to responses
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// requestIDMiddleware adds a unique request ID to each request
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)
		c.Set("request_id", requestID)
		c.Next()
	}
}
