// Package genes holds the gene reference cache and the gene validator.
package genes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// SymbolSource supplies the authoritative gene symbol listing for the
// reference cache.
type SymbolSource interface {
	FetchSymbols(ctx context.Context) ([]string, error)
}

// RegistryClient fetches the gene listing from the cBioPortal genes API.
type RegistryClient struct {
	baseURL    string
	httpClient *http.Client
	rateLimit  *rate.Limiter
	maxGenes   int
	logger     *logrus.Logger
}

// RegistryConfig configures the registry client.
type RegistryConfig struct {
	BaseURL  string
	Timeout  time.Duration
	MaxGenes int
}

type geneRecord struct {
	HugoGeneSymbol string `json:"hugoGeneSymbol"`
	EntrezGeneID   int    `json:"entrezGeneId"`
	Type           string `json:"type"`
}

// NewRegistryClient creates a gene registry client.
func NewRegistryClient(config RegistryConfig, logger *logrus.Logger) *RegistryClient {
	if config.BaseURL == "" {
		config.BaseURL = "https://www.cbioportal.org/api"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxGenes == 0 {
		config.MaxGenes = 5000
	}

	return &RegistryClient{
		baseURL: config.BaseURL,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimit: rate.NewLimiter(rate.Limit(3), 1),
		maxGenes:  config.MaxGenes,
		logger:    logger,
	}
}

// FetchSymbols retrieves gene symbols from the registry, capped at the
// configured maximum.
func (c *RegistryClient) FetchSymbols(ctx context.Context) ([]string, error) {
	if err := c.rateLimit.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}

	url := c.baseURL + "/genes"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "cbioportal-nlq-server/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("gene registry returned status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var records []geneRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	symbols := make([]string, 0, len(records))
	for _, rec := range records {
		if rec.HugoGeneSymbol == "" {
			continue
		}
		symbols = append(symbols, rec.HugoGeneSymbol)
		if len(symbols) >= c.maxGenes {
			break
		}
	}

	c.logger.WithField("count", len(symbols)).Info("Fetched gene symbols from registry")
	return symbols, nil
}

// FallbackSymbols is the built-in list of common cancer genes used when the
// registry cannot be reached at startup.
var FallbackSymbols = []string{
	"TP53", "BRCA1", "BRCA2", "EGFR", "KRAS", "PIK3CA", "BRAF",
	"PTEN", "APC", "RB1", "NF1", "CDKN2A", "MTOR", "FGFR3",
	"ALK", "ROS1", "MET", "NRAS", "HRAS", "ERBB2", "MYC",
	"ATM", "CHEK2", "PALB2", "CDH1", "STK11", "SMAD4", "VHL",
}
