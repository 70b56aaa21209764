// Package parser contains the two query parsers: the LLM-backed parser and
// the deterministic pattern fallback.
package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/cbioportal-nlq-server/internal/domain"
	"github.com/cbioportal-nlq-server/internal/llm"
)

// instructionTemplate describes the required output schema to the backend.
// The reply must be a single JSON object with no surrounding prose.
const instructionTemplate = `You are a cancer genomics query parser for cBioPortal. Extract structured information from the user's natural language query.

Your task is to extract:
1. genes: list of gene symbols (e.g., ["TP53", "BRCA1"]) - CORRECT any spelling mistakes
2. cancer_types: list of cancer types (e.g., ["breast", "lung"])
3. query_type: one of "mutations", "co_mutation", "comparison", "frequency", or "unknown"
4. filters: object of additional constraints mentioned (e.g., {"variant": "V600E", "mutation_class": "missense"})
5. confidence: your confidence in this parse on a 0-10 scale
6. reasoning: brief explanation

Common gene symbols: TP53, BRCA1, BRCA2, EGFR, KRAS, PIK3CA, BRAF, PTEN, APC, RB1, NF1, CDKN2A, MTOR, FGFR3, ALK, ROS1, NRAS, HRAS, AKT1, ERBB2

Common cancer types: breast, lung, colorectal, ovarian, prostate, pancreatic, melanoma, glioblastoma

IMPORTANT RULES:
- Fix spelling mistakes (e.g., "TP53 mutaions" means "TP53")
- If only a cancer type is mentioned, leave genes empty
- For unrecognizable genes, return an empty genes list with low confidence
- Extract ALL genes mentioned (e.g., "TP53 and BRCA1" means ["TP53", "BRCA1"])

Respond ONLY with valid JSON in this exact format:
{
    "genes": ["GENE1", "GENE2"],
    "cancer_types": ["type1"],
    "query_type": "mutations",
    "filters": {},
    "confidence": 8,
    "reasoning": "brief explanation"
}

No additional text or explanation outside the JSON.

User query: %q`

// LLMParser parses natural language queries through the configured LLM
// backend. It is provider-agnostic: it depends only on the llm.Provider
// capability.
type LLMParser struct {
	provider llm.Provider
	logger   *logrus.Logger
}

// NewLLMParser creates an LLM query parser.
func NewLLMParser(provider llm.Provider, logger *logrus.Logger) *LLMParser {
	return &LLMParser{
		provider: provider,
		logger:   logger,
	}
}

// Parse sends the query text to the backend and decodes the structured
// reply. A malformed reply is retried exactly once with the same request;
// provider failures are not retried here. Errors are *domain.ProviderError,
// *domain.MalformedResponseError, or *domain.EmptyReplyError.
func (p *LLMParser) Parse(ctx context.Context, text string) (*domain.ParsedQuery, error) {
	prompt := fmt.Sprintf(instructionTemplate, text)

	reply, err := p.provider.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	result, decodeErr := p.decodeReply(reply)
	if decodeErr != nil {
		p.logger.WithFields(logrus.Fields{
			"provider": p.provider.Name(),
			"error":    decodeErr.Error(),
		}).Warn("Malformed LLM reply, retrying once")

		reply, err = p.provider.Complete(ctx, prompt)
		if err != nil {
			return nil, err
		}
		result, decodeErr = p.decodeReply(reply)
		if decodeErr != nil {
			return nil, decodeErr
		}
	}

	result.Source = domain.SourceLLM
	return result, nil
}

// llmReply mirrors the JSON schema the instruction template requests.
// Filters is raw because some backends reply with an array instead of an
// object; a non-object filters value is dropped rather than failing the
// whole parse.
type llmReply struct {
	Genes       []string        `json:"genes"`
	CancerTypes []string        `json:"cancer_types"`
	QueryType   string          `json:"query_type"`
	Filters     json.RawMessage `json:"filters"`
	Confidence  *float64        `json:"confidence"`
	Reasoning   string          `json:"reasoning"`
}

func (p *LLMParser) decodeReply(reply string) (*domain.ParsedQuery, error) {
	payload := stripCodeFences(reply)
	if strings.TrimSpace(payload) == "" {
		return nil, domain.NewMalformedResponseError("reply contains no JSON payload", reply)
	}

	var decoded llmReply
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		return nil, domain.NewMalformedResponseError(fmt.Sprintf("reply is not valid JSON: %v", err), reply)
	}

	if decoded.Confidence == nil {
		return nil, domain.NewMalformedResponseError("confidence is missing", reply)
	}
	if !domain.ConfidenceInRange(*decoded.Confidence) {
		return nil, domain.NewMalformedResponseError(
			fmt.Sprintf("confidence %g is outside the 0-10 scale", *decoded.Confidence), reply)
	}

	genes := make([]string, 0, len(decoded.Genes))
	for _, g := range decoded.Genes {
		if g = strings.ToUpper(strings.TrimSpace(g)); g != "" {
			genes = append(genes, g)
		}
	}
	cancerTypes := make([]string, 0, len(decoded.CancerTypes))
	for _, c := range decoded.CancerTypes {
		if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
			cancerTypes = append(cancerTypes, c)
		}
	}

	filters := map[string]string{}
	if len(decoded.Filters) > 0 {
		// Best effort: ignore filters that are not a string-valued object.
		_ = json.Unmarshal(decoded.Filters, &filters)
	}

	return &domain.ParsedQuery{
		Genes:       genes,
		CancerTypes: cancerTypes,
		QueryType:   domain.NormalizeQueryType(decoded.QueryType),
		Filters:     filters,
		Confidence:  *decoded.Confidence,
		Reasoning:   decoded.Reasoning,
	}, nil
}

// stripCodeFences unwraps a JSON payload from markdown code fences, which
// several backends add despite instructions not to.
func stripCodeFences(s string) string {
	if idx := strings.Index(s, "```json"); idx >= 0 {
		s = s[idx+len("```json"):]
		if end := strings.Index(s, "```"); end >= 0 {
			s = s[:end]
		}
	} else if idx := strings.Index(s, "```"); idx >= 0 {
		s = s[idx+len("```"):]
		if end := strings.Index(s, "```"); end >= 0 {
			s = s[:end]
		}
	}
	return strings.TrimSpace(s)
}
