package domain

import "strings"

// QueryType classifies the intent of a parsed query.
type QueryType string

const (
	QueryTypeMutations  QueryType = "mutations"
	QueryTypeCoMutation QueryType = "co_mutation"
	QueryTypeComparison QueryType = "comparison"
	QueryTypeFrequency  QueryType = "frequency"
	QueryTypeUnknown    QueryType = "unknown"
)

// NormalizeQueryType maps a free-form query type string onto the closed
// QueryType set. Anything outside the set becomes QueryTypeUnknown.
func NormalizeQueryType(s string) QueryType {
	switch QueryType(strings.ToLower(strings.TrimSpace(s))) {
	case QueryTypeMutations:
		return QueryTypeMutations
	case QueryTypeCoMutation:
		return QueryTypeCoMutation
	case QueryTypeComparison:
		return QueryTypeComparison
	case QueryTypeFrequency:
		return QueryTypeFrequency
	default:
		return QueryTypeUnknown
	}
}

// Source records which parser produced the final structured result.
type Source string

const (
	SourceLLM     Source = "llm"
	SourcePattern Source = "pattern"
)

// ParsedQuery is the structured output of the query understanding pipeline.
// It is created per request and never mutated after the router returns it.
type ParsedQuery struct {
	Genes       []string          `json:"genes"`
	CancerTypes []string          `json:"cancer_types"`
	QueryType   QueryType         `json:"query_type"`
	Filters     map[string]string `json:"filters,omitempty"`
	Confidence  float64           `json:"confidence"`
	Reasoning   string            `json:"reasoning"`
	Source      Source            `json:"source"`

	// Validation carries gene validation diagnostics when the LLM path was
	// accepted. It never alters Genes or CancerTypes.
	Validation *GeneValidationResult `json:"validation,omitempty"`
}

// GeneValidationResult partitions extracted gene symbols into valid and
// invalid sets against the gene reference cache, with fuzzy-matched
// correction candidates for the invalid ones (closest matches first).
type GeneValidationResult struct {
	Valid       []string            `json:"valid"`
	Invalid     []string            `json:"invalid"`
	Suggestions map[string][]string `json:"suggestions,omitempty"`
	AllValid    bool                `json:"all_valid"`
}

// ConfidenceInRange reports whether a confidence score is on the 0-10 scale.
func ConfidenceInRange(c float64) bool {
	return c >= 0 && c <= 10
}
