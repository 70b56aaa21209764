package parser

import (
	"fmt"
	"strings"

	"github.com/cbioportal-nlq-server/internal/domain"
)

// knownGeneSymbols is the fixed gene table scanned by the fallback parser,
// in scan order.
var knownGeneSymbols = []string{
	"TP53", "BRCA1", "BRCA2", "EGFR", "KRAS", "PTEN", "PIK3CA",
	"APC", "RB1", "NF1", "CDKN2A", "BRAF", "MTOR", "FGFR3",
	"ALK", "ROS1", "MET", "NRAS", "HRAS", "ERBB2", "MYC",
	"ATM", "CHEK2", "PALB2", "CDH1", "STK11", "SMAD4", "VHL",
}

// cancerTypeEntry maps a canonical cancer type to the keywords that detect
// it. Entries are scanned in order.
type cancerTypeEntry struct {
	name     string
	keywords []string
}

var cancerTypeTable = []cancerTypeEntry{
	{"breast", []string{"breast", "brca"}},
	{"lung", []string{"lung", "nsclc", "sclc"}},
	{"colorectal", []string{"colorectal", "colon", "crc"}},
	{"ovarian", []string{"ovarian", "ovary"}},
	{"prostate", []string{"prostate"}},
	{"melanoma", []string{"melanoma", "skin"}},
	{"pancreatic", []string{"pancreatic", "pancreas"}},
	{"glioblastoma", []string{"glioblastoma", "gbm", "brain"}},
}

var (
	comparisonKeywords = []string{"compare", "comparison", "versus", " vs ", "vs.", "difference between"}
	frequencyKeywords  = []string{"frequency", "how often", "how common", "prevalence", "percent", "rate of"}
	coMutationKeywords = []string{"co-occur", "co-mutat", "cooccur", "comutat", "together with", "along with"}
)

// Confidence levels assigned by the heuristic: maximal when both a gene and
// a cancer type matched, partial for a single entity kind, near-zero when
// nothing matched (the parse is effectively empty and insufficient to
// query anything).
const (
	confidenceFullMatch  = 10
	confidenceGeneOnly   = 5
	confidenceCancerOnly = 2
	confidenceNoMatch    = 0
)

// PatternParser is the deterministic, network-free fallback parser. Its
// output depends on the input text alone.
type PatternParser struct{}

// NewPatternParser creates a pattern fallback parser.
func NewPatternParser() *PatternParser {
	return &PatternParser{}
}

// Parse scans the text against the fixed gene and cancer-type tables.
//
// Only the first matched gene and the first matched cancer type are kept,
// in scan order. This single-entity policy is a deliberate simplification
// of the fallback path: multi-entity queries are the LLM path's job, and
// the dropped entities are a known product-level gap, not an extraction
// bug to fix here.
func (p *PatternParser) Parse(text string) *domain.ParsedQuery {
	lower := strings.ToLower(text)
	tokens := tokenSet(lower)

	genes := make([]string, 0, 1)
	for _, gene := range knownGeneSymbols {
		if tokens[strings.ToLower(gene)] {
			genes = append(genes, gene)
			break
		}
	}

	cancerTypes := make([]string, 0, 1)
	for _, entry := range cancerTypeTable {
		if containsAny(lower, entry.keywords) {
			cancerTypes = append(cancerTypes, entry.name)
			break
		}
	}

	queryType := domain.QueryTypeMutations
	switch {
	case containsAny(lower, comparisonKeywords):
		queryType = domain.QueryTypeComparison
	case containsAny(lower, frequencyKeywords):
		queryType = domain.QueryTypeFrequency
	case containsAny(lower, coMutationKeywords):
		queryType = domain.QueryTypeCoMutation
	}

	var confidence float64
	var reasoning string
	switch {
	case len(genes) > 0 && len(cancerTypes) > 0:
		confidence = confidenceFullMatch
		reasoning = fmt.Sprintf("pattern match: gene %s in %s cancer", genes[0], cancerTypes[0])
	case len(genes) > 0:
		confidence = confidenceGeneOnly
		reasoning = fmt.Sprintf("pattern match: gene %s, no cancer type detected", genes[0])
	case len(cancerTypes) > 0:
		confidence = confidenceCancerOnly
		reasoning = fmt.Sprintf("pattern match: cancer type %s, no gene detected", cancerTypes[0])
	default:
		confidence = confidenceNoMatch
		reasoning = "pattern match: no known gene or cancer type detected"
	}

	return &domain.ParsedQuery{
		Genes:       genes,
		CancerTypes: cancerTypes,
		QueryType:   queryType,
		Filters:     map[string]string{},
		Confidence:  confidence,
		Reasoning:   reasoning,
		Source:      domain.SourcePattern,
	}
}

// tokenSet splits lowered text on non-alphanumeric boundaries. Genes are
// matched per token rather than by substring so that e.g. MET does not
// fire on "metastatic".
func tokenSet(lower string) map[string]bool {
	fields := strings.FieldsFunc(lower, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[f] = true
	}
	return set
}

func containsAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
