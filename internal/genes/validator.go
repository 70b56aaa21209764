package genes

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/agext/levenshtein"
	lru "github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"

	"github.com/cbioportal-nlq-server/internal/domain"
)

const (
	maxSuggestions = 3
	minSimilarity  = 0.7

	suggestionCacheSize = 1024
)

// Validator checks gene symbols against the reference cache and produces
// fuzzy-matched correction candidates for unknown ones. Validation never
// touches the network; identical input against a fixed snapshot always
// yields identical output.
type Validator struct {
	cache       *ReferenceCache
	suggestions *lru.Cache
	simParams   *levenshtein.Params
	logger      *logrus.Logger
}

// NewValidator creates a gene validator backed by the reference cache.
func NewValidator(cache *ReferenceCache, logger *logrus.Logger) (*Validator, error) {
	suggestions, err := lru.New(suggestionCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create suggestion cache: %w", err)
	}

	return &Validator{
		cache:       cache,
		suggestions: suggestions,
		simParams:   levenshtein.NewParams(),
		logger:      logger,
	}, nil
}

// Validate partitions the symbols into valid and invalid sets against the
// current reference snapshot and attaches up to three suggestions per
// invalid symbol, closest matches first.
func (v *Validator) Validate(symbols []string) *domain.GeneValidationResult {
	snap := v.cache.Current()

	result := &domain.GeneValidationResult{
		Valid:       make([]string, 0, len(symbols)),
		Invalid:     make([]string, 0),
		Suggestions: make(map[string][]string),
	}

	for _, raw := range symbols {
		symbol := strings.ToUpper(strings.TrimSpace(raw))
		if symbol == "" {
			continue
		}

		if snap.Contains(symbol) {
			result.Valid = append(result.Valid, symbol)
			continue
		}

		result.Invalid = append(result.Invalid, symbol)
		v.cache.NoteMiss(context.Background())

		if matches := v.suggest(snap, symbol); len(matches) > 0 {
			result.Suggestions[symbol] = matches
		}
	}

	result.AllValid = len(result.Invalid) == 0
	if !result.AllValid {
		v.logger.WithFields(logrus.Fields{
			"invalid":          result.Invalid,
			"snapshot_version": snap.Version(),
		}).Debug("Gene validation found unknown symbols")
	}
	return result
}

type scoredSymbol struct {
	symbol string
	score  float64
}

// suggest ranks reference symbols by similarity to the unknown one.
// Lookups are memoized per snapshot version.
func (v *Validator) suggest(snap *Snapshot, symbol string) []string {
	cacheKey := fmt.Sprintf("v%d:%s", snap.Version(), symbol)
	if cached, ok := v.suggestions.Get(cacheKey); ok {
		return cached.([]string)
	}

	scored := make([]scoredSymbol, 0, maxSuggestions)
	for _, candidate := range snap.Symbols() {
		score := levenshtein.Similarity(symbol, candidate, v.simParams)
		if score >= minSimilarity {
			scored = append(scored, scoredSymbol{symbol: candidate, score: score})
		}
	}

	// Closest first; ties break lexicographically for determinism.
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].symbol < scored[j].symbol
	})

	if len(scored) > maxSuggestions {
		scored = scored[:maxSuggestions]
	}
	matches := make([]string, len(scored))
	for i, s := range scored {
		matches[i] = s.symbol
	}

	v.suggestions.Add(cacheKey, matches)
	return matches
}
