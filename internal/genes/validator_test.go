package genes

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestValidator(t *testing.T, symbols []string) *Validator {
	t.Helper()
	cache := NewReferenceCache(&stubSource{symbols: symbols}, CacheConfig{}, quietLogger())
	require.NoError(t, cache.Init(context.Background()))

	validator, err := NewValidator(cache, quietLogger())
	require.NoError(t, err)
	return validator
}

func TestValidator_AllValid(t *testing.T) {
	v := newTestValidator(t, FallbackSymbols)

	result := v.Validate([]string{"TP53", "BRCA1"})

	assert.Equal(t, []string{"TP53", "BRCA1"}, result.Valid)
	assert.Empty(t, result.Invalid)
	assert.Empty(t, result.Suggestions)
	assert.True(t, result.AllValid)
}

func TestValidator_NormalizesBeforeLookup(t *testing.T) {
	v := newTestValidator(t, FallbackSymbols)

	result := v.Validate([]string{" tp53 ", "kras"})

	assert.Equal(t, []string{"TP53", "KRAS"}, result.Valid)
	assert.True(t, result.AllValid)
}

func TestValidator_SuggestsCloseMatches(t *testing.T) {
	v := newTestValidator(t, FallbackSymbols)

	result := v.Validate([]string{"BRCAA"})

	require.Equal(t, []string{"BRCAA"}, result.Invalid)
	assert.False(t, result.AllValid)

	suggestions := result.Suggestions["BRCAA"]
	require.NotEmpty(t, suggestions)
	assert.LessOrEqual(t, len(suggestions), 3)
	assert.Contains(t, suggestions, "BRCA1")
	assert.Contains(t, suggestions, "BRCA2")
}

func TestValidator_NoSuggestionsForDistantSymbol(t *testing.T) {
	v := newTestValidator(t, FallbackSymbols)

	result := v.Validate([]string{"ZZZZZZZZ"})

	assert.Equal(t, []string{"ZZZZZZZZ"}, result.Invalid)
	assert.NotContains(t, result.Suggestions, "ZZZZZZZZ")
}

func TestValidator_MixedInput(t *testing.T) {
	v := newTestValidator(t, FallbackSymbols)

	result := v.Validate([]string{"TP53", "NOTAGENE", "EGFR"})

	assert.Equal(t, []string{"TP53", "EGFR"}, result.Valid)
	assert.Equal(t, []string{"NOTAGENE"}, result.Invalid)
	assert.False(t, result.AllValid)
}

func TestValidator_SkipsBlankEntries(t *testing.T) {
	v := newTestValidator(t, FallbackSymbols)

	result := v.Validate([]string{"", "  ", "TP53"})

	assert.Equal(t, []string{"TP53"}, result.Valid)
	assert.Empty(t, result.Invalid)
	assert.True(t, result.AllValid)
}

func TestValidator_EmptyInput(t *testing.T) {
	v := newTestValidator(t, FallbackSymbols)

	result := v.Validate(nil)

	assert.Empty(t, result.Valid)
	assert.Empty(t, result.Invalid)
	assert.True(t, result.AllValid)
}

func TestValidator_Deterministic(t *testing.T) {
	v := newTestValidator(t, FallbackSymbols)

	first := v.Validate([]string{"BRCA", "TPP53"})
	second := v.Validate([]string{"BRCA", "TPP53"})

	assert.Equal(t, first, second)
}

func TestValidator_SuggestionsOrderedClosestFirst(t *testing.T) {
	v := newTestValidator(t, []string{"TP53", "TP63", "TP73"})

	result := v.Validate([]string{"TP5"})

	suggestions := result.Suggestions["TP5"]
	require.NotEmpty(t, suggestions)
	// Only TP53 is within one edit of TP5; the others need two edits and
	// fall below the similarity floor.
	assert.Equal(t, []string{"TP53"}, suggestions)
}
