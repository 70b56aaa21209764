package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeQueryType(t *testing.T) {
	tests := []struct {
		input    string
		expected QueryType
	}{
		{"mutations", QueryTypeMutations},
		{"MUTATIONS", QueryTypeMutations},
		{" co_mutation ", QueryTypeCoMutation},
		{"comparison", QueryTypeComparison},
		{"frequency", QueryTypeFrequency},
		{"unknown", QueryTypeUnknown},
		{"expression", QueryTypeUnknown},
		{"", QueryTypeUnknown},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, NormalizeQueryType(tt.input), "input %q", tt.input)
	}
}

func TestConfidenceInRange(t *testing.T) {
	assert.True(t, ConfidenceInRange(0))
	assert.True(t, ConfidenceInRange(10))
	assert.True(t, ConfidenceInRange(7.5))
	assert.False(t, ConfidenceInRange(-0.1))
	assert.False(t, ConfidenceInRange(10.1))
}

func TestParsedQuery_SerializationRoundTrip(t *testing.T) {
	original := &ParsedQuery{
		Genes:       []string{"TP53", "BRCA1"},
		CancerTypes: []string{"breast"},
		QueryType:   QueryTypeCoMutation,
		Filters:     map[string]string{"variant": "V600E"},
		Confidence:  8.5,
		Reasoning:   "two genes with a co-occurrence keyword",
		Source:      SourceLLM,
		Validation: &GeneValidationResult{
			Valid:       []string{"TP53"},
			Invalid:     []string{"BRCA"},
			Suggestions: map[string][]string{"BRCA": {"BRCA1", "BRCA2"}},
			AllValid:    false,
		},
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)

	decoded := &ParsedQuery{}
	require.NoError(t, json.Unmarshal(data, decoded))

	assert.Equal(t, original, decoded)
}

func TestParsedQuery_EmptySlicesSerializeAsArrays(t *testing.T) {
	pq := &ParsedQuery{
		Genes:       []string{},
		CancerTypes: []string{},
		QueryType:   QueryTypeUnknown,
		Source:      SourcePattern,
	}

	data, err := json.Marshal(pq)
	require.NoError(t, err)

	assert.Contains(t, string(data), `"genes":[]`)
	assert.Contains(t, string(data), `"cancer_types":[]`)
	assert.NotContains(t, string(data), `"validation"`)
}
