package parser

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbioportal-nlq-server/internal/domain"
)

// scriptedProvider replies with a queued sequence of responses and counts
// how many completions were requested.
type scriptedProvider struct {
	replies []string
	errs    []error
	calls   int
}

func (s *scriptedProvider) Name() string { return "scripted" }

func (s *scriptedProvider) Complete(_ context.Context, _ string) (string, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i < len(s.replies) {
		return s.replies[i], nil
	}
	return "", errors.New("scripted provider exhausted")
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

const validReply = `{
	"genes": ["tp53", "BRCA1"],
	"cancer_types": ["Breast"],
	"query_type": "co_mutation",
	"filters": {"variant": "V600E"},
	"confidence": 8.5,
	"reasoning": "two genes with a co-occurrence keyword"
}`

func TestLLMParser_HappyPath(t *testing.T) {
	provider := &scriptedProvider{replies: []string{validReply}}
	p := NewLLMParser(provider, testLogger())

	result, err := p.Parse(context.Background(), "do TP53 and BRCA1 co-occur in breast cancer")
	require.NoError(t, err)

	assert.Equal(t, []string{"TP53", "BRCA1"}, result.Genes)
	assert.Equal(t, []string{"breast"}, result.CancerTypes)
	assert.Equal(t, domain.QueryTypeCoMutation, result.QueryType)
	assert.Equal(t, map[string]string{"variant": "V600E"}, result.Filters)
	assert.Equal(t, 8.5, result.Confidence)
	assert.Equal(t, domain.SourceLLM, result.Source)
	assert.Equal(t, 1, provider.calls)
}

func TestLLMParser_StripsCodeFences(t *testing.T) {
	fenced := "Here is the parse:\n```json\n" + validReply + "\n```\n"
	provider := &scriptedProvider{replies: []string{fenced}}
	p := NewLLMParser(provider, testLogger())

	result, err := p.Parse(context.Background(), "TP53 and BRCA1 in breast cancer")
	require.NoError(t, err)

	assert.Equal(t, []string{"TP53", "BRCA1"}, result.Genes)
	assert.Equal(t, 1, provider.calls)
}

func TestLLMParser_RetriesOnceOnMalformedReply(t *testing.T) {
	provider := &scriptedProvider{replies: []string{"I could not parse that, sorry!", validReply}}
	p := NewLLMParser(provider, testLogger())

	result, err := p.Parse(context.Background(), "TP53 in breast cancer")
	require.NoError(t, err)

	assert.Equal(t, []string{"TP53", "BRCA1"}, result.Genes)
	assert.Equal(t, 2, provider.calls)
}

func TestLLMParser_MalformedTwiceFails(t *testing.T) {
	provider := &scriptedProvider{replies: []string{"not json", "still not json"}}
	p := NewLLMParser(provider, testLogger())

	_, err := p.Parse(context.Background(), "TP53 in breast cancer")

	var malformed *domain.MalformedResponseError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, 2, provider.calls)
}

func TestLLMParser_ProviderErrorIsNotRetried(t *testing.T) {
	cause := domain.NewProviderError("scripted", errors.New("connection refused"))
	provider := &scriptedProvider{errs: []error{cause}}
	p := NewLLMParser(provider, testLogger())

	_, err := p.Parse(context.Background(), "TP53 in breast cancer")

	var provErr *domain.ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, 1, provider.calls)
}

func TestLLMParser_ConfidenceValidation(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"missing confidence", `{"genes": ["TP53"], "query_type": "mutations", "reasoning": "x"}`},
		{"confidence above scale", `{"genes": ["TP53"], "query_type": "mutations", "confidence": 12, "reasoning": "x"}`},
		{"negative confidence", `{"genes": ["TP53"], "query_type": "mutations", "confidence": -1, "reasoning": "x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Same malformed reply twice so the retry also fails.
			provider := &scriptedProvider{replies: []string{tt.reply, tt.reply}}
			p := NewLLMParser(provider, testLogger())

			_, err := p.Parse(context.Background(), "TP53 in breast cancer")

			var malformed *domain.MalformedResponseError
			require.ErrorAs(t, err, &malformed)
		})
	}
}

func TestLLMParser_UnrecognizedQueryTypeBecomesUnknown(t *testing.T) {
	reply := `{"genes": [], "cancer_types": [], "query_type": "expression", "confidence": 2, "reasoning": "not a mutation query"}`
	provider := &scriptedProvider{replies: []string{reply}}
	p := NewLLMParser(provider, testLogger())

	result, err := p.Parse(context.Background(), "PTEN expression levels")
	require.NoError(t, err)

	assert.Equal(t, domain.QueryTypeUnknown, result.QueryType)
}

func TestLLMParser_NonObjectFiltersAreDropped(t *testing.T) {
	reply := `{"genes": ["TP53"], "cancer_types": [], "query_type": "mutations", "filters": ["missense"], "confidence": 6, "reasoning": "x"}`
	provider := &scriptedProvider{replies: []string{reply}}
	p := NewLLMParser(provider, testLogger())

	result, err := p.Parse(context.Background(), "missense TP53 mutations")
	require.NoError(t, err)

	assert.Empty(t, result.Filters)
	assert.Equal(t, []string{"TP53"}, result.Genes)
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"bare json", `{"a": 1}`, `{"a": 1}`},
		{"json fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"plain fence", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"prose around fence", "Sure!\n```json\n{\"a\": 1}\n```\nHope that helps.", `{"a": 1}`},
		{"whitespace", "  {\"a\": 1}  ", `{"a": 1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, stripCodeFences(tt.input))
		})
	}
}
