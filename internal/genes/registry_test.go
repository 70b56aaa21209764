package genes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryClient_FetchSymbols(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/genes", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"hugoGeneSymbol": "TP53", "entrezGeneId": 7157, "type": "protein-coding"},
			{"hugoGeneSymbol": "BRCA1", "entrezGeneId": 672, "type": "protein-coding"},
			{"hugoGeneSymbol": "", "entrezGeneId": 0, "type": ""},
			{"hugoGeneSymbol": "EGFR", "entrezGeneId": 1956, "type": "protein-coding"}
		]`))
	}))
	defer server.Close()

	client := NewRegistryClient(RegistryConfig{BaseURL: server.URL}, quietLogger())

	symbols, err := client.FetchSymbols(context.Background())
	require.NoError(t, err)

	// Records without a symbol are skipped.
	assert.Equal(t, []string{"TP53", "BRCA1", "EGFR"}, symbols)
}

func TestRegistryClient_CapsListing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"hugoGeneSymbol": "TP53"},
			{"hugoGeneSymbol": "BRCA1"},
			{"hugoGeneSymbol": "EGFR"}
		]`))
	}))
	defer server.Close()

	client := NewRegistryClient(RegistryConfig{BaseURL: server.URL, MaxGenes: 2}, quietLogger())

	symbols, err := client.FetchSymbols(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"TP53", "BRCA1"}, symbols)
}

func TestRegistryClient_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream maintenance", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewRegistryClient(RegistryConfig{BaseURL: server.URL}, quietLogger())

	_, err := client.FetchSymbols(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestRegistryClient_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer server.Close()

	client := NewRegistryClient(RegistryConfig{BaseURL: server.URL}, quietLogger())

	_, err := client.FetchSymbols(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}
