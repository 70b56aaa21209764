package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/cbioportal-nlq-server/internal/domain"
)

const (
	ollamaDefaultBaseURL = "http://localhost:11434"
	ollamaDefaultModel   = "llama3.1:8b"
)

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

// OllamaClient sends prompts to a local Ollama instance. No API key is
// needed.
type OllamaClient struct {
	httpClient *http.Client
	model      string
	baseURL    string
}

// NewOllamaClient creates an Ollama adapter.
func NewOllamaClient(model, baseURL string) *OllamaClient {
	if model == "" {
		model = ollamaDefaultModel
	}
	if baseURL == "" {
		baseURL = ollamaDefaultBaseURL
	}
	return &OllamaClient{
		httpClient: &http.Client{},
		model:      model,
		baseURL:    baseURL,
	}
}

// Name implements the Provider interface
func (o *OllamaClient) Name() string { return "ollama" }

// Complete implements the Provider interface
func (o *OllamaClient) Complete(ctx context.Context, prompt string) (string, error) {
	reqPayload := ollamaRequest{
		Model:  o.model,
		Prompt: prompt,
		Stream: false,
	}

	reqBody, err := json.Marshal(reqPayload)
	if err != nil {
		return "", domain.NewProviderError(o.Name(), fmt.Errorf("marshaling request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/generate", bytes.NewReader(reqBody))
	if err != nil {
		return "", domain.NewProviderError(o.Name(), fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", domain.NewProviderError(o.Name(), fmt.Errorf("HTTP request failed: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", domain.NewProviderError(o.Name(), fmt.Errorf("reading response body (status %d): %w", resp.StatusCode, err))
	}

	if resp.StatusCode != http.StatusOK {
		return "", domain.NewProviderError(o.Name(), fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body)))
	}

	var apiResp ollamaResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", domain.NewProviderError(o.Name(), fmt.Errorf("parsing response JSON: %w", err))
	}
	if apiResp.Error != "" {
		return "", domain.NewProviderError(o.Name(), fmt.Errorf("API error: %s", apiResp.Error))
	}

	if apiResp.Response == "" {
		return "", &domain.EmptyReplyError{Provider: o.Name()}
	}

	return apiResp.Response, nil
}
