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
	anthropicAPIVersion     = "2023-06-01"
	anthropicDefaultBaseURL = "https://api.anthropic.com/v1/messages"
	anthropicDefaultModel   = "claude-3-5-sonnet-20241022"
	anthropicMaxTokens      = 1024
)

type anthropicRequest struct {
	Model     string             `json:"model"`
	Messages  []anthropicMessage `json:"messages"`
	MaxTokens int                `json:"max_tokens"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []anthropicContent `json:"content"`
	Error   *anthropicError    `json:"error,omitempty"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type anthropicError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// AnthropicClient sends prompts to the Anthropic messages API.
type AnthropicClient struct {
	httpClient *http.Client
	apiKey     string
	model      string
	baseURL    string
}

// NewAnthropicClient creates an Anthropic adapter. Empty model and baseURL
// fall back to defaults; the base URL override exists for tests against
// a local HTTP server.
func NewAnthropicClient(apiKey, model, baseURL string) *AnthropicClient {
	if model == "" {
		model = anthropicDefaultModel
	}
	if baseURL == "" {
		baseURL = anthropicDefaultBaseURL
	}
	return &AnthropicClient{
		httpClient: &http.Client{},
		apiKey:     apiKey,
		model:      model,
		baseURL:    baseURL,
	}
}

// Name implements the Provider interface
func (a *AnthropicClient) Name() string { return "anthropic" }

// Complete implements the Provider interface
func (a *AnthropicClient) Complete(ctx context.Context, prompt string) (string, error) {
	reqPayload := anthropicRequest{
		Model:     a.model,
		MaxTokens: anthropicMaxTokens,
		Messages: []anthropicMessage{
			{Role: "user", Content: prompt},
		},
	}

	reqBody, err := json.Marshal(reqPayload)
	if err != nil {
		return "", domain.NewProviderError(a.Name(), fmt.Errorf("marshaling request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL, bytes.NewReader(reqBody))
	if err != nil {
		return "", domain.NewProviderError(a.Name(), fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", anthropicAPIVersion)
	req.Header.Set("content-type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", domain.NewProviderError(a.Name(), fmt.Errorf("HTTP request failed: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", domain.NewProviderError(a.Name(), fmt.Errorf("reading response body (status %d): %w", resp.StatusCode, err))
	}

	if resp.StatusCode != http.StatusOK {
		return "", domain.NewProviderError(a.Name(), fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body)))
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", domain.NewProviderError(a.Name(), fmt.Errorf("parsing response JSON: %w", err))
	}
	if apiResp.Error != nil {
		return "", domain.NewProviderError(a.Name(), fmt.Errorf("API error: %s - %s", apiResp.Error.Type, apiResp.Error.Message))
	}

	var text string
	for _, block := range apiResp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return "", &domain.EmptyReplyError{Provider: a.Name()}
	}

	return text, nil
}
