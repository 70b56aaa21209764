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
	openAIDefaultBaseURL = "https://api.openai.com/v1/chat/completions"
	openAIDefaultModel   = "gpt-4o-mini"
	openAITemperature    = 0.3
	openAIMaxTokens      = 1024
)

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// OpenAIClient sends prompts to the OpenAI chat completions API.
type OpenAIClient struct {
	httpClient *http.Client
	apiKey     string
	model      string
	baseURL    string
}

// NewOpenAIClient creates an OpenAI adapter. Empty model and baseURL fall
// back to defaults.
func NewOpenAIClient(apiKey, model, baseURL string) *OpenAIClient {
	if model == "" {
		model = openAIDefaultModel
	}
	if baseURL == "" {
		baseURL = openAIDefaultBaseURL
	}
	return &OpenAIClient{
		httpClient: &http.Client{},
		apiKey:     apiKey,
		model:      model,
		baseURL:    baseURL,
	}
}

// Name implements the Provider interface
func (o *OpenAIClient) Name() string { return "openai" }

// Complete implements the Provider interface
func (o *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	reqPayload := openAIRequest{
		Model:       o.model,
		Temperature: openAITemperature,
		MaxTokens:   openAIMaxTokens,
		Messages: []openAIMessage{
			{Role: "user", Content: prompt},
		},
	}

	reqBody, err := json.Marshal(reqPayload)
	if err != nil {
		return "", domain.NewProviderError(o.Name(), fmt.Errorf("marshaling request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL, bytes.NewReader(reqBody))
	if err != nil {
		return "", domain.NewProviderError(o.Name(), fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
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

	var apiResp openAIResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", domain.NewProviderError(o.Name(), fmt.Errorf("parsing response JSON: %w", err))
	}
	if apiResp.Error != nil {
		return "", domain.NewProviderError(o.Name(), fmt.Errorf("API error: %s - %s", apiResp.Error.Type, apiResp.Error.Message))
	}

	if len(apiResp.Choices) == 0 || apiResp.Choices[0].Message.Content == "" {
		return "", &domain.EmptyReplyError{Provider: o.Name()}
	}

	return apiResp.Choices[0].Message.Content, nil
}
