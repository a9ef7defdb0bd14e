package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// groqMessage is one chat message in the OpenAI-compatible wire format
type groqMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type groqResponseFormat struct {
	Type string `json:"type"`
}

type groqRequest struct {
	Model          string              `json:"model"`
	Messages       []groqMessage       `json:"messages"`
	Temperature    float64             `json:"temperature"`
	MaxTokens      int64               `json:"max_tokens,omitempty"`
	ResponseFormat *groqResponseFormat `json:"response_format,omitempty"`
}

type groqResponse struct {
	Choices []struct {
		Message groqMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// GroqClient implements Client against an OpenAI-compatible chat completions endpoint.
type GroqClient struct {
	httpClient *http.Client
	config     *Config
	apiKey     string
}

// NewGroqClient creates a Groq client. A nil httpClient uses a client with a 60s timeout.
func NewGroqClient(config *Config, apiKey string, httpClient *http.Client) (*GroqClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &GroqClient{httpClient: httpClient, config: config, apiKey: apiKey}, nil
}

// GenerateContent generates text content using the specified model tier
func (c *GroqClient) GenerateContent(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	return c.complete(ctx, prompt, tier, nil)
}

// GenerateJSON sets response_format to json_object
func (c *GroqClient) GenerateJSON(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	return c.complete(ctx, prompt, tier, &groqResponseFormat{Type: "json_object"})
}

func (c *GroqClient) complete(ctx context.Context, prompt string, tier ModelTier, format *groqResponseFormat) (string, error) {
	modelName, err := modelFor(c.config, tier)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(groqRequest{
		Model:          modelName,
		Messages:       []groqMessage{{Role: "user", Content: prompt}},
		Temperature:    c.config.Temperature,
		MaxTokens:      c.config.MaxTokens,
		ResponseFormat: format,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	baseURL := c.config.BaseURL
	if baseURL == "" {
		baseURL = DefaultGroqBaseURL
	}
	url := strings.TrimSuffix(baseURL, "/") + "/chat/completions"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	fail := func(message string, cause error) error {
		return &ProviderError{Provider: ProviderGroq, Model: modelName, Message: message, Cause: cause}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fail("chat completions call failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fail("failed to read response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fail(fmt.Sprintf("chat completions returned %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody))), nil)
	}

	var parsed groqResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fail("failed to decode response", err)
	}
	if parsed.Error != nil {
		return "", fail("chat completions error: "+parsed.Error.Message, nil)
	}
	if len(parsed.Choices) == 0 {
		return "", fail("no choices in response", nil)
	}
	return parsed.Choices[0].Message.Content, nil
}

// GetModel returns the model name for a tier
func (c *GroqClient) GetModel(tier ModelTier) string {
	return c.config.GetModel(tier)
}

// Close releases idle connections
func (c *GroqClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
