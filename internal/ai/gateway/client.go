// Package gateway talks to an OpenAI-compatible chat completions endpoint.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spigell/matchmaker/internal/ai"
)

const (
	DefaultURL   = "https://ai.gateway.lovable.dev/v1/chat/completions"
	DefaultModel = "google/gemini-2.5-flash"

	defaultTemperature = 0.3
	defaultTimeout     = 30 * time.Second
	maxErrorBody       = 512
)

// Config holds the gateway connection settings.
type Config struct {
	URL         string
	APIKey      string
	Model       string
	Temperature float64
	HTTPClient  *http.Client
}

// Client sends chat completion requests.
type Client struct {
	httpClient  *http.Client
	url         string
	apiKey      string
	model       string
	temperature float64
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func NewClient(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("gateway api key: %w", ai.ErrNotConfigured)
	}

	c := &Client{
		httpClient:  cfg.HTTPClient,
		url:         strings.TrimSpace(cfg.URL),
		apiKey:      apiKey,
		model:       strings.TrimSpace(cfg.Model),
		temperature: cfg.Temperature,
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: defaultTimeout}
	}
	if c.url == "" {
		c.url = DefaultURL
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if c.temperature <= 0 {
		c.temperature = defaultTemperature
	}
	return c, nil
}

// Complete sends the system and user messages and returns the first choice's content.
func (c *Client) Complete(ctx context.Context, system, user string, maxTokens int) (string, error) {
	if c == nil {
		return "", ai.ErrNotConfigured
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: c.temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gateway request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", &ai.StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("%w: decode gateway response: %v", ai.ErrBadReply, err)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("%w: gateway returned no choices", ai.ErrBadReply)
	}

	return decoded.Choices[0].Message.Content, nil
}

func (c *Client) Model() string {
	if c == nil {
		return ""
	}
	return c.model
}
