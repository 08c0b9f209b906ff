package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/matchmaker/internal/ai"
	"github.com/spigell/matchmaker/internal/utils"
)

const (
	defaultModel       = "gemini-2.5-flash"
	defaultMaxRetries  = 3
	defaultTemperature = 0.3
	retryDelay         = 2 * time.Second
)

var wait = utils.WaitFor

type chatSession interface {
	SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type chatCreator interface {
	Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error)
}

type genaiChats struct {
	chats *genai.Chats
}

func (c genaiChats) Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error) {
	return c.chats.Create(ctx, model, config, history)
}

// Config holds the Gemini connection settings.
type Config struct {
	APIKey          string
	Model           string
	MaxRetries      int
	Temperature     float32
	MaxOutputTokens int32
}

// Generator sends one system instruction and one message per call and returns the text reply.
type Generator struct {
	chats       chatCreator
	model       string
	maxRetries  int
	temperature float32
	maxTokens   int32
	logger      *zap.Logger
}

// NewGenerator creates a Generator for the Gemini API backend.
func NewGenerator(ctx context.Context, cfg Config, logger *zap.Logger) (*Generator, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key: %w", ai.ErrNotConfigured)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}

	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = defaultMaxRetries
	}

	temperature := cfg.Temperature
	if temperature <= 0 {
		temperature = defaultTemperature
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Generator{
		chats:       genaiChats{chats: client.Chats},
		model:       model,
		maxRetries:  retries,
		temperature: temperature,
		maxTokens:   cfg.MaxOutputTokens,
		logger:      logger,
	}, nil
}

// GenerateContent sends message under the system instruction and returns the joined text parts.
// Temporary server errors are retried; rate limits are returned at once.
func (g *Generator) GenerateContent(ctx context.Context, system, message string) (string, error) {
	if g == nil || g.chats == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	message = strings.TrimSpace(message)
	if message == "" {
		return "", errors.New("message must not be empty")
	}

	attempts := g.maxRetries
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		output, err := g.send(ctx, system, message)
		if err == nil {
			return output, nil
		}
		lastErr = err

		if !isTemporary(err) || attempt == attempts {
			break
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		g.logger.Warn("gemini request failed, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.Error(err),
		)
		if err := wait(ctx, utils.LinearBackoff(attempt, retryDelay)); err != nil {
			return "", err
		}
	}

	return "", mapError(lastErr)
}

func (g *Generator) send(ctx context.Context, system, message string) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(g.temperature),
	}
	if g.maxTokens > 0 {
		config.MaxOutputTokens = g.maxTokens
	}
	if system = strings.TrimSpace(system); system != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}

	chat, err := g.chats.Create(ctx, g.model, config, nil)
	if err != nil {
		return "", fmt.Errorf("create chat: %w", err)
	}

	resp, err := chat.SendMessage(ctx, genai.Part{Text: message})
	if err != nil {
		return "", err
	}

	return joinText(resp)
}

func joinText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("%w: gemini api returned no response", ai.ErrBadReply)
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", fmt.Errorf("%w: gemini api returned empty response", ai.ErrBadReply)
	}

	return output, nil
}

func apiError(err error) (genai.APIError, bool) {
	var val genai.APIError
	if errors.As(err, &val) {
		return val, true
	}
	var ptr *genai.APIError
	if errors.As(err, &ptr) && ptr != nil {
		return *ptr, true
	}
	return genai.APIError{}, false
}

func isTemporary(err error) bool {
	apiErr, ok := apiError(err)
	if !ok {
		return false
	}
	if apiErr.Code >= http.StatusInternalServerError {
		return true
	}
	switch apiErr.Status {
	case "INTERNAL", "UNAVAILABLE", "DEADLINE_EXCEEDED":
		return true
	}
	return false
}

func mapError(err error) error {
	apiErr, ok := apiError(err)
	if !ok {
		return fmt.Errorf("generate content: %w", err)
	}

	switch {
	case apiErr.Code == http.StatusTooManyRequests || apiErr.Status == "RESOURCE_EXHAUSTED":
		return &ai.StatusError{Code: http.StatusTooManyRequests, Body: apiErr.Message}
	case apiErr.Code == http.StatusPaymentRequired:
		return &ai.StatusError{Code: http.StatusPaymentRequired, Body: apiErr.Message}
	default:
		return fmt.Errorf("generate content: %w", &ai.StatusError{Code: apiErr.Code, Body: apiErr.Message})
	}
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}
