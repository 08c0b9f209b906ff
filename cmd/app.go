package cmd

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/matchmaker/internal/ai"
	"github.com/spigell/matchmaker/internal/ai/gateway"
	"github.com/spigell/matchmaker/internal/ai/gemini"
	"github.com/spigell/matchmaker/internal/ranking"
	"github.com/spigell/matchmaker/internal/secrets"
	"github.com/spigell/matchmaker/internal/vehicle"
)

func loadInventory(config *Config, logger *zap.Logger) *vehicle.Vehicles {
	inv, err := vehicle.LoadInventory(config.InventoryFile)
	if err != nil {
		logger.Fatal("loading inventory",
			zap.Error(err),
			zap.String("hint", "set MATCHMAKER_INVENTORY_FILE or the 'inventory-file' key, or leave both empty for the sample inventory"),
		)
	}

	logger.Debug("inventory loaded", zap.Int("count", inv.Len()), zap.String("file", config.InventoryFile))
	return inv
}

// newRemoteScorer returns nil when AI scoring is disabled.
func newRemoteScorer(ctx context.Context, cfg *AIConfig, logger *zap.Logger) (ai.Scorer, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}

	variant, err := ai.ParseVariant(cfg.Variant)
	if err != nil {
		return nil, err
	}

	switch provider := strings.TrimSpace(strings.ToLower(cfg.Provider)); provider {
	case "", gemini.Provider:
		return newGeminiScorer(ctx, cfg.Gemini, variant, logger)
	case gateway.Provider:
		return newGatewayScorer(cfg.Gateway, variant, logger)
	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
}

func newGeminiScorer(ctx context.Context, cfg *GeminiConfig, variant ai.Variant, logger *zap.Logger) (ai.Scorer, error) {
	if cfg == nil {
		cfg = &GeminiConfig{}
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		File:  cfg.APIKeyFile,
		Value: cfg.APIKey,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", ai.ErrNotConfigured, err)
	}

	genLogger := logger.With(
		zap.String("provider", gemini.Provider),
		zap.String("model", cfg.Model),
		zap.Int("ai_retry_attempts", cfg.MaxRetries),
	)

	generator, err := gemini.NewGenerator(ctx, gemini.Config{
		APIKey:          apiKey,
		Model:           cfg.Model,
		MaxRetries:      cfg.MaxRetries,
		MaxOutputTokens: variant.MaxTokens(),
	}, genLogger)
	if err != nil {
		return nil, err
	}

	return gemini.NewScorer(generator, variant, logger, cfg.MaxLogLength), nil
}

func newGatewayScorer(cfg *GatewayConfig, variant ai.Variant, logger *zap.Logger) (ai.Scorer, error) {
	if cfg == nil {
		cfg = &GatewayConfig{}
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gateway api key",
		File:  cfg.APIKeyFile,
		Value: cfg.APIKey,
		Env:   "GATEWAY_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w (set ai.gateway.api-key-file or GATEWAY_API_KEY_FILE)", ai.ErrNotConfigured, err)
	}

	client, err := gateway.NewClient(gateway.Config{
		URL:    cfg.URL,
		APIKey: apiKey,
		Model:  cfg.Model,
	})
	if err != nil {
		return nil, err
	}

	return gateway.NewScorer(client, variant, logger, cfg.MaxLogLength), nil
}

// newRanker wires the remote scorer when it is configured. A broken AI setup
// degrades to deterministic ranking with a warning, never a failure.
func newRanker(ctx context.Context, config *Config, logger *zap.Logger) (*ranking.Ranker, ai.Scorer) {
	remote, err := newRemoteScorer(ctx, config.AI, logger)
	if err != nil {
		logger.Warn("AI scoring disabled, using standard scores", zap.Error(err))
		remote = nil
	}

	return &ranking.Ranker{
		Remote:         remote,
		BatchSize:      config.AI.BatchSize,
		BatchDelay:     config.AI.BatchDelay,
		RequestTimeout: config.AI.RequestTimeout,
		Learning:       config.Scoring.ColorLearning,
		Logger:         logger,
	}, remote
}
