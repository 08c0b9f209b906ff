package gateway

import (
	"context"
	"fmt"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/matchmaker/internal/ai"
	"github.com/spigell/matchmaker/internal/logger"
	"github.com/spigell/matchmaker/internal/utils"
)

// Provider is the name reported in logs and assessments.
const Provider = "gateway"

const defaultMaxLogLength = 200

type completer interface {
	Complete(ctx context.Context, system, user string, maxTokens int) (string, error)
	Model() string
}

// Scorer asks the gateway for a match score.
type Scorer struct {
	client    completer
	variant   ai.Variant
	logger    *zap.Logger
	maxLogLen int
}

func NewScorer(client completer, variant ai.Variant, log *zap.Logger, maxLogLength int) *Scorer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if variant == "" {
		variant = ai.VariantGrade
	}

	return &Scorer{
		client:    client,
		variant:   variant,
		logger:    logger.WithProvider(log, Provider, client.Model()),
		maxLogLen: maxLogLength,
	}
}

func (s *Scorer) Name() string {
	return Provider
}

func (s *Scorer) Score(ctx context.Context, req *ai.Request) (*ai.Assessment, error) {
	if s == nil || s.client == nil {
		return nil, ai.ErrNotConfigured
	}

	system, user, err := ai.BuildPrompt(s.variant, req)
	if err != nil {
		return nil, fmt.Errorf("build prompt: %w", err)
	}

	log := s.logger.With(logger.VehicleFields(req.Vehicle)...)
	log.Debug("gateway score request",
		zap.String("variant", string(s.variant)),
		zap.Int("prompt_length", utf8.RuneCountInString(user)),
	)

	raw, err := s.client.Complete(ctx, system, user, int(s.variant.MaxTokens()))
	if err != nil {
		return nil, err
	}

	log.Debug("gateway score response",
		zap.String("response_preview", utils.TruncateForLog(raw, s.maxLogLen)),
	)

	assessment, err := ai.ParseReply(raw)
	if err != nil {
		return nil, err
	}
	assessment.Source = Provider

	return assessment, nil
}
