package gemini

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
const Provider = "gemini"

const defaultMaxLogLength = 200

type contentGenerator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
	Model() string
}

// Scorer asks Gemini for a match score.
type Scorer struct {
	generator contentGenerator
	variant   ai.Variant
	logger    *zap.Logger
	maxLogLen int
}

func NewScorer(generator contentGenerator, variant ai.Variant, log *zap.Logger, maxLogLength int) *Scorer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if variant == "" {
		variant = ai.VariantGrade
	}

	return &Scorer{
		generator: generator,
		variant:   variant,
		logger:    logger.WithProvider(log, Provider, generator.Model()),
		maxLogLen: maxLogLength,
	}
}

func (s *Scorer) Name() string {
	return Provider
}

func (s *Scorer) Score(ctx context.Context, req *ai.Request) (*ai.Assessment, error) {
	if s == nil || s.generator == nil {
		return nil, ai.ErrNotConfigured
	}

	system, user, err := ai.BuildPrompt(s.variant, req)
	if err != nil {
		return nil, fmt.Errorf("build prompt: %w", err)
	}

	log := s.logger.With(logger.VehicleFields(req.Vehicle)...)

	log.Debug("gemini score request",
		zap.String("variant", string(s.variant)),
		zap.Int("prompt_length", utf8.RuneCountInString(user)),
		zap.String("prompt_preview", utils.TruncateForLog(user, s.maxLogLen)),
	)

	raw, err := s.generator.GenerateContent(ctx, system, user)
	if err != nil {
		return nil, err
	}

	log.Debug("gemini score response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, s.maxLogLen)),
	)

	assessment, err := ai.ParseReply(raw)
	if err != nil {
		return nil, err
	}
	assessment.Source = Provider

	return assessment, nil
}
