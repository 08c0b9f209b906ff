package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/matchmaker/internal/ai"
	"github.com/spigell/matchmaker/internal/learning"
	"github.com/spigell/matchmaker/internal/logger"
	"github.com/spigell/matchmaker/internal/vehicle"
)

type stubGenerator struct {
	response    string
	err         error
	lastSystem  string
	lastMessage string
}

func (s *stubGenerator) GenerateContent(_ context.Context, system, message string) (string, error) {
	s.lastSystem = system
	s.lastMessage = message
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func (s *stubGenerator) Model() string {
	return "stub-model"
}

func testRequest() *ai.Request {
	v := &vehicle.Vehicle{
		ID:         "rav4",
		Model:      "RAV4",
		BodyStyle:  "suv",
		Powertrain: vehicle.PowertrainHybrid,
		Drivetrain: vehicle.DrivetrainAWD,
		Price:      34850,
		ExtColor:   "Midnight Black Metallic",
	}
	inv := &vehicle.Vehicles{Items: []*vehicle.Vehicle{v}}
	return &ai.Request{
		Vehicle:     v,
		Preferences: &vehicle.Preferences{BodyStyle: vehicle.String("suv")},
		History:     learning.History{Favorites: []string{"rav4"}},
		Inventory:   inv.Index(),
	}
}

func TestScorerGradeVariant(t *testing.T) {
	stub := &stubGenerator{response: "82"}
	scorer := NewScorer(stub, ai.VariantGrade, zap.NewNop(), 0)

	assessment, err := scorer.Score(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if assessment.Score != 82 {
		t.Fatalf("expected score 82, got %d", assessment.Score)
	}

	if assessment.Source != Provider {
		t.Fatalf("unexpected source: %q", assessment.Source)
	}

	if !strings.Contains(stub.lastSystem, "Reply with the integer only.") {
		t.Fatalf("expected grade system prompt, got %q", stub.lastSystem)
	}

	if !strings.Contains(stub.lastMessage, "LIKED_VEHICLES_SUMMARY: RAV4(suv,hybrid,Midnight Black Metallic)") {
		t.Fatalf("expected liked summary in message: %s", stub.lastMessage)
	}
}

func TestScorerRubricVariant(t *testing.T) {
	stub := &stubGenerator{response: "```json\n{\"score\": 91, \"reasoning\": \"Body and budget fit\"}\n```"}
	scorer := NewScorer(stub, ai.VariantRubric, zap.NewNop(), 0)

	assessment, err := scorer.Score(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if assessment.Score != 91 || assessment.Reasoning != "Body and budget fit" {
		t.Fatalf("unexpected assessment: %+v", assessment)
	}
}

func TestScorerPropagatesGeneratorError(t *testing.T) {
	stub := &stubGenerator{err: &ai.StatusError{Code: 429}}
	scorer := NewScorer(stub, ai.VariantGrade, zap.NewNop(), 0)

	_, err := scorer.Score(context.Background(), testRequest())
	if !errors.Is(err, ai.ErrRateLimited) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
}

func TestScorerLogsTruncatedPreviews(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)
	stub := &stubGenerator{response: "77"}
	scorer := NewScorer(stub, "", zap.New(core), 10)

	if _, err := scorer.Score(context.Background(), testRequest()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries := observed.FilterMessage("gemini score request").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 request entry, got %d", len(entries))
	}

	ctx := entries[0].ContextMap()
	preview, _ := ctx["prompt_preview"].(string)
	if len([]rune(preview)) != 13 {
		t.Fatalf("expected truncated preview, got %q", preview)
	}
	if ctx[logger.FieldProvider] != Provider || ctx[logger.FieldModel] != "stub-model" {
		t.Fatalf("expected provider fields, got %+v", ctx)
	}
	if ctx[logger.FieldVehicleID] != "rav4" {
		t.Fatalf("expected vehicle id field, got %+v", ctx)
	}
}
