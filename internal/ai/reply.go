package ai

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// DefaultScore is used when a reply carries no integer at all.
const DefaultScore = 50

var firstInt = regexp.MustCompile(`\d+`)

// ExtractScore returns the first integer literal in raw clamped to [0, 100], or DefaultScore.
func ExtractScore(raw string) int {
	m := firstInt.FindString(raw)
	if m == "" {
		return DefaultScore
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		// Too many digits for an int is still far above the ceiling.
		return 100
	}
	return clampScore(float64(n))
}

// ParseReply turns a model reply into an assessment.
// A JSON object {"score": .., "reasoning": ..} is read as such, anything else goes through ExtractScore.
func ParseReply(raw string) (*Assessment, error) {
	cleaned := extractJSON(raw)
	if cleaned == "" {
		return nil, fmt.Errorf("%w: empty reply", ErrBadReply)
	}

	if !strings.HasPrefix(cleaned, "{") {
		return &Assessment{Score: ExtractScore(cleaned), Raw: raw}, nil
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadReply, err)
	}

	score := coerceFloat(data["score"])
	if math.IsNaN(score) {
		score = coerceFloat(data["match_score"])
	}
	if math.IsNaN(score) {
		return nil, fmt.Errorf("%w: score is missing", ErrBadReply)
	}

	return &Assessment{
		Score:     clampScore(score),
		Reasoning: coerceString(data["reasoning"]),
		Raw:       raw,
	}, nil
}

func clampScore(v float64) int {
	return int(math.Min(100, math.Max(0, math.Floor(v+0.5))))
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case nil:
		return ""
	default:
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}
