package ai

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"

	"github.com/spigell/matchmaker/internal/learning"
	"github.com/spigell/matchmaker/internal/vehicle"
)

// Variant selects the system prompt sent to the remote service.
type Variant string

const (
	// VariantGrade asks for a bare integer from a weighted sigmoid over feature signals.
	VariantGrade Variant = "grade"
	// VariantRubric asks for a JSON score and reasoning from a points rubric.
	VariantRubric Variant = "rubric"
)

var (
	//go:embed prompts/grade.md
	gradePrompt string
	//go:embed prompts/rubric.md
	rubricPrompt string
	//go:embed prompts/user.md
	userPrompt string
)

// ParseVariant accepts "grade" or "rubric"; empty selects grade.
func ParseVariant(s string) (Variant, error) {
	switch v := Variant(strings.ToLower(strings.TrimSpace(s))); v {
	case "":
		return VariantGrade, nil
	case VariantGrade, VariantRubric:
		return v, nil
	default:
		return "", fmt.Errorf("unknown prompt variant %q (want grade or rubric)", s)
	}
}

// MaxTokens is the reply budget for the variant.
func (v Variant) MaxTokens() int32 {
	if v == VariantRubric {
		return 256
	}
	return 10
}

// BuildPrompt renders the system instruction and user message for req.
func BuildPrompt(variant Variant, req *Request) (string, string, error) {
	if req == nil || req.Vehicle == nil {
		return "", "", fmt.Errorf("vehicle is required")
	}

	system := gradePrompt
	if variant == VariantRubric {
		system = rubricPrompt
	}

	prefs := req.Preferences
	if prefs == nil {
		prefs = &vehicle.Preferences{}
	}

	tally := req.Tally
	if tally == nil {
		tally = learning.FromHistory(req.History, req.Inventory)
	}
	sig := tally.Signal(req.Vehicle)
	v := req.Vehicle

	r := strings.NewReplacer(
		"{{BUDGET}}", budget(prefs.BudgetTotal),
		"{{BODY_STYLE}}", pref(prefs.BodyStyle),
		"{{MODEL}}", pref(prefs.Model),
		"{{TRIM}}", pref(prefs.Trim),
		"{{POWERTRAIN}}", pref(prefs.Powertrain),
		"{{DRIVETRAIN}}", pref(prefs.Drivetrain),
		"{{COLOR_EXT}}", pref(prefs.ColorExt),
		"{{COLOR_INT}}", pref(prefs.ColorInt),
		"{{FEATURES_MUST}}", list(prefs.FeaturesMust),
		"{{FEATURES_NICE}}", list(prefs.FeaturesNice),
		"{{VEHICLE_ID}}", strconv.Quote(v.ID),
		"{{VEHICLE_MODEL}}", strconv.Quote(v.Model),
		"{{VEHICLE_TRIM}}", strconv.Quote(v.Trim),
		"{{VEHICLE_BODY_STYLE}}", strconv.Quote(v.BodyStyle),
		"{{VEHICLE_POWERTRAIN}}", strconv.Quote(v.Powertrain.String()),
		"{{VEHICLE_DRIVETRAIN}}", strconv.Quote(v.Drivetrain.String()),
		"{{VEHICLE_PRICE}}", strconv.FormatFloat(v.Price, 'f', -1, 64),
		"{{VEHICLE_EXT_COLOR}}", strconv.Quote(v.ExtColor),
		"{{VEHICLE_INT_COLOR}}", strconv.Quote(v.IntColor),
		"{{VEHICLE_FEATURES}}", list(v.KeyFeatures),
		"{{TOTAL_FAVORITES}}", strconv.Itoa(len(req.History.Favorites)),
		"{{TOTAL_PASSES}}", strconv.Itoa(len(req.History.Passes)),
		"{{EXT_LIKED}}", strconv.Itoa(sig.Exterior.Likes),
		"{{EXT_DISLIKED}}", strconv.Itoa(sig.Exterior.Dislikes),
		"{{INT_LIKED}}", strconv.Itoa(sig.Interior.Likes),
		"{{INT_DISLIKED}}", strconv.Itoa(sig.Interior.Dislikes),
		"{{LIKED_SUMMARY}}", learning.SummaryLine(req.History.Favorites, req.Inventory),
		"{{PASSED_SUMMARY}}", learning.SummaryLine(req.History.Passes, req.Inventory),
	)

	return strings.TrimSpace(system), r.Replace(userPrompt), nil
}

// maxValueRunes caps any single buyer-provided value placed into the prompt.
const maxValueRunes = 120

var bracketReplacer = strings.NewReplacer("[", "(", "]", ")", "{", "(", "}", ")")

// sanitizeLine keeps buyer input on one line and out of the prompt's own syntax.
func sanitizeLine(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = bracketReplacer.Replace(s)
	if runes := []rune(s); len(runes) > maxValueRunes {
		s = string(runes[:maxValueRunes])
	}
	return s
}

func pref(s *string) string {
	v, ok := vehicle.Pref(s)
	if !ok {
		return `"no preference"`
	}
	return strconv.Quote(sanitizeLine(v))
}

func list(items []string) string {
	quoted := make([]string, 0, len(items))
	for _, item := range items {
		if item = sanitizeLine(item); item == "" {
			continue
		}
		quoted = append(quoted, strconv.Quote(item))
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func budget(b vehicle.Budget) string {
	minV, _ := b.MinValue()
	out := fmt.Sprintf("{ min: %.0f, max: ", minV)
	if maxV, ok := b.MaxValue(); ok {
		return out + fmt.Sprintf("%.0f }", maxV)
	}
	return out + "unlimited }"
}
