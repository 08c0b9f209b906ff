// Package scoring implements the deterministic points-based match scorer.
//
// Every category awards full points when the buyer has no preference for it,
// so a profile with nothing set scores 90 for any vehicle. The model bonus can
// push the raw total above 100; the result is clamped.
package scoring

import (
	"math"

	"github.com/spigell/matchmaker/internal/learning"
	"github.com/spigell/matchmaker/internal/vehicle"
)

const (
	BodyStylePoints     = 20
	PricePoints         = 25
	PowertrainPoints    = 20
	DrivetrainPoints    = 10
	ExteriorColorPoints = 15
	ModelBonusPoints    = 10

	// FamilyColorPoints is the partial credit for a color of the same family.
	FamilyColorPoints = 8
	// UnderBudgetPoints is awarded when the price is well below the minimum budget.
	UnderBudgetPoints = 15

	// PriceDecayBand is the share of max budget over which price points decay to zero.
	PriceDecayBand = 0.15
	// UnderBudgetRatio marks prices below this share of min budget as suspiciously cheap.
	UnderBudgetRatio = 0.8

	MaxScore = 100
)

// Breakdown is the per-category result of a single evaluation.
type Breakdown struct {
	BodyStyle     float64 `json:"body_style"`
	Price         float64 `json:"price"`
	Powertrain    float64 `json:"powertrain"`
	Drivetrain    float64 `json:"drivetrain"`
	ExteriorColor float64 `json:"exterior_color"`
	ModelBonus    float64 `json:"model_bonus"`

	Color ColorMatchKind `json:"-"`

	// Raw is the unclamped sum.
	Raw   float64 `json:"raw"`
	Total int     `json:"total"`
}

// Option tunes an evaluation.
type Option func(*options)

type options struct {
	colorLearning *learning.Counts
}

// WithColorLearning adjusts the exterior color points by the swipe counts for the vehicle color.
func WithColorLearning(c learning.Counts) Option {
	return func(o *options) {
		o.colorLearning = &c
	}
}

// Score returns the match score of v against p in [0, 100].
func Score(v *vehicle.Vehicle, p *vehicle.Preferences, opts ...Option) int {
	return Evaluate(v, p, opts...).Total
}

// Evaluate scores v against p and returns the per-category points.
// Nil preferences behave as an empty profile. A nil vehicle scores zero.
func Evaluate(v *vehicle.Vehicle, p *vehicle.Preferences, opts ...Option) Breakdown {
	if v == nil {
		return Breakdown{}
	}
	if p == nil {
		p = &vehicle.Preferences{}
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	b := Breakdown{
		BodyStyle:  categorical(p.BodyStyle, v.BodyStyle, BodyStylePoints),
		Price:      pricePoints(v.Price, p.BudgetTotal),
		Powertrain: categorical(p.Powertrain, v.Powertrain.String(), PowertrainPoints),
		Drivetrain: categorical(p.Drivetrain, v.Drivetrain.String(), DrivetrainPoints),
	}

	b.ExteriorColor, b.Color = colorPoints(p.ColorExt, v.ExtColor)
	if o.colorLearning != nil {
		x := b.ExteriorColor / ExteriorColorPoints
		b.ExteriorColor = learning.Adjust(x, *o.colorLearning) * ExteriorColorPoints
	}

	if model, ok := vehicle.Pref(p.Model); ok && model == v.Model {
		b.ModelBonus = ModelBonusPoints
	}

	b.Raw = b.BodyStyle + b.Price + b.Powertrain + b.Drivetrain + b.ExteriorColor + b.ModelBonus
	b.Total = clamp(b.Raw)
	return b
}

func categorical(pref *string, actual string, points float64) float64 {
	want, ok := vehicle.Pref(pref)
	if !ok {
		return points
	}
	if want == actual {
		return points
	}
	return 0
}

func pricePoints(price float64, budget vehicle.Budget) float64 {
	if maxBudget, ok := budget.MaxValue(); ok && price > maxBudget {
		over := price - maxBudget
		band := PriceDecayBand * maxBudget
		return math.Max(0, PricePoints*(1-over/band))
	}
	if minBudget, ok := budget.MinValue(); ok && price < minBudget*UnderBudgetRatio {
		return UnderBudgetPoints
	}
	return PricePoints
}

func colorPoints(pref *string, actual string) (float64, ColorMatchKind) {
	want, ok := vehicle.Pref(pref)
	if !ok {
		return ExteriorColorPoints, ColorExact
	}

	switch kind := ColorMatch(want, actual); kind {
	case ColorExact:
		return ExteriorColorPoints, kind
	case ColorFamily:
		return FamilyColorPoints, kind
	default:
		return 0, kind
	}
}

func clamp(raw float64) int {
	if math.IsNaN(raw) {
		return 0
	}
	r := math.Floor(raw + 0.5)
	return int(math.Min(MaxScore, math.Max(0, r)))
}
