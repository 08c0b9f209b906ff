package scoring

import (
	"github.com/spigell/matchmaker/internal/learning"
	"github.com/spigell/matchmaker/internal/vehicle"
)

// Rank scores a copy of vs and returns it sorted by descending score.
// When tally is non-nil, exterior color points follow the swipe counts.
func Rank(vs *vehicle.Vehicles, p *vehicle.Preferences, tally *learning.Tally) *vehicle.Vehicles {
	ranked := vs.Clone()
	for _, v := range ranked.Items {
		v.MatchScore = Score(v, p, LearningOptions(tally, v)...)
	}
	ranked.SortByScore()
	return ranked
}

// LearningOptions returns the options that apply the tally to v, or none for a nil tally.
func LearningOptions(tally *learning.Tally, v *vehicle.Vehicle) []Option {
	if tally == nil || v == nil {
		return nil
	}
	return []Option{WithColorLearning(tally.Exterior(v.ExtColor))}
}
