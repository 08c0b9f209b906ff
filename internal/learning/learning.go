// Package learning derives per-color like/dislike signals from swipe history.
package learning

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spigell/matchmaker/internal/vehicle"
)

const (
	// SuppressAt is the number of passes on a color that caps its signal.
	SuppressAt = 3
	// BoostAt is the number of likes on a color that floors its signal.
	BoostAt = 3
	// DislikeCeiling caps a suppressed color on the normalized 0..1 scale.
	DislikeCeiling = 0.25
	// LikeFloor is the minimum for a boosted color on the normalized 0..1 scale.
	LikeFloor = 0.85

	// SummaryLimit is how many history entries are summarized for the remote scorer.
	SummaryLimit = 5
)

// History is the ordered record of accepted and rejected vehicle ids.
type History struct {
	Favorites []string `json:"favorites" mapstructure:"favorites"`
	Passes    []string `json:"passes" mapstructure:"passes"`
}

// Clone returns a copy that does not share backing arrays.
func (h History) Clone() History {
	return History{
		Favorites: append([]string(nil), h.Favorites...),
		Passes:    append([]string(nil), h.Passes...),
	}
}

// Counts is how many liked and passed vehicles share a color.
type Counts struct {
	Likes    int `json:"likes"`
	Dislikes int `json:"dislikes"`
}

// Signal is the learning context for one vehicle.
type Signal struct {
	Exterior Counts `json:"exterior"`
	Interior Counts `json:"interior"`
}

// Tally keeps color counts up to date as swipes are recorded.
// Colors are keyed by their exact string.
type Tally struct {
	mu       sync.RWMutex
	exterior map[string]Counts
	interior map[string]Counts
}

func NewTally() *Tally {
	return &Tally{
		exterior: make(map[string]Counts),
		interior: make(map[string]Counts),
	}
}

// FromHistory builds a tally by resolving history ids against the inventory.
// Ids missing from the inventory are skipped.
func FromHistory(h History, idx vehicle.Index) *Tally {
	t := NewTally()
	for _, id := range h.Favorites {
		if v, ok := idx[id]; ok {
			t.Record(v, true)
		}
	}
	for _, id := range h.Passes {
		if v, ok := idx[id]; ok {
			t.Record(v, false)
		}
	}
	return t
}

// Record adds a swipe on v.
func (t *Tally) Record(v *vehicle.Vehicle, liked bool) {
	t.apply(v, liked, 1)
}

// Forget removes a previously recorded swipe on v.
func (t *Tally) Forget(v *vehicle.Vehicle, liked bool) {
	t.apply(v, liked, -1)
}

func (t *Tally) apply(v *vehicle.Vehicle, liked bool, delta int) {
	if v == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	bump(t.exterior, v.ExtColor, liked, delta)
	bump(t.interior, v.IntColor, liked, delta)
}

func bump(m map[string]Counts, color string, liked bool, delta int) {
	c := m[color]
	if liked {
		c.Likes = max(0, c.Likes+delta)
	} else {
		c.Dislikes = max(0, c.Dislikes+delta)
	}
	if c == (Counts{}) {
		delete(m, color)
		return
	}
	m[color] = c
}

// Exterior returns the counts for an exterior color.
func (t *Tally) Exterior(color string) Counts {
	if t == nil {
		return Counts{}
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.exterior[color]
}

// Interior returns the counts for an interior color.
func (t *Tally) Interior(color string) Counts {
	if t == nil {
		return Counts{}
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.interior[color]
}

// Signal returns the learning context for v.
func (t *Tally) Signal(v *vehicle.Vehicle) Signal {
	if v == nil {
		return Signal{}
	}
	return Signal{
		Exterior: t.Exterior(v.ExtColor),
		Interior: t.Interior(v.IntColor),
	}
}

// Adjust applies the learning clamp to a normalized 0..1 value.
// A disliked color is capped first; a liked color is floored after.
func Adjust(base float64, c Counts) float64 {
	x := base
	if c.Dislikes >= SuppressAt {
		x = min(x, DislikeCeiling)
	}
	if c.Likes >= BoostAt {
		x = max(x, LikeFloor)
	}
	return x
}

// Summaries renders up to limit history entries as Model(body,powertrain,color).
// Ids that are not in the inventory are rendered as is.
func Summaries(ids []string, idx vehicle.Index, limit int) []string {
	if limit <= 0 || limit > len(ids) {
		limit = len(ids)
	}

	out := make([]string, 0, limit)
	for _, id := range ids[:limit] {
		v, ok := idx[id]
		if !ok {
			out = append(out, id)
			continue
		}
		out = append(out, fmt.Sprintf("%s(%s,%s,%s)", v.Model, v.BodyStyle, v.Powertrain, v.ExtColor))
	}
	return out
}

// SummaryLine joins summaries, or returns "none" when there are none.
func SummaryLine(ids []string, idx vehicle.Index) string {
	s := Summaries(ids, idx, SummaryLimit)
	if len(s) == 0 {
		return "none"
	}
	return strings.Join(s, ", ")
}
