// Package session holds the state of one buyer's swipe session: preferences,
// swipe history with undo, the color tally and the current ranking.
package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/matchmaker/internal/learning"
	"github.com/spigell/matchmaker/internal/logger"
	"github.com/spigell/matchmaker/internal/metrics"
	"github.com/spigell/matchmaker/internal/ranking"
	"github.com/spigell/matchmaker/internal/vehicle"
)

var (
	ErrUnknownVehicle = errors.New("unknown vehicle")
	ErrAlreadySwiped  = errors.New("vehicle already swiped")
	ErrNothingToUndo  = errors.New("nothing to undo")
	ErrNotInList      = errors.New("vehicle is not in that list")
	// ErrSuperseded is returned when a later ranking started before this one finished.
	ErrSuperseded = errors.New("ranking superseded by a newer one")
)

// Ranker scores the deck. *ranking.Ranker implements it.
type Ranker interface {
	Rank(ctx context.Context, in ranking.Input) (*ranking.Result, error)
}

// Swipe is one recorded decision.
type Swipe struct {
	VehicleID string `json:"vehicle_id"`
	Liked     bool   `json:"liked"`
}

// Snapshot is a read-only view of a session.
type Snapshot struct {
	ID          string               `json:"id"`
	Preferences *vehicle.Preferences `json:"preferences"`
	History     learning.History     `json:"swipeHistory"`
	Remaining   int                  `json:"remaining"`
	Report      ranking.Report       `json:"report"`
}

// Controller owns one session. All methods are safe for concurrent use.
type Controller struct {
	id        string
	inventory *vehicle.Vehicles
	ranker    Ranker
	logger    *zap.Logger

	mu sync.RWMutex
	// generation counts ranking runs; only the latest one may commit.
	generation uint64
	prefs      *vehicle.Preferences
	history    learning.History
	undo       []Swipe
	tally      *learning.Tally
	ranked     *vehicle.Vehicles
	reasoning  map[string]string
	report     ranking.Report
}

// New starts a session over inv with default preferences. A nil ranker scores deterministically.
func New(inv *vehicle.Vehicles, ranker Ranker, log *zap.Logger) *Controller {
	if inv == nil {
		inv = &vehicle.Vehicles{}
	}
	if ranker == nil {
		ranker = &ranking.Ranker{}
	}
	if log == nil {
		log = zap.NewNop()
	}

	id := uuid.NewString()
	c := &Controller{
		id:        id,
		inventory: inv,
		ranker:    ranker,
		logger:    log.With(zap.String(logger.FieldSessionID, id)),
		prefs:     vehicle.DefaultPreferences(),
		tally:     learning.NewTally(),
		reasoning: map[string]string{},
	}

	// The deterministic ranker never fails on a live context.
	res, err := (&ranking.Ranker{}).Rank(context.Background(), ranking.Input{
		Preferences: c.prefs,
		Inventory:   inv,
		Tally:       c.tally,
	})
	if err == nil {
		c.ranked = res.Vehicles
		c.report = res.Report
	} else {
		c.ranked = inv.Clone()
	}

	return c
}

func (c *Controller) ID() string {
	return c.id
}

// Preferences returns a copy of the current preferences.
func (c *Controller) Preferences() *vehicle.Preferences {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.prefs.Clone()
}

// History returns a copy of the swipe history in swipe order.
func (c *Controller) History() learning.History {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.history.Clone()
}

func (c *Controller) Favorites() []string {
	return c.History().Favorites
}

func (c *Controller) Passes() []string {
	return c.History().Passes
}

// Ranked returns a copy of the full ranked list, swiped vehicles included.
func (c *Controller) Ranked() *vehicle.Vehicles {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ranked.Clone()
}

// Reasoning returns the remote scorer's explanation for a vehicle, if any.
func (c *Controller) Reasoning(id string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.reasoning[id]
}

// Deck returns the ranked vehicles that have not been swiped yet.
func (c *Controller) Deck() *vehicle.Vehicles {
	c.mu.RLock()
	defer c.mu.RUnlock()

	deck := c.ranked.Clone()
	deck.Exclude(c.swipedLocked())
	return deck
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	swiped := c.swipedLocked()
	remaining := 0
	for _, v := range c.ranked.Items {
		if !slices.Contains(swiped, v.ID) {
			remaining++
		}
	}

	return Snapshot{
		ID:          c.id,
		Preferences: c.prefs.Clone(),
		History:     c.history.Clone(),
		Remaining:   remaining,
		Report:      c.report,
	}
}

// SetPreferences re-ranks the inventory for p and commits p together with the
// new ranking. On error the previous preferences and ranking stay. A nil p
// resets to the defaults.
func (c *Controller) SetPreferences(ctx context.Context, p *vehicle.Preferences) (ranking.Report, error) {
	if p == nil {
		p = vehicle.DefaultPreferences()
	}
	return c.rank(ctx, p.Clone())
}

// Rerank scores the inventory again with the current preferences and history.
func (c *Controller) Rerank(ctx context.Context) (ranking.Report, error) {
	return c.rank(ctx, nil)
}

// rank runs the ranker without holding the lock. The result is dropped with
// ErrSuperseded when another run started in the meantime.
func (c *Controller) rank(ctx context.Context, prefs *vehicle.Preferences) (ranking.Report, error) {
	c.mu.Lock()
	c.generation++
	gen := c.generation
	if prefs == nil {
		prefs = c.prefs.Clone()
	}
	in := ranking.Input{
		Preferences: prefs,
		History:     c.history.Clone(),
		Inventory:   c.inventory,
		Tally:       c.tally,
	}
	c.mu.Unlock()

	res, err := c.ranker.Rank(ctx, in)
	if err != nil {
		return ranking.Report{}, fmt.Errorf("rank session %s: %w", c.id, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		c.logger.Debug("dropping stale ranking", zap.Uint64("generation", gen), zap.Uint64("current", c.generation))
		return ranking.Report{}, fmt.Errorf("rank session %s: %w", c.id, ErrSuperseded)
	}

	c.prefs = prefs
	c.ranked = res.Vehicles
	c.reasoning = res.Reasoning
	c.report = res.Report

	c.logger.Debug("session re-ranked",
		zap.Int("total", res.Report.Total),
		zap.Int("remote", res.Report.Remote),
		zap.Int("fallback", res.Report.Fallback),
	)

	return res.Report, nil
}

// Favorite records a like on the vehicle.
func (c *Controller) Favorite(id string) error {
	return c.swipe(id, true)
}

// Pass records a pass on the vehicle.
func (c *Controller) Pass(id string) error {
	return c.swipe(id, false)
}

func (c *Controller) swipe(id string, liked bool) error {
	v := c.inventory.FindByID(id)
	if v == nil {
		return fmt.Errorf("%w: %s", ErrUnknownVehicle, id)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if slices.Contains(c.swipedLocked(), id) {
		return fmt.Errorf("%w: %s", ErrAlreadySwiped, id)
	}

	kind := metrics.SwipePass
	if liked {
		c.history.Favorites = append(c.history.Favorites, id)
		kind = metrics.SwipeFavorite
	} else {
		c.history.Passes = append(c.history.Passes, id)
	}
	c.tally.Record(v, liked)
	c.undo = append(c.undo, Swipe{VehicleID: id, Liked: liked})
	metrics.SwipesTotal.WithLabelValues(kind).Inc()

	c.logger.Debug("swipe recorded", append(logger.VehicleFields(v), zap.Bool("liked", liked))...)
	return nil
}

// Undo reverts the most recent swipe and returns it.
func (c *Controller) Undo() (Swipe, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.undo) == 0 {
		return Swipe{}, ErrNothingToUndo
	}

	last := c.undo[len(c.undo)-1]
	c.undo = c.undo[:len(c.undo)-1]

	if last.Liked {
		c.history.Favorites = removeLast(c.history.Favorites, last.VehicleID)
	} else {
		c.history.Passes = removeLast(c.history.Passes, last.VehicleID)
	}
	c.tally.Forget(c.inventory.FindByID(last.VehicleID), last.Liked)
	metrics.SwipesTotal.WithLabelValues(metrics.SwipeUndo).Inc()

	return last, nil
}

// RemoveFavorite takes any liked vehicle off the favorites and returns it to the deck.
func (c *Controller) RemoveFavorite(id string) error {
	return c.unswipe(id, true)
}

// RestorePass takes any passed vehicle off the passes and returns it to the deck.
func (c *Controller) RestorePass(id string) error {
	return c.unswipe(id, false)
}

func (c *Controller) unswipe(id string, liked bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	list, kind := &c.history.Passes, metrics.SwipeRestore
	if liked {
		list, kind = &c.history.Favorites, metrics.SwipeRemove
	}
	if !slices.Contains(*list, id) {
		return fmt.Errorf("%w: %s", ErrNotInList, id)
	}

	*list = slices.DeleteFunc(*list, func(s string) bool { return s == id })
	c.undo = slices.DeleteFunc(c.undo, func(s Swipe) bool { return s.VehicleID == id && s.Liked == liked })
	c.tally.Forget(c.inventory.FindByID(id), liked)
	metrics.SwipesTotal.WithLabelValues(kind).Inc()

	return nil
}

func (c *Controller) swipedLocked() []string {
	return append(slices.Clone(c.history.Favorites), c.history.Passes...)
}

func removeLast(ids []string, id string) []string {
	for i := len(ids) - 1; i >= 0; i-- {
		if ids[i] == id {
			return slices.Delete(ids, i, i+1)
		}
	}
	return ids
}
