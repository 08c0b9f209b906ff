// Package filtering narrows the swipe deck before it is shown. Filters never change scores.
package filtering

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/matchmaker/internal/learning"
	"github.com/spigell/matchmaker/internal/vehicle"
)

// Filter represents a single filtering step applied to the deck.
type Filter interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Validate(cfg *Config) error
	Apply(ctx context.Context, deps Deps, v *vehicle.Vehicles) (*vehicle.Vehicles, Step, error)
}

// Deps aggregates the inputs shared across all filtering steps.
type Deps struct {
	Logger      *zap.Logger
	Preferences *vehicle.Preferences
	History     learning.History
}

// Step describes the result of executing a filtering step.
type Step struct {
	Initial int `json:"initial"`
	Dropped int `json:"dropped"`
	Left    int `json:"left"`
}

// Result is the outcome of one step in a run.
type Result struct {
	Name string `json:"name"`
	Step
}

// Config contains configuration settings consumed by the filters.
type Config struct {
	SkipSwiped    bool                `mapstructure:"skip-swiped"`
	BudgetCeiling BudgetCeilingConfig `mapstructure:"budget-ceiling"`
	MustHave      bool                `mapstructure:"must-have"`
	ExcludeFile   string              `mapstructure:"exclude-file"`
}

// BudgetCeilingConfig drops vehicles priced above budget max times Ratio.
type BudgetCeilingConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	Ratio   float64 `mapstructure:"ratio"`
}

// DefaultConfig skips swiped vehicles and leaves the opt-in filters off.
func DefaultConfig() *Config {
	return &Config{
		SkipSwiped:    true,
		BudgetCeiling: BudgetCeilingConfig{Ratio: DefaultCeilingRatio},
	}
}

// Status represents runtime information about a filter.
type Status struct {
	Name    string            `json:"name"`
	Enabled bool              `json:"enabled"`
	Reason  string            `json:"reason,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// statusProvider is implemented by filters that can supply detailed status information.
type statusProvider interface {
	Status() Status
}

// Default returns the standard filter chain in execution order.
func Default() []Filter {
	return []Filter{
		NewAlreadySwiped(),
		NewExcludeFile(),
		NewBudgetCeiling(),
		NewMustHave(),
	}
}

// DisableByName marks a filter with the provided name as disabled while keeping it in the list.
func DisableByName(steps []Filter, name, reason string) {
	for _, step := range steps {
		if step.Name() == name {
			step.Disable(reason)
		}
	}
}

// Run validates every filter against cfg and then applies the enabled ones in order.
func Run(ctx context.Context, cfg *Config, deps Deps, steps []Filter, v *vehicle.Vehicles) (*vehicle.Vehicles, []Result, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	for _, step := range steps {
		if err := step.Validate(cfg); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", step.Name(), err)
		}
	}

	results := make([]Result, 0, len(steps))
	for _, step := range steps {
		if !step.IsEnabled() {
			if deps.Logger != nil {
				deps.Logger.Debug("filter disabled", zap.String("name", step.Name()))
			}
			continue
		}

		next, info, err := step.Apply(ctx, deps, v)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		if deps.Logger != nil {
			deps.Logger.Info("filter step",
				zap.String("name", step.Name()),
				zap.Int("initial", info.Initial),
				zap.Int("dropped", info.Dropped),
				zap.Int("left", info.Left),
			)
		}

		v = next
		results = append(results, Result{Name: step.Name(), Step: info})
	}

	return v, results, nil
}

// Describe returns status entries for the provided filters.
func Describe(steps []Filter) []Status {
	statuses := make([]Status, 0, len(steps))
	for _, step := range steps {
		if reporter, ok := step.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		statuses = append(statuses, Status{
			Name:    step.Name(),
			Enabled: step.IsEnabled(),
		})
	}
	return statuses
}

// toggle is embedded by filters that can be switched off.
type toggle struct {
	disabled bool
	reason   string
}

func (t *toggle) Disable(reason string) {
	t.disabled = true
	t.reason = reason
}

func (t *toggle) IsEnabled() bool { return !t.disabled }
