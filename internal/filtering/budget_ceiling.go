package filtering

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/spigell/matchmaker/internal/vehicle"
)

// DefaultCeilingRatio drops vehicles more than 20% above budget max.
const DefaultCeilingRatio = 1.2

type budgetCeilingFilter struct {
	toggle
	ratio float64
}

// NewBudgetCeiling creates a filter that removes vehicles priced far above budget max.
func NewBudgetCeiling() Filter {
	return &budgetCeilingFilter{ratio: DefaultCeilingRatio}
}

func (f *budgetCeilingFilter) Name() string { return "budget_ceiling" }

func (f *budgetCeilingFilter) Validate(cfg *Config) error {
	if !cfg.BudgetCeiling.Enabled {
		f.Disable(disabledInConfigMsg)
		return nil
	}

	f.ratio = cfg.BudgetCeiling.Ratio
	if f.ratio == 0 {
		f.ratio = DefaultCeilingRatio
	}
	if f.ratio < 1 {
		return fmt.Errorf("ratio must be >= 1, got %v", f.ratio)
	}
	return nil
}

func (f *budgetCeilingFilter) Apply(_ context.Context, deps Deps, v *vehicle.Vehicles) (*vehicle.Vehicles, Step, error) {
	initial := v.Len()

	var maxBudget float64
	ok := false
	if deps.Preferences != nil {
		maxBudget, ok = deps.Preferences.BudgetTotal.MaxValue()
	}
	if !ok {
		return v, Step{Initial: initial, Left: initial}, nil
	}

	ceiling := maxBudget * f.ratio
	excluded := v.RemoveFunc(func(item *vehicle.Vehicle) bool {
		return item.Price > ceiling
	})
	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Debug("excluding vehicles above budget ceiling",
			zap.Float64("ceiling", ceiling),
			zap.Strings("excluded_vehicles", excluded),
			zap.Int("vehicles_left", v.Len()),
		)
	}

	return v, Step{Initial: initial, Dropped: len(excluded), Left: v.Len()}, nil
}

func (f *budgetCeilingFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{"ratio": strconv.FormatFloat(f.ratio, 'f', -1, 64)},
	}
}
