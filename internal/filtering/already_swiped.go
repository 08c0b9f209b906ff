package filtering

import (
	"context"

	"go.uber.org/zap"

	"github.com/spigell/matchmaker/internal/vehicle"
)

const disabledInConfigMsg = "disabled in config"

type alreadySwipedFilter struct {
	toggle
}

// NewAlreadySwiped creates a filter that removes vehicles the buyer already liked or passed.
func NewAlreadySwiped() Filter {
	return &alreadySwipedFilter{}
}

func (f *alreadySwipedFilter) Name() string { return "already_swiped" }

func (f *alreadySwipedFilter) Validate(cfg *Config) error {
	if !cfg.SkipSwiped {
		f.Disable(disabledInConfigMsg)
	}
	return nil
}

func (f *alreadySwipedFilter) Apply(_ context.Context, deps Deps, v *vehicle.Vehicles) (*vehicle.Vehicles, Step, error) {
	initial := v.Len()

	ids := make([]string, 0, len(deps.History.Favorites)+len(deps.History.Passes))
	ids = append(ids, deps.History.Favorites...)
	ids = append(ids, deps.History.Passes...)

	excluded := v.Exclude(ids)
	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Debug("excluding already swiped vehicles",
			zap.Strings("excluded_vehicles", excluded),
			zap.Int("vehicles_left", v.Len()),
		)
	}

	return v, Step{Initial: initial, Dropped: len(excluded), Left: v.Len()}, nil
}

func (f *alreadySwipedFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason}
}
