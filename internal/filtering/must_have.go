package filtering

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/matchmaker/internal/vehicle"
)

type mustHaveFilter struct {
	toggle
}

// NewMustHave creates a filter that removes vehicles missing any must-have feature.
func NewMustHave() Filter {
	return &mustHaveFilter{}
}

func (f *mustHaveFilter) Name() string { return "must_have" }

func (f *mustHaveFilter) Validate(cfg *Config) error {
	if !cfg.MustHave {
		f.Disable(disabledInConfigMsg)
	}
	return nil
}

func (f *mustHaveFilter) Apply(_ context.Context, deps Deps, v *vehicle.Vehicles) (*vehicle.Vehicles, Step, error) {
	initial := v.Len()
	if deps.Preferences == nil || len(deps.Preferences.FeaturesMust) == 0 {
		return v, Step{Initial: initial, Left: initial}, nil
	}

	required := deps.Preferences.FeaturesMust
	excluded := v.RemoveFunc(func(item *vehicle.Vehicle) bool {
		for _, feature := range required {
			if !item.HasFeature(feature) {
				return true
			}
		}
		return false
	})
	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Debug("excluding vehicles without must-have features",
			zap.String("features", strings.Join(required, ",")),
			zap.Strings("excluded_vehicles", excluded),
			zap.Int("vehicles_left", v.Len()),
		)
	}

	return v, Step{Initial: initial, Dropped: len(excluded), Left: v.Len()}, nil
}

func (f *mustHaveFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason}
}
