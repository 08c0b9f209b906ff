package filtering

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spigell/matchmaker/internal/learning"
	"github.com/spigell/matchmaker/internal/vehicle"
)

func deck() *vehicle.Vehicles {
	return &vehicle.Vehicles{Items: []*vehicle.Vehicle{
		{ID: "a", Price: 30000, KeyFeatures: []string{"Heated Seats", "Sunroof"}},
		{ID: "b", Price: 47000, KeyFeatures: []string{"heated seats"}},
		{ID: "c", Price: 49000, KeyFeatures: []string{"Sunroof"}},
		{ID: "d", Price: 61000, KeyFeatures: []string{"Heated Seats"}},
	}}
}

func TestRunDefaultConfigSkipsSwiped(t *testing.T) {
	deps := Deps{
		Logger:  zap.NewNop(),
		History: learning.History{Favorites: []string{"a"}, Passes: []string{"c", "zzz"}},
	}

	out, results, err := Run(context.Background(), nil, deps, Default(), deck())
	require.NoError(t, err)

	assert.Equal(t, []string{"b", "d"}, out.IDs())
	require.Len(t, results, 1)
	assert.Equal(t, Result{Name: "already_swiped", Step: Step{Initial: 4, Dropped: 2, Left: 2}}, results[0])
}

func TestRunSkipSwipedOff(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SkipSwiped = false
	deps := Deps{History: learning.History{Favorites: []string{"a"}}}

	out, results, err := Run(context.Background(), cfg, deps, Default(), deck())
	require.NoError(t, err)

	assert.Equal(t, 4, out.Len())
	assert.Empty(t, results)
}

func TestBudgetCeiling(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BudgetCeiling.Enabled = true
	deps := Deps{Preferences: &vehicle.Preferences{BudgetTotal: vehicle.Budget{Max: vehicle.Float(40000)}}}

	out, _, err := Run(context.Background(), cfg, deps, []Filter{NewBudgetCeiling()}, deck())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, out.IDs(), "48000 is the ceiling")

	out, _, err = Run(context.Background(), cfg, Deps{Preferences: &vehicle.Preferences{}}, []Filter{NewBudgetCeiling()}, deck())
	require.NoError(t, err)
	assert.Equal(t, 4, out.Len(), "no max budget keeps everything")

	cfg.BudgetCeiling.Ratio = 0.5
	_, _, err = Run(context.Background(), cfg, deps, []Filter{NewBudgetCeiling()}, deck())
	assert.ErrorContains(t, err, "budget_ceiling")
}

func TestMustHave(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MustHave = true
	deps := Deps{Preferences: &vehicle.Preferences{FeaturesMust: []string{"HEATED SEATS"}}}

	out, results, err := Run(context.Background(), cfg, deps, []Filter{NewMustHave()}, deck())
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "d"}, out.IDs())
	assert.Equal(t, 1, results[0].Dropped)
}

func TestExcludeFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "excluded.json")

	added, err := AppendExcluded(path, &vehicle.Vehicle{ID: "b", Model: "Camry"}, &vehicle.Vehicle{ID: "d"})
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	added, err = AppendExcluded(path, &vehicle.Vehicle{ID: "b"})
	require.NoError(t, err)
	assert.Zero(t, added, "duplicates are skipped")

	excluded, err := ReadExcluded(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "d"}, excluded.IDs())
	assert.Equal(t, "Camry", excluded.Items[0].Name)

	cfg := DefaultConfig()
	cfg.ExcludeFile = path
	out, _, err := Run(context.Background(), cfg, Deps{}, []Filter{NewExcludeFile()}, deck())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, out.IDs())
}

func TestReadExcludedEmptyAndMissing(t *testing.T) {
	dir := t.TempDir()

	excluded, err := ReadExcluded(filepath.Join(dir, "missing.json"))
	require.NoError(t, err)
	assert.Empty(t, excluded.Items)

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	excluded, err = ReadExcluded(empty)
	require.NoError(t, err)
	assert.Empty(t, excluded.Items)

	broken := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte("{"), 0o600))
	_, err = ReadExcluded(broken)
	assert.Error(t, err)

	_, err = AppendExcluded("  ")
	assert.Error(t, err)
}

func TestDescribeAndDisableByName(t *testing.T) {
	steps := Default()
	DisableByName(steps, "already_swiped", "swipe history ignored")

	_, _, err := Run(context.Background(), DefaultConfig(), Deps{}, steps, deck())
	require.NoError(t, err)

	statuses := Describe(steps)
	require.Len(t, statuses, 4)

	assert.Equal(t, Status{Name: "already_swiped", Enabled: false, Reason: "swipe history ignored"}, statuses[0])
	assert.Equal(t, "exclude_file", statuses[1].Name)
	assert.False(t, statuses[1].Enabled)
	assert.Equal(t, "1.2", statuses[2].Details["ratio"])
	assert.Equal(t, disabledInConfigMsg, statuses[3].Reason)
}
