package filtering

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/matchmaker/internal/vehicle"
)

// Excluded is the on-disk list of vehicles the buyer never wants to see again.
type Excluded struct {
	Items []*ExcludedVehicle `json:"items"`
}

type ExcludedVehicle struct {
	ID         string    `json:"id"`
	Name       string    `json:"name,omitempty"`
	Color      string    `json:"color,omitempty"`
	ExcludedAt time.Time `json:"excluded_at"`
}

// ReadExcluded loads an exclude file. A missing or empty file is an empty list.
func ReadExcluded(path string) (*Excluded, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Excluded{}, nil
	}
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return &Excluded{}, nil
	}

	var excluded Excluded
	if err := json.Unmarshal(data, &excluded); err != nil {
		return nil, fmt.Errorf("decoding %q: %w", path, err)
	}
	return &excluded, nil
}

func (e *Excluded) IDs() []string {
	ids := make([]string, 0, len(e.Items))
	for _, item := range e.Items {
		ids = append(ids, item.ID)
	}
	return ids
}

// Add appends vehicles that are not in the list yet.
func (e *Excluded) Add(vs ...*vehicle.Vehicle) int {
	seen := make(map[string]struct{}, len(e.Items))
	for _, item := range e.Items {
		seen[item.ID] = struct{}{}
	}

	added := 0
	for _, v := range vs {
		if v == nil {
			continue
		}
		if _, ok := seen[v.ID]; ok {
			continue
		}
		seen[v.ID] = struct{}{}
		e.Items = append(e.Items, &ExcludedVehicle{
			ID:         v.ID,
			Name:       v.DisplayName(),
			Color:      v.ExtColor,
			ExcludedAt: time.Now().UTC(),
		})
		added++
	}
	return added
}

func (e *Excluded) ToFile(path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(e)
}

// AppendExcluded adds vehicles to the exclude file at path and returns how many were new.
func AppendExcluded(path string, vs ...*vehicle.Vehicle) (int, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return 0, errors.New("exclude file path is empty")
	}

	excluded, err := ReadExcluded(path)
	if err != nil {
		return 0, err
	}

	added := excluded.Add(vs...)
	if added == 0 {
		return 0, nil
	}
	if err := excluded.ToFile(path); err != nil {
		return 0, fmt.Errorf("writing exclude file: %w", err)
	}
	return added, nil
}

type excludeFileFilter struct {
	toggle
	path string
}

// NewExcludeFile creates a filter that removes vehicles listed in the exclude file.
func NewExcludeFile() Filter {
	return &excludeFileFilter{}
}

func (f *excludeFileFilter) Name() string { return "exclude_file" }

func (f *excludeFileFilter) Validate(cfg *Config) error {
	f.path = strings.TrimSpace(cfg.ExcludeFile)
	if f.path == "" {
		f.Disable("no exclude file configured")
	}
	return nil
}

func (f *excludeFileFilter) Apply(_ context.Context, deps Deps, v *vehicle.Vehicles) (*vehicle.Vehicles, Step, error) {
	initial := v.Len()

	excluded, err := ReadExcluded(f.path)
	if err != nil {
		return v, Step{}, fmt.Errorf("getting excluded vehicles from file: %w", err)
	}

	removed := v.Exclude(excluded.IDs())
	if deps.Logger != nil && len(removed) > 0 {
		deps.Logger.Info("excluding vehicles based on exclude file",
			zap.String("path", f.path),
			zap.Strings("excluded_vehicles", removed),
			zap.Int("vehicles_left", v.Len()),
		)
	}

	return v, Step{Initial: initial, Dropped: len(removed), Left: v.Len()}, nil
}

func (f *excludeFileFilter) Status() Status {
	details := map[string]string{}
	if f.path != "" {
		details["path"] = f.path
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
