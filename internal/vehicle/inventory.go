package vehicle

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/spigell/matchmaker/internal/validation"
)

const inventoryKey = "vehicles"

//go:embed inventory.json
var defaultInventory []byte

// Vehicles is an ordered collection of inventory records.
type Vehicles struct {
	Items []*Vehicle `json:"vehicles"`
}

// Index resolves vehicle ids without scanning.
type Index map[string]*Vehicle

// LoadInventory reads an inventory file (json, yaml or toml) with a top-level "vehicles" list.
func LoadInventory(path string) (*Vehicles, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return DefaultInventory()
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading inventory %q: %w", path, err)
	}

	vehicles, err := decodeInventory(v.Get(inventoryKey))
	if err != nil {
		return nil, fmt.Errorf("inventory %q: %w", path, err)
	}
	return vehicles, nil
}

// DefaultInventory returns the embedded sample inventory.
func DefaultInventory() (*Vehicles, error) {
	v := viper.New()
	v.SetConfigType("json")
	if err := v.ReadConfig(bytes.NewReader(defaultInventory)); err != nil {
		return nil, fmt.Errorf("reading embedded inventory: %w", err)
	}

	vehicles, err := decodeInventory(v.Get(inventoryKey))
	if err != nil {
		return nil, fmt.Errorf("embedded inventory: %w", err)
	}
	return vehicles, nil
}

func decodeInventory(raw any) (*Vehicles, error) {
	if raw == nil {
		return nil, fmt.Errorf("%q list is missing", inventoryKey)
	}

	var items []*Vehicle
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &items,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("decoding vehicles: %w", err)
	}

	seen := make(map[string]struct{}, len(items))
	for i, item := range items {
		if item == nil {
			return nil, fmt.Errorf("vehicle #%d is empty", i)
		}
		item.ID = strings.TrimSpace(item.ID)
		if err := validation.Struct(item); err != nil {
			return nil, fmt.Errorf("vehicle #%d (%s): %w", i, item.ID, err)
		}
		if _, dup := seen[item.ID]; dup {
			return nil, fmt.Errorf("duplicate vehicle id %q", item.ID)
		}
		seen[item.ID] = struct{}{}
	}

	return &Vehicles{Items: items}, nil
}

func (v *Vehicles) Len() int {
	if v == nil {
		return 0
	}
	return len(v.Items)
}

func (v *Vehicles) FindByID(id string) *Vehicle {
	if v == nil {
		return nil
	}
	for _, item := range v.Items {
		if item.ID == id {
			return item
		}
	}
	return nil
}

func (v *Vehicles) IDs() []string {
	ids := make([]string, 0, v.Len())
	if v == nil {
		return ids
	}
	for _, item := range v.Items {
		ids = append(ids, item.ID)
	}
	return ids
}

// Index builds an id lookup over the collection.
func (v *Vehicles) Index() Index {
	idx := make(Index, v.Len())
	if v == nil {
		return idx
	}
	for _, item := range v.Items {
		idx[item.ID] = item
	}
	return idx
}

// Clone deep-copies every record so callers can score without touching the source.
func (v *Vehicles) Clone() *Vehicles {
	if v == nil {
		return &Vehicles{}
	}
	items := make([]*Vehicle, 0, len(v.Items))
	for _, item := range v.Items {
		items = append(items, item.Clone())
	}
	return &Vehicles{Items: items}
}

// Exclude removes the given ids, keeping the order of the rest, and returns the removed ids.
func (v *Vehicles) Exclude(ids []string) []string {
	if len(ids) == 0 || v.Len() == 0 {
		return nil
	}

	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	return v.RemoveFunc(func(item *Vehicle) bool {
		_, ok := drop[item.ID]
		return ok
	})
}

// RemoveFunc removes every vehicle for which fn returns true and returns the removed ids.
func (v *Vehicles) RemoveFunc(fn func(*Vehicle) bool) []string {
	var removed []string
	kept := v.Items[:0]
	for _, item := range v.Items {
		if fn(item) {
			removed = append(removed, item.ID)
			continue
		}
		kept = append(kept, item)
	}
	for i := len(kept); i < len(v.Items); i++ {
		v.Items[i] = nil
	}
	v.Items = kept
	return removed
}

// SortByScore orders by descending match score, ties by id.
func (v *Vehicles) SortByScore() {
	sort.SliceStable(v.Items, func(i, j int) bool {
		if v.Items[i].MatchScore != v.Items[j].MatchScore {
			return v.Items[i].MatchScore > v.Items[j].MatchScore
		}
		return v.Items[i].ID < v.Items[j].ID
	})
}

// ReportByBodyStyle groups listings by body style for a quick overview.
func (v *Vehicles) ReportByBodyStyle() map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	if v == nil {
		return report
	}
	for _, item := range v.Items {
		key := item.BodyStyle
		if key == "" {
			key = "unknown"
		}
		report[key] = append(report[key], map[string]string{
			"id":          item.ID,
			"name":        item.DisplayName(),
			"price":       fmt.Sprintf("%.0f", item.Price),
			"powertrain":  item.Powertrain.String(),
			"drivetrain":  item.Drivetrain.String(),
			"color":       item.ExtColor,
			"match_score": fmt.Sprintf("%d", item.MatchScore),
		})
	}
	return report
}

func (v *Vehicles) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "vehicles_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return file.Name(), nil
}
