// Package vehicle holds the inventory records and user preferences the matchmaker scores.
package vehicle

import "strings"

// Powertrain is the propulsion type of a vehicle.
type Powertrain string

const (
	PowertrainGas          Powertrain = "gas"
	PowertrainHybrid       Powertrain = "hybrid"
	PowertrainPlugInHybrid Powertrain = "plug-in-hybrid"
	PowertrainEV           Powertrain = "ev"
)

// IsValid reports whether the powertrain is one of the known values.
func (p Powertrain) IsValid() bool {
	switch p {
	case PowertrainGas, PowertrainHybrid, PowertrainPlugInHybrid, PowertrainEV:
		return true
	}
	return false
}

func (p Powertrain) String() string {
	return string(p)
}

// Drivetrain is the set of driven wheels.
type Drivetrain string

const (
	DrivetrainFWD Drivetrain = "FWD"
	DrivetrainAWD Drivetrain = "AWD"
	DrivetrainRWD Drivetrain = "RWD"
	Drivetrain4WD Drivetrain = "4WD"
)

// IsValid reports whether the drivetrain is one of the known values.
func (d Drivetrain) IsValid() bool {
	switch d {
	case DrivetrainFWD, DrivetrainAWD, DrivetrainRWD, Drivetrain4WD:
		return true
	}
	return false
}

func (d Drivetrain) String() string {
	return string(d)
}

// Dealer is the optional listing location.
type Dealer struct {
	Name          string  `json:"name" mapstructure:"name"`
	City          string  `json:"city" mapstructure:"city"`
	State         string  `json:"state" mapstructure:"state"`
	DistanceMiles float64 `json:"distance_miles" mapstructure:"distance_miles"`
}

// Vehicle is an inventory record. MatchScore is an output field owned by the scorer.
type Vehicle struct {
	ID          string     `json:"id" mapstructure:"id" validate:"required"`
	Title       string     `json:"title,omitempty" mapstructure:"title"`
	Subtitle    string     `json:"subtitle,omitempty" mapstructure:"subtitle"`
	Price       float64    `json:"price" mapstructure:"price" validate:"gte=0"`
	BodyStyle   string     `json:"body_style" mapstructure:"body_style"`
	Powertrain  Powertrain `json:"powertrain" mapstructure:"powertrain" validate:"oneof=gas hybrid plug-in-hybrid ev"`
	Drivetrain  Drivetrain `json:"drivetrain" mapstructure:"drivetrain" validate:"oneof=FWD AWD RWD 4WD"`
	ExtColor    string     `json:"ext_color" mapstructure:"ext_color"`
	IntColor    string     `json:"int_color" mapstructure:"int_color"`
	KeyFeatures []string   `json:"key_features" mapstructure:"key_features"`
	Model       string     `json:"model" mapstructure:"model"`
	Trim        string     `json:"trim,omitempty" mapstructure:"trim"`
	MPGOrRange  string     `json:"mpg_or_range,omitempty" mapstructure:"mpg_or_range"`
	ImageURL    string     `json:"image_url,omitempty" mapstructure:"image_url"`
	Dealer      *Dealer    `json:"dealer,omitempty" mapstructure:"dealer"`
	MatchScore  int        `json:"match_score" mapstructure:"match_score"`
}

// Clone returns a deep copy of the vehicle.
func (v *Vehicle) Clone() *Vehicle {
	if v == nil {
		return nil
	}

	c := *v
	if v.KeyFeatures != nil {
		c.KeyFeatures = append([]string(nil), v.KeyFeatures...)
	}
	if v.Dealer != nil {
		d := *v.Dealer
		c.Dealer = &d
	}
	return &c
}

// HasFeature reports whether the vehicle lists the feature, ignoring case and surrounding spaces.
func (v *Vehicle) HasFeature(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return true
	}
	for _, f := range v.KeyFeatures {
		if strings.ToLower(strings.TrimSpace(f)) == name {
			return true
		}
	}
	return false
}

// DisplayName returns the title when set, otherwise model and trim.
func (v *Vehicle) DisplayName() string {
	if t := strings.TrimSpace(v.Title); t != "" {
		return t
	}
	return strings.TrimSpace(v.Model + " " + v.Trim)
}
