package vehicle

import "strings"

// PaymentType is how the buyer intends to pay. The scorer ignores it.
type PaymentType string

const (
	PaymentPurchase PaymentType = "purchase"
	PaymentFinance  PaymentType = "finance"
	PaymentLease    PaymentType = "lease"
)

// IsValid reports whether the payment type is one of the known values.
func (p PaymentType) IsValid() bool {
	switch p {
	case PaymentPurchase, PaymentFinance, PaymentLease:
		return true
	}
	return false
}

func (p PaymentType) String() string {
	return string(p)
}

// Budget is the total price range. A nil or non-positive bound is unset.
type Budget struct {
	Min *float64 `json:"min" mapstructure:"min"`
	Max *float64 `json:"max" mapstructure:"max"`
}

// MinValue returns the lower bound and whether it is set.
func (b Budget) MinValue() (float64, bool) {
	return bound(b.Min)
}

// MaxValue returns the upper bound and whether it is set.
func (b Budget) MaxValue() (float64, bool) {
	return bound(b.Max)
}

func bound(v *float64) (float64, bool) {
	if v == nil || *v <= 0 {
		return 0, false
	}
	return *v, true
}

// MonthlyBudget is the monthly payment target.
type MonthlyBudget struct {
	Target *float64 `json:"target" mapstructure:"target"`
	Type   *string  `json:"type" mapstructure:"type"`
}

// Preferences is the buyer's profile. Every nil field means "no preference".
type Preferences struct {
	BodyStyle    *string  `json:"body_style" mapstructure:"body_style"`
	Model        *string  `json:"model" mapstructure:"model"`
	Trim         *string  `json:"trim" mapstructure:"trim"`
	Powertrain   *string  `json:"powertrain" mapstructure:"powertrain"`
	Drivetrain   *string  `json:"drivetrain" mapstructure:"drivetrain"`
	ColorExt     *string  `json:"color_ext" mapstructure:"color_ext"`
	ColorInt     *string  `json:"color_int" mapstructure:"color_int"`
	FeaturesMust []string `json:"features_must" mapstructure:"features_must"`
	FeaturesNice []string `json:"features_nice" mapstructure:"features_nice"`
	BudgetTotal  Budget   `json:"budget_total" mapstructure:"budget_total"`

	PaymentType PaymentType `json:"payment_type" mapstructure:"payment_type" validate:"omitempty,oneof=purchase finance lease"`

	// Carried for the presentation layer only.
	Zip           *string       `json:"zip,omitempty" mapstructure:"zip"`
	RadiusMiles   *float64      `json:"radius_miles,omitempty" mapstructure:"radius_miles"`
	BudgetMonthly MonthlyBudget `json:"budget_monthly" mapstructure:"budget_monthly"`
	DownPayment   *float64      `json:"down_payment,omitempty" mapstructure:"down_payment"`
	TermMonths    *int          `json:"term_months,omitempty" mapstructure:"term_months"`
	APR           *float64      `json:"apr,omitempty" mapstructure:"apr"`
}

// DefaultPreferences returns a profile with no preferences and purchase payment.
func DefaultPreferences() *Preferences {
	return &Preferences{PaymentType: PaymentPurchase}
}

// Pref returns the trimmed preference value and false when it is unset or blank.
func Pref(s *string) (string, bool) {
	if s == nil {
		return "", false
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return "", false
	}
	return v, true
}

// Clone returns a deep copy of the preferences.
func (p *Preferences) Clone() *Preferences {
	if p == nil {
		return nil
	}

	c := *p
	c.BodyStyle = cloneString(p.BodyStyle)
	c.Model = cloneString(p.Model)
	c.Trim = cloneString(p.Trim)
	c.Powertrain = cloneString(p.Powertrain)
	c.Drivetrain = cloneString(p.Drivetrain)
	c.ColorExt = cloneString(p.ColorExt)
	c.ColorInt = cloneString(p.ColorInt)
	c.Zip = cloneString(p.Zip)
	c.FeaturesMust = append([]string(nil), p.FeaturesMust...)
	c.FeaturesNice = append([]string(nil), p.FeaturesNice...)
	c.BudgetTotal = Budget{Min: cloneFloat(p.BudgetTotal.Min), Max: cloneFloat(p.BudgetTotal.Max)}
	c.BudgetMonthly = MonthlyBudget{Target: cloneFloat(p.BudgetMonthly.Target), Type: cloneString(p.BudgetMonthly.Type)}
	c.RadiusMiles = cloneFloat(p.RadiusMiles)
	c.DownPayment = cloneFloat(p.DownPayment)
	c.APR = cloneFloat(p.APR)
	if p.TermMonths != nil {
		t := *p.TermMonths
		c.TermMonths = &t
	}
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

// String returns a pointer to s. Handy for building preferences in code.
func String(s string) *string {
	return &s
}

// Float returns a pointer to f.
func Float(f float64) *float64 {
	return &f
}
