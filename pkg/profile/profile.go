// Package profile loads the static user profile the agent is allowed to use
// when filling forms and choosing delivery options. The profile is read once
// before the loop starts and is read-only for the run's lifetime.
package profile

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Profile is the static record of user identity and preferences. Unset
// fields are empty strings / zero values; the observation renderer only
// exposes fields that are actually populated.
type Profile struct {
	Name  string `yaml:"name"`
	Phone string `yaml:"phone"`
	Email string `yaml:"email"`

	// Saved delivery location.
	HomeAddress string `yaml:"home_address"`
	City        string `yaml:"city"`

	// Food and delivery preferences.
	FoodPreferences []string `yaml:"food_preferences"`
	Allergies       []string `yaml:"allergies"`

	// BudgetCeiling is the per-order spending cap in whole currency units.
	// Zero means no ceiling.
	BudgetCeiling int `yaml:"budget_ceiling"`

	// PaymentMethod is the preferred payment method label
	// (e.g. "card on delivery", "saved card").
	PaymentMethod string `yaml:"payment_method"`
}

// Empty returns the structurally complete default profile: every field
// present, every value empty or zero. Used whenever the profile source is
// missing or malformed, so startup never fails on profile problems.
func Empty() *Profile {
	return &Profile{}
}

// Load reads the profile from the given YAML file. Absence or parse failure
// is not an error: the empty default is returned along with the cause so the
// caller can log the degradation.
func Load(path string) (*Profile, error) {
	if path == "" {
		return Empty(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Empty(), fmt.Errorf("profile unavailable, using empty default: %w", err)
	}

	p := Empty()
	if err := yaml.Unmarshal(data, p); err != nil {
		return Empty(), fmt.Errorf("profile malformed, using empty default: %w", err)
	}
	return p, nil
}

// HasContactData reports whether any contact field is populated.
func (p *Profile) HasContactData() bool {
	return p.Phone != "" || p.Email != ""
}

// AddressLine returns the saved address joined with the city, or "" when
// no address is set.
func (p *Profile) AddressLine() string {
	switch {
	case p.HomeAddress == "":
		return ""
	case p.City == "":
		return p.HomeAddress
	default:
		return p.HomeAddress + ", " + p.City
	}
}

// PreferencesLine returns the food preferences as a comma-separated string.
func (p *Profile) PreferencesLine() string {
	return strings.Join(p.FoodPreferences, ", ")
}
