package calc

import (
	"fmt"
	"math"
	"strings"
)

// Policy is an insurance product kind.
type Policy string

const (
	Life    Policy = "life"
	Health  Policy = "health"
	Vehicle Policy = "vehicle"
)

// MinimumPremium is the floor applied to every annual premium.
const MinimumPremium = 1000

// ParsePolicy accepts a policy kind in any case.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case Life, Health, Vehicle:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

// Premium quotes the annual premium. age is the holder's age for life and
// health cover; vehicleAge is only used for vehicle cover.
func Premium(kind Policy, coverage float64, age, vehicleAge int) (float64, error) {
	if !(coverage > 0) || math.IsInf(coverage, 0) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidCoverage, coverage)
	}
	if age < 0 || vehicleAge < 0 {
		return 0, ErrInvalidAge
	}

	var base float64
	switch kind {
	case Life:
		base = coverage*0.005 + float64(age)*100
	case Health:
		base = coverage*0.015 + float64(age)*200
	case Vehicle:
		base = coverage*0.03 - float64(vehicleAge)*100
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownPolicy, kind)
	}

	return math.Max(MinimumPremium, math.Round(base)), nil
}

// Plan is one tier offered on top of a quote.
type Plan struct {
	ID       int      `json:"id"`
	Name     string   `json:"name"`
	Coverage float64  `json:"coverage"`
	Premium  float64  `json:"premium"`
	Benefits []string `json:"benefits"`
}

type tier struct {
	name     string
	coverage float64
	premium  float64
	benefits []string
}

var tiers = []tier{
	{"Silver Protect", 1, 0.9, []string{"Basic Coverage", "24/7 Support"}},
	{"Gold Secure", 1.5, 1.2, []string{"Enhanced Coverage", "Zero Depreciation", "Free Checkup"}},
	{"Platinum Shield", 2, 1.5, []string{"Global Coverage", "Priority Claims", "All Add-ons"}},
}

// Plans scales a quote into the three plan tiers. Premiums are rounded to
// whole rupees.
func Plans(coverage, premium float64) []Plan {
	plans := make([]Plan, len(tiers))
	for i, t := range tiers {
		plans[i] = Plan{
			ID:       i + 1,
			Name:     t.name,
			Coverage: coverage * t.coverage,
			Premium:  math.Round(premium * t.premium),
			Benefits: append([]string(nil), t.benefits...),
		}
	}
	return plans
}
