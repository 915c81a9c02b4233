package calc

import (
	"fmt"
	"math"
	"math/rand/v2"
	"regexp"
	"strings"
)

// Band is a credit score category.
type Band string

const (
	Excellent Band = "Excellent"
	Good      Band = "Good"
	Fair      Band = "Fair"
	Poor      Band = "Poor"
)

// Score bounds accepted by ScoreBand.
const (
	MinScore = 300
	MaxScore = 900
)

// Simulated scores fall in this range, inclusive.
const (
	SimulatedMin = 600
	SimulatedMax = 850
)

// ScoreBand maps a score to its band.
func ScoreBand(score int) Band {
	switch {
	case score >= 750:
		return Excellent
	case score >= 700:
		return Good
	case score >= 650:
		return Fair
	default:
		return Poor
	}
}

// CheckScore validates a score before banding it.
func CheckScore(score int) (Band, error) {
	if score < MinScore || score > MaxScore {
		return "", fmt.Errorf("%w: %d", ErrInvalidScore, score)
	}
	return ScoreBand(score), nil
}

var (
	panPattern    = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]{1}$`)
	mobilePattern = regexp.MustCompile(`^[6-9]\d{9}$`)
)

// ValidatePAN reports whether s is a well-formed PAN, e.g. ABCDE1234F.
func ValidatePAN(s string) bool {
	return panPattern.MatchString(s)
}

// ValidateMobile reports whether s is a ten digit Indian mobile number.
func ValidateMobile(s string) bool {
	return mobilePattern.MatchString(s)
}

// ScoreRequest identifies the holder for a simulated bureau lookup.
type ScoreRequest struct {
	PAN    string `json:"pan"`
	Mobile string `json:"mobile"`
}

// Normalize uppercases the PAN and trims both fields.
func (r ScoreRequest) Normalize() ScoreRequest {
	return ScoreRequest{
		PAN:    strings.ToUpper(strings.TrimSpace(r.PAN)),
		Mobile: strings.TrimSpace(r.Mobile),
	}
}

// Problems returns a message per invalid field, keyed by json name.
func (r ScoreRequest) Problems() map[string]string {
	problems := make(map[string]string)
	if !ValidatePAN(r.PAN) {
		problems["pan"] = "Invalid PAN Number"
	}
	if !ValidateMobile(r.Mobile) {
		problems["mobile"] = "Invalid Mobile Number"
	}
	return problems
}

// ScoreReport is the result of a simulated lookup.
type ScoreReport struct {
	Score int  `json:"score"`
	Band  Band `json:"band"`
}

// SimulatedScore draws a score uniformly from SimulatedMin..SimulatedMax.
// A nil source uses the global generator.
func SimulatedScore(rng *rand.Rand) ScoreReport {
	span := SimulatedMax - SimulatedMin + 1
	var n int
	if rng == nil {
		n = rand.IntN(span)
	} else {
		n = rng.IntN(span)
	}
	score := SimulatedMin + n
	return ScoreReport{Score: score, Band: ScoreBand(score)}
}

// Card is a credit card in the eligibility catalogue.
type Card struct {
	Name      string   `json:"name"`
	Bank      string   `json:"bank"`
	MinIncome float64  `json:"minIncome"`
	Fee       float64  `json:"fee"`
	Type      string   `json:"type"`
	Features  []string `json:"features"`
}

var catalogue = []Card{
	{Name: "Lifetime Free Platinum", Bank: "HDFC", MinIncome: 15000, Fee: 0, Type: "Entry",
		Features: []string{"No Annual Fee", "5% Cashback on Online Spends"}},
	{Name: "Millennia Rewards", Bank: "HDFC", MinIncome: 25000, Fee: 1000, Type: "Rewards",
		Features: []string{"10x Reward Points", "Free Lounge Access (Domestic)"}},
	{Name: "Coral Contactless", Bank: "ICICI", MinIncome: 30000, Fee: 500, Type: "Lifestyle",
		Features: []string{"Buy 1 Get 1 Movie Ticket", "15% Dining Discount"}},
	{Name: "Ace Credit Card", Bank: "Axis", MinIncome: 40000, Fee: 499, Type: "Cashback",
		Features: []string{"2% Flat Cashback", "4 Lounge Visits/Year"}},
	{Name: "Regalia Gold", Bank: "HDFC", MinIncome: 80000, Fee: 2500, Type: "Premium",
		Features: []string{"Club Vistara Membership", "12 Lounge Visits", "Low Forex Markup"}},
}

// Cards returns the full catalogue.
func Cards() []Card {
	out := make([]Card, len(catalogue))
	for i, c := range catalogue {
		out[i] = c
		out[i].Features = append([]string(nil), c.Features...)
	}
	return out
}

// EligibleCards returns the cards whose minimum monthly income is met,
// in catalogue order. The result may be empty.
func EligibleCards(monthlyIncome float64) ([]Card, error) {
	if !(monthlyIncome > 0) || math.IsInf(monthlyIncome, 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIncome, monthlyIncome)
	}

	eligible := []Card{}
	for _, c := range Cards() {
		if monthlyIncome >= c.MinIncome {
			eligible = append(eligible, c)
		}
	}
	return eligible, nil
}
