package calc

import (
	"fmt"
	"math"
)

// EMIResult is a loan repayment breakdown. The rounded figures are what the
// service displays; the Exact fields keep the unrounded values.
type EMIResult struct {
	EMI           float64 `json:"emi"`
	TotalPayment  float64 `json:"totalPayment"`
	TotalInterest float64 `json:"totalInterest"`
	Months        int     `json:"months"`

	ExactEMI           float64 `json:"exactEmi"`
	ExactTotalPayment  float64 `json:"exactTotalPayment"`
	ExactTotalInterest float64 `json:"exactTotalInterest"`
}

// Input bounds accepted by EMI.
const (
	MaxPrincipal = 1e12
	MaxRate      = 100
	MaxYears     = 50
)

// EMI computes the equated monthly instalment for principal borrowed at an
// annual rate (percent) over years. A rate too small to compound divides the
// principal evenly.
func EMI(principal, annualRate, years float64) (EMIResult, error) {
	if !(principal > 0 && principal <= MaxPrincipal) {
		return EMIResult{}, fmt.Errorf("%w: %v", ErrInvalidPrincipal, principal)
	}
	if !(annualRate >= 0 && annualRate <= MaxRate) {
		return EMIResult{}, fmt.Errorf("%w: %v", ErrInvalidRate, annualRate)
	}
	if !(years > 0 && years <= MaxYears) {
		return EMIResult{}, fmt.Errorf("%w: %v", ErrInvalidTenure, years)
	}

	months := years * 12
	r := annualRate / 12 / 100

	// (1+r)^n - 1 without the cancellation of Pow(1+r, n) - 1.
	growthMinusOne := math.Expm1(months * math.Log1p(r))

	var emi float64
	if growthMinusOne == 0 {
		emi = principal / months
	} else {
		emi = principal * r * (growthMinusOne + 1) / growthMinusOne
	}

	total := emi * months
	interest := total - principal
	if math.IsNaN(total) || math.IsInf(total, 0) {
		return EMIResult{}, fmt.Errorf("%w: repayment of %v at %v%% over %v years is not representable",
			ErrInvalidRate, principal, annualRate, years)
	}

	return EMIResult{
		EMI:                math.Round(emi),
		TotalPayment:       math.Round(total),
		TotalInterest:      math.Round(interest),
		Months:             int(math.Round(months)),
		ExactEMI:           emi,
		ExactTotalPayment:  total,
		ExactTotalInterest: interest,
	}, nil
}
