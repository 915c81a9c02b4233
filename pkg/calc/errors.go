package calc

import "errors"

var (
	// ErrInvalidPrincipal is returned when the loan amount is not in (0, MaxPrincipal].
	ErrInvalidPrincipal = errors.New("calc: principal must be positive and at most 1e12")
	// ErrInvalidRate is returned when the annual rate is not in [0, MaxRate].
	ErrInvalidRate = errors.New("calc: rate must be between 0 and 100")
	// ErrInvalidTenure is returned when the tenure is not in (0, MaxYears].
	ErrInvalidTenure = errors.New("calc: tenure must be between 0 and 50 years")
	// ErrUnknownPolicy is returned for an insurance kind outside life, health and vehicle.
	ErrUnknownPolicy = errors.New("calc: unknown policy kind")
	// ErrInvalidCoverage is returned when the sum assured is not positive.
	ErrInvalidCoverage = errors.New("calc: coverage must be positive")
	// ErrInvalidAge is returned for a negative age.
	ErrInvalidAge = errors.New("calc: age must not be negative")
	// ErrInvalidIncome is returned when the monthly income is not positive.
	ErrInvalidIncome = errors.New("calc: income must be positive")
	// ErrInvalidScore is returned for a credit score outside 300..900.
	ErrInvalidScore = errors.New("calc: score out of range")
)

// IsValidation reports whether err was caused by bad calculator input.
// Every error this package returns is one.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrInvalidPrincipal, ErrInvalidRate, ErrInvalidTenure, ErrUnknownPolicy,
		ErrInvalidCoverage, ErrInvalidAge, ErrInvalidIncome, ErrInvalidScore,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
