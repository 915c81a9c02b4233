package transfer

import "errors"

// Validation errors. The flow stays where it was.
var (
	ErrInvalidAmount     = errors.New("transfer: amount must be a positive number")
	ErrUnknownProvider   = errors.New("transfer: unknown provider")
	ErrInsufficientFunds = errors.New("transfer: amount exceeds wallet balance")
	ErrMissingRecipient  = errors.New("transfer: recipient is required")
	ErrMissingAccount    = errors.New("transfer: account is required")
	ErrInvalidPIN        = errors.New("transfer: enter all 4 PIN digits")
)

// Flow errors.
var (
	// ErrInvalidState is returned when an operation does not apply to the current step
	ErrInvalidState = errors.New("transfer: operation not allowed in current step")

	// ErrNotCancellable is returned by Cancel outside the PIN step
	ErrNotCancellable = errors.New("transfer: transfer can no longer be cancelled")

	// ErrClosed is returned after Close
	ErrClosed = errors.New("transfer: controller closed")

	// ErrSettlementFailed wraps the settler's error in the failed step
	ErrSettlementFailed = errors.New("transfer: settlement failed")
)

// IsValidation reports whether err is an input validation failure.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrInvalidAmount,
		ErrUnknownProvider,
		ErrInsufficientFunds,
		ErrMissingRecipient,
		ErrMissingAccount,
		ErrInvalidPIN,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
