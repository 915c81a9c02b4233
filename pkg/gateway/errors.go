package gateway

import (
	"context"
	"errors"

	"arithmitra/pkg/metrics"
	"arithmitra/pkg/resilience"
)

var (
	// ErrEmptyInput is returned for blank fraud text or chat messages. No call is made.
	ErrEmptyInput = errors.New("gateway: input is empty")

	// ErrInvalidInput is returned when loan figures are out of range. No call is made.
	ErrInvalidInput = errors.New("gateway: invalid input")

	// ErrInvalidResponse is returned when the model reply does not match the schema.
	ErrInvalidResponse = errors.New("gateway: invalid response")

	// ErrTransport is returned when the model could not be reached.
	ErrTransport = errors.New("gateway: transport failure")
)

// IsInputError reports whether err was raised before any call was made.
func IsInputError(err error) bool {
	return errors.Is(err, ErrEmptyInput) || errors.Is(err, ErrInvalidInput)
}

// IsUpstreamError reports whether err came from the model call.
func IsUpstreamError(err error) bool {
	return errors.Is(err, ErrInvalidResponse) || errors.Is(err, ErrTransport)
}

func outcomeOf(err error) metrics.Outcome {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case IsInputError(err):
		return metrics.OutcomeInvalidInput
	case errors.Is(err, ErrInvalidResponse):
		return metrics.OutcomeInvalidResponse
	case errors.Is(err, resilience.ErrCircuitOpen):
		return metrics.OutcomeCircuitOpen
	case errors.Is(err, resilience.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return metrics.OutcomeTimeout
	default:
		return metrics.OutcomeTransport
	}
}
