package metrics

import (
	"time"
)

// Collector defines the interface for collecting service metrics.
// Implementations can export metrics to various backends (Prometheus, in-memory snapshots).
type Collector interface {
	// Assessment cache layers
	RecordCacheGet(layer string, hit bool, duration time.Duration)
	RecordCacheSet(layer string, success bool, duration time.Duration)
	RecordCacheDelete(layer string, success bool, duration time.Duration)

	// Circuit breakers (cache layers and the inference endpoint)
	RecordCircuitState(name string, state CircuitState)

	// Async cache warm-up writer
	RecordQueueDepth(layer string, depth int)
	RecordWriteDropped(layer string)
	RecordAsyncWrite(layer string, success bool, duration time.Duration)

	// Chain-level lookup
	RecordChainGet(hit bool, layerIndex int, totalDuration time.Duration)

	// Assessment gateway calls, labelled by kind (fraud, loan, chat) and outcome
	RecordAssessment(kind string, outcome Outcome, duration time.Duration)

	// Chat streaming
	RecordChatStream(fragments int, success bool, duration time.Duration)

	// Payment flow
	RecordTransition(from, to string)
	RecordTransfer(provider string, status string, amount float64)
}

// Outcome labels the result of a gateway call.
type Outcome string

const (
	OutcomeOK              Outcome = "ok"
	OutcomeCached          Outcome = "cached"
	OutcomeInvalidInput    Outcome = "invalid_input"
	OutcomeInvalidResponse Outcome = "invalid_response"
	OutcomeTransport       Outcome = "transport"
	OutcomeCircuitOpen     Outcome = "circuit_open"
	OutcomeTimeout         Outcome = "timeout"
)

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	// CircuitClosed means the circuit breaker is allowing requests through.
	CircuitClosed CircuitState = iota
	// CircuitOpen means the circuit breaker is blocking requests.
	CircuitOpen
	// CircuitHalfOpen means the circuit breaker is testing if the service has recovered.
	CircuitHalfOpen
)

// String returns the string representation of the circuit state.
func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// NoOpCollector is the default collector when metrics are not needed.
type NoOpCollector struct{}

func (NoOpCollector) RecordCacheGet(layer string, hit bool, duration time.Duration) {}
func (NoOpCollector) RecordCacheSet(layer string, success bool, duration time.Duration) {}
func (NoOpCollector) RecordCacheDelete(layer string, success bool, duration time.Duration) {}
func (NoOpCollector) RecordCircuitState(name string, state CircuitState) {}
func (NoOpCollector) RecordQueueDepth(layer string, depth int) {}
func (NoOpCollector) RecordWriteDropped(layer string) {}
func (NoOpCollector) RecordAsyncWrite(layer string, success bool, duration time.Duration) {}
func (NoOpCollector) RecordChainGet(hit bool, layerIndex int, totalDuration time.Duration) {}
func (NoOpCollector) RecordAssessment(kind string, outcome Outcome, duration time.Duration) {}
func (NoOpCollector) RecordChatStream(fragments int, success bool, duration time.Duration) {}
func (NoOpCollector) RecordTransition(from, to string) {}
func (NoOpCollector) RecordTransfer(provider string, status string, amount float64) {}
