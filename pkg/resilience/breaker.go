package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"arithmitra/pkg/logging"
	"arithmitra/pkg/metrics"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

var (
	// ErrCircuitOpen is returned when the breaker rejects a call.
	ErrCircuitOpen = errors.New("resilience: circuit breaker open")

	// ErrTimeout is returned when a guarded call exceeds its timeout.
	ErrTimeout = errors.New("resilience: operation timeout")
)

// Breaker guards calls to a dependency with a timeout and a circuit breaker.
// It is used both for cache layers and for the hosted model endpoint.
type Breaker struct {
	name    string
	cb      *gobreaker.CircuitBreaker
	timeout time.Duration
	metrics metrics.Collector
	logger  *logging.Logger
}

// NewBreaker creates a breaker reporting state changes under name.
func NewBreaker(name string, config Config, collector metrics.Collector) *Breaker {
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}

	b := &Breaker{
		name:    name,
		timeout: config.Timeout,
		metrics: collector,
		logger:  logging.L().Named("resilience").With(zap.String("circuit", name)),
	}

	cbConfig := config.CircuitBreaker
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cbConfig.MaxRequests,
		Interval:    cbConfig.Interval,
		Timeout:     cbConfig.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return cbConfig.readyToTrip(Counts{
				Requests:             counts.Requests,
				TotalSuccesses:       counts.TotalSuccesses,
				TotalFailures:        counts.TotalFailures,
				ConsecutiveSuccesses: counts.ConsecutiveSuccesses,
				ConsecutiveFailures:  counts.ConsecutiveFailures,
			})
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			b.logger.Warn("circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			b.metrics.RecordCircuitState(name, toCircuitState(to))
		},
	}
	if cbConfig.IsSuccessful != nil {
		isSuccessful := cbConfig.IsSuccessful
		settings.IsSuccessful = func(err error) bool {
			return err == nil || isSuccessful(err)
		}
	}

	b.cb = gobreaker.NewCircuitBreaker(settings)

	b.logger.Debug("breaker initialized",
		zap.Duration("timeout", config.Timeout),
		zap.Uint32("max_requests", cbConfig.MaxRequests),
		zap.Duration("circuit_interval", cbConfig.Interval),
		zap.Duration("circuit_timeout", cbConfig.Timeout),
	)

	return b
}

// Name returns the circuit name.
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current circuit state.
func (b *Breaker) State() metrics.CircuitState {
	return toCircuitState(b.cb.State())
}

// Do runs fn with the configured timeout.
func (b *Breaker) Do(ctx context.Context, fn func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	return b.DoTimeout(ctx, b.timeout, fn)
}

// DoTimeout runs fn through the circuit breaker with its own timeout.
// A timeout of 0 leaves ctx untouched.
func (b *Breaker) DoTimeout(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	result, err := b.cb.Execute(func() (interface{}, error) {
		return fn(callCtx)
	})
	if err == nil {
		return result, nil
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		b.logger.Warn("circuit breaker open - request rejected")
		return nil, fmt.Errorf("%w: %s", ErrCircuitOpen, b.name)
	}
	// Only our own deadline is a timeout; a caller's cancellation passes through.
	if ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		b.logger.Warn("operation timeout", zap.Duration("timeout", timeout))
		return nil, fmt.Errorf("%w: %s after %v", ErrTimeout, b.name, timeout)
	}
	return result, err
}

func toCircuitState(s gobreaker.State) metrics.CircuitState {
	switch s {
	case gobreaker.StateOpen:
		return metrics.CircuitOpen
	case gobreaker.StateHalfOpen:
		return metrics.CircuitHalfOpen
	default:
		return metrics.CircuitClosed
	}
}
