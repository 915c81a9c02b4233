package transfer

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// SettlementRequest is what a Settler is asked to move.
type SettlementRequest struct {
	Provider  Provider
	Recipient string
	Account   string
	Amount    decimal.Decimal
}

// Settler performs the settlement of an accepted transfer. It must honour
// ctx cancellation.
type Settler interface {
	Settle(ctx context.Context, req SettlementRequest) error
}

// SettlerFunc adapts a function to Settler.
type SettlerFunc func(ctx context.Context, req SettlementRequest) error

// Settle calls f.
func (f SettlerFunc) Settle(ctx context.Context, req SettlementRequest) error {
	return f(ctx, req)
}

// SimulatedSettler waits a fixed latency and always succeeds.
type SimulatedSettler struct {
	Latency time.Duration
}

// Settle waits for the latency or ctx, whichever comes first.
func (s SimulatedSettler) Settle(ctx context.Context, req SettlementRequest) error {
	timer := time.NewTimer(s.Latency)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
