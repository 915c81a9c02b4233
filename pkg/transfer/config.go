package transfer

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Config configures a payment flow.
type Config struct {
	// SettleLatency is the simulated settlement time (default 2500ms)
	SettleLatency time.Duration `yaml:"settle_latency"`

	// ResetDelay is how long success or failure stays visible (default 3000ms)
	ResetDelay time.Duration `yaml:"reset_delay"`

	// OpeningBalance is the wallet balance of a new session
	OpeningBalance decimal.Decimal `yaml:"opening_balance"`

	// PublishTimeout bounds publishing a completed transfer (0 = DefaultPublishTimeout)
	PublishTimeout time.Duration `yaml:"publish_timeout"`
}

// DefaultPublishTimeout is used when Config.PublishTimeout is zero.
const DefaultPublishTimeout = 2 * time.Second

// DefaultConfig returns the standard flow timings.
func DefaultConfig() Config {
	return Config{
		SettleLatency:  2500 * time.Millisecond,
		ResetDelay:     3000 * time.Millisecond,
		OpeningBalance: decimal.Zero,
		PublishTimeout: DefaultPublishTimeout,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.SettleLatency < 0 || c.ResetDelay < 0 || c.PublishTimeout < 0 {
		return fmt.Errorf("transfer: negative duration in config")
	}
	if c.OpeningBalance.IsNegative() {
		return fmt.Errorf("transfer: opening balance must not be negative")
	}
	return nil
}
