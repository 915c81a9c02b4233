package transfer

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Step is a state of the payment flow.
type Step string

const (
	StepInput      Step = "input"
	StepPIN        Step = "pin"
	StepProcessing Step = "processing"
	StepSuccess    Step = "success"
	StepFailed     Step = "failed"
)

// Status of a recorded transaction.
type Status string

const (
	StatusSuccess Status = "success"
	StatusPending Status = "pending"
	StatusFailed  Status = "failed"
)

// Form holds the transient transfer inputs. Amount is kept as typed so a
// failed attempt can be shown back unchanged.
type Form struct {
	Recipient string `json:"recipient"`
	Account   string `json:"account"`
	Amount    string `json:"amount"`
	Provider  string `json:"provider"`
}

// Transaction is a completed transfer. It is never mutated after creation.
type Transaction struct {
	ID        uuid.UUID       `json:"id"`
	Recipient string          `json:"recipient"`
	Account   string          `json:"account"`
	Amount    decimal.Decimal `json:"amount"`
	Date      string          `json:"date"`
	Status    Status          `json:"status"`
	Method    string          `json:"method"`
	CreatedAt time.Time       `json:"created_at"`
}

// Snapshot is a consistent copy of the controller state.
type Snapshot struct {
	Step         Step            `json:"step"`
	Form         Form            `json:"form"`
	Provider     *Provider       `json:"provider,omitempty"`
	Balance      decimal.Decimal `json:"balance"`
	Transactions []Transaction   `json:"transactions"`
	Error        string          `json:"error,omitempty"`
}

// ParseAmount parses a positive decimal amount.
func ParseAmount(s string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return amount, nil
}
