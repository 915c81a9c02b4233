// Package expense keeps a session's list of personal expenses.
package expense

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Category groups expenses for the summary view.
type Category string

const (
	Food          Category = "Food"
	Transport     Category = "Transport"
	Utilities     Category = "Utilities"
	Entertainment Category = "Entertainment"
	Health        Category = "Health"
	Other         Category = "Other"
)

// Categories lists the accepted categories in display order.
func Categories() []Category {
	return []Category{Food, Transport, Utilities, Entertainment, Health, Other}
}

// ParseCategory matches a category name case-insensitively.
// An empty name defaults to Food.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Food, nil
	}
	for _, c := range Categories() {
		if strings.EqualFold(s, string(c)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

var (
	ErrMissingTitle    = errors.New("expense: title is required")
	ErrInvalidAmount   = errors.New("expense: amount must be a positive number")
	ErrUnknownCategory = errors.New("expense: unknown category")
	ErrNotFound        = errors.New("expense: not found")
)

// IsValidation reports whether err came from bad input to Add.
func IsValidation(err error) bool {
	return errors.Is(err, ErrMissingTitle) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrUnknownCategory)
}

// Expense is one recorded spend.
type Expense struct {
	ID       uuid.UUID       `json:"id"`
	Title    string          `json:"title"`
	Amount   decimal.Decimal `json:"amount"`
	Category Category        `json:"category"`
	Date     string          `json:"date"`
}

// Input is the unvalidated form for Add.
type Input struct {
	Title    string `json:"title"`
	Amount   string `json:"amount"`
	Category string `json:"category"`
}

// CategoryTotal is the summed amount of one category.
type CategoryTotal struct {
	Category Category        `json:"name"`
	Total    decimal.Decimal `json:"value"`
}

// Tracker holds expenses newest first. It is safe for concurrent use.
type Tracker struct {
	mu       sync.RWMutex
	expenses []Expense
	now      func() time.Time
}

// NewTracker returns an empty tracker. A nil clock uses time.Now.
func NewTracker(now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{now: now}
}

// Add validates in and records it at the front of the list.
func (t *Tracker) Add(in Input) (Expense, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return Expense{}, ErrMissingTitle
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(in.Amount))
	if err != nil || !amount.IsPositive() {
		return Expense{}, ErrInvalidAmount
	}
	category, err := ParseCategory(in.Category)
	if err != nil {
		return Expense{}, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return Expense{}, fmt.Errorf("expense: new id: %w", err)
	}

	e := Expense{
		ID:       id,
		Title:    title,
		Amount:   amount,
		Category: category,
		Date:     t.now().Format(time.DateOnly),
	}

	t.mu.Lock()
	t.expenses = append([]Expense{e}, t.expenses...)
	t.mu.Unlock()

	return e, nil
}

// Delete removes the expense with the given id.
func (t *Tracker) Delete(id uuid.UUID) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, e := range t.expenses {
		if e.ID == id {
			t.expenses = append(t.expenses[:i:i], t.expenses[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// List returns a copy of the expenses, newest first.
func (t *Tracker) List() []Expense {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Expense, len(t.expenses))
	copy(out, t.expenses)
	return out
}

// Total sums every expense.
func (t *Tracker) Total() decimal.Decimal {
	t.mu.RLock()
	defer t.mu.RUnlock()

	total := decimal.Zero
	for _, e := range t.expenses {
		total = total.Add(e.Amount)
	}
	return total
}

// ByCategory sums expenses per category, ordered by first appearance in
// the newest-first list.
func (t *Tracker) ByCategory() []CategoryTotal {
	t.mu.RLock()
	defer t.mu.RUnlock()

	totals := []CategoryTotal{}
	index := make(map[Category]int)
	for _, e := range t.expenses {
		i, ok := index[e.Category]
		if !ok {
			i = len(totals)
			index[e.Category] = i
			totals = append(totals, CategoryTotal{Category: e.Category, Total: decimal.Zero})
		}
		totals[i].Total = totals[i].Total.Add(e.Amount)
	}
	return totals
}

// Summary is the tracker view returned to clients.
type Summary struct {
	Expenses   []Expense       `json:"expenses"`
	Total      decimal.Decimal `json:"total"`
	ByCategory []CategoryTotal `json:"byCategory"`
}

// Summary returns the list with its totals.
func (t *Tracker) Summary() Summary {
	return Summary{
		Expenses:   t.List(),
		Total:      t.Total(),
		ByCategory: t.ByCategory(),
	}
}
