package transfer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"arithmitra/pkg/logging"
	"arithmitra/pkg/metrics"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Publisher receives completed transfers.
type Publisher interface {
	Publish(ctx context.Context, tx Transaction) error
}

// Controller drives one session's transfer flow:
// input -> [pin] -> processing -> success|failed -> input.
//
// Settlement runs on its own goroutine. The wallet debit, the new
// transaction and the move to success happen under one lock, so a Snapshot
// never shows one without the others.
type Controller struct {
	mu sync.Mutex

	step    Step
	form    Form
	pin     [4]string
	lastErr string
	balance decimal.Decimal
	txs     []Transaction

	// gen invalidates settlement results and reset timers from earlier attempts.
	gen        uint64
	resetTimer *time.Timer
	closed     bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	config    Config
	settler   Settler
	publisher Publisher
	metrics   metrics.Collector
	logger    *logging.Logger
	now       func() time.Time
}

// Option configures a Controller.
type Option func(*Controller)

// WithSettler replaces the simulated settler.
func WithSettler(s Settler) Option {
	return func(c *Controller) { c.settler = s }
}

// WithPublisher sets where completed transfers are published.
func WithPublisher(p Publisher) Option {
	return func(c *Controller) { c.publisher = p }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m metrics.Collector) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithClock overrides time.Now for transaction dates.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// NewController creates a flow in the input step.
func NewController(config Config, opts ...Option) *Controller {
	ctx, cancel := context.WithCancel(context.Background())

	c := &Controller{
		step:    StepInput,
		balance: config.OpeningBalance,
		ctx:     ctx,
		cancel:  cancel,
		config:  config,
		settler: SimulatedSettler{Latency: config.SettleLatency},
		metrics: metrics.NoOpCollector{},
		logger:  logging.L(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("transfer")

	return c
}

// Submit validates the form and starts the transfer. UPI providers move to
// the PIN step, everything else goes straight to processing.
func (c *Controller) Submit(ctx context.Context, form Form) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.step != StepInput {
		return fmt.Errorf("%w: %s", ErrInvalidState, c.step)
	}

	amount, provider, err := c.validateLocked(form)
	if err != nil {
		c.logger.Debug("transfer rejected", zap.String("provider", form.Provider), zap.Error(err))
		return err
	}

	c.form = form
	c.lastErr = ""

	if provider.Settlement.RequiresPIN() {
		c.pin = [4]string{}
		c.transitionLocked(StepPIN)
		return nil
	}

	c.startProcessingLocked(provider, amount)
	return nil
}

func (c *Controller) validateLocked(form Form) (decimal.Decimal, Provider, error) {
	amount, err := ParseAmount(form.Amount)
	if err != nil {
		return decimal.Zero, Provider{}, err
	}
	provider, ok := LookupProvider(form.Provider)
	if !ok {
		return decimal.Zero, Provider{}, fmt.Errorf("%w: %q", ErrUnknownProvider, form.Provider)
	}
	if strings.TrimSpace(form.Recipient) == "" {
		return decimal.Zero, Provider{}, ErrMissingRecipient
	}
	if strings.TrimSpace(form.Account) == "" {
		return decimal.Zero, Provider{}, ErrMissingAccount
	}
	if provider.Settlement == SettlementWallet && amount.GreaterThan(c.balance) {
		return decimal.Zero, Provider{}, ErrInsufficientFunds
	}
	return amount, provider, nil
}

// SubmitPIN accepts the four PIN digits. Any digit that is not exactly one
// character 0-9 keeps the flow in the PIN step with an error message.
func (c *Controller) SubmitPIN(ctx context.Context, digits [4]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.step != StepPIN {
		return fmt.Errorf("%w: %s", ErrInvalidState, c.step)
	}

	for _, d := range digits {
		if len(d) != 1 || d[0] < '0' || d[0] > '9' {
			c.lastErr = ErrInvalidPIN.Error()
			return ErrInvalidPIN
		}
	}

	// The form was validated on Submit and cannot change in the PIN step.
	amount, _ := ParseAmount(c.form.Amount)
	provider, _ := LookupProvider(c.form.Provider)

	c.pin = digits
	c.lastErr = ""
	c.startProcessingLocked(provider, amount)
	return nil
}

// Cancel leaves the PIN step without side effects.
func (c *Controller) Cancel() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.step != StepPIN {
		return ErrNotCancellable
	}

	c.pin = [4]string{}
	c.lastErr = ""
	c.transitionLocked(StepInput)
	return nil
}

// TopUp credits the wallet.
func (c *Controller) TopUp(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	c.balance = c.balance.Add(amount)
	return nil
}

// Balance returns the wallet balance.
func (c *Controller) Balance() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balance
}

// Transactions returns the completed transfers, newest first.
func (c *Controller) Transactions() []Transaction {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transactionsLocked()
}

func (c *Controller) transactionsLocked() []Transaction {
	out := make([]Transaction, len(c.txs))
	copy(out, c.txs)
	return out
}

// Snapshot returns a consistent copy of the flow state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		Step:         c.step,
		Form:         c.form,
		Balance:      c.balance,
		Transactions: c.transactionsLocked(),
		Error:        c.lastErr,
	}
	if p, ok := LookupProvider(c.form.Provider); ok && c.step != StepInput {
		s.Provider = &p
	}
	return s
}

// Close stops in-flight settlement and any pending reset. No state change
// happens afterwards.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.gen++
	if c.resetTimer != nil {
		c.resetTimer.Stop()
		c.resetTimer = nil
	}
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
	return nil
}

func (c *Controller) transitionLocked(to Step) {
	from := c.step
	c.step = to
	c.metrics.RecordTransition(string(from), string(to))
	c.logger.Debug("step changed", zap.String("from", string(from)), zap.String("to", string(to)))
}

func (c *Controller) startProcessingLocked(provider Provider, amount decimal.Decimal) {
	c.transitionLocked(StepProcessing)
	c.gen++

	req := SettlementRequest{
		Provider:  provider,
		Recipient: c.form.Recipient,
		Account:   c.form.Account,
		Amount:    amount,
	}

	c.wg.Add(1)
	go c.settle(c.gen, req)
}

func (c *Controller) settle(gen uint64, req SettlementRequest) {
	defer c.wg.Done()

	err := c.settler.Settle(c.ctx, req)

	c.mu.Lock()
	if c.closed || gen != c.gen {
		c.mu.Unlock()
		return
	}

	if err != nil {
		c.lastErr = fmt.Errorf("%w: %v", ErrSettlementFailed, err).Error()
		c.transitionLocked(StepFailed)
		c.scheduleResetLocked(true)
		c.mu.Unlock()

		c.metrics.RecordTransfer(req.Provider.ID, string(StatusFailed), req.Amount.InexactFloat64())
		c.logger.Warn("settlement failed",
			zap.String("provider", req.Provider.ID),
			zap.String("amount", req.Amount.String()),
			zap.Error(err),
		)
		return
	}

	id, idErr := uuid.NewV7()
	if idErr != nil {
		id = uuid.New()
	}
	now := c.now()
	tx := Transaction{
		ID:        id,
		Recipient: req.Recipient,
		Account:   req.Account,
		Amount:    req.Amount,
		Date:      now.Format("2006-01-02"),
		Status:    StatusSuccess,
		Method:    req.Provider.Name,
		CreatedAt: now,
	}

	if req.Provider.Settlement == SettlementWallet {
		c.balance = c.balance.Sub(req.Amount)
	}
	c.txs = append([]Transaction{tx}, c.txs...)
	c.transitionLocked(StepSuccess)
	c.scheduleResetLocked(false)
	c.mu.Unlock()

	c.metrics.RecordTransfer(req.Provider.ID, string(StatusSuccess), req.Amount.InexactFloat64())
	c.logger.Info("transfer completed",
		zap.String("id", tx.ID.String()),
		zap.String("provider", req.Provider.ID),
		zap.String("amount", req.Amount.String()),
	)

	c.publish(tx)
}

// scheduleResetLocked returns the flow to input after the display delay.
// keepForm is set after a failure so the user can retry.
func (c *Controller) scheduleResetLocked(keepForm bool) {
	gen := c.gen
	c.resetTimer = time.AfterFunc(c.config.ResetDelay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		if c.closed || gen != c.gen {
			return
		}
		c.resetTimer = nil
		c.pin = [4]string{}
		if !keepForm {
			c.form = Form{Provider: c.form.Provider}
			c.lastErr = ""
		}
		c.transitionLocked(StepInput)
	})
}

func (c *Controller) publish(tx Transaction) {
	if c.publisher == nil {
		return
	}

	timeout := c.config.PublishTimeout
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}
	ctx, cancel := context.WithTimeout(c.ctx, timeout)
	defer cancel()

	if err := c.publisher.Publish(ctx, tx); err != nil {
		c.logger.Warn("transfer event not published", zap.String("id", tx.ID.String()), zap.Error(err))
	}
}
