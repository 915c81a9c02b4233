// Package gateway calls the hosted model for fraud scans, loan eligibility
// and chat, and validates what comes back.
package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"arithmitra/pkg/cache"
	"arithmitra/pkg/logging"
	"arithmitra/pkg/metrics"
	"arithmitra/pkg/resilience"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Kind labels a gateway call.
type Kind string

const (
	KindFraud Kind = "fraud"
	KindLoan  Kind = "loan"
	KindChat  Kind = "chat"
)

// DefaultSystemInstruction is sent with every chat request.
const DefaultSystemInstruction = "You are ArithMitra, a helpful, polite, and knowledgeable financial assistant. " +
	"Keep answers concise but informative. You are capable of conversing fluently in English, Hindi, Marathi, " +
	"Gujarati, Tamil, Telugu, Kannada, and Bengali. Always respond in the language the user is speaking or asks for."

// Cache stores validated scoring responses. chain.Chain implements it.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Config configures the gateway.
type Config struct {
	// CacheTTL is how long a validated scoring response is reused
	CacheTTL time.Duration `yaml:"cache_ttl"`

	// ChatTimeout bounds a whole chat stream
	ChatTimeout time.Duration `yaml:"chat_timeout"`

	SystemInstruction string `yaml:"system_instruction"`

	Breaker resilience.Config `yaml:"breaker"`
}

// DefaultConfig returns the gateway defaults.
func DefaultConfig() Config {
	return Config{
		CacheTTL:          time.Hour,
		ChatTimeout:       2 * time.Minute,
		SystemInstruction: DefaultSystemInstruction,
		Breaker:           resilience.DefaultModelConfig(),
	}
}

// Gateway is safe for concurrent use.
type Gateway struct {
	model    Model
	cache    Cache
	keys     *cache.KeyPattern
	sf       singleflight.Group
	breaker  *resilience.Breaker
	validate *validator.Validate
	config   Config
	metrics  metrics.Collector
	logger   *logging.Logger
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithCache enables response caching.
func WithCache(c Cache) Option {
	return func(g *Gateway) { g.cache = c }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m metrics.Collector) Option {
	return func(g *Gateway) { g.metrics = m }
}

// New creates a gateway over model.
func New(model Model, config Config, opts ...Option) *Gateway {
	if config.SystemInstruction == "" {
		config.SystemInstruction = DefaultSystemInstruction
	}

	g := &Gateway{
		model:    model,
		keys:     cache.NewKeyPattern("assess", ":"),
		validate: newValidator(),
		config:   config,
		metrics:  metrics.NoOpCollector{},
		logger:   logging.L().Named("gateway"),
	}
	for _, opt := range opts {
		opt(g)
	}

	// A caller giving up is not a sign the endpoint is unhealthy.
	breakerConfig := config.Breaker.WithIsSuccessful(func(err error) bool {
		return errors.Is(err, context.Canceled)
	})
	g.breaker = resilience.NewBreaker("model", breakerConfig, g.metrics)

	return g
}

// AnalyzeFraud scores a suspicious SMS or email.
func (g *Gateway) AnalyzeFraud(ctx context.Context, text string) (*FraudResult, error) {
	start := time.Now()
	if strings.TrimSpace(text) == "" {
		g.record(KindFraud, ErrEmptyInput, false, start)
		return nil, ErrEmptyInput
	}

	req := StructuredRequest{Prompt: fraudPrompt(text), Schema: fraudSchema}
	check := func(data []byte) error {
		_, err := decodeFraud(g.validate, data)
		return err
	}

	data, cached, err := g.structured(ctx, KindFraud, req, check)
	if err == nil {
		var result *FraudResult
		if result, err = decodeFraud(g.validate, data); err == nil {
			g.record(KindFraud, nil, cached, start)
			return result, nil
		}
	}
	g.record(KindFraud, err, false, start)
	return nil, err
}

// PredictLoan assesses loan eligibility.
func (g *Gateway) PredictLoan(ctx context.Context, in LoanInput) (*LoanResult, error) {
	start := time.Now()
	if err := validateLoanInput(g.validate, in); err != nil {
		g.record(KindLoan, err, false, start)
		return nil, err
	}

	req := StructuredRequest{Prompt: loanPrompt(in), Schema: loanSchema}
	check := func(data []byte) error {
		_, err := decodeLoan(g.validate, data)
		return err
	}

	data, cached, err := g.structured(ctx, KindLoan, req, check)
	if err == nil {
		var result *LoanResult
		if result, err = decodeLoan(g.validate, data); err == nil {
			g.record(KindLoan, nil, cached, start)
			return result, nil
		}
	}
	g.record(KindLoan, err, false, start)
	return nil, err
}

// structured returns a response that passed check, from the cache when
// possible. Identical concurrent requests share one model call.
func (g *Gateway) structured(ctx context.Context, kind Kind, req StructuredRequest, check func([]byte) error) ([]byte, bool, error) {
	key := g.keys.Digest(string(kind), req.Prompt)

	if g.cache != nil {
		if data, err := g.cache.Get(ctx, key); err == nil {
			if check(data) == nil {
				return data, true, nil
			}
			g.logger.Warn("discarding cached response that no longer validates", zap.String("key", key))
		}
	}

	// The shared call outlives any single caller; each caller still stops
	// waiting when its own ctx is done.
	shared := context.WithoutCancel(ctx)
	ch := g.sf.DoChan(key, func() (interface{}, error) {
		return g.fetch(shared, kind, key, req, check)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		return res.Val.([]byte), false, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

func (g *Gateway) fetch(ctx context.Context, kind Kind, key string, req StructuredRequest, check func([]byte) error) ([]byte, error) {
	out, err := g.breaker.Do(ctx, func(ctx context.Context) (interface{}, error) {
		return g.model.GenerateJSON(ctx, req)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrTransport, kind, err)
	}

	data, _ := out.([]byte)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrInvalidResponse)
	}
	if err := check(data); err != nil {
		g.logger.Warn("model response rejected", zap.String("kind", string(kind)), zap.Error(err))
		return nil, err
	}

	if g.cache != nil {
		if err := g.cache.Set(ctx, key, data, g.config.CacheTTL); err != nil {
			g.logger.Debug("response not cached", zap.String("key", key), zap.Error(err))
		}
	}
	return data, nil
}

// Chat streams a reply to message given the prior history. onFragment is
// called for every non-empty fragment in arrival order. The returned text
// is the concatenation of the fragments, also on error.
func (g *Gateway) Chat(ctx context.Context, history []Turn, message string, onFragment func(string)) (string, error) {
	start := time.Now()
	if strings.TrimSpace(message) == "" {
		g.record(KindChat, ErrEmptyInput, false, start)
		return "", ErrEmptyInput
	}

	req := ChatRequest{
		SystemInstruction: g.config.SystemInstruction,
		History:           history,
		Message:           message,
	}

	var reply strings.Builder
	fragments := 0
	_, err := g.breaker.DoTimeout(ctx, g.config.ChatTimeout, func(ctx context.Context) (interface{}, error) {
		for fragment, err := range g.model.StreamChat(ctx, req) {
			if err != nil {
				return nil, err
			}
			if fragment == "" {
				continue
			}
			fragments++
			reply.WriteString(fragment)
			if onFragment != nil {
				onFragment(fragment)
			}
		}
		return nil, nil
	})
	if err != nil {
		err = fmt.Errorf("%w: chat: %w", ErrTransport, err)
	}

	g.metrics.RecordChatStream(fragments, err == nil, time.Since(start))
	g.record(KindChat, err, false, start)
	return reply.String(), err
}

// CircuitState reports the model breaker state.
func (g *Gateway) CircuitState() metrics.CircuitState {
	return g.breaker.State()
}

func (g *Gateway) record(kind Kind, err error, cached bool, start time.Time) {
	outcome := outcomeOf(err)
	if cached {
		outcome = metrics.OutcomeCached
	}
	g.metrics.RecordAssessment(string(kind), outcome, time.Since(start))

	if err != nil && !IsInputError(err) {
		g.logger.Warn("assessment failed",
			zap.String("kind", string(kind)),
			zap.String("outcome", string(outcome)),
			zap.Error(err),
		)
	}
}
