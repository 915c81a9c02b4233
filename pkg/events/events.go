// Package events publishes completed transfers to NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"arithmitra/pkg/logging"
	"arithmitra/pkg/transfer"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// DefaultSubject is where completed transfers are published.
const DefaultSubject = "arithmitra.transfer.completed"

// TransferEvent is the message body published for a completed transfer.
type TransferEvent struct {
	SessionID   string               `json:"session_id"`
	Transaction transfer.Transaction `json:"transaction"`
	PublishedAt time.Time            `json:"published_at"`
}

// Sink accepts completed transfers of any session.
type Sink interface {
	PublishTransfer(ctx context.Context, sessionID string, tx transfer.Transaction) error
}

// ForSession binds sink to one session so it can be handed to a transfer
// controller.
func ForSession(sink Sink, sessionID string) transfer.Publisher {
	return sessionPublisher{sink: sink, sessionID: sessionID}
}

type sessionPublisher struct {
	sink      Sink
	sessionID string
}

func (p sessionPublisher) Publish(ctx context.Context, tx transfer.Transaction) error {
	return p.sink.PublishTransfer(ctx, p.sessionID, tx)
}

// NoOpSink drops every event. Used when NATS is not configured.
type NoOpSink struct{}

func (NoOpSink) PublishTransfer(ctx context.Context, sessionID string, tx transfer.Transaction) error {
	return nil
}

// Config configures the NATS connection.
type Config struct {
	URL     string        `yaml:"url"`
	Subject string        `yaml:"subject"`
	Name    string        `yaml:"name"`
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultConfig returns a config for a local server.
func DefaultConfig() Config {
	return Config{
		URL:     nats.DefaultURL,
		Subject: DefaultSubject,
		Name:    "arithmitra",
		Timeout: 2 * time.Second,
	}
}

// NATSSink publishes TransferEvents as JSON.
type NATSSink struct {
	nc      *nats.Conn
	subject string
	timeout time.Duration
	logger  *logging.Logger
}

// DefaultPublishTimeout bounds a flush when the caller's context has no deadline.
const DefaultPublishTimeout = 2 * time.Second

// Connect dials NATS. Reconnects are handled by the client.
func Connect(config Config) (*NATSSink, error) {
	if config.Subject == "" {
		config.Subject = DefaultSubject
	}
	logger := logging.L().Named("events")

	nc, err := nats.Connect(config.URL,
		nats.Name(config.Name),
		nats.Timeout(config.Timeout),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("events: connect %s: %w", config.URL, err)
	}

	sink := NewNATSSink(nc, config.Subject)
	if config.Timeout > 0 {
		sink.timeout = config.Timeout
	}
	return sink, nil
}

// NewNATSSink wraps an existing connection.
func NewNATSSink(nc *nats.Conn, subject string) *NATSSink {
	return &NATSSink{
		nc:      nc,
		subject: subject,
		timeout: DefaultPublishTimeout,
		logger:  logging.L().Named("events"),
	}
}

// withDeadline returns ctx unchanged when it already has a deadline, since
// FlushWithContext rejects contexts without one.
func withDeadline(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// PublishTransfer publishes tx and flushes so server errors surface here.
func (s *NATSSink) PublishTransfer(ctx context.Context, sessionID string, tx transfer.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := EncodeTransfer(sessionID, tx, time.Now())
	if err != nil {
		return err
	}
	if err := s.nc.Publish(s.subject, data); err != nil {
		return fmt.Errorf("events: publish: %w", err)
	}
	ctx, cancel := withDeadline(ctx, s.timeout)
	defer cancel()
	if err := s.nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("events: flush: %w", err)
	}

	s.logger.Debug("transfer published",
		zap.String("subject", s.subject),
		zap.String("id", tx.ID.String()),
	)
	return nil
}

// Close drains the connection.
func (s *NATSSink) Close() error {
	return s.nc.Drain()
}

// EncodeTransfer builds the message body for tx.
func EncodeTransfer(sessionID string, tx transfer.Transaction, at time.Time) ([]byte, error) {
	data, err := json.Marshal(TransferEvent{SessionID: sessionID, Transaction: tx, PublishedAt: at.UTC()})
	if err != nil {
		return nil, fmt.Errorf("events: encode: %w", err)
	}
	return data, nil
}
