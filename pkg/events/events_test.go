package events

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"arithmitra/pkg/transfer"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSink struct {
	sessionID string
	tx        transfer.Transaction
}

func (c *captureSink) PublishTransfer(ctx context.Context, sessionID string, tx transfer.Transaction) error {
	c.sessionID = sessionID
	c.tx = tx
	return nil
}

func sampleTransaction() transfer.Transaction {
	return transfer.Transaction{
		ID:        uuid.Must(uuid.NewV7()),
		Recipient: "Asha",
		Account:   "asha@okbank",
		Amount:    decimal.RequireFromString("120.50"),
		Date:      "2026-10-18",
		Status:    transfer.StatusSuccess,
		Method:    "Wallet",
	}
}

func TestForSession(t *testing.T) {
	sink := &captureSink{}
	tx := sampleTransaction()

	require.NoError(t, ForSession(sink, "sess-1").Publish(context.Background(), tx))
	assert.Equal(t, "sess-1", sink.sessionID)
	assert.Equal(t, tx.ID, sink.tx.ID)
}

func TestEncodeTransfer(t *testing.T) {
	tx := sampleTransaction()
	data, err := EncodeTransfer("sess-1", tx, time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	var decoded TransferEvent
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "sess-1", decoded.SessionID)
	assert.True(t, decoded.Transaction.Amount.Equal(tx.Amount))
	assert.Contains(t, string(data), `"amount":"120.5"`)
}

func TestWithDeadline(t *testing.T) {
	ctx, cancel := withDeadline(context.Background(), 0)
	defer cancel()
	deadline, ok := ctx.Deadline()
	require.True(t, ok, "a context without deadline should get one")
	assert.WithinDuration(t, time.Now().Add(DefaultPublishTimeout), deadline, time.Second)

	ctx, cancel = withDeadline(context.Background(), 50*time.Millisecond)
	defer cancel()
	deadline, ok = ctx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(50*time.Millisecond), deadline, 40*time.Millisecond)

	parent, cancelParent := context.WithTimeout(context.Background(), time.Hour)
	defer cancelParent()
	ctx, cancel = withDeadline(parent, time.Millisecond)
	defer cancel()
	want, _ := parent.Deadline()
	got, _ := ctx.Deadline()
	assert.Equal(t, want, got, "an existing deadline should be kept")
}

func TestNATSSink_PublishTransfer(t *testing.T) {
	url := os.Getenv("NATS_URL")
	if url == "" {
		url = nats.DefaultURL
	}
	nc, err := nats.Connect(url, nats.Timeout(500*time.Millisecond))
	if err != nil {
		t.Skipf("NATS not available: %v", err)
	}
	defer nc.Close()

	sub, err := nc.SubscribeSync("test.arithmitra.transfer")
	require.NoError(t, err)

	sink := NewNATSSink(nc, "test.arithmitra.transfer")
	require.NoError(t, sink.PublishTransfer(context.Background(), "sess-1", sampleTransaction()))

	msg, err := sub.NextMsg(time.Second)
	require.NoError(t, err)
	assert.Contains(t, string(msg.Data), `"session_id":"sess-1"`)
}
