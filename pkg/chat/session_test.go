package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"arithmitra/pkg/gateway"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedStreamer struct {
	fragments []string
	err       error
	history   []gateway.Turn
	during    func()
}

func (s *scriptedStreamer) Chat(ctx context.Context, history []gateway.Turn, message string, onFragment func(string)) (string, error) {
	s.history = history
	var b strings.Builder
	for _, f := range s.fragments {
		if s.during != nil {
			s.during()
		}
		b.WriteString(f)
		onFragment(f)
	}
	return b.String(), s.err
}

func TestNewSession_Welcome(t *testing.T) {
	s := NewSession(Hindi, &scriptedStreamer{})

	msgs := s.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, RoleAssistant, msgs[0].Role)
	assert.Equal(t, Welcome(Hindi), msgs[0].Text)
}

func TestSetLanguage_ResetsOnlyOnChange(t *testing.T) {
	s := NewSession(English, &scriptedStreamer{fragments: []string{"Hi"}})
	_, err := s.Send(context.Background(), "hello", nil)
	require.NoError(t, err)
	require.Len(t, s.Messages(), 3)

	assert.False(t, s.SetLanguage(English))
	assert.Len(t, s.Messages(), 3)

	assert.True(t, s.SetLanguage(Tamil))
	msgs := s.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, Welcome(Tamil), msgs[0].Text)
	assert.Equal(t, Tamil, s.Language())
}

func TestSend_ConcatenatedFragmentsEqualFinalText(t *testing.T) {
	streamer := &scriptedStreamer{fragments: []string{"An EMI ", "is a fixed ", "monthly payment."}}
	s := NewSession(English, streamer)

	var seen []string
	final, err := s.Send(context.Background(), "What is EMI?", func(m Message) {
		seen = append(seen, m.Text)
	})
	require.NoError(t, err)

	assert.Equal(t, "An EMI is a fixed monthly payment.", final.Text)
	assert.False(t, final.Pending)
	assert.Equal(t, []string{"An EMI ", "An EMI is a fixed ", "An EMI is a fixed monthly payment.", final.Text}, seen)

	msgs := s.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, RoleUser, msgs[1].Role)
	assert.Equal(t, "What is EMI?", msgs[1].Text)
	assert.Equal(t, final, msgs[2])

	require.Len(t, streamer.history, 1, "history holds the messages before the new one")
	assert.Equal(t, gateway.RoleAssistant, streamer.history[0].Role)
}

func TestSend_ErrorWithoutFragmentsReplacesPlaceholder(t *testing.T) {
	s := NewSession(English, &scriptedStreamer{err: errors.New("offline")})

	final, err := s.Send(context.Background(), "hello", nil)
	require.Error(t, err)
	assert.Equal(t, Fallback, final.Text)

	msgs := s.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, Fallback, msgs[2].Text)
	assert.False(t, msgs[2].Pending)
}

func TestSend_ErrorAfterFragmentsAppendsFallback(t *testing.T) {
	s := NewSession(English, &scriptedStreamer{fragments: []string{"Half an ans"}, err: errors.New("reset")})

	_, err := s.Send(context.Background(), "hello", nil)
	require.Error(t, err)

	msgs := s.Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, "Half an ans", msgs[2].Text)
	assert.False(t, msgs[2].Pending)
	assert.Equal(t, Fallback, msgs[3].Text)
}

func TestSend_BlankMessage(t *testing.T) {
	s := NewSession(English, &scriptedStreamer{})

	_, err := s.Send(context.Background(), "   ", nil)
	require.ErrorIs(t, err, gateway.ErrEmptyInput)
	assert.Len(t, s.Messages(), 1)
}

func TestSend_LanguageChangeDuringStreamDropsReply(t *testing.T) {
	streamer := &scriptedStreamer{fragments: []string{"one", "two"}}
	s := NewSession(English, streamer)
	streamer.during = func() { s.SetLanguage(Bengali) }

	_, err := s.Send(context.Background(), "hello", nil)
	require.NoError(t, err)

	msgs := s.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, Welcome(Bengali), msgs[0].Text)
}

func TestParseLanguage(t *testing.T) {
	lang, err := ParseLanguage(" KN ")
	require.NoError(t, err)
	assert.Equal(t, Kannada, lang)

	_, err = ParseLanguage("fr")
	require.Error(t, err)

	assert.Len(t, Languages(), 8)
	assert.Equal(t, Welcome(English), Welcome("xx"))
}
