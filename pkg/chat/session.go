// Package chat keeps one conversation with the assistant.
package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"arithmitra/pkg/gateway"
	"arithmitra/pkg/logging"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Fallback replaces or follows a reply whose stream failed.
const Fallback = "I'm having trouble connecting right now. Please try again later."

// ErrBusy is returned when a reply is still streaming.
var ErrBusy = errors.New("chat: a reply is already in progress")

// Role of a message author.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat entry. Pending is true only while its reply streams.
type Message struct {
	ID        uuid.UUID `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Pending   bool      `json:"pending,omitempty"`
}

// Streamer produces a streamed reply. *gateway.Gateway implements it.
type Streamer interface {
	Chat(ctx context.Context, history []gateway.Turn, message string, onFragment func(string)) (string, error)
}

// Session is an append-only conversation reset on language change.
type Session struct {
	mu       sync.Mutex
	lang     Language
	messages []Message
	epoch    uint64
	busy     bool

	streamer Streamer
	logger   *logging.Logger
	now      func() time.Time
}

// NewSession starts a conversation with the welcome message for lang.
func NewSession(lang Language, streamer Streamer) *Session {
	s := &Session{
		streamer: streamer,
		logger:   logging.L().Named("chat"),
		now:      time.Now,
	}
	s.resetLocked(lang)
	return s
}

func (s *Session) resetLocked(lang Language) {
	s.lang = lang
	s.epoch++
	s.busy = false
	s.messages = []Message{s.newMessage(RoleAssistant, Welcome(lang))}
}

func (s *Session) newMessage(role Role, text string) Message {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return Message{ID: id, Role: role, Text: text, Timestamp: s.now()}
}

// Language returns the current language.
func (s *Session) Language() Language {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lang
}

// SetLanguage resets the conversation when lang differs from the current
// one and reports whether it did. A reply still streaming is discarded.
func (s *Session) SetLanguage(lang Language) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if lang == s.lang {
		return false
	}
	s.resetLocked(lang)
	return true
}

// Messages returns a copy of the conversation.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Send appends text as a user message and streams the reply into a new
// assistant message. onUpdate, if set, sees the assistant message after
// every fragment and once more in its final state. The final assistant
// message is returned together with any stream error.
func (s *Session) Send(ctx context.Context, text string, onUpdate func(Message)) (Message, error) {
	if strings.TrimSpace(text) == "" {
		return Message{}, gateway.ErrEmptyInput
	}

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return Message{}, ErrBusy
	}
	s.busy = true
	epoch := s.epoch

	history := make([]gateway.Turn, 0, len(s.messages))
	for _, m := range s.messages {
		history = append(history, gateway.Turn{Role: gateway.Role(m.Role), Text: m.Text})
	}

	s.messages = append(s.messages, s.newMessage(RoleUser, text))
	reply := s.newMessage(RoleAssistant, "")
	reply.Pending = true
	s.messages = append(s.messages, reply)
	s.mu.Unlock()

	fragments := 0
	_, err := s.streamer.Chat(ctx, history, text, func(fragment string) {
		fragments++
		if m, ok := s.update(epoch, reply.ID, func(m *Message) { m.Text += fragment }); ok && onUpdate != nil {
			onUpdate(m)
		}
	})

	final, ok := s.finish(epoch, reply.ID, fragments, err)
	if ok && onUpdate != nil {
		onUpdate(final)
	}
	if err != nil {
		s.logger.Warn("chat reply failed", zap.Int("fragments", fragments), zap.Error(err))
	}
	return final, err
}

// update applies fn to the message with id if the conversation was not
// reset in the meantime.
func (s *Session) update(epoch uint64, id uuid.UUID, fn func(*Message)) (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if epoch != s.epoch {
		return Message{}, false
	}
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].ID == id {
			fn(&s.messages[i])
			return s.messages[i], true
		}
	}
	return Message{}, false
}

// finish puts the reply into a terminal state. Without any fragment the
// placeholder becomes the fallback; after a partial reply the fallback is
// appended as its own message.
func (s *Session) finish(epoch uint64, id uuid.UUID, fragments int, streamErr error) (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if epoch != s.epoch {
		return Message{}, false
	}
	s.busy = false

	idx := -1
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Message{}, false
	}

	s.messages[idx].Pending = false
	if streamErr == nil {
		return s.messages[idx], true
	}
	if fragments == 0 {
		s.messages[idx].Text = Fallback
		return s.messages[idx], true
	}

	fallback := s.newMessage(RoleAssistant, Fallback)
	s.messages = append(s.messages, fallback)
	return fallback, true
}
