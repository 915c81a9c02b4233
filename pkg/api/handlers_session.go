package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"arithmitra/pkg/account"
	"arithmitra/pkg/chat"
	"arithmitra/pkg/expense"
	"arithmitra/pkg/session"
	"arithmitra/pkg/transfer"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *session.Session)

// withSession resolves {id} to a live session.
func (s *Server) withSession(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.deps.Sessions.Get(mux.Vars(r)["id"])
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		h(w, r, sess)
	}
}

type createSessionRequest struct {
	Language string `json:"language"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if r.ContentLength != 0 {
		if err := s.decode(w, r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	var lang chat.Language
	if req.Language != "" {
		parsed, err := chat.ParseLanguage(req.Language)
		if err != nil {
			s.writeError(w, r, &requestError{msg: err.Error(), fields: map[string]string{"language": "is not supported"}})
			return
		}
		lang = parsed
	}

	sess, err := s.deps.Sessions.Create(lang)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess.Info())
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	writeJSON(w, http.StatusOK, sess.Info())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Sessions.Delete(mux.Vars(r)["id"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type languageRequest struct {
	Language string `json:"language" validate:"required"`
}

type languageResponse struct {
	Language chat.Language `json:"language"`
	Reset    bool          `json:"reset"`
}

func (s *Server) handleSetLanguage(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req languageRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	lang, err := chat.ParseLanguage(req.Language)
	if err != nil {
		s.writeError(w, r, &requestError{msg: err.Error(), fields: map[string]string{"language": "is not supported"}})
		return
	}
	writeJSON(w, http.StatusOK, languageResponse{Language: lang, Reset: sess.SetLanguage(lang)})
}

type themeBody struct {
	Theme account.Theme `json:"theme" validate:"required"`
}

func (s *Server) handleGetTheme(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	theme, err := sess.Preferences.Theme(r.Context(), account.Light)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, themeBody{Theme: theme})
}

func (s *Server) handleSetTheme(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req themeBody
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := sess.Preferences.SetTheme(r.Context(), req.Theme); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// Payment flow

func (s *Server) handleTransferSnapshot(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	writeJSON(w, http.StatusOK, sess.Transfer.Snapshot())
}

// handleTransferSubmit starts a transfer. The reply is the flow state right
// after the step change (pin or processing).
func (s *Server) handleTransferSubmit(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var form transfer.Form
	if err := s.decode(w, r, &form); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := sess.Transfer.Submit(r.Context(), form); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, sess.Transfer.Snapshot())
}

type pinRequest struct {
	PIN string `json:"pin" validate:"len=4"`
}

func (s *Server) handleTransferPIN(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req pinRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	var digits [4]string
	for i := range digits {
		digits[i] = req.PIN[i : i+1]
	}
	if err := sess.Transfer.SubmitPIN(r.Context(), digits); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, sess.Transfer.Snapshot())
}

func (s *Server) handleTransferCancel(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if err := sess.Transfer.Cancel(); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Transfer.Snapshot())
}

type topUpRequest struct {
	Amount string `json:"amount" validate:"required"`
}

func (s *Server) handleTopUp(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req topUpRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	amount, err := transfer.ParseAmount(req.Amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := sess.Transfer.TopUp(amount); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"balance": sess.Transfer.Balance()})
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	writeJSON(w, http.StatusOK, sess.Transfer.Transactions())
}

// Expenses

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	writeJSON(w, http.StatusOK, sess.Expenses.Summary())
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var in expense.Input
	if err := s.decode(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	e, err := sess.Expenses.Add(in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	id, err := uuid.Parse(mux.Vars(r)["expenseID"])
	if err != nil {
		s.writeError(w, r, expense.ErrNotFound)
		return
	}
	if err := sess.Expenses.Delete(id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Chat

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	writeJSON(w, http.StatusOK, sess.Chat.Messages())
}

type chatRequest struct {
	Message string `json:"message"`
}

// handleChat streams the assistant reply as it arrives. The default body is
// plain text: each write is the new part of the reply, and a fallback that
// follows a partial reply starts on its own line. With ?format=ndjson every
// write is the assistant message as JSON, one per line.
//
// Errors raised before the first fragment get a normal error response.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req chatRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	ndjson := r.URL.Query().Get("format") == "ndjson"
	rc := http.NewResponseController(w)
	if s.config.StreamTimeout > 0 {
		// Not every writer supports deadlines; the server WriteTimeout still applies then.
		_ = rc.SetWriteDeadline(time.Now().Add(s.config.StreamTimeout))
	}

	ctx := r.Context()
	if s.config.StreamTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.StreamTimeout)
		defer cancel()
	}

	started := false
	var lastID uuid.UUID
	var sent string
	enc := json.NewEncoder(w)

	onUpdate := func(m chat.Message) {
		if !started {
			started = true
			if ndjson {
				w.Header().Set("Content-Type", "application/x-ndjson")
			} else {
				w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			}
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.WriteHeader(http.StatusOK)
		}

		if ndjson {
			enc.Encode(m)
		} else {
			var delta string
			if m.ID == lastID && strings.HasPrefix(m.Text, sent) {
				delta = m.Text[len(sent):]
			} else {
				if sent != "" {
					delta = "\n"
				}
				delta += m.Text
			}
			lastID, sent = m.ID, m.Text
			if delta == "" {
				return
			}
			w.Write([]byte(delta))
		}
		if err := rc.Flush(); err != nil {
			s.logger.Debug("chat flush failed", zap.Error(err))
		}
	}

	_, err := sess.Chat.Send(ctx, req.Message, onUpdate)
	switch {
	case started:
	case err != nil:
		s.writeError(w, r, err)
	default:
		// The conversation was reset by a language change mid-reply.
		w.WriteHeader(http.StatusNoContent)
	}
}
