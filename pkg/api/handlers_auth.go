package api

import (
	"net/http"

	"arithmitra/pkg/session"
)

type signUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`

	// SessionID, when set, signs that session in.
	SessionID string `json:"sessionId"`
}

type federatedRequest struct {
	Provider  string `json:"provider" validate:"required"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	SessionID string `json:"sessionId"`
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	user, err := s.deps.Accounts.SignUp(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	sess, err := s.optionalSession(req.SessionID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	user, err := s.deps.Accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if sess != nil {
		sess.SetUser(user)
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleFederated(w http.ResponseWriter, r *http.Request) {
	var req federatedRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	sess, err := s.optionalSession(req.SessionID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	user, err := s.deps.Accounts.SignInFederated(r.Context(), req.Provider, req.Name, req.Email)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if sess != nil {
		sess.SetUser(user)
	}
	writeJSON(w, http.StatusOK, user)
}

// optionalSession resolves the session a sign-in should attach to, before
// any credentials are checked. An empty id means none.
func (s *Server) optionalSession(id string) (*session.Session, error) {
	if id == "" {
		return nil, nil
	}
	return s.deps.Sessions.Get(id)
}
