package api

import (
	"context"
	"net/http"

	"arithmitra/pkg/gateway"
)

type fraudRequest struct {
	Text string `json:"text"`
}

func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if s.config.RequestTimeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), s.config.RequestTimeout)
}

// handleFraud scans a suspicious message. Blank text is rejected by the
// gateway before any model call.
func (s *Server) handleFraud(w http.ResponseWriter, r *http.Request) {
	var req fraudRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	result, err := s.deps.Assessor.AnalyzeFraud(ctx, req.Text)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleLoan(w http.ResponseWriter, r *http.Request) {
	var req gateway.LoanInput
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	result, err := s.deps.Assessor.PredictLoan(ctx, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
