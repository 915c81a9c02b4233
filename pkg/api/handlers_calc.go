package api

import (
	"net/http"
	"strconv"

	"arithmitra/pkg/calc"
	"arithmitra/pkg/chat"
	"arithmitra/pkg/transfer"
)

type emiRequest struct {
	Principal float64 `json:"principal" validate:"gt=0,lte=1000000000000"`
	Rate      float64 `json:"rate" validate:"gte=0,lte=100"`
	Years     float64 `json:"years" validate:"gt=0,lte=50"`
}

func (s *Server) handleEMI(w http.ResponseWriter, r *http.Request) {
	var req emiRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := calc.EMI(req.Principal, req.Rate, req.Years)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type premiumRequest struct {
	Type       string  `json:"type" validate:"required"`
	Coverage   float64 `json:"coverage" validate:"gt=0"`
	Age        int     `json:"age" validate:"gte=0,lte=120"`
	VehicleAge int     `json:"vehicleAge" validate:"gte=0,lte=50"`
}

type premiumResponse struct {
	Type    calc.Policy `json:"type"`
	Premium float64     `json:"premium"`
	Plans   []calc.Plan `json:"plans"`
}

func (s *Server) handlePremium(w http.ResponseWriter, r *http.Request) {
	var req premiumRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	kind, err := calc.ParsePolicy(req.Type)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	premium, err := calc.Premium(kind, req.Coverage, req.Age, req.VehicleAge)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, premiumResponse{
		Type:    kind,
		Premium: premium,
		Plans:   calc.Plans(req.Coverage, premium),
	})
}

func (s *Server) handleBand(w http.ResponseWriter, r *http.Request) {
	score, err := strconv.Atoi(r.URL.Query().Get("score"))
	if err != nil {
		s.writeError(w, r, &requestError{
			msg:    "score must be an integer",
			fields: map[string]string{"score": "is invalid"},
		})
		return
	}

	band, err := calc.CheckScore(score)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, calc.ScoreReport{Score: score, Band: band})
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	var req calc.ScoreRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	req = req.Normalize()
	if problems := req.Problems(); len(problems) > 0 {
		s.writeError(w, r, &requestError{msg: "validation failed", fields: problems})
		return
	}
	writeJSON(w, http.StatusOK, calc.SimulatedScore(nil))
}

type cardsRequest struct {
	Income float64 `json:"income" validate:"gt=0"`
}

type cardsResponse struct {
	Income float64     `json:"income"`
	Cards  []calc.Card `json:"cards"`
}

func (s *Server) handleCards(w http.ResponseWriter, r *http.Request) {
	var req cardsRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	cards, err := calc.EligibleCards(req.Income)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cardsResponse{Income: req.Income, Cards: cards})
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, transfer.Providers())
}

func (s *Server) handleLanguages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, chat.Languages())
}
