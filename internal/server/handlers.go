package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"team-balancer/internal/domain"
	"team-balancer/internal/service"

	"github.com/rs/zerolog"
)

// Server exposes the host-facing event and command API. The game server
// pushes its events here and acts on the decisions in the responses.
type Server struct {
	svc    *service.BalanceService
	logger zerolog.Logger
}

func NewServer(svc *service.BalanceService, logger zerolog.Logger) *Server {
	return &Server{svc: svc, logger: logger}
}

func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/events/map-change", s.handleMapChange)
	mux.HandleFunc("POST /v1/events/round-countdown", s.handleRoundCountdown)
	mux.HandleFunc("POST /v1/events/player-connected", s.handlePlayerConnected)
	mux.HandleFunc("POST /v1/events/player-disconnected", s.handlePlayerDisconnected)
	mux.HandleFunc("POST /v1/events/team-switch-attempt", s.handleTeamSwitchAttempt)
	mux.HandleFunc("POST /v1/commands/teams", s.handleTeams)
	mux.HandleFunc("POST /v1/commands/balance", s.handleBalance)
	mux.HandleFunc("POST /v1/commands/agree", s.handleAgree)
	mux.HandleFunc("POST /v1/commands/veto", s.handleVeto)
	mux.HandleFunc("POST /v1/commands/do", s.handleDo)
	mux.HandleFunc("GET /v1/ratings/{id}", s.handleRatings)
	mux.HandleFunc("PUT /v1/players/{id}/exempt", s.handleExempt)
}

func (s *Server) handleMapChange(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Map string `json:"map"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.svc.OnMapChange(r.Context(), req.Map); err != nil {
		s.fail(w, err)
		return
	}
	s.ok(w, map[string]string{"status": "ok"})
}

func (s *Server) handleRoundCountdown(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.OnRoundCountdown(r.Context()); err != nil {
		s.fail(w, err)
		return
	}
	s.ok(w, map[string]string{"status": "ok"})
}

func (s *Server) handlePlayerConnected(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID int64  `json:"player_id"`
		Name     string `json:"name"`
		Address  string `json:"address"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.svc.OnPlayerConnected(r.Context(), domain.PlayerID(req.PlayerID), req.Name, req.Address); err != nil {
		s.fail(w, err)
		return
	}
	s.ok(w, map[string]string{"status": "ok"})
}

func (s *Server) handlePlayerDisconnected(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID int64 `json:"player_id"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	s.svc.OnPlayerDisconnected(r.Context(), domain.PlayerID(req.PlayerID))
	s.ok(w, map[string]string{"status": "ok"})
}

func (s *Server) handleTeamSwitchAttempt(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID int64  `json:"player_id"`
		Team     string `json:"team"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	decision, err := s.svc.OnTeamSwitchAttempt(r.Context(), domain.PlayerID(req.PlayerID), domain.TeamName(req.Team))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.ok(w, map[string]any{
		"allow":  decision.Allow,
		"team":   string(decision.Team),
		"reason": decision.Reason,
	})
}

func (s *Server) handleTeams(w http.ResponseWriter, r *http.Request) {
	report, err := s.svc.Teams(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	s.ok(w, report)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.BalanceTeams(r.Context()); err != nil {
		s.fail(w, err)
		return
	}
	s.ok(w, map[string]string{"status": "balanced"})
}

func (s *Server) handleAgree(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID int64 `json:"player_id"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	executed, err := s.svc.Agree(r.Context(), domain.PlayerID(req.PlayerID))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.ok(w, map[string]bool{"executed": executed})
}

func (s *Server) handleVeto(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID int64 `json:"player_id"`
		Admin    bool  `json:"admin"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.svc.Veto(r.Context(), domain.PlayerID(req.PlayerID), req.Admin); err != nil {
		s.fail(w, err)
		return
	}
	s.ok(w, map[string]string{"status": "ok"})
}

func (s *Server) handleDo(w http.ResponseWriter, r *http.Request) {
	executed, err := s.svc.ForceExecute(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	s.ok(w, map[string]bool{"executed": executed})
}

func (s *Server) handleRatings(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "bad player id", http.StatusBadRequest)
		return
	}
	lines, err := s.svc.PlayerRatings(r.Context(), domain.PlayerID(id))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.ok(w, map[string]any{"player_id": id, "ratings": lines})
}

func (s *Server) handleExempt(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "bad player id", http.StatusBadRequest)
		return
	}
	var req struct {
		Exempt bool `json:"exempt"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.svc.SetExempt(r.Context(), domain.PlayerID(id), req.Exempt); err != nil {
		s.fail(w, err)
		return
	}
	s.ok(w, map[string]string{"status": "ok"})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return false
	}
	return true
}

func (s *Server) ok(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn().Err(err).Msg("could not encode response")
	}
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrNoSuggestion), errors.Is(err, service.ErrNoRatings):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrNotParticipant):
		status = http.StatusForbidden
	}
	s.logger.Error().Err(err).Int("status", status).Msg("request failed")
	http.Error(w, err.Error(), status)
}
