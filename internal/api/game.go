package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/BigPhill11/pilot-program-learn-sub001/internal/app/session"
	"github.com/BigPhill11/pilot-program-learn-sub001/internal/domain"
)

// ─── Request bodies ─────────────────────────────────────────────────────────

type startSessionRequest struct {
	UserID string          `json:"user_id"`
	Mode   domain.GameMode `json:"mode"`
}

type swipeRequest struct {
	CandidateID string             `json:"candidate_id"`
	Action      domain.SwipeAction `json:"action"`
	ThesisCount int                `json:"thesis_count"`
	Horizon     domain.Horizon     `json:"horizon"`
}

// statusFor maps domain sentinels to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidAction),
		errors.Is(err, domain.ErrInvalidMode),
		errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrUnknownCandidate),
		errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNoSuperLikes),
		errors.Is(err, domain.ErrRunFinished),
		errors.Is(err, domain.ErrAlreadySwiped),
		errors.Is(err, domain.ErrDeckExhausted):
		return http.StatusConflict
	case errors.Is(err, domain.ErrStoreClosed):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session.GameSession, bool) {
	gs, err := s.sessions.Get(chi.URLParam(r, "user"))
	if err != nil {
		writeDomainError(w, err)
		return nil, false
	}
	return gs, true
}

// ─── Sessions ───────────────────────────────────────────────────────────────

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	gs, err := s.sessions.Start(r.Context(), req.UserID, req.Mode)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, gs.State())
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	gs, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, gs.State())
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	gs, ok := s.session(w, r)
	if !ok {
		return
	}
	s.sessions.End(gs.UserID())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSwipe(w http.ResponseWriter, r *http.Request) {
	gs, ok := s.session(w, r)
	if !ok {
		return
	}
	var req swipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	res, err := gs.Swipe(r.Context(), session.SwipeInput{
		CandidateID: req.CandidateID,
		Action:      req.Action,
		ThesisCount: req.ThesisCount,
		Horizon:     req.Horizon,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	gs, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, gs.Advance())
}

func (s *Server) handleRewind(w http.ResponseWriter, r *http.Request) {
	gs, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, gs.Rewind())
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	gs, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, gs.Reset())
}

func (s *Server) handleMatches(w http.ResponseWriter, r *http.Request) {
	gs, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"matches": gs.Matched()})
}

func (s *Server) handleChallenge(w http.ResponseWriter, r *http.Request) {
	gs, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, gs.Challenge(r.Context()))
}

// ─── Read models ────────────────────────────────────────────────────────────

// handleAchievements serves both /api/sessions/{user}/achievements and
// /api/users/{user}/achievements; neither needs an open session.
func (s *Server) handleAchievements(w http.ResponseWriter, r *http.Request) {
	list, err := s.sessions.Achievements(r.Context(), chi.URLParam(r, "user"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	unlocked := 0
	for _, a := range list {
		if a.Unlocked {
			unlocked++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"achievements": list,
		"unlocked":     unlocked,
		"total":        len(list),
	})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.sessions.Profile(r.Context(), chi.URLParam(r, "user"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleScenario(w http.ResponseWriter, r *http.Request) {
	date := s.sessions.Now()
	if q := r.URL.Query().Get("date"); q != "" {
		d, err := time.ParseInLocation(time.DateOnly, q, s.sessions.Location())
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		date = d
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"date":     date.Format(time.DateOnly),
		"scenario": s.sessions.ScenarioForDate(date),
	})
}

func (s *Server) handleScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"scenarios": s.sessions.Macro().Catalog()})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n <= 0 || n > 100 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = n
	}
	entries, err := s.sessions.Leaderboard(r.Context(), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"leaderboard": entries})
}
