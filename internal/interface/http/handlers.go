package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/socialdetox/detox-hub/config"
	"github.com/socialdetox/detox-hub/internal/application/command"
	"github.com/socialdetox/detox-hub/internal/application/query"
	"github.com/socialdetox/detox-hub/internal/application/refresh"
)

// ══════════════════════════════════════════════════════════════════════════════
// ROUTING
// ══════════════════════════════════════════════════════════════════════════════

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// ─────────────────────────────────────────────────────────────────────────
	// Health & status
	// ─────────────────────────────────────────────────────────────────────────
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/ready", s.handleReady).Methods(http.MethodGet)
	s.router.HandleFunc("/live", s.handleLive).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api/v1").Subrouter()

	// ─────────────────────────────────────────────────────────────────────────
	// Scores & leaderboard
	// ─────────────────────────────────────────────────────────────────────────
	api.HandleFunc("/users/{userId}/dashboard", s.handleGetDashboard).Methods(http.MethodGet)
	api.HandleFunc("/users/{userId}/refresh", s.handleRefresh).Methods(http.MethodPost)
	api.HandleFunc("/leaderboard", s.handleGetLeaderboard).Methods(http.MethodGet)

	// ─────────────────────────────────────────────────────────────────────────
	// Battles
	// ─────────────────────────────────────────────────────────────────────────
	api.HandleFunc("/users/{userId}/battles", s.handleGetBattles).Methods(http.MethodGet)
	api.HandleFunc("/battles", s.handleChallenge).Methods(http.MethodPost)
	api.HandleFunc("/battles/{id}/accept", s.handleAcceptBattle).Methods(http.MethodPost)
	api.HandleFunc("/battles/{id}", s.handleDeleteBattle).Methods(http.MethodDelete)
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// handleReady pings the backing stores; 503 until all reachable.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	ready := true

	for name, checker := range map[string]HealthChecker{"postgres": s.deps.Postgres, "redis": s.deps.Redis} {
		if checker == nil {
			continue
		}
		if err := checker.Ping(ctx); err != nil {
			checks[name] = "unreachable"
			ready = false
			continue
		}
		checks[name] = "ok"
	}

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, checks)
}

// ══════════════════════════════════════════════════════════════════════════════
// SCORE & LEADERBOARD HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetDashboard returns today's score with breakdown, the weekly and
// monthly scores, the leaderboard rank and the 7-day history.
func (s *Server) handleGetDashboard(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]

	result, err := s.deps.Dashboard.Handle(r.Context(), query.GetDashboardSummaryQuery{UserID: userID})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleRefresh runs an explicit refresh cycle for the user.
// The trigger comes from the query string and defaults to manual_refresh.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]

	trigger := refresh.Trigger(r.URL.Query().Get("trigger"))
	if trigger == "" {
		trigger = refresh.TriggerManualRefresh
	}

	result, err := s.deps.Coordinator.Refresh(r.Context(), refresh.Request{UserID: userID, Trigger: trigger})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	q := query.GetLeaderboardQuery{
		CurrentUserID: r.URL.Query().Get("user_id"),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeJSONError(w, http.StatusBadRequest, "validation_error", "limit must be a non-negative integer")
			return
		}
		q.Limit = limit
	}

	result, err := s.deps.Leaderboard.Handle(r.Context(), q)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// BATTLE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetBattles lists the user's battles. Reading the list finishes
// expired battles, so this endpoint doubles as the resolution trigger.
func (s *Server) handleGetBattles(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]

	result, err := s.deps.Battles.Handle(r.Context(), query.GetBattlesQuery{UserID: userID})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type challengeRequest struct {
	ChallengerID string `json:"challenger_id"`
	OpponentID   string `json:"opponent_id"`
	Duration     string `json:"duration"`
}

func (s *Server) handleChallenge(w http.ResponseWriter, r *http.Request) {
	var req challengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", "request body must be valid JSON")
		return
	}

	if !s.featureOn(config.FeatureBattles, req.ChallengerID) {
		writeJSONError(w, http.StatusForbidden, "feature_disabled", "battles are not available for this user")
		return
	}
	if req.Duration == "30_days" && !s.featureOn(config.FeatureBattleMonthLong, req.ChallengerID) {
		writeJSONError(w, http.StatusForbidden, "feature_disabled", "month-long battles are not available for this user")
		return
	}

	result, err := s.deps.Challenge.Handle(r.Context(), command.ChallengeUserCommand{
		ChallengerID: req.ChallengerID,
		OpponentID:   req.OpponentID,
		Duration:     req.Duration,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

type acceptRequest struct {
	CallerID string `json:"caller_id"`
}

func (s *Server) handleAcceptBattle(w http.ResponseWriter, r *http.Request) {
	battleID := mux.Vars(r)["id"]

	var req acceptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", "request body must be valid JSON")
		return
	}

	result, err := s.deps.AcceptBattle.Handle(r.Context(), command.AcceptBattleCommand{
		BattleID: battleID,
		CallerID: req.CallerID,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleDeleteBattle(w http.ResponseWriter, r *http.Request) {
	battleID := mux.Vars(r)["id"]

	if err := s.deps.DeleteBattle.Handle(r.Context(), command.DeleteBattleCommand{BattleID: battleID}); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// featureOn evaluates a feature gate; a nil flag set means everything is on.
func (s *Server) featureOn(name, userID string) bool {
	if s.deps.Features == nil {
		return true
	}
	return s.deps.Features.IsEnabled(name, &config.FeatureContext{UserID: userID})
}
