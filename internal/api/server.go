// Package api exposes the assistant over HTTP: one chat endpoint, one plan
// endpoint, and health. Transport concerns only; all behavior lives in the
// pipeline packages.
package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"finplan-assistant/internal/chat/orchestrator"
	cerrors "finplan-assistant/internal/common/errors"
	"finplan-assistant/internal/common/logger"
	"finplan-assistant/internal/common/observability"
	"finplan-assistant/internal/planner"
	"finplan-assistant/internal/profile"
	"finplan-assistant/internal/schemas"
	"finplan-assistant/internal/security"
)

type Server struct {
	orchestrator *orchestrator.Orchestrator
	planner      *planner.Handler
	profiles     profile.Store
	limiter      security.RateLimiter
	obs          *observability.Observability
	logger       logger.Logger
}

func NewServer(orch *orchestrator.Orchestrator, plan *planner.Handler, profiles profile.Store, limiter security.RateLimiter, obs *observability.Observability, log logger.Logger) *Server {
	if limiter == nil {
		limiter = security.NewAllowAllLimiter()
	}
	return &Server{
		orchestrator: orch,
		planner:      plan,
		profiles:     profiles,
		limiter:      limiter,
		obs:          obs,
		logger:       log.With(map[string]interface{}{"component": "api"}),
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("POST /api/plan", s.handlePlan)
	mux.HandleFunc("GET /health", s.handleHealth)
	return mux
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer s.recordRequest(r, "/api/chat", start)

	var req orchestrator.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		s.writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	if !s.limiter.Allow(r.Context(), req.UserID) {
		s.writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	resp := s.orchestrator.Invoke(r.Context(), &req)
	s.writeJSON(w, http.StatusOK, resp)
}

// PlanRequest asks for a plan for one of the user's goals.
type PlanRequest struct {
	UserID string                 `json:"userId"`
	Goal   map[string]interface{} `json:"goal"`
}

// PlanResponse mirrors the chat-facing contract: a failed generation is a
// payload, not a transport error, except for security violations.
type PlanResponse struct {
	Success bool          `json:"success"`
	Plan    *schemas.Plan `json:"plan,omitempty"`
	Error   string        `json:"error,omitempty"`
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer s.recordRequest(r, "/api/plan", start)

	var req PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Goal) == 0 {
		s.writeError(w, http.StatusBadRequest, "goal is required")
		return
	}
	if !s.limiter.Allow(r.Context(), req.UserID) {
		s.writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	userProfile := s.profileAsMap(r, req.UserID)

	plan, err := s.planner.Generate(r.Context(), userProfile, req.Goal, req.UserID)
	if err != nil {
		if cerrors.IsSecurityViolation(err) {
			s.writeJSON(w, http.StatusBadRequest, PlanResponse{Success: false, Error: "request rejected"})
			return
		}
		s.writeJSON(w, http.StatusOK, PlanResponse{Success: false, Error: "plan generation failed"})
		return
	}

	s.writeJSON(w, http.StatusOK, PlanResponse{Success: true, Plan: plan})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// profileAsMap flattens the stored profile into the generic mapping the
// planner prompt embeds. A missing or unreadable profile becomes an empty
// map; the planner still produces a plan.
func (s *Server) profileAsMap(r *http.Request, userID string) map[string]interface{} {
	out := map[string]interface{}{}
	if userID == "" {
		return out
	}

	p, err := s.profiles.Get(r.Context(), userID)
	if err != nil {
		s.logger.Warn("profile load failed for plan request", map[string]interface{}{
			"userId": userID,
			"error":  err.Error(),
		})
		return out
	}
	if p.IsEmpty() {
		return out
	}

	raw, err := json.Marshal(p)
	if err != nil {
		return out
	}
	_ = json.Unmarshal(raw, &out)
	return out
}

func (s *Server) recordRequest(r *http.Request, path string, start time.Time) {
	if s.obs == nil {
		return
	}
	s.obs.RecordRequest(r.Context(), path)
	s.obs.RecordRequestDuration(r.Context(), time.Since(start), path)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write response failed", map[string]interface{}{"error": err.Error()})
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
