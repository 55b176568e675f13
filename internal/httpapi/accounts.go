package httpapi

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sudipkhatiwada/lockbox/internal/account"
	"github.com/sudipkhatiwada/lockbox/internal/explain"
	"github.com/sudipkhatiwada/lockbox/internal/lockout"
)

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "username and password are required")
		return
	}

	err := s.policy.Register(r.Context(), req.Username, req.Password, req.Email, req.Phone)
	switch {
	case errors.Is(err, account.ErrDuplicateUsername):
		respondError(w, http.StatusConflict, "duplicate_username", "username already exists")
	case errors.Is(err, lockout.ErrMissingContactInfo):
		respondError(w, http.StatusBadRequest, "missing_contact_info", "email and phone are required for registration")
	case err != nil:
		log.Printf("register failed: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "registration failed")
	default:
		respondJSON(w, http.StatusCreated, map[string]string{"username": req.Username, "status": "registered"})
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Outcome           lockout.OutcomeKind `json:"outcome"`
	AttemptsRemaining int                 `json:"attempts_remaining,omitempty"`
	Token             string              `json:"token,omitempty"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	out, err := s.policy.EvaluateLogin(r.Context(), req.Username, req.Password)
	if err != nil {
		log.Printf("login evaluation failed for %q: %v", req.Username, err)
		respondError(w, http.StatusInternalServerError, "internal_error", "login evaluation failed")
		return
	}
	s.metrics.LoginAttempts.WithLabelValues(string(out.Kind)).Inc()

	resp := loginResponse{Outcome: out.Kind, AttemptsRemaining: out.AttemptsRemaining}
	switch out.Kind {
	case lockout.OutcomeLoginSuccess:
		tok, err := s.tokens.Issue(req.Username)
		if err != nil {
			log.Printf("token issue failed for %q: %v", req.Username, err)
		}
		resp.Token = tok
		respondJSON(w, http.StatusOK, resp)
	case lockout.OutcomeUserNotFound:
		respondJSON(w, http.StatusNotFound, resp)
	case lockout.OutcomeAccountLocked:
		respondJSON(w, http.StatusLocked, resp)
	case lockout.OutcomeAccountNowLocked:
		s.metrics.Lockouts.Inc()
		respondJSON(w, http.StatusLocked, resp)
	default:
		respondJSON(w, http.StatusUnauthorized, resp)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	status, err := s.policy.AccountStatus(r.Context(), username)
	if err != nil {
		log.Printf("status lookup failed for %q: %v", username, err)
		respondError(w, http.StatusInternalServerError, "internal_error", "status lookup failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"username": username, "status": status})
}

func (s *Server) handleUnlock(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if err := s.policy.ForceUnlock(r.Context(), username); err != nil {
		if errors.Is(err, account.ErrNotFound) {
			respondError(w, http.StatusNotFound, "user_not_found", "no such account")
			return
		}
		log.Printf("unlock failed for %q: %v", username, err)
		respondError(w, http.StatusInternalServerError, "internal_error", "unlock failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"username": username, "status": "unlocked"})
}

type setPasswordRequest struct {
	Password string `json:"password"`
}

func (s *Server) handleSetPassword(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	var req setPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if len(req.Password) < s.cfg.MinPasswordLength {
		respondError(w, http.StatusBadRequest, "password_too_short", "password does not meet the minimum length")
		return
	}

	if err := s.policy.SetPassword(r.Context(), username, req.Password); err != nil {
		if errors.Is(err, account.ErrNotFound) {
			respondError(w, http.StatusNotFound, "user_not_found", "no such account")
			return
		}
		log.Printf("set password failed for %q: %v", username, err)
		respondError(w, http.StatusInternalServerError, "internal_error", "password update failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"username": username, "status": "password_updated"})
}

func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	strategy, err := explain.ParseStrategy(r.URL.Query().Get("strategy"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_strategy", err.Error())
		return
	}

	agent, ok := s.agents[strategy]
	if !ok {
		respondError(w, http.StatusNotImplemented, "unavailable", "explanation strategy not configured")
		return
	}

	text, err := agent.Explain(r.Context(), username)
	if err != nil {
		// Collaborator trouble is narrated, not escalated.
		s.metrics.ExplanationRequests.WithLabelValues(string(strategy), "error").Inc()
		log.Printf("explanation failed for %q via %s: %v", username, strategy, err)
		respondJSON(w, http.StatusOK, map[string]any{
			"username":    username,
			"strategy":    strategy,
			"explanation": explain.UnavailableMessage(),
		})
		return
	}

	s.metrics.ExplanationRequests.WithLabelValues(string(strategy), "ok").Inc()
	respondJSON(w, http.StatusOK, map[string]any{
		"username":    username,
		"strategy":    strategy,
		"explanation": text,
	})
}

type feedbackRequest struct {
	Username string `json:"username"`
	Rating   int    `json:"rating"`
	Comment  string `json:"comment"`
}

func (s *Server) handleSubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Username) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "username is required")
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		respondError(w, http.StatusBadRequest, "invalid_rating", "rating must be between 1 and 5")
		return
	}

	f, err := s.store.SubmitFeedback(r.Context(), account.Feedback{
		Username: req.Username,
		Rating:   req.Rating,
		Comment:  req.Comment,
	})
	if err != nil {
		log.Printf("submit feedback failed: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "feedback submission failed")
		return
	}
	respondJSON(w, http.StatusCreated, f)
}

func (s *Server) handleListFeedback(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.URL.Query().Get("username"))
	fs, err := s.store.ListFeedback(r.Context(), username)
	if err != nil {
		log.Printf("list feedback failed: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "feedback lookup failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"feedback": fs})
}
