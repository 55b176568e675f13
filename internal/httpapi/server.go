package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"

	"github.com/sudipkhatiwada/lockbox/internal/account"
	"github.com/sudipkhatiwada/lockbox/internal/config"
	"github.com/sudipkhatiwada/lockbox/internal/explain"
	"github.com/sudipkhatiwada/lockbox/internal/lockout"
	"github.com/sudipkhatiwada/lockbox/internal/observability"
	"github.com/sudipkhatiwada/lockbox/internal/recovery"
	"github.com/sudipkhatiwada/lockbox/internal/token"
)

type Server struct {
	cfg        config.Config
	policy     *lockout.Policy
	store      account.Store
	agents     map[explain.Strategy]explain.Agent
	recoveries *recovery.Manager
	tokens     *token.Issuer
	metrics    *observability.Metrics
	upgrader   websocket.Upgrader
}

func New(
	cfg config.Config,
	policy *lockout.Policy,
	store account.Store,
	agents map[explain.Strategy]explain.Agent,
	recoveries *recovery.Manager,
	tokens *token.Issuer,
	metrics *observability.Metrics,
) *Server {
	return &Server{
		cfg:        cfg,
		policy:     policy,
		store:      store,
		agents:     agents,
		recoveries: recoveries,
		tokens:     tokens,
		metrics:    metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only allow browser websocket connections from the same
				// origin unless explicitly opened up. Another site must not
				// be able to drive a user's recovery chat.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/v1/accounts", s.handleRegister)
	r.Post("/v1/login", s.handleLogin)
	r.Get("/v1/accounts/{username}/status", s.handleStatus)
	r.Post("/v1/accounts/{username}/unlock", s.handleUnlock)
	r.Post("/v1/accounts/{username}/password", s.handleSetPassword)
	r.Get("/v1/accounts/{username}/explain", s.handleExplain)

	r.Post("/v1/feedback", s.handleSubmitFeedback)
	r.Get("/v1/feedback", s.handleListFeedback)

	r.Post("/v1/recovery/requests", s.handleCreateTicket)
	r.Get("/v1/recovery/requests", s.handleListTickets)
	r.Post("/v1/recovery/requests/{id}/status", s.handleUpdateTicketStatus)

	r.Post("/v1/recovery/session", s.handleStartRecovery)
	r.Post("/v1/recovery/session/{id}/message", s.handleAdvanceRecovery)
	r.Get("/v1/recovery/session/{id}", s.handleGetRecovery)
	r.Get("/v1/recovery/chat/ws", s.handleRecoveryChatWS)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":               "ok",
		"token_issuer_enabled": s.tokens.Enabled(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
