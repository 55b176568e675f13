package httpapi

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sudipkhatiwada/lockbox/internal/account"
	"github.com/sudipkhatiwada/lockbox/internal/recovery"
)

type createTicketRequest struct {
	Username string `json:"username"`
	Issue    string `json:"issue"`
}

func (s *Server) handleCreateTicket(w http.ResponseWriter, r *http.Request) {
	var req createTicketRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Username) == "" || strings.TrimSpace(req.Issue) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "username and issue are required")
		return
	}

	ticket, err := s.store.CreateRecoveryRequest(r.Context(), account.RecoveryRequest{
		Username: req.Username,
		Issue:    req.Issue,
	})
	if err != nil {
		log.Printf("create recovery request failed: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "could not create recovery request")
		return
	}
	respondJSON(w, http.StatusCreated, ticket)
}

func (s *Server) handleListTickets(w http.ResponseWriter, r *http.Request) {
	status := strings.TrimSpace(r.URL.Query().Get("status"))
	tickets, err := s.store.ListRecoveryRequests(r.Context(), status)
	if err != nil {
		log.Printf("list recovery requests failed: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "could not list recovery requests")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"requests": tickets})
}

type updateTicketStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleUpdateTicketStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req updateTicketStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	switch req.Status {
	case account.TicketPending, account.TicketResolved, account.TicketRejected:
	default:
		respondError(w, http.StatusBadRequest, "invalid_status", "unknown ticket status")
		return
	}

	if err := s.store.UpdateRecoveryRequestStatus(r.Context(), id, req.Status); err != nil {
		if errors.Is(err, account.ErrTicketNotFound) {
			respondError(w, http.StatusNotFound, "ticket_not_found", "no such recovery request")
			return
		}
		log.Printf("update recovery request status failed: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "could not update recovery request")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": req.Status})
}

type startRecoveryRequest struct {
	Username string `json:"username"`
}

type recoveryStateResponse struct {
	ConversationID string              `json:"conversation_id"`
	Username       string              `json:"username"`
	Mode           recovery.Mode       `json:"mode"`
	Step           recovery.Step       `json:"step"`
	Completed      bool                `json:"completed"`
	Transcript     recovery.Transcript `json:"transcript"`
}

func recoveryState(conv recovery.Conversation) recoveryStateResponse {
	return recoveryStateResponse{
		ConversationID: conv.ID,
		Username:       conv.Username,
		Mode:           conv.Mode,
		Step:           conv.Step,
		Completed:      conv.Completed(),
		Transcript:     conv.Transcript,
	}
}

func (s *Server) handleStartRecovery(w http.ResponseWriter, r *http.Request) {
	var req startRecoveryRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Username) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "username is required")
		return
	}

	conv, err := s.recoveries.Start(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, recovery.ErrRecoveryInProgress) {
			respondError(w, http.StatusConflict, "recovery_in_progress", err.Error())
			return
		}
		log.Printf("start recovery failed for %q: %v", req.Username, err)
		respondError(w, http.StatusInternalServerError, "internal_error", "could not start recovery")
		return
	}

	s.metrics.RecoveryEvents.WithLabelValues("started").Inc()
	s.metrics.ActiveRecoveries.Set(float64(s.recoveries.ActiveCount()))
	respondJSON(w, http.StatusCreated, recoveryState(conv))
}

type advanceRecoveryRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleAdvanceRecovery(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req advanceRecoveryRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "text is required")
		return
	}

	conv, reply, err := s.recoveries.Advance(r.Context(), id, req.Text)
	if err != nil {
		if errors.Is(err, recovery.ErrNotFound) {
			respondError(w, http.StatusNotFound, "conversation_not_found", "no such conversation")
			return
		}
		log.Printf("advance recovery %q failed: %v", id, err)
		respondError(w, http.StatusInternalServerError, "internal_error", "could not advance recovery")
		return
	}

	s.metrics.RecoveryEvents.WithLabelValues("advanced").Inc()
	if conv.Completed() {
		s.metrics.RecoveryEvents.WithLabelValues("completed").Inc()
	}

	state := recoveryState(conv)
	respondJSON(w, http.StatusOK, map[string]any{
		"reply": reply,
		"state": state,
	})
}

func (s *Server) handleGetRecovery(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	conv, err := s.recoveries.Get(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "conversation_not_found", "no such conversation")
		return
	}
	respondJSON(w, http.StatusOK, recoveryState(conv))
}
