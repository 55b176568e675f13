package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sudipkhatiwada/lockbox/internal/recovery"
)

type wsClientMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type wsAssistantMessage struct {
	Type      string        `json:"type"`
	Text      string        `json:"text"`
	Step      recovery.Step `json:"step"`
	Mode      recovery.Mode `json:"mode"`
	Completed bool          `json:"completed"`
}

type wsErrorMessage struct {
	Type   string `json:"type"`
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

// handleRecoveryChatWS drives one recovery conversation over a websocket.
// Turns are strictly serial, so a plain read-advance-write loop is enough.
func (s *Server) handleRecoveryChatWS(w http.ResponseWriter, r *http.Request) {
	conversationID := strings.TrimSpace(r.URL.Query().Get("conversation_id"))
	if conversationID == "" {
		respondError(w, http.StatusBadRequest, "missing_conversation_id", "query parameter conversation_id is required")
		return
	}
	if _, err := s.recoveries.Get(conversationID); err != nil {
		respondError(w, http.StatusNotFound, "conversation_not_found", "no such conversation")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	conn.SetReadLimit(64 << 10)
	_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		return nil
	})

	for {
		var msg wsClientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))

		if msg.Type != "user_message" || strings.TrimSpace(msg.Text) == "" {
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			_ = conn.WriteJSON(wsErrorMessage{
				Type:   "error",
				Code:   "invalid_client_message",
				Detail: "expected {type: user_message, text: ...}",
			})
			continue
		}

		conv, reply, err := s.recoveries.Advance(r.Context(), conversationID, msg.Text)
		if err != nil {
			code := "internal_error"
			if errors.Is(err, recovery.ErrNotFound) {
				code = "conversation_not_found"
			}
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			_ = conn.WriteJSON(wsErrorMessage{Type: "error", Code: code, Detail: err.Error()})
			if code == "conversation_not_found" {
				return
			}
			continue
		}

		s.metrics.RecoveryEvents.WithLabelValues("advanced").Inc()
		if conv.Completed() {
			s.metrics.RecoveryEvents.WithLabelValues("completed").Inc()
		}

		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(wsAssistantMessage{
			Type:      "assistant_message",
			Text:      reply,
			Step:      conv.Step,
			Mode:      conv.Mode,
			Completed: conv.Completed(),
		}); err != nil {
			return
		}

		if conv.Completed() {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "recovery complete"),
				time.Now().Add(10*time.Second))
			return
		}
	}
}
