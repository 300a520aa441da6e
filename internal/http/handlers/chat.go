package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/stazy/concierge/internal/dialogue"
	"github.com/stazy/concierge/internal/memory"
	"github.com/stazy/concierge/pkg/logging"
)

const guestUserID = "guest"

// TurnHandler runs one dialogue turn.
type TurnHandler interface {
	HandleTurn(ctx context.Context, t dialogue.Turn) dialogue.Response
}

type ChatHandler struct {
	turns  TurnHandler
	logger *logging.Logger
}

func NewChatHandler(turns TurnHandler, logger *logging.Logger) *ChatHandler {
	if turns == nil {
		panic("handlers: turn handler cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ChatHandler{turns: turns, logger: logger}
}

type chatRequest struct {
	Message string        `json:"message"`
	UserID  string        `json:"user_id"`
	History []chatMessage `json:"history"`
}

// chatMessage accepts both the widget's {sender,text} shape and {role,content}.
type chatMessage struct {
	Sender  string `json:"sender"`
	Role    string `json:"role"`
	Text    string `json:"text"`
	Content string `json:"content"`
}

func (m chatMessage) turn() (memory.Turn, bool) {
	text := strings.TrimSpace(m.Text)
	if text == "" {
		text = strings.TrimSpace(m.Content)
	}
	if text == "" {
		return memory.Turn{}, false
	}
	who := strings.ToLower(strings.TrimSpace(m.Sender))
	if who == "" {
		who = strings.ToLower(strings.TrimSpace(m.Role))
	}
	role := memory.RoleUser
	switch who {
	case "assistant", "bot", "ai", "agent":
		role = memory.RoleAssistant
	}
	return memory.Turn{Role: role, Content: text}, true
}

// Chat handles POST /agent/chat.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeBody(w, r, &req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		jsonError(w, "Missing message", http.StatusBadRequest)
		return
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		userID = guestUserID
	}

	history := make([]memory.Turn, 0, len(req.History))
	for _, msg := range req.History {
		if turn, ok := msg.turn(); ok {
			history = append(history, turn)
		}
	}

	h.logger.Debug("chat turn received", "user_id", userID, "history", len(history))
	resp := h.turns.HandleTurn(r.Context(), dialogue.Turn{
		UserID:  userID,
		Message: req.Message,
		History: history,
	})
	writeJSON(w, http.StatusOK, resp)
}
