package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/stazy/concierge/internal/interactions"
	"github.com/stazy/concierge/pkg/logging"
)

type InteractionRecorder interface {
	Record(ctx context.Context, userID string, hotelID int64, action string) (interactions.Interaction, error)
}

type InteractionHandler struct {
	recorder InteractionRecorder
	logger   *logging.Logger
}

func NewInteractionHandler(recorder InteractionRecorder, logger *logging.Logger) *InteractionHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &InteractionHandler{recorder: recorder, logger: logger}
}

type interactionRequest struct {
	UserID  string          `json:"user_id"`
	HotelID json.RawMessage `json:"hotel_id"`
	Action  string          `json:"action"`
}

// Track handles POST /interactions. Tracking must never disturb the client,
// so every failure is logged and answered with 200.
func (h *InteractionHandler) Track(w http.ResponseWriter, r *http.Request) {
	var req interactionRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.ignore(w, "invalid body", err)
		return
	}
	userID := strings.TrimSpace(req.UserID)
	hotelID, ok := parseHotelID(req.HotelID)
	if userID == "" || !ok {
		h.ignore(w, "missing user_id or hotel_id", nil)
		return
	}
	if h.recorder == nil {
		h.ignore(w, "interaction store not configured", nil)
		return
	}

	rec, err := h.recorder.Record(r.Context(), userID, hotelID, req.Action)
	if err != nil {
		h.ignore(w, "record failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "recorded",
		"action":  rec.Action,
		"weight":  rec.Weight,
	})
}

func (h *InteractionHandler) ignore(w http.ResponseWriter, reason string, err error) {
	if err != nil {
		h.logger.Warn("interaction ignored", "reason", reason, "error", err)
	} else {
		h.logger.Warn("interaction ignored", "reason", reason)
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "ignored"})
}

// parseHotelID accepts 42 or "42".
func parseHotelID(raw json.RawMessage) (int64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, n > 0
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
