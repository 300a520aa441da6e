package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/stazy/concierge/internal/catalog"
	"github.com/stazy/concierge/internal/recommend"
	"github.com/stazy/concierge/pkg/logging"
)

const maxTopK = 50

type Recommender interface {
	Recommend(ctx context.Context, userID string, topK int) (recommend.Result, error)
}

type RecommendHandler struct {
	recommender Recommender
	defaultTopK int
	logger      *logging.Logger
}

func NewRecommendHandler(r Recommender, defaultTopK int, logger *logging.Logger) *RecommendHandler {
	if r == nil {
		panic("handlers: recommender cannot be nil")
	}
	if defaultTopK <= 0 {
		defaultTopK = recommend.DefaultTopK
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &RecommendHandler{recommender: r, defaultTopK: defaultTopK, logger: logger}
}

// Recommend handles GET /recommend/{user_id}?top_k=N. The tier that produced
// the list is reported in the X-Recommend-Tier header.
func (h *RecommendHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(chi.URLParam(r, "user_id"))
	if userID == "" {
		jsonError(w, "missing user_id", http.StatusBadRequest)
		return
	}

	topK := h.defaultTopK
	if raw := strings.TrimSpace(r.URL.Query().Get("top_k")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			jsonError(w, "top_k must be a positive integer", http.StatusBadRequest)
			return
		}
		topK = min(n, maxTopK)
	}

	res, err := h.recommender.Recommend(r.Context(), userID, topK)
	if err != nil {
		h.logger.Error("recommendation failed", "user_id", userID, "error", err)
		jsonError(w, "Recommendation Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("X-Recommend-Tier", string(res.Tier))
	writeJSON(w, http.StatusOK, catalog.Summaries(res.Items))
}
