package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/stazy/concierge/internal/catalog"
	"github.com/stazy/concierge/internal/retrieval"
	"github.com/stazy/concierge/pkg/logging"
)

// TextSearcher ranks the catalog against a free-text description.
type TextSearcher interface {
	SearchText(ctx context.Context, description string) retrieval.Result
}

type SearchHandler struct {
	search TextSearcher
	logger *logging.Logger
}

func NewSearchHandler(search TextSearcher, logger *logging.Logger) *SearchHandler {
	if search == nil {
		panic("handlers: text searcher cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SearchHandler{search: search, logger: logger}
}

// SearchByText handles POST /search-by-text. A failed backend yields an empty
// list rather than an error.
func (h *SearchHandler) SearchByText(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Description string `json:"description"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	desc := strings.TrimSpace(req.Description)
	if desc == "" {
		jsonError(w, "Missing description", http.StatusBadRequest)
		return
	}

	res := h.search.SearchText(r.Context(), desc)
	if res.Status == retrieval.StatusFailed {
		h.logger.Warn("search by text failed", "error", res.Err)
	}
	writeJSON(w, http.StatusOK, catalog.Summaries(res.Items))
}
