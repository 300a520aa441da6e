package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/stazy/concierge/internal/catalog"
	"github.com/stazy/concierge/internal/embedding"
	"github.com/stazy/concierge/internal/retrieval"
	"github.com/stazy/concierge/pkg/logging"
)

// A base64 payload is about 4/3 of the image plus the data URL prefix.
const maxImageBodyBytes = embedding.DefaultMaxImageBytes*4/3 + 4096

// ImageSearcher ranks the catalog against an image.
type ImageSearcher interface {
	SearchImage(ctx context.Context, image []byte) retrieval.Result
}

// ImageFetcher downloads an image by URL.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

type ImageSearchHandler struct {
	search ImageSearcher
	fetch  ImageFetcher
	logger *logging.Logger
}

func NewImageSearchHandler(search ImageSearcher, fetch ImageFetcher, logger *logging.Logger) *ImageSearchHandler {
	if search == nil {
		panic("handlers: image searcher cannot be nil")
	}
	if fetch == nil {
		panic("handlers: image fetcher cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ImageSearchHandler{search: search, fetch: fetch, logger: logger}
}

// SearchByBase64 handles POST /search-by-base64 {"image": "data:image/png;base64,..."}.
func (h *ImageSearchHandler) SearchByBase64(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Image string `json:"image"`
	}
	if err := decodeBodyLimit(w, r, &req, maxImageBodyBytes); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Image) == "" {
		jsonError(w, "Missing image data", http.StatusBadRequest)
		return
	}
	img, err := embedding.DecodeImage(req.Image)
	if err != nil {
		jsonError(w, "Invalid image data", http.StatusBadRequest)
		return
	}
	h.respond(w, r, img)
}

// SearchByImageURL handles POST /search-by-image-url {"image_url": "..."}.
func (h *ImageSearchHandler) SearchByImageURL(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ImageURL string `json:"image_url"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.ImageURL) == "" {
		jsonError(w, "Missing image URL", http.StatusBadRequest)
		return
	}
	img, err := h.fetch.Fetch(r.Context(), req.ImageURL)
	switch {
	case errors.Is(err, embedding.ErrInvalidImageURL):
		jsonError(w, "Invalid image URL", http.StatusBadRequest)
		return
	case errors.Is(err, embedding.ErrImageTooLarge):
		jsonError(w, "Image too large", http.StatusRequestEntityTooLarge)
		return
	case err != nil:
		h.logger.Warn("image download failed", "error", err)
		jsonError(w, "Could not fetch image", http.StatusBadGateway)
		return
	}
	h.respond(w, r, img)
}

// respond maps retrieval outcomes: a missing or failing image model is an
// error, a failing catalog backend is an empty list.
func (h *ImageSearchHandler) respond(w http.ResponseWriter, r *http.Request, img []byte) {
	res := h.search.SearchImage(r.Context(), img)
	switch {
	case errors.Is(res.Err, retrieval.ErrImageSearchDisabled):
		jsonError(w, "Image search is not configured", http.StatusServiceUnavailable)
		return
	case errors.Is(res.Err, retrieval.ErrImageEmbedding):
		jsonError(w, "AI Processing Error", http.StatusInternalServerError)
		return
	case res.Status == retrieval.StatusFailed:
		h.logger.Warn("search by image failed", "error", res.Err)
	}
	writeJSON(w, http.StatusOK, catalog.Summaries(res.Items))
}
