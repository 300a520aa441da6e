package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/stazy/concierge/internal/http/handlers"
	httpmiddleware "github.com/stazy/concierge/internal/http/middleware"
	"github.com/stazy/concierge/pkg/logging"
)

const requestTimeout = 60 * time.Second

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Chat               *handlers.ChatHandler
	Search             *handlers.SearchHandler
	ImageSearch        *handlers.ImageSearchHandler
	Recommend          *handlers.RecommendHandler
	Interactions       *handlers.InteractionHandler
	Catalog            handlers.ItemCounter
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
	// RateLimiter guards the endpoints that reach the language model.
	RateLimiter *httpmiddleware.RateLimiter
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}

	health := handlers.Health(cfg.Catalog)
	r.Get("/", health)
	r.Get("/health", health)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Group(func(api chi.Router) {
		if cfg.RateLimiter != nil {
			api.Use(cfg.RateLimiter.Middleware)
		}
		if cfg.Chat != nil {
			api.Post("/agent/chat", cfg.Chat.Chat)
		}
		if cfg.Search != nil {
			api.Post("/search-by-text", cfg.Search.SearchByText)
		}
		if cfg.ImageSearch != nil {
			api.Post("/search-by-base64", cfg.ImageSearch.SearchByBase64)
			api.Post("/search-by-image-url", cfg.ImageSearch.SearchByImageURL)
		}
		if cfg.Recommend != nil {
			api.Get("/recommend/{user_id}", cfg.Recommend.Recommend)
		}
	})

	if cfg.Interactions != nil {
		r.Post("/interactions", cfg.Interactions.Track)
	}

	return r
}
