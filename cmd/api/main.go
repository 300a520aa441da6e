package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stazy/concierge/internal/api/router"
	"github.com/stazy/concierge/internal/app/bootstrap"
	appconfig "github.com/stazy/concierge/internal/config"
	"github.com/stazy/concierge/internal/embedding"
	"github.com/stazy/concierge/internal/http/handlers"
	httpmiddleware "github.com/stazy/concierge/internal/http/middleware"
	"github.com/stazy/concierge/pkg/logging"
)

const shutdownTimeout = 30 * time.Second

func main() {
	envErr := godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	if envErr != nil {
		logger.Debug("no .env file found, using environment variables")
	}
	logger.Info("starting concierge API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) error {
	app, err := bootstrap.BuildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	limiter := httpmiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	defer limiter.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      newRouter(app, cfg, limiter, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 75 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newRouter(app *bootstrap.App, cfg *appconfig.Config, limiter *httpmiddleware.RateLimiter, logger *logging.Logger) http.Handler {
	var recorder handlers.InteractionRecorder
	if app.Interactions != nil {
		recorder = app.Interactions
	}
	return router.New(&router.Config{
		Logger:             logger,
		Chat:               handlers.NewChatHandler(app.Dialogue, logger),
		Search:             handlers.NewSearchHandler(app.Retrieval, logger),
		ImageSearch:        handlers.NewImageSearchHandler(app.Retrieval, embedding.NewImageFetcher(&http.Client{Timeout: cfg.ImageFetchTimeout}, embedding.DefaultMaxImageBytes), logger),
		Recommend:          handlers.NewRecommendHandler(app.Recommender, cfg.RecommendTopK, logger),
		Interactions:       handlers.NewInteractionHandler(recorder, logger),
		Catalog:            app.Catalog,
		MetricsHandler:     promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimiter:        limiter,
	})
}
