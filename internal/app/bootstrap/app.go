package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/stazy/concierge/cmd/mainconfig"
	"github.com/stazy/concierge/internal/booking"
	appconfig "github.com/stazy/concierge/internal/config"
	"github.com/stazy/concierge/internal/dialogue"
	"github.com/stazy/concierge/internal/interactions"
	"github.com/stazy/concierge/internal/memory"
	"github.com/stazy/concierge/internal/observability/metrics"
	"github.com/stazy/concierge/internal/recommend"
	"github.com/stazy/concierge/internal/retrieval"
	"github.com/stazy/concierge/pkg/logging"
)

// App is the fully wired concierge runtime shared by the binaries.
type App struct {
	Registry     *prometheus.Registry
	Metrics      *metrics.ConciergeMetrics
	Memory       memory.Store
	Catalog      *Catalog
	Retrieval    *retrieval.Engine
	Recommender  *recommend.Engine
	Interactions *interactions.Store
	Dialogue     *dialogue.Manager

	closers []func()
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// BuildApp connects every backing service that is configured and degrades
// to in-process fallbacks for the rest.
func BuildApp(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	app := &App{Registry: prometheus.NewRegistry()}
	app.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	app.Metrics = metrics.NewConciergeMetrics(app.Registry)

	redisClient := BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		app.closers = append(app.closers, func() { _ = redisClient.Close() })
	}
	app.Memory = BuildMemoryStore(redisClient, cfg, logger)
	if local, ok := app.Memory.(*memory.LocalStore); ok {
		app.closers = append(app.closers, local.Stop)
	}

	pool := BuildPostgresPool(ctx, cfg.DatabaseURL, logger)
	if pool != nil {
		app.closers = append(app.closers, pool.Close)
		app.Interactions = interactions.NewStore(pool)
	}

	var (
		bedrock  *bedrockruntime.Client
		s3Client *s3.Client
	)
	needsS3 := strings.HasPrefix(cfg.RecommendModelPath, "s3://")
	if cfg.BedrockModelID != "" || cfg.BedrockEmbeddingModelID != "" || needsS3 {
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("bootstrap: load aws config: %w", err)
		}
		bedrock = mainconfig.NewBedrockClient(awsCfg, cfg)
		if needsS3 {
			s3Client = mainconfig.NewS3Client(awsCfg, cfg)
		}
	}

	lm, err := BuildLLM(ctx, cfg, bedrock, logger)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.closers = append(app.closers, func() { _ = lm.Close() })

	app.Catalog, err = BuildCatalog(ctx, cfg, pool, logger)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Retrieval = BuildRetrieval(cfg, app.Catalog.Store, BuildEmbedder(cfg, bedrock), BuildImageEmbedder(cfg, bedrock), app.Metrics, logger)

	app.Recommender, err = BuildRecommender(ctx, cfg, app.Catalog.Store, pool, s3Client, app.Retrieval, app.Metrics, logger)
	if err != nil {
		app.Close()
		return nil, err
	}

	temperature := float32(cfg.LLMTemperature)
	app.Dialogue = dialogue.NewManager(dialogue.Deps{
		LLM:         lm.Client,
		Model:       lm.Model,
		Temperature: &temperature,
		Timeout:     cfg.LLMTimeout,
		Memory:      app.Memory,
		Retriever:   app.Retrieval,
		Policy:      app.Retrieval.Policy(),
		Recommender: app.Recommender,
		Composer:    booking.NewComposer(cfg.CheckoutPath, cfg.DefaultGuestsAdults),
		TopK:        cfg.RecommendTopK,
		Metrics:     app.Metrics,
		Logger:      logger,
	})
	return app, nil
}
