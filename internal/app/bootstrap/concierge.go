package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stazy/concierge/internal/catalog"
	appconfig "github.com/stazy/concierge/internal/config"
	"github.com/stazy/concierge/internal/embedding"
	"github.com/stazy/concierge/internal/interactions"
	"github.com/stazy/concierge/internal/llm"
	"github.com/stazy/concierge/internal/observability/metrics"
	"github.com/stazy/concierge/internal/recommend"
	"github.com/stazy/concierge/internal/retrieval"
	"github.com/stazy/concierge/pkg/logging"
)

const (
	providerBedrock = "bedrock"
	providerGemini  = "gemini"
)

// LLM is the language-understanding client plus the model id used for metric labels.
type LLM struct {
	Client llm.Client
	Model  string
	close  []func() error
}

func (l *LLM) Close() error {
	var first error
	for _, fn := range l.close {
		if err := fn(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// BuildLLM wires the configured provider, an optional fallback provider and a
// bounded worker pool. With no usable provider a stub is returned and every
// turn degrades to CHAT.
func BuildLLM(ctx context.Context, cfg *appconfig.Config, bedrock *bedrockruntime.Client, logger *logging.Logger) (*LLM, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	out := &LLM{}
	primary, model, err := buildProvider(ctx, cfg.LLMProvider, cfg, bedrock, out)
	if err != nil {
		return nil, err
	}
	if primary == nil {
		logger.Warn("no language model configured; using stub client", "provider", cfg.LLMProvider)
		out.Client = llm.NewStubClient()
		out.Model = "stub"
		return out, nil
	}

	var fallback llm.Client
	if fb := cfg.LLMFallbackProvider; fb != "" && fb != cfg.LLMProvider {
		fallback, _, err = buildProvider(ctx, fb, cfg, bedrock, out)
		if err != nil {
			logger.Warn("fallback provider unavailable", "provider", fb, "error", err)
			fallback = nil
		}
	}

	client := primary
	if fallback != nil {
		client = llm.NewFallbackClient(primary, fallback, logger)
		logger.Info("llm fallback enabled", "primary", cfg.LLMProvider, "fallback", cfg.LLMFallbackProvider)
	}
	out.Client = llm.NewPooledClient(client, cfg.WorkerPoolSize)
	out.Model = model
	logger.Info("using language model", "provider", cfg.LLMProvider, "model", model)
	return out, nil
}

func buildProvider(ctx context.Context, provider string, cfg *appconfig.Config, bedrock *bedrockruntime.Client, out *LLM) (llm.Client, string, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case providerBedrock:
		if bedrock == nil || strings.TrimSpace(cfg.BedrockModelID) == "" {
			return nil, "", nil
		}
		return llm.NewPinnedClient(llm.NewBedrockClient(bedrock), cfg.BedrockModelID), cfg.BedrockModelID, nil
	case providerGemini:
		if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
			return nil, "", nil
		}
		gemini, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			return nil, "", fmt.Errorf("bootstrap: gemini client: %w", err)
		}
		out.close = append(out.close, gemini.Close)
		return gemini, cfg.GeminiModelID, nil
	case "":
		return nil, "", nil
	default:
		return nil, "", fmt.Errorf("bootstrap: unknown llm provider %q", provider)
	}
}

// BuildEmbedder returns a pooled Titan embedder, or nil when Bedrock is not
// available, which disables similarity ranking.
func BuildEmbedder(cfg *appconfig.Config, bedrock *bedrockruntime.Client) embedding.Embedder {
	if cfg == nil || bedrock == nil || strings.TrimSpace(cfg.BedrockEmbeddingModelID) == "" {
		return nil
	}
	inner := embedding.NewBedrockEmbedder(bedrock, cfg.BedrockEmbeddingModelID, cfg.EmbeddingDimensions)
	return embedding.NewPool(inner, cfg.WorkerPoolSize, cfg.EmbeddingTimeout)
}

// BuildImageEmbedder returns a pooled Titan multimodal embedder, or nil when
// Bedrock is not available, which disables image search.
func BuildImageEmbedder(cfg *appconfig.Config, bedrock *bedrockruntime.Client) embedding.ImageEmbedder {
	if cfg == nil || bedrock == nil || strings.TrimSpace(cfg.BedrockImageEmbeddingModelID) == "" {
		return nil
	}
	inner := embedding.NewBedrockImageEmbedder(bedrock, cfg.BedrockImageEmbeddingModelID, cfg.ImageEmbeddingDimensions)
	return embedding.NewImagePool(inner, cfg.WorkerPoolSize, cfg.EmbeddingTimeout)
}

// Catalog is the store used for serving plus the in-memory snapshot when one
// was loaded.
type Catalog struct {
	Store    catalog.Store
	Snapshot *catalog.MemoryStore
}

// Len reports the number of loaded items for the health endpoint.
func (c *Catalog) Len() int {
	if c == nil || c.Snapshot == nil {
		return 0
	}
	return c.Snapshot.Len()
}

// BuildCatalog serves from Postgres, optionally snapshotting the table into
// memory at start. Without a database the catalog is empty.
func BuildCatalog(ctx context.Context, cfg *appconfig.Config, pool *pgxpool.Pool, logger *logging.Logger) (*Catalog, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if pool == nil {
		logger.Warn("no database configured; catalog is empty")
		empty := catalog.NewMemoryStore(nil)
		return &Catalog{Store: empty, Snapshot: empty}, nil
	}
	pg := catalog.NewPostgresStore(pool)
	if cfg == nil || !cfg.CatalogSnapshot {
		return &Catalog{Store: pg}, nil
	}
	snapshot, err := catalog.LoadSnapshot(ctx, pg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: load catalog snapshot: %w", err)
	}
	logger.Info("catalog snapshot loaded", "items", snapshot.Len())
	return &Catalog{Store: snapshot, Snapshot: snapshot}, nil
}

// BuildRetrieval wires the hybrid retrieval engine with the configured
// tie-break policy and backend timeout. A nil images disables image search.
func BuildRetrieval(cfg *appconfig.Config, store catalog.Store, embedder embedding.Embedder, images embedding.ImageEmbedder, m *metrics.ConciergeMetrics, logger *logging.Logger) *retrieval.Engine {
	policy := retrieval.DefaultPolicy()
	var opts []retrieval.Option
	if cfg != nil {
		policy.SearchOrder = catalog.ParseOrder(cfg.SearchOrder, policy.SearchOrder)
		policy.BookOrder = catalog.ParseOrder(cfg.BookOrder, policy.BookOrder)
		policy.Limit = cfg.SearchLimit
		opts = append(opts, retrieval.WithTimeout(cfg.RetrievalTimeout))
	}
	if images != nil {
		opts = append(opts, retrieval.WithImageEmbedder(images))
	}
	return retrieval.NewEngine(store, embedder, policy, m, logger, opts...)
}

// BuildRecommender wires every tier that has its data source available.
func BuildRecommender(ctx context.Context, cfg *appconfig.Config, store catalog.Store, pool *pgxpool.Pool, s3Client *s3.Client, finder recommend.SimilarityFinder, m *metrics.ConciergeMetrics, logger *logging.Logger) (*recommend.Engine, error) {
	if logger == nil {
		logger = logging.Default()
	}
	opts := []recommend.Option{recommend.WithMetrics(m), recommend.WithLogger(logger)}

	if cfg != nil && cfg.RecommendModelPath != "" {
		var getter recommend.S3GetObjectAPI
		if s3Client != nil {
			getter = s3Client
		}
		model, err := recommend.LoadModel(ctx, cfg.RecommendModelPath, getter)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: load recommendation model: %w", err)
		}
		opts = append(opts, recommend.WithModel(model))
		logger.Info("recommendation model loaded", "path", cfg.RecommendModelPath, "users", len(model.UserFactors))
	}

	if pool != nil {
		opts = append(opts,
			recommend.WithPreferences(recommend.NewPostgresPreferences(pool)),
			recommend.WithSimilarity(interactions.NewStore(pool), finder),
		)
	}
	return recommend.NewEngine(store, opts...), nil
}
