// Package recommend produces personalized suggestions with a tiered fallback:
// trained model, then onboarding preferences, then similarity or random picks.
package recommend

import (
	"cmp"
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/stazy/concierge/internal/catalog"
	"github.com/stazy/concierge/internal/observability/metrics"
	"github.com/stazy/concierge/internal/retrieval"
	"github.com/stazy/concierge/pkg/logging"
)

// DefaultTopK is used when callers pass a non-positive k.
const DefaultTopK = 5

// Tier names the strategy that produced a result.
type Tier string

const (
	TierModel      Tier = "model"
	TierPreference Tier = "preference"
	TierSimilar    Tier = "similar"
	TierRandom     Tier = "random"
)

type Result struct {
	Items []catalog.Item
	Tier  Tier
}

// SimilarityFinder is the nearest-neighbour primitive of the retrieval engine.
type SimilarityFinder interface {
	Similar(ctx context.Context, itemID int64, k int) retrieval.Result
}

type Engine struct {
	catalog      catalog.Store
	model        *Model
	preferences  PreferenceSource
	interactions InteractionSource
	similarity   SimilarityFinder
	metrics      *metrics.ConciergeMetrics
	logger       *logging.Logger
	tracer       trace.Tracer

	rngMu sync.Mutex
	rng   *rand.Rand
}

type Option func(*Engine)

// WithModel enables the trained-model tier. A nil model leaves it disabled.
func WithModel(m *Model) Option {
	return func(e *Engine) { e.model = m }
}

func WithPreferences(p PreferenceSource) Option {
	return func(e *Engine) { e.preferences = p }
}

// WithSimilarity enables similarity picks seeded by the user's last strong interaction.
func WithSimilarity(interactions InteractionSource, finder SimilarityFinder) Option {
	return func(e *Engine) {
		e.interactions = interactions
		e.similarity = finder
	}
}

// WithRand fixes the random source used for sampling.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rng = r }
}

func WithMetrics(m *metrics.ConciergeMetrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func NewEngine(store catalog.Store, opts ...Option) *Engine {
	if store == nil {
		panic("recommend: catalog store cannot be nil")
	}
	e := &Engine{catalog: store, tracer: otel.Tracer("concierge.internal.recommend")}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logging.Default()
	}
	if e.rng == nil {
		seed := uint64(time.Now().UnixNano())
		e.rng = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	return e
}

// Recommend returns up to topK items. Tier selection is deterministic for the
// same model membership and preference data; sampling inside the preference
// and random tiers is not.
func (e *Engine) Recommend(ctx context.Context, userID string, topK int) (Result, error) {
	ctx, span := e.tracer.Start(ctx, "recommend.recommend",
		trace.WithAttributes(attribute.String("user_id", userID)))
	defer span.End()

	if topK <= 0 {
		topK = DefaultTopK
	}
	items, err := e.catalog.All(ctx)
	if err != nil {
		span.RecordError(err)
		return Result{}, fmt.Errorf("recommend: load catalog: %w", err)
	}

	res := e.recommend(ctx, userID, topK, items)
	span.SetAttributes(
		attribute.String("recommend.tier", string(res.Tier)),
		attribute.Int("recommend.count", len(res.Items)),
	)
	e.metrics.ObserveRecommendTier(string(res.Tier))
	return res, nil
}

func (e *Engine) recommend(ctx context.Context, userID string, topK int, items []catalog.Item) Result {
	if e.model.Knows(userID) {
		return Result{Items: e.rankByModel(userID, topK, items), Tier: TierModel}
	}

	if prefs := e.userPreferences(ctx, userID); len(prefs) > 0 {
		if matches := matchPreferences(items, prefs); len(matches) > 0 {
			return Result{Items: e.sample(matches, topK), Tier: TierPreference}
		}
	}

	if similar := e.similarToLastInteraction(ctx, userID, topK); len(similar) > 0 {
		return Result{Items: similar, Tier: TierSimilar}
	}
	return Result{Items: e.sample(items, topK), Tier: TierRandom}
}

func (e *Engine) rankByModel(userID string, topK int, items []catalog.Item) []catalog.Item {
	type scored struct {
		item  catalog.Item
		score float64
	}
	ranked := make([]scored, 0, len(items))
	for _, item := range items {
		score, err := e.model.Predict(userID, item.ID)
		if err != nil {
			continue
		}
		ranked = append(ranked, scored{item: item, score: score})
	}
	slices.SortStableFunc(ranked, func(a, b scored) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		return cmp.Compare(a.item.ID, b.item.ID)
	})
	if len(ranked) > topK {
		ranked = ranked[:topK]
	}
	out := make([]catalog.Item, len(ranked))
	for i, r := range ranked {
		out[i] = r.item
	}
	return out
}

func (e *Engine) userPreferences(ctx context.Context, userID string) []string {
	if e.preferences == nil {
		return nil
	}
	prefs, err := e.preferences.Preferences(ctx, userID)
	if err != nil {
		e.logger.Warn("preference lookup failed", "user_id", userID, "error", err)
		return nil
	}
	return prefs
}

func (e *Engine) similarToLastInteraction(ctx context.Context, userID string, topK int) []catalog.Item {
	if e.interactions == nil || e.similarity == nil {
		return nil
	}
	seed, ok, err := e.interactions.LastStrongInteraction(ctx, userID)
	if err != nil {
		e.logger.Warn("interaction lookup failed", "user_id", userID, "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	return e.similarity.Similar(ctx, seed, topK).Items
}

// matchPreferences keeps items whose category, slug or any tag is a declared preference.
func matchPreferences(items []catalog.Item, prefs []string) []catalog.Item {
	wanted := make(map[string]struct{}, len(prefs))
	for _, p := range prefs {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			wanted[p] = struct{}{}
		}
	}
	has := func(v string) bool {
		_, ok := wanted[strings.ToLower(strings.TrimSpace(v))]
		return ok
	}

	var out []catalog.Item
	for _, item := range items {
		if has(item.Category) || has(item.Slug) || slices.ContainsFunc(item.Tags, has) {
			out = append(out, item)
		}
	}
	return out
}

// sample draws min(k, len(items)) distinct items uniformly at random.
func (e *Engine) sample(items []catalog.Item, k int) []catalog.Item {
	if k > len(items) {
		k = len(items)
	}
	pool := make([]catalog.Item, len(items))
	copy(pool, items)

	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	for i := 0; i < k; i++ {
		j := i + e.rng.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:k]
}
