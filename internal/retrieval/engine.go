// Package retrieval combines exact catalog filters with vector-similarity
// ranking.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/stazy/concierge/internal/catalog"
	"github.com/stazy/concierge/internal/embedding"
	"github.com/stazy/concierge/internal/intent"
	"github.com/stazy/concierge/internal/observability/metrics"
	"github.com/stazy/concierge/pkg/logging"
)

// DefaultLimit caps every result list.
const DefaultLimit = 5

var (
	// ErrImageSearchDisabled means no image embedder is configured.
	ErrImageSearchDisabled = errors.New("retrieval: image search is not configured")
	// ErrImageEmbedding wraps failures computing the query image's embedding.
	ErrImageEmbedding = errors.New("retrieval: image embedding failed")
)

// Status is the outcome of a retrieval call.
type Status string

const (
	StatusOK     Status = "ok"
	StatusEmpty  Status = "empty"
	StatusFailed Status = "failed"
)

// Result carries items plus how they were produced. Backend failures surface
// as StatusFailed with no items; they are never returned as errors.
type Result struct {
	Items    []catalog.Item
	Status   Status
	Semantic bool
	Err      error
}

func (r Result) Empty() bool { return len(r.Items) == 0 }

// Policy holds the tie-break orderings for each call site.
type Policy struct {
	SearchOrder catalog.Order
	BookOrder   catalog.Order
	Limit       int
}

// DefaultPolicy ranks SEARCH by best rating and BOOK by lowest price.
func DefaultPolicy() Policy {
	return Policy{SearchOrder: catalog.OrderRatingDesc, BookOrder: catalog.OrderPriceAsc, Limit: DefaultLimit}
}

// OrderFor returns the default ordering for an intent type.
func (p Policy) OrderFor(t intent.Type) catalog.Order {
	if t == intent.TypeBook {
		return p.BookOrder
	}
	return p.SearchOrder
}

type Engine struct {
	store    catalog.Store
	embedder embedding.Embedder
	images   embedding.ImageEmbedder
	policy   Policy
	timeout  time.Duration
	metrics  *metrics.ConciergeMetrics
	logger   *logging.Logger
	tracer   trace.Tracer
}

type Option func(*Engine)

// WithImageEmbedder enables SearchImage.
func WithImageEmbedder(images embedding.ImageEmbedder) Option {
	return func(e *Engine) { e.images = images }
}

// WithTimeout bounds each catalog backend call. A call that runs out of time
// is reported as StatusFailed.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// NewEngine wires the engine. A nil embedder disables similarity ranking.
func NewEngine(store catalog.Store, embedder embedding.Embedder, policy Policy, m *metrics.ConciergeMetrics, logger *logging.Logger, opts ...Option) *Engine {
	if store == nil {
		panic("retrieval: catalog store cannot be nil")
	}
	if policy.Limit <= 0 {
		policy.Limit = DefaultLimit
	}
	if policy.SearchOrder == "" {
		policy.SearchOrder = catalog.OrderRatingDesc
	}
	if policy.BookOrder == "" {
		policy.BookOrder = catalog.OrderPriceAsc
	}
	if logger == nil {
		logger = logging.Default()
	}
	e := &Engine{
		store:    store,
		embedder: embedder,
		policy:   policy,
		metrics:  m,
		logger:   logger,
		tracer:   otel.Tracer("concierge.internal.retrieval"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Policy() Policy { return e.policy }

// Search runs a filtered, ranked query. A named target restricts the filter to
// the title and disables similarity ranking; otherwise location matches address
// or title and price_max, already normalized by intent.Normalize, is an upper
// bound. order is the tie-break used when no similarity ranking applies.
func (e *Engine) Search(ctx context.Context, c intent.Criteria, order catalog.Order) Result {
	ctx, span := e.tracer.Start(ctx, "retrieval.search")
	defer span.End()

	q := catalog.Query{Order: order, Limit: e.policy.Limit}
	if c.HasTarget() {
		q.TitleContains = strings.TrimSpace(c.TargetHotelName)
	} else {
		q.Location = strings.TrimSpace(c.Location)
		q.PriceMax = c.PriceMax
		if semantic := strings.TrimSpace(c.SemanticQuery); semantic != "" {
			q.Vector = e.embed(ctx, semantic)
		}
	}
	span.SetAttributes(
		attribute.Bool("retrieval.target", q.TitleContains != ""),
		attribute.Bool("retrieval.semantic", len(q.Vector) > 0),
	)
	return e.run(ctx, span, q)
}

// SearchText ranks the whole catalog by similarity to a free-text description.
func (e *Engine) SearchText(ctx context.Context, description string) Result {
	return e.Search(ctx, intent.Criteria{SemanticQuery: description}, e.policy.SearchOrder)
}

// SearchImage ranks the catalog by similarity to an image. Unlike text search
// there is no fallback ordering, so an embedding failure is StatusFailed with
// ErrImageEmbedding.
func (e *Engine) SearchImage(ctx context.Context, image []byte) Result {
	ctx, span := e.tracer.Start(ctx, "retrieval.search_image",
		trace.WithAttributes(attribute.Int("retrieval.image_bytes", len(image))))
	defer span.End()

	if e.images == nil {
		return e.finish(span, "image", Result{Status: StatusFailed, Err: ErrImageSearchDisabled})
	}
	vec, err := e.images.EmbedImage(ctx, image)
	if err != nil {
		span.RecordError(err)
		e.logger.Warn("image embedding failed", "error", err)
		return e.finish(span, "image", Result{Status: StatusFailed, Err: fmt.Errorf("%w: %w", ErrImageEmbedding, err)})
	}
	return e.run(ctx, span, catalog.Query{Vector: vec, Kind: catalog.EmbeddingImage, Limit: e.policy.Limit})
}

// Similar returns the nearest neighbours of an item, excluding the item itself.
func (e *Engine) Similar(ctx context.Context, itemID int64, k int) Result {
	ctx, span := e.tracer.Start(ctx, "retrieval.similar",
		trace.WithAttributes(attribute.Int64("retrieval.seed_id", itemID)))
	defer span.End()

	getCtx, cancel := e.backendContext(ctx)
	seed, err := e.store.Get(getCtx, itemID)
	cancel()
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return e.finish(span, "similarity", Result{Status: StatusEmpty})
		}
		span.RecordError(err)
		e.logger.Warn("similarity seed lookup failed", "item_id", itemID, "error", err)
		return e.finish(span, "similarity", Result{Status: StatusFailed, Err: err})
	}

	q := catalog.Query{ExcludeIDs: []int64{itemID}, Limit: k}
	if q.Limit <= 0 {
		q.Limit = e.policy.Limit
	}
	switch {
	case len(seed.TextEmbedding) > 0:
		q.Vector, q.Kind = seed.TextEmbedding, catalog.EmbeddingText
	case len(seed.ImageEmbedding) > 0:
		q.Vector, q.Kind = seed.ImageEmbedding, catalog.EmbeddingImage
	default:
		return e.finish(span, "similarity", Result{Status: StatusEmpty})
	}
	return e.run(ctx, span, q)
}

func (e *Engine) embed(ctx context.Context, text string) []float32 {
	if e.embedder == nil {
		return nil
	}
	vec, err := e.embedder.Embed(ctx, text)
	if err != nil {
		e.logger.Warn("embedding failed, using default ordering", "error", err)
		return nil
	}
	return vec
}

func (e *Engine) backendContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, e.timeout)
}

func (e *Engine) run(ctx context.Context, span trace.Span, q catalog.Query) Result {
	label := string(q.Order)
	if len(q.Vector) > 0 {
		label = "similarity"
		if q.Kind == catalog.EmbeddingImage {
			label = "image"
		}
	}
	ctx, cancel := e.backendContext(ctx)
	defer cancel()
	items, err := e.store.Search(ctx, q)
	if err != nil {
		span.RecordError(err)
		e.logger.Error("catalog search failed", "error", err)
		return e.finish(span, label, Result{Status: StatusFailed, Err: err})
	}
	res := Result{Items: items, Status: StatusOK, Semantic: len(q.Vector) > 0}
	if len(items) == 0 {
		res.Status = StatusEmpty
	}
	return e.finish(span, label, res)
}

func (e *Engine) finish(span trace.Span, label string, res Result) Result {
	span.SetAttributes(
		attribute.String("retrieval.status", string(res.Status)),
		attribute.Int("retrieval.count", len(res.Items)),
	)
	e.metrics.ObserveRetrieval(label, string(res.Status))
	return res
}
