// Package dialogue turns a user's message plus short-term memory into a
// structured intent and drives retrieval, recommendation and booking.
package dialogue

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/stazy/concierge/internal/booking"
	"github.com/stazy/concierge/internal/catalog"
	"github.com/stazy/concierge/internal/intent"
	"github.com/stazy/concierge/internal/llm"
	"github.com/stazy/concierge/internal/memory"
	"github.com/stazy/concierge/internal/observability/metrics"
	"github.com/stazy/concierge/internal/recommend"
	"github.com/stazy/concierge/internal/retrieval"
	"github.com/stazy/concierge/pkg/logging"
)

const (
	defaultTimeout     = 20 * time.Second
	defaultTemperature = 0.1
	defaultTopK        = 5
	rememberTimeout    = 3 * time.Second
)

// Retriever is the hybrid search primitive used by SEARCH and BOOK.
type Retriever interface {
	Search(ctx context.Context, c intent.Criteria, order catalog.Order) retrieval.Result
}

// Recommender serves RECOMMEND turns.
type Recommender interface {
	Recommend(ctx context.Context, userID string, topK int) (recommend.Result, error)
}

// Deps wires a Manager. LLM, Retriever and Composer are required.
type Deps struct {
	LLM   llm.Client
	Model string
	// Temperature defaults to 0.1 when nil; zero is a valid setting.
	Temperature *float32
	Timeout     time.Duration

	Memory      memory.Store
	Retriever   Retriever
	Policy      retrieval.Policy
	Recommender Recommender
	Composer    *booking.Composer
	TopK        int

	Metrics *metrics.ConciergeMetrics
	Logger  *logging.Logger
	Now     func() time.Time
}

type Manager struct {
	llm         llm.Client
	model       string
	temperature float32
	timeout     time.Duration

	memory      memory.Store
	retriever   Retriever
	policy      retrieval.Policy
	recommender Recommender
	composer    *booking.Composer
	topK        int

	metrics *metrics.ConciergeMetrics
	logger  *logging.Logger
	tracer  trace.Tracer
	now     func() time.Time
}

func NewManager(d Deps) *Manager {
	if d.LLM == nil {
		panic("dialogue: llm client cannot be nil")
	}
	if d.Retriever == nil {
		panic("dialogue: retriever cannot be nil")
	}
	if d.Composer == nil {
		panic("dialogue: booking composer cannot be nil")
	}
	if d.Memory == nil {
		d.Memory = memory.NewLocalStore(memory.DefaultMaxTurns, memory.DefaultTTL)
	}
	if d.Timeout <= 0 {
		d.Timeout = defaultTimeout
	}
	temperature := float32(defaultTemperature)
	if d.Temperature != nil {
		temperature = *d.Temperature
	}
	if d.TopK <= 0 {
		d.TopK = defaultTopK
	}
	if d.Policy.SearchOrder == "" || d.Policy.BookOrder == "" {
		def := retrieval.DefaultPolicy()
		if d.Policy.SearchOrder == "" {
			d.Policy.SearchOrder = def.SearchOrder
		}
		if d.Policy.BookOrder == "" {
			d.Policy.BookOrder = def.BookOrder
		}
	}
	if d.Logger == nil {
		d.Logger = logging.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Manager{
		llm:         d.LLM,
		model:       d.Model,
		temperature: temperature,
		timeout:     d.Timeout,
		memory:      d.Memory,
		retriever:   d.Retriever,
		policy:      d.Policy,
		recommender: d.Recommender,
		composer:    d.Composer,
		topK:        d.TopK,
		metrics:     d.Metrics,
		logger:      d.Logger,
		tracer:      otel.Tracer("concierge.internal.dialogue"),
		now:         d.Now,
	}
}

// Turn is one inbound chat message.
type Turn struct {
	UserID  string
	Message string
	// History is client-held context used only when memory has none.
	History []memory.Turn
}

// Response is the structured reply returned to the front end.
type Response struct {
	AgentResponse string         `json:"agent_response"`
	Intent        intent.Payload `json:"intent"`
	Data          Data           `json:"data"`
}

type Data struct {
	Hotels      []catalog.Summary `json:"hotels"`
	BookingLink *string           `json:"booking_link"`
}

// outcome labels the turn for metrics.
const (
	outcomeOK       = "ok"
	outcomeEmpty    = "empty"
	outcomeFailed   = "failed"
	outcomeClarify  = "clarify"
	outcomeFallback = "fallback"
)

// HandleTurn never fails: every error path degrades to a narrower reply. Both
// the user message and the reply are appended to memory on every return.
func (m *Manager) HandleTurn(ctx context.Context, t Turn) (resp Response) {
	ctx, span := m.tracer.Start(ctx, "dialogue.handle_turn",
		trace.WithAttributes(attribute.String("user_id", t.UserID)))
	defer span.End()

	message := strings.TrimSpace(t.Message)
	resp = Response{
		Intent: intent.ToPayload(intent.Chat{}),
		Data:   Data{Hotels: []catalog.Summary{}},
	}
	var surfaced []catalog.Item
	outcome := outcomeOK

	defer func() {
		m.remember(ctx, t.UserID, message, resp.AgentResponse, surfaced)
		m.metrics.ObserveTurn(resp.Intent.IntentType, outcome)
		span.SetAttributes(
			attribute.String("dialogue.intent", resp.Intent.IntentType),
			attribute.String("dialogue.outcome", outcome),
		)
	}()

	history := m.loadContext(ctx, t)

	ext := m.extract(ctx, history, message)
	var in intent.Intent = intent.Chat{}
	if ext.ok {
		in = intent.Normalize(ext.payload)
	} else {
		outcome = outcomeFallback
	}
	shown := memory.LastSurfaced(history)
	in, picked := m.resolveContext(in, message, shown)

	switch v := in.(type) {
	case intent.Search:
		resp.AgentResponse, surfaced, outcome = m.handleSearch(ctx, v)
	case intent.Book:
		var link string
		resp.AgentResponse, surfaced, link, outcome = m.handleBook(ctx, v, picked, shown)
		if link != "" {
			resp.Data.BookingLink = &link
		}
	case intent.Recommend:
		resp.AgentResponse, surfaced, outcome = m.handleRecommend(ctx, t.UserID)
	default:
		resp.AgentResponse = chatReply(ext.text)
	}

	resp.Intent = intent.ToPayload(in)
	resp.Data.Hotels = catalog.Summaries(surfaced)
	return resp
}

func (m *Manager) loadContext(ctx context.Context, t Turn) []memory.Turn {
	turns, err := m.memory.Load(ctx, t.UserID)
	if err != nil {
		m.logger.Warn("memory unavailable, continuing without context", "user_id", t.UserID, "error", err)
		turns = nil
	}
	if len(turns) == 0 && len(t.History) > 0 {
		return t.History
	}
	return turns
}

// remember outlives the request context so a cancelled or timed-out turn that
// still produced a reply is persisted.
func (m *Manager) remember(ctx context.Context, userID, message, reply string, surfaced []catalog.Item) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rememberTimeout)
	defer cancel()

	hotels := make([]memory.SurfacedHotel, 0, len(surfaced))
	for _, item := range surfaced {
		hotels = append(hotels, memory.SurfacedHotel{
			ID:      item.StableID(),
			Title:   item.Title,
			Price:   item.Price,
			Address: item.Address,
			Rating:  item.Rating,
		})
	}
	err := m.memory.Append(ctx, userID,
		memory.Turn{Role: memory.RoleUser, Content: message},
		memory.Turn{Role: memory.RoleAssistant, Content: reply, Hotels: hotels},
	)
	if err != nil {
		m.logger.Warn("failed to persist turn", "user_id", userID, "error", err)
	}
}

func (m *Manager) handleSearch(ctx context.Context, s intent.Search) (string, []catalog.Item, string) {
	res := m.retriever.Search(ctx, s.Criteria, m.policy.OrderFor(intent.TypeSearch))
	switch {
	case res.Status == retrieval.StatusFailed:
		return noResultsReply(s.Location), nil, outcomeFailed
	case res.Empty():
		return noResultsReply(s.Location), nil, outcomeEmpty
	case res.Semantic:
		return semanticResultsReply(s.SemanticQuery, len(res.Items)), res.Items, outcomeOK
	default:
		return resultsReply(len(res.Items)), res.Items, outcomeOK
	}
}

func (m *Manager) handleBook(ctx context.Context, b intent.Book, picked string, shown []memory.SurfacedHotel) (string, []catalog.Item, string, string) {
	if missing := b.MissingSlots(); len(missing) > 0 {
		return clarifyReply(missing), nil, "", outcomeClarify
	}

	res := m.retriever.Search(ctx, b.Criteria, m.policy.OrderFor(intent.TypeBook))
	if res.Empty() {
		outcome := outcomeEmpty
		if res.Status == retrieval.StatusFailed {
			outcome = outcomeFailed
		}
		return unresolvedBookingReply(), nil, "", outcome
	}

	target := pickBookingTarget(res.Items, picked, b.TargetHotelName, shown)
	link := m.composer.Compose(target.StableID(), b.Dates, b.GuestsAdults)
	return bookingReply(target.Title, b.Dates.Start), []catalog.Item{target}, link, outcomeOK
}

// pickBookingTarget narrows the title-substring matches down to one item: the
// hotel the user picked from the shown list, then an exact title match, then
// any shown hotel, then the first by booking order.
func pickBookingTarget(items []catalog.Item, picked, title string, shown []memory.SurfacedHotel) catalog.Item {
	if picked != "" {
		for _, item := range items {
			if item.StableID() == picked {
				return item
			}
		}
	}
	if title = strings.TrimSpace(title); title != "" {
		for _, item := range items {
			if strings.EqualFold(strings.TrimSpace(item.Title), title) {
				return item
			}
		}
	}
	for _, h := range shown {
		for _, item := range items {
			if item.StableID() == h.ID {
				return item
			}
		}
	}
	return items[0]
}

func (m *Manager) handleRecommend(ctx context.Context, userID string) (string, []catalog.Item, string) {
	if m.recommender == nil {
		return noRecommendationsReply(), nil, outcomeEmpty
	}
	res, err := m.recommender.Recommend(ctx, userID, m.topK)
	if err != nil {
		m.logger.Warn("recommendation failed", "user_id", userID, "error", err)
		return noRecommendationsReply(), nil, outcomeFailed
	}
	if len(res.Items) == 0 {
		return noRecommendationsReply(), nil, outcomeEmpty
	}
	return recommendReply(), res.Items, outcomeOK
}
