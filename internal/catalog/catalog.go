// Package catalog reads bookable properties and their embeddings.
package catalog

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
)

// ErrNotFound is returned when an item id does not exist.
var ErrNotFound = errors.New("catalog: item not found")

// Item is a bookable property. Embeddings are omitted from JSON responses.
type Item struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	Slug           string    `json:"slug,omitempty"`
	Price          float64   `json:"price"`
	Address        string    `json:"address"`
	Rating         float64   `json:"rating"`
	Image          string    `json:"image,omitempty"`
	Category       string    `json:"category,omitempty"`
	Tags           []string  `json:"tags,omitempty"`
	ImageEmbedding []float32 `json:"-"`
	TextEmbedding  []float32 `json:"-"`
}

// StableID is the identifier handed to the checkout flow: slug, else numeric id.
func (i Item) StableID() string {
	if slug := strings.TrimSpace(i.Slug); slug != "" {
		return slug
	}
	return strconv.FormatInt(i.ID, 10)
}

// Order is a default ordering used when no query vector is supplied.
type Order string

const (
	OrderRatingDesc Order = "rating_desc"
	OrderPriceAsc   Order = "price_asc"
)

// ParseOrder maps a configured value onto an Order, using fallback when unknown.
func ParseOrder(s string, fallback Order) Order {
	switch Order(strings.ToLower(strings.TrimSpace(s))) {
	case OrderRatingDesc:
		return OrderRatingDesc
	case OrderPriceAsc:
		return OrderPriceAsc
	default:
		return fallback
	}
}

// EmbeddingKind selects which stored vector a similarity query compares against.
type EmbeddingKind int

const (
	EmbeddingText EmbeddingKind = iota
	EmbeddingImage
)

// Query is a conjunction of predicates plus an ordering. Empty fields are ignored.
type Query struct {
	TitleContains string
	Location      string
	PriceMax      *float64
	ExcludeIDs    []int64

	// Vector, when set, orders by ascending cosine distance and drops items
	// without the selected embedding.
	Vector []float32
	Kind   EmbeddingKind

	Order Order
	Limit int
}

// Store is the catalog collaborator.
type Store interface {
	Search(ctx context.Context, q Query) ([]Item, error)
	Get(ctx context.Context, id int64) (Item, error)
	All(ctx context.Context) ([]Item, error)
}

func (i Item) embedding(kind EmbeddingKind) []float32 {
	if kind == EmbeddingImage {
		return i.ImageEmbedding
	}
	return i.TextEmbedding
}

// CosineDistance matches pgvector's <=> operator: 1 - cosine similarity.
func CosineDistance(a, b []float32) float64 {
	return 1 - cosineSimilarity(a, b)
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Summary is the projection of an Item returned to clients.
type Summary struct {
	ID       string   `json:"id"`
	ItemID   int64    `json:"item_id"`
	Title    string   `json:"title"`
	Price    float64  `json:"price"`
	Address  string   `json:"address"`
	Rating   float64  `json:"rating"`
	Image    string   `json:"image,omitempty"`
	Category string   `json:"category,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

func (i Item) Summary() Summary {
	return Summary{
		ID:       i.StableID(),
		ItemID:   i.ID,
		Title:    i.Title,
		Price:    i.Price,
		Address:  i.Address,
		Rating:   i.Rating,
		Image:    i.Image,
		Category: i.Category,
		Tags:     i.Tags,
	}
}

// Summaries projects items in order. It never returns nil.
func Summaries(items []Item) []Summary {
	out := make([]Summary, 0, len(items))
	for _, item := range items {
		out = append(out, item.Summary())
	}
	return out
}
