package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

type rowQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore reads the hotels table, using pgvector for similarity ordering.
type PostgresStore struct {
	pool rowQuerier
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("catalog: pgx pool required")
	}
	return &PostgresStore{pool: pool}
}

func newPostgresStoreWithQuerier(q rowQuerier) *PostgresStore {
	if q == nil {
		panic("catalog: querier required")
	}
	return &PostgresStore{pool: q}
}

const itemColumns = `h.id, h.title, COALESCE(h.slug, ''), h.price, COALESCE(h.address, ''),
	COALESCE(h."reviewStar", 0), COALESCE(h."featuredImage", ''), COALESCE(c.slug, ''), COALESCE(h.tags, '{}')`

const vectorColumns = `, h."imageVector"::text, h."policiesVector"::text`

const itemFrom = ` FROM hotels h LEFT JOIN categories c ON c.id = h."categoryId"`

func (s *PostgresStore) Search(ctx context.Context, q Query) ([]Item, error) {
	sql, args := buildSearchSQL(q)
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("catalog: search query: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var item Item
		if err := rows.Scan(itemDest(&item)...); err != nil {
			return nil, fmt.Errorf("catalog: scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: iterate items: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) Get(ctx context.Context, id int64) (Item, error) {
	query := `SELECT ` + itemColumns + vectorColumns + itemFrom + ` WHERE h.id = $1`
	var item Item
	var imageVec, textVec *string
	dest := append(itemDest(&item), &imageVec, &textVec)
	if err := s.pool.QueryRow(ctx, query, id).Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, ErrNotFound
		}
		return Item{}, fmt.Errorf("catalog: get item %d: %w", id, err)
	}
	if err := attachVectors(&item, imageVec, textVec); err != nil {
		return Item{}, err
	}
	return item, nil
}

// All loads every item with its embeddings, ordered by id.
func (s *PostgresStore) All(ctx context.Context) ([]Item, error) {
	query := `SELECT ` + itemColumns + vectorColumns + itemFrom + ` ORDER BY h.id`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("catalog: load all: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var item Item
		var imageVec, textVec *string
		dest := append(itemDest(&item), &imageVec, &textVec)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("catalog: scan item: %w", err)
		}
		if err := attachVectors(&item, imageVec, textVec); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: iterate items: %w", err)
	}
	return items, nil
}

func itemDest(item *Item) []any {
	return []any{&item.ID, &item.Title, &item.Slug, &item.Price, &item.Address,
		&item.Rating, &item.Image, &item.Category, &item.Tags}
}

func attachVectors(item *Item, imageVec, textVec *string) error {
	var err error
	if item.ImageEmbedding, err = parseVector(imageVec); err != nil {
		return fmt.Errorf("catalog: item %d image vector: %w", item.ID, err)
	}
	if item.TextEmbedding, err = parseVector(textVec); err != nil {
		return fmt.Errorf("catalog: item %d text vector: %w", item.ID, err)
	}
	return nil
}

func parseVector(raw *string) ([]float32, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	var v pgvector.Vector
	if err := v.Scan(*raw); err != nil {
		return nil, err
	}
	return v.Slice(), nil
}

func buildSearchSQL(q Query) (string, []any) {
	var (
		where    []string
		args     []any
		argIndex = 1
	)
	next := func(v any) string {
		args = append(args, v)
		p := fmt.Sprintf("$%d", argIndex)
		argIndex++
		return p
	}

	if title := strings.TrimSpace(q.TitleContains); title != "" {
		where = append(where, "h.title ILIKE "+next("%"+title+"%"))
	}
	if loc := strings.TrimSpace(q.Location); loc != "" {
		p := next("%" + loc + "%")
		where = append(where, fmt.Sprintf("(h.address ILIKE %s OR h.title ILIKE %s)", p, p))
	}
	if q.PriceMax != nil {
		where = append(where, "h.price <= "+next(*q.PriceMax))
	}
	if len(q.ExcludeIDs) > 0 {
		where = append(where, "h.id <> ALL("+next(q.ExcludeIDs)+")")
	}

	var orderBy string
	if len(q.Vector) > 0 {
		column := `h."policiesVector"`
		if q.Kind == EmbeddingImage {
			column = `h."imageVector"`
		}
		where = append(where, column+" IS NOT NULL")
		orderBy = fmt.Sprintf("%s <=> %s::vector, h.id", column, next(pgvector.NewVector(q.Vector)))
	} else if q.Order == OrderPriceAsc {
		orderBy = `h.price ASC, h."reviewStar" DESC NULLS LAST, h.id`
	} else {
		orderBy = `h."reviewStar" DESC NULLS LAST, h.price ASC, h.id`
	}

	var b strings.Builder
	b.WriteString("SELECT " + itemColumns + itemFrom)
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY " + orderBy)
	if q.Limit > 0 {
		b.WriteString(" LIMIT " + next(q.Limit))
	}
	return b.String(), args
}
