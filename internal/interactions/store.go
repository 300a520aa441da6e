// Package interactions records how users engage with catalog items.
package interactions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Action is a normalized interaction type.
type Action string

const (
	ActionView Action = "VIEW"
	ActionLike Action = "LIKE"
	ActionBook Action = "BOOK"
)

// ParseAction upper-cases the input; unknown actions count as views.
func ParseAction(s string) Action {
	switch Action(strings.ToUpper(strings.TrimSpace(s))) {
	case ActionLike:
		return ActionLike
	case ActionBook:
		return ActionBook
	default:
		return ActionView
	}
}

// Weight is the implicit rating strength used by the training job.
func (a Action) Weight() int {
	switch a {
	case ActionBook:
		return 5
	case ActionLike:
		return 3
	default:
		return 1
	}
}

type Interaction struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"user_id"`
	HotelID   int64     `json:"hotel_id"`
	Action    Action    `json:"action"`
	Weight    int       `json:"weight"`
	CreatedAt time.Time `json:"created_at"`
}

type execQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	pool execQuerier
	now  func() time.Time
}

func NewStore(pool *pgxpool.Pool) *Store {
	if pool == nil {
		panic("interactions: pgx pool required")
	}
	return &Store{pool: pool, now: time.Now}
}

func newStoreWithExec(exec execQuerier) *Store {
	if exec == nil {
		panic("interactions: exec required")
	}
	return &Store{pool: exec, now: time.Now}
}

// Record persists one interaction.
func (s *Store) Record(ctx context.Context, userID string, hotelID int64, action string) (Interaction, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Interaction{}, errors.New("interactions: user id is required")
	}
	if hotelID <= 0 {
		return Interaction{}, fmt.Errorf("interactions: invalid hotel id %d", hotelID)
	}

	a := ParseAction(action)
	rec := Interaction{
		ID:        uuid.New(),
		UserID:    userID,
		HotelID:   hotelID,
		Action:    a,
		Weight:    a.Weight(),
		CreatedAt: s.now().UTC(),
	}
	query := `
		INSERT INTO interactions (id, user_id, hotel_id, action, weight, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := s.pool.Exec(ctx, query, rec.ID, rec.UserID, rec.HotelID, string(rec.Action), rec.Weight, rec.CreatedAt); err != nil {
		return Interaction{}, fmt.Errorf("interactions: insert: %w", err)
	}
	return rec, nil
}

// LastStrongInteraction returns the item of the user's most recent LIKE or BOOK.
func (s *Store) LastStrongInteraction(ctx context.Context, userID string) (int64, bool, error) {
	query := `
		SELECT hotel_id FROM interactions
		WHERE user_id = $1 AND action IN ('LIKE', 'BOOK')
		ORDER BY created_at DESC
		LIMIT 1
	`
	var hotelID int64
	if err := s.pool.QueryRow(ctx, query, userID).Scan(&hotelID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("interactions: last strong interaction: %w", err)
	}
	return hotelID, true, nil
}
