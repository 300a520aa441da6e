package recommend

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PreferenceSource returns the categories/amenities a user picked during onboarding.
type PreferenceSource interface {
	Preferences(ctx context.Context, userID string) ([]string, error)
}

// InteractionSource returns the item behind a user's latest strong (like/book) interaction.
type InteractionSource interface {
	LastStrongInteraction(ctx context.Context, userID string) (int64, bool, error)
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresPreferences reads onboarding choices from the UserPreference table.
type PostgresPreferences struct {
	pool rowQuerier
}

func NewPostgresPreferences(pool *pgxpool.Pool) *PostgresPreferences {
	if pool == nil {
		panic("recommend: pgx pool required")
	}
	return &PostgresPreferences{pool: pool}
}

func newPostgresPreferencesWithQuerier(q rowQuerier) *PostgresPreferences {
	if q == nil {
		panic("recommend: querier required")
	}
	return &PostgresPreferences{pool: q}
}

func (p *PostgresPreferences) Preferences(ctx context.Context, userID string) ([]string, error) {
	query := `SELECT COALESCE("interestedCategories", '{}') FROM "UserPreference" WHERE "userId" = $1`
	var prefs []string
	if err := p.pool.QueryRow(ctx, query, userID).Scan(&prefs); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("recommend: load preferences: %w", err)
	}
	return prefs, nil
}
