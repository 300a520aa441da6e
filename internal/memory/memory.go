// Package memory keeps the short-term per-user conversation log used for
// multi-turn context resolution.
package memory

import (
	"context"
	"errors"
	"time"
)

const (
	// DefaultMaxTurns bounds the log to the most recent turns.
	DefaultMaxTurns = 20
	// DefaultTTL is the sliding expiration window refreshed on every write.
	DefaultTTL = 30 * time.Minute
)

// ErrUnavailable is returned when the backing store cannot be reached.
var ErrUnavailable = errors.New("memory: store unavailable")

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// SurfacedHotel is the minimal projection of a property shown to the user,
// kept on assistant turns so follow-ups like "cái đầu tiên" can be resolved.
type SurfacedHotel struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Price   float64 `json:"price"`
	Address string  `json:"address,omitempty"`
	Rating  float64 `json:"rating,omitempty"`
}

// Turn is one entry in a conversation.
type Turn struct {
	Role    Role            `json:"role"`
	Content string          `json:"content"`
	Hotels  []SurfacedHotel `json:"hotels,omitempty"`
}

// Store is the conversational memory collaborator.
type Store interface {
	// Load returns the retained turns for a user, oldest first.
	Load(ctx context.Context, userID string) ([]Turn, error)
	// Append adds turns, trims to the most recent N and refreshes the TTL.
	Append(ctx context.Context, userID string, turns ...Turn) error
	// Clear destroys the context for a user.
	Clear(ctx context.Context, userID string) error
}

// LastSurfaced returns the hotels attached to the most recent assistant turn
// that surfaced any.
func LastSurfaced(turns []Turn) []SurfacedHotel {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == RoleAssistant && len(turns[i].Hotels) > 0 {
			return turns[i].Hotels
		}
	}
	return nil
}

func historyKey(userID string) string {
	return "chat_history:" + userID
}
