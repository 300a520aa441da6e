package catalog

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
)

// MemoryStore serves a read-only snapshot of the catalog held in memory. It is
// safe for concurrent readers; Replace swaps the snapshot atomically.
type MemoryStore struct {
	mu    sync.RWMutex
	items []Item
	byID  map[int64]int
}

func NewMemoryStore(items []Item) *MemoryStore {
	s := &MemoryStore{}
	s.Replace(items)
	return s
}

// LoadSnapshot copies every item from src into a new MemoryStore.
func LoadSnapshot(ctx context.Context, src Store) (*MemoryStore, error) {
	items, err := src.All(ctx)
	if err != nil {
		return nil, err
	}
	return NewMemoryStore(items), nil
}

func (s *MemoryStore) Replace(items []Item) {
	copied := make([]Item, len(items))
	copy(copied, items)
	byID := make(map[int64]int, len(copied))
	for i, item := range copied {
		byID[item.ID] = i
	}
	s.mu.Lock()
	s.items = copied
	s.byID = byID
	s.mu.Unlock()
}

// Len reports the number of items in the snapshot.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *MemoryStore) Search(_ context.Context, q Query) ([]Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	title := strings.ToLower(strings.TrimSpace(q.TitleContains))
	loc := strings.ToLower(strings.TrimSpace(q.Location))

	type scored struct {
		item     Item
		distance float64
	}
	var matches []scored
	for _, item := range s.items {
		lowerTitle := strings.ToLower(item.Title)
		if title != "" && !strings.Contains(lowerTitle, title) {
			continue
		}
		if loc != "" && !strings.Contains(strings.ToLower(item.Address), loc) && !strings.Contains(lowerTitle, loc) {
			continue
		}
		if q.PriceMax != nil && item.Price > *q.PriceMax {
			continue
		}
		if slices.Contains(q.ExcludeIDs, item.ID) {
			continue
		}
		entry := scored{item: item}
		if len(q.Vector) > 0 {
			emb := item.embedding(q.Kind)
			if len(emb) != len(q.Vector) {
				continue
			}
			entry.distance = CosineDistance(q.Vector, emb)
		}
		matches = append(matches, entry)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		switch {
		case len(q.Vector) > 0:
			if a.distance != b.distance {
				return a.distance < b.distance
			}
		case q.Order == OrderPriceAsc:
			if a.item.Price != b.item.Price {
				return a.item.Price < b.item.Price
			}
			if a.item.Rating != b.item.Rating {
				return a.item.Rating > b.item.Rating
			}
		default:
			if a.item.Rating != b.item.Rating {
				return a.item.Rating > b.item.Rating
			}
			if a.item.Price != b.item.Price {
				return a.item.Price < b.item.Price
			}
		}
		return a.item.ID < b.item.ID
	})

	if q.Limit > 0 && len(matches) > q.Limit {
		matches = matches[:q.Limit]
	}
	out := make([]Item, len(matches))
	for i, m := range matches {
		out[i] = m.item
	}
	return out, nil
}

func (s *MemoryStore) Get(_ context.Context, id int64) (Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.byID[id]
	if !ok {
		return Item{}, ErrNotFound
	}
	return s.items[idx], nil
}

func (s *MemoryStore) All(_ context.Context) ([]Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out, nil
}
