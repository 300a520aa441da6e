package memory

import (
	"context"
	"sync"
	"time"
)

const localSweepInterval = time.Minute

// LocalStore is an in-process Store used when no Redis address is configured.
// It applies the same trim and sliding-expiry rules as RedisStore. Expired
// conversations are swept in the background until Stop is called.
type LocalStore struct {
	mu       sync.Mutex
	entries  map[string]*localEntry
	maxTurns int
	ttl      time.Duration
	now      func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

type localEntry struct {
	turns     []Turn
	expiresAt time.Time
}

// NewLocalStore builds an in-process store.
func NewLocalStore(maxTurns int, ttl time.Duration) *LocalStore {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &LocalStore{
		entries:  make(map[string]*localEntry),
		maxTurns: maxTurns,
		ttl:      ttl,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	go s.sweepLoop()
	return s
}

// Stop ends the background sweep.
func (s *LocalStore) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *LocalStore) sweepLoop() {
	ticker := time.NewTicker(localSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *LocalStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for userID, entry := range s.entries {
		if !now.Before(entry.expiresAt) {
			delete(s.entries, userID)
		}
	}
}

func (s *LocalStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *LocalStore) Load(_ context.Context, userID string) ([]Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[userID]
	if !ok {
		return nil, nil
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.entries, userID)
		return nil, nil
	}
	out := make([]Turn, len(entry.turns))
	copy(out, entry.turns)
	return out, nil
}

func (s *LocalStore) Append(_ context.Context, userID string, turns ...Turn) error {
	if len(turns) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	entry, ok := s.entries[userID]
	if !ok || !now.Before(entry.expiresAt) {
		entry = &localEntry{}
		s.entries[userID] = entry
	}
	entry.turns = append(entry.turns, turns...)
	if over := len(entry.turns) - s.maxTurns; over > 0 {
		entry.turns = append([]Turn(nil), entry.turns[over:]...)
	}
	entry.expiresAt = now.Add(s.ttl)
	return nil
}

func (s *LocalStore) Clear(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, userID)
	return nil
}
