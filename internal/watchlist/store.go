// Package watchlist manages the mutable set of symbols under scan.
//
// Reads during a scan see a snapshot, never a collection being resized
// concurrently. Symbol uniqueness is preserved across all mutations.
package watchlist

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"trade-assistant/internal/model"
)

const redisKey = "assistant:watchlist"

// Store is the watchlist with optional Redis persistence. When a Redis
// client is supplied, mutations are persisted fire-and-forget and the
// list can be restored at startup; without one the store is purely
// in-memory.
type Store struct {
	mu      sync.RWMutex
	entries []model.WatchlistEntry
	rdb     *goredis.Client
}

// NewStore creates a store seeded with the given entries (duplicates
// collapsed, first occurrence wins). rdb may be nil.
func NewStore(rdb *goredis.Client, seed []model.WatchlistEntry) *Store {
	s := &Store{rdb: rdb}
	for _, e := range seed {
		if e.Symbol == "" || s.indexOf(e.Symbol) >= 0 {
			continue
		}
		s.entries = append(s.entries, e)
	}
	return s
}

// Load restores the watchlist from Redis, replacing the seed if a
// persisted copy exists. Returns true on restore.
func (s *Store) Load(ctx context.Context) bool {
	if s.rdb == nil {
		return false
	}
	data, err := s.rdb.Get(ctx, redisKey).Result()
	if err != nil {
		return false
	}
	var entries []model.WatchlistEntry
	if json.Unmarshal([]byte(data), &entries) != nil {
		return false
	}
	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()
	log.Printf("[watchlist] restored %d entries from Redis", len(entries))
	return true
}

// List returns a copy of the current entries in insertion order.
func (s *Store) List() []model.WatchlistEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.WatchlistEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Snapshot is the copy-on-read view handed to an in-progress scan, so
// concurrent Add/Remove cannot disturb the iteration.
func (s *Store) Snapshot() []model.WatchlistEntry {
	return s.List()
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Add inserts entries whose symbols are not already present and returns
// the number actually added.
func (s *Store) Add(entries ...model.WatchlistEntry) int {
	s.mu.Lock()
	added := 0
	for _, e := range entries {
		if e.Symbol == "" || s.indexOf(e.Symbol) >= 0 {
			continue
		}
		s.entries = append(s.entries, e)
		added++
	}
	s.mu.Unlock()

	if added > 0 {
		s.persist()
	}
	return added
}

// Remove deletes the given symbols, returning the number removed.
func (s *Store) Remove(symbols ...string) int {
	s.mu.Lock()
	removed := 0
	kept := s.entries[:0]
	drop := make(map[string]bool, len(symbols))
	for _, sym := range symbols {
		drop[sym] = true
	}
	for _, e := range s.entries {
		if drop[e.Symbol] {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept
	s.mu.Unlock()

	if removed > 0 {
		s.persist()
	}
	return removed
}

// persist writes the current list to Redis fire-and-forget. The in-memory
// store stays the source of truth; a write failure is only a warning.
func (s *Store) persist() {
	if s.rdb == nil {
		return
	}
	data, err := json.Marshal(s.List())
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.rdb.Set(ctx, redisKey, data, 0).Err(); err != nil {
		log.Printf("[watchlist] WARNING: failed to persist to Redis: %v", err)
	}
}

// indexOf must be called with the lock held.
func (s *Store) indexOf(symbol string) int {
	for i, e := range s.entries {
		if e.Symbol == symbol {
			return i
		}
	}
	return -1
}
