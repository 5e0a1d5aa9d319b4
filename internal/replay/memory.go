// Package replay records consumed step tokens so each one runs at most once.
package replay

import (
	"context"
	"sync"
	"time"
)

// sweepEvery bounds how often expired entries are dropped.
const sweepEvery = time.Minute

// MemoryStore is a process-local replay store. It is only correct for a
// single gate instance; use RedisStore or the SQL ledger when several
// instances share a secret.
type MemoryStore struct {
	mu        sync.Mutex
	seen      map[string]time.Time
	now       func() time.Time
	lastSweep time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{seen: make(map[string]time.Time), now: time.Now}
}

// Consume reports true the first time key is presented before until.
func (s *MemoryStore) Consume(ctx context.Context, key string, until time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) >= sweepEvery {
		s.sweep(now)
		s.lastSweep = now
	}
	if exp, ok := s.seen[key]; ok && now.Before(exp) {
		return false, nil
	}
	s.seen[key] = until
	return true, nil
}

// Len returns the number of tracked keys.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

func (s *MemoryStore) sweep(now time.Time) {
	for k, exp := range s.seen {
		if !now.Before(exp) {
			delete(s.seen, k)
		}
	}
}
