// Package ledger keeps the in-memory records the gate's collaborators need:
// which payment signatures have already been consumed, and per-wallet
// reputation scores credited on successful payments.
package ledger

import (
	"sort"
	"sync"
	"time"
)

// Reputation is a wallet's accumulated payment score.
type Reputation struct {
	Wallet      string    `json:"wallet"`
	Score       int64     `json:"score"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// Store is an in-memory consumption set and reputation ledger. Safe for
// concurrent use. Contents do not survive a restart.
type Store struct {
	mu       sync.Mutex
	consumed map[string]time.Time
	scores   map[string]Reputation
}

// NewStore builds an empty Store.
func NewStore() *Store {
	return &Store{
		consumed: make(map[string]time.Time),
		scores:   make(map[string]Reputation),
	}
}

// Consumed reports whether a signature has already paid for a request.
func (s *Store) Consumed(signature string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.consumed[signature]
	return ok
}

// Consume marks a signature as spent. It returns false if the signature was
// already consumed, which lets concurrent requests carrying the same
// transaction resolve to exactly one winner.
func (s *Store) Consume(signature string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.consumed[signature]; ok {
		return false
	}
	s.consumed[signature] = time.Now().UTC()
	return true
}

// Credit adds delta to a wallet's score, flooring at zero, and returns the
// updated record.
func (s *Store) Credit(wallet string, delta int64) Reputation {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.scores[wallet]
	rec.Wallet = wallet
	rec.Score += delta
	if rec.Score < 0 {
		rec.Score = 0
	}
	rec.LastUpdated = time.Now().UTC()
	s.scores[wallet] = rec
	return rec
}

// Lookup returns a wallet's reputation record.
func (s *Store) Lookup(wallet string) (Reputation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.scores[wallet]
	return rec, ok
}

// Leaderboard returns all reputation records, highest score first.
func (s *Store) Leaderboard() []Reputation {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Reputation, 0, len(s.scores))
	for _, rec := range s.scores {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
