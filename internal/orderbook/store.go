package orderbook

import (
	"sync"
	"time"
)

// Store holds one Book per symbol. Books are created on first update and
// dropped when the feed for the symbol is torn down. The map is guarded by
// a RWMutex; the books themselves are single-writer and lock-free to read.
type Store struct {
	staleAfter time.Duration

	mu    sync.RWMutex
	books map[string]*Book
}

func NewStore(staleAfter time.Duration) *Store {
	return &Store{
		staleAfter: staleAfter,
		books:      make(map[string]*Book),
	}
}

// Apply routes an update to the symbol's book, creating it if needed.
func (s *Store) Apply(u Update) ApplyResult {
	return s.book(u.Symbol, true).Apply(u)
}

// View returns the latest snapshot and feed state for a symbol. The
// snapshot is nil until the first full snapshot has been applied.
func (s *Store) View(symbol string, now time.Time) (*Snapshot, State) {
	b := s.book(symbol, false)
	if b == nil {
		return nil, StateUninitialized
	}
	return b.View(), b.State(now)
}

// State reports the feed state without touching the snapshot.
func (s *Store) State(symbol string, now time.Time) State {
	b := s.book(symbol, false)
	if b == nil {
		return StateUninitialized
	}
	return b.State(now)
}

// Drop discards a symbol's book when its feed is torn down.
func (s *Store) Drop(symbol string) {
	s.mu.Lock()
	delete(s.books, symbol)
	s.mu.Unlock()
}

func (s *Store) book(symbol string, create bool) *Book {
	s.mu.RLock()
	b := s.books[symbol]
	s.mu.RUnlock()
	if b != nil || !create {
		return b
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if b = s.books[symbol]; b == nil {
		b = NewBook(symbol, s.staleAfter)
		s.books[symbol] = b
	}
	return b
}
