package orderbook

import (
	"sort"
	"sync/atomic"
	"time"
)

// State of a per-symbol book relative to its feed.
type State int32

const (
	StateUninitialized State = iota
	StateSynced
	StateStale
	StateResyncing
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "Uninitialized"
	case StateSynced:
		return "Synced"
	case StateStale:
		return "Stale"
	case StateResyncing:
		return "Resyncing"
	}
	return "Unknown"
}

// PriceLevel is one aggregated L2 level. Qty 0 in an update removes the level.
type PriceLevel struct {
	Price float64
	Qty   float64
}

// Update is the feed contract: either a full replace of both sides
// (IsSnapshot) or an incremental diff of level changes split by side.
//
// Sequencing: a diff is contiguous when PrevSeq equals the book's current
// sequence, or, for feeds that number updates densely, when Seq equals
// current+1 and PrevSeq is zero. Anything else is a gap.
type Update struct {
	Symbol     string
	Seq        uint64
	PrevSeq    uint64
	Time       time.Time
	IsSnapshot bool
	Bids       []PriceLevel
	Asks       []PriceLevel
}

// ApplyResult reports what Apply did with an update.
type ApplyResult int

const (
	ResultApplied ApplyResult = iota
	ResultIgnoredDuplicate
	ResultDroppedNoSnapshot // diff while Uninitialized/Stale/Resyncing
	ResultGap               // diff sequence skipped ahead; resync required
	ResultRejectedCrossed   // update would cross the book; resync required
)

func (r ApplyResult) String() string {
	switch r {
	case ResultApplied:
		return "applied"
	case ResultIgnoredDuplicate:
		return "duplicate"
	case ResultDroppedNoSnapshot:
		return "dropped"
	case ResultGap:
		return "gap"
	case ResultRejectedCrossed:
		return "crossed"
	}
	return "unknown"
}

// Snapshot is an immutable point-in-time view. Bids are sorted descending,
// asks ascending. Once published a snapshot is never mutated; readers may
// hold it for as long as they like.
type Snapshot struct {
	Symbol string
	Seq    uint64
	Time   time.Time
	Bids   []PriceLevel
	Asks   []PriceLevel
}

func (s *Snapshot) BestBid() (PriceLevel, bool) {
	if s == nil || len(s.Bids) == 0 {
		return PriceLevel{}, false
	}
	return s.Bids[0], true
}

func (s *Snapshot) BestAsk() (PriceLevel, bool) {
	if s == nil || len(s.Asks) == 0 {
		return PriceLevel{}, false
	}
	return s.Asks[0], true
}

// Mid returns the mid price; ok is false unless both sides are non-empty.
func (s *Snapshot) Mid() (float64, bool) {
	bb, ok := s.BestBid()
	if !ok {
		return 0, false
	}
	ba, ok := s.BestAsk()
	if !ok {
		return 0, false
	}
	return (bb.Price + ba.Price) / 2, true
}

func (s *Snapshot) crossed() bool {
	if len(s.Bids) == 0 || len(s.Asks) == 0 {
		return false
	}
	return s.Bids[0].Price >= s.Asks[0].Price
}

// Book maintains the live ladder for one symbol. A single writer calls
// Apply; any number of readers call View/State. Every successful Apply
// builds a fresh Snapshot and publishes it with an atomic pointer swap, so
// readers never observe a half-applied diff.
type Book struct {
	symbol     string
	staleAfter time.Duration

	// writer-owned
	seq  uint64
	bids []PriceLevel
	asks []PriceLevel

	state      atomic.Int32
	snap       atomic.Pointer[Snapshot]
	lastUpdate atomic.Int64 // unix nanos of last accepted update
}

func NewBook(symbol string, staleAfter time.Duration) *Book {
	b := &Book{symbol: symbol, staleAfter: staleAfter}
	b.state.Store(int32(StateUninitialized))
	return b
}

func (b *Book) Symbol() string { return b.symbol }

// State returns the current feed state, demoting Synced to Stale when no
// update arrived within the staleness window.
func (b *Book) State(now time.Time) State {
	st := State(b.state.Load())
	if st != StateSynced || b.staleAfter <= 0 {
		return st
	}
	last := b.lastUpdate.Load()
	if last > 0 && now.UnixNano()-last > int64(b.staleAfter) {
		return StateStale
	}
	return st
}

// View returns the latest published snapshot, or nil before the first one.
func (b *Book) View() *Snapshot {
	return b.snap.Load()
}

// Apply ingests one update. Writer-only.
func (b *Book) Apply(u Update) ApplyResult {
	if u.IsSnapshot {
		return b.applySnapshot(u)
	}
	return b.applyDiff(u)
}

func (b *Book) applySnapshot(u Update) ApplyResult {
	bids := sanitizeLevels(u.Bids, true)
	asks := sanitizeLevels(u.Asks, false)
	if len(bids) > 0 && len(asks) > 0 && bids[0].Price >= asks[0].Price {
		b.markResyncing()
		return ResultRejectedCrossed
	}
	b.seq = u.Seq
	b.bids = bids
	b.asks = asks
	b.publish(u.Time)
	b.state.Store(int32(StateSynced))
	return ResultApplied
}

func (b *Book) applyDiff(u Update) ApplyResult {
	switch State(b.state.Load()) {
	case StateUninitialized, StateStale, StateResyncing:
		// Diffs are useless without a baseline snapshot.
		b.markResyncing()
		return ResultDroppedNoSnapshot
	}
	if u.Seq <= b.seq {
		return ResultIgnoredDuplicate
	}
	if !contiguous(b.seq, u) {
		b.state.Store(int32(StateStale))
		return ResultGap
	}

	bids := applyChanges(b.bids, u.Bids, true)
	asks := applyChanges(b.asks, u.Asks, false)
	if len(bids) > 0 && len(asks) > 0 && bids[0].Price >= asks[0].Price {
		// Keep the last good snapshot; force a resync.
		b.state.Store(int32(StateStale))
		return ResultRejectedCrossed
	}

	b.seq = u.Seq
	b.bids = bids
	b.asks = asks
	b.publish(u.Time)
	return ResultApplied
}

func (b *Book) markResyncing() {
	if State(b.state.Load()) != StateUninitialized {
		b.state.Store(int32(StateResyncing))
	}
}

func (b *Book) publish(ts time.Time) {
	if ts.IsZero() {
		ts = time.Now()
	}
	snap := &Snapshot{
		Symbol: b.symbol,
		Seq:    b.seq,
		Time:   ts,
		Bids:   b.bids,
		Asks:   b.asks,
	}
	b.snap.Store(snap)
	b.lastUpdate.Store(time.Now().UnixNano())
}

func contiguous(cur uint64, u Update) bool {
	if u.PrevSeq != 0 {
		return u.PrevSeq == cur
	}
	return u.Seq == cur+1
}

// sanitizeLevels copies, drops non-positive quantities and invalid prices,
// and sorts (bids descending, asks ascending).
func sanitizeLevels(levels []PriceLevel, desc bool) []PriceLevel {
	out := make([]PriceLevel, 0, len(levels))
	for _, lvl := range levels {
		if lvl.Price <= 0 || lvl.Qty <= 0 {
			continue
		}
		out = append(out, lvl)
	}
	sort.Slice(out, func(i, j int) bool {
		if desc {
			return out[i].Price > out[j].Price
		}
		return out[i].Price < out[j].Price
	})
	return out
}

// applyChanges returns a new sorted slice with the diff's upserts and
// removals applied. The input slice is never mutated; it may be shared
// with a published snapshot.
func applyChanges(side []PriceLevel, changes []PriceLevel, desc bool) []PriceLevel {
	if len(changes) == 0 {
		return side
	}
	out := make([]PriceLevel, len(side))
	copy(out, side)
	for _, ch := range changes {
		if ch.Price <= 0 || ch.Qty < 0 {
			// Negative quantities are invalid on the wire; skip.
			continue
		}
		idx := sort.Search(len(out), func(i int) bool {
			if desc {
				return out[i].Price <= ch.Price
			}
			return out[i].Price >= ch.Price
		})
		found := idx < len(out) && out[idx].Price == ch.Price
		switch {
		case ch.Qty == 0 && found:
			out = append(out[:idx], out[idx+1:]...)
		case ch.Qty == 0:
			// Removal of an absent level; nothing to do.
		case found:
			out[idx].Qty = ch.Qty
		default:
			out = append(out, PriceLevel{})
			copy(out[idx+1:], out[idx:])
			out[idx] = PriceLevel{Price: ch.Price, Qty: ch.Qty}
		}
	}
	return out
}
