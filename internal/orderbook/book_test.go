package orderbook

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshotUpdate(seq uint64) Update {
	return Update{
		Symbol:     "BTCUSDT",
		Seq:        seq,
		IsSnapshot: true,
		Bids:       []PriceLevel{{Price: 100, Qty: 2}, {Price: 99, Qty: 5}},
		Asks:       []PriceLevel{{Price: 101, Qty: 3}, {Price: 102, Qty: 4}},
	}
}

func TestBookRequiresSnapshotFirst(t *testing.T) {
	b := NewBook("BTCUSDT", 0)
	assert.Equal(t, StateUninitialized, b.State(time.Now()))

	res := b.Apply(Update{Symbol: "BTCUSDT", Seq: 1, Bids: []PriceLevel{{Price: 100, Qty: 1}}})
	assert.Equal(t, ResultDroppedNoSnapshot, res)
	assert.Equal(t, StateUninitialized, b.State(time.Now()))
	assert.Nil(t, b.View())

	res = b.Apply(snapshotUpdate(10))
	assert.Equal(t, ResultApplied, res)
	assert.Equal(t, StateSynced, b.State(time.Now()))
	require.NotNil(t, b.View())
	assert.Equal(t, uint64(10), b.View().Seq)
}

func TestBookAppliesContiguousDiffs(t *testing.T) {
	b := NewBook("BTCUSDT", 0)
	require.Equal(t, ResultApplied, b.Apply(snapshotUpdate(10)))

	res := b.Apply(Update{
		Symbol: "BTCUSDT",
		Seq:    11,
		Bids:   []PriceLevel{{Price: 100.5, Qty: 1}},
		Asks:   []PriceLevel{{Price: 102, Qty: 0}},
	})
	require.Equal(t, ResultApplied, res)

	snap := b.View()
	bb, ok := snap.BestBid()
	require.True(t, ok)
	assert.Equal(t, 100.5, bb.Price)
	assert.Len(t, snap.Asks, 1) // 102 removed
	assert.Equal(t, uint64(11), snap.Seq)
}

func TestBookIgnoresDuplicates(t *testing.T) {
	b := NewBook("BTCUSDT", 0)
	require.Equal(t, ResultApplied, b.Apply(snapshotUpdate(10)))
	require.Equal(t, ResultApplied, b.Apply(Update{Symbol: "BTCUSDT", Seq: 11, Bids: []PriceLevel{{Price: 99, Qty: 7}}}))

	before := b.View()
	assert.Equal(t, ResultIgnoredDuplicate, b.Apply(Update{Symbol: "BTCUSDT", Seq: 11, Bids: []PriceLevel{{Price: 99, Qty: 1}}}))
	assert.Equal(t, ResultIgnoredDuplicate, b.Apply(Update{Symbol: "BTCUSDT", Seq: 5, Bids: []PriceLevel{{Price: 1, Qty: 1}}}))
	assert.Same(t, before, b.View())
	assert.Equal(t, StateSynced, b.State(time.Now()))
}

func TestBookGapForcesResync(t *testing.T) {
	b := NewBook("BTCUSDT", 0)
	require.Equal(t, ResultApplied, b.Apply(snapshotUpdate(10)))

	res := b.Apply(Update{Symbol: "BTCUSDT", Seq: 13, Bids: []PriceLevel{{Price: 98, Qty: 1}}})
	assert.Equal(t, ResultGap, res)
	assert.Equal(t, StateStale, b.State(time.Now()))

	// Diffs alone can never recover a gapped book.
	res = b.Apply(Update{Symbol: "BTCUSDT", Seq: 14, PrevSeq: 13, Bids: []PriceLevel{{Price: 98, Qty: 1}}})
	assert.Equal(t, ResultDroppedNoSnapshot, res)
	assert.Equal(t, StateResyncing, b.State(time.Now()))

	// A fresh snapshot restores sync.
	require.Equal(t, ResultApplied, b.Apply(snapshotUpdate(20)))
	assert.Equal(t, StateSynced, b.State(time.Now()))
	assert.Equal(t, uint64(20), b.View().Seq)
}

func TestBookPrevSeqContiguity(t *testing.T) {
	b := NewBook("BTCUSDT", 0)
	require.Equal(t, ResultApplied, b.Apply(snapshotUpdate(100)))

	// Sparse exchange sequence numbers chain via PrevSeq.
	res := b.Apply(Update{Symbol: "BTCUSDT", Seq: 107, PrevSeq: 100, Bids: []PriceLevel{{Price: 99.5, Qty: 1}}})
	assert.Equal(t, ResultApplied, res)

	res = b.Apply(Update{Symbol: "BTCUSDT", Seq: 130, PrevSeq: 110, Bids: []PriceLevel{{Price: 99.4, Qty: 1}}})
	assert.Equal(t, ResultGap, res)
}

func TestBookCrossedDiffRejected(t *testing.T) {
	b := NewBook("BTCUSDT", 0)
	require.Equal(t, ResultApplied, b.Apply(snapshotUpdate(10)))
	before := b.View()

	// Bid at 101.5 would cross the 101 ask.
	res := b.Apply(Update{Symbol: "BTCUSDT", Seq: 11, Bids: []PriceLevel{{Price: 101.5, Qty: 1}}})
	assert.Equal(t, ResultRejectedCrossed, res)
	assert.Equal(t, StateStale, b.State(time.Now()))
	// Last good snapshot stays published.
	assert.Same(t, before, b.View())
}

func TestBookCrossedSnapshotRejected(t *testing.T) {
	b := NewBook("BTCUSDT", 0)
	u := snapshotUpdate(10)
	u.Bids = []PriceLevel{{Price: 102, Qty: 1}}
	assert.Equal(t, ResultRejectedCrossed, b.Apply(u))
	assert.Nil(t, b.View())
}

func TestBookSyncedInvariantNeverCrossed(t *testing.T) {
	b := NewBook("BTCUSDT", 0)
	require.Equal(t, ResultApplied, b.Apply(snapshotUpdate(1)))
	seq := uint64(1)
	prices := []float64{100.9, 100.2, 100.7, 100.1}
	for _, p := range prices {
		seq++
		b.Apply(Update{Symbol: "BTCUSDT", Seq: seq, Bids: []PriceLevel{{Price: p, Qty: 1}}})
		snap := b.View()
		if len(snap.Bids) > 0 && len(snap.Asks) > 0 {
			assert.Less(t, snap.Bids[0].Price, snap.Asks[0].Price)
		}
	}
}

func TestBookZeroQtyRemovesLevel(t *testing.T) {
	b := NewBook("BTCUSDT", 0)
	require.Equal(t, ResultApplied, b.Apply(snapshotUpdate(10)))

	res := b.Apply(Update{Symbol: "BTCUSDT", Seq: 11, Bids: []PriceLevel{{Price: 100, Qty: 0}}})
	require.Equal(t, ResultApplied, res)
	snap := b.View()
	require.Len(t, snap.Bids, 1)
	assert.Equal(t, 99.0, snap.Bids[0].Price)

	// Removing an absent level is a no-op, negative qty is dropped.
	res = b.Apply(Update{Symbol: "BTCUSDT", Seq: 12, Asks: []PriceLevel{{Price: 500, Qty: 0}, {Price: 101, Qty: -3}}})
	require.Equal(t, ResultApplied, res)
	assert.Equal(t, 3.0, b.View().Asks[0].Qty)
}

func TestBookStalenessWindow(t *testing.T) {
	b := NewBook("BTCUSDT", 50*time.Millisecond)
	require.Equal(t, ResultApplied, b.Apply(snapshotUpdate(10)))
	assert.Equal(t, StateSynced, b.State(time.Now()))
	assert.Equal(t, StateStale, b.State(time.Now().Add(time.Second)))
}

func TestBookSnapshotImmutableUnderWrites(t *testing.T) {
	b := NewBook("BTCUSDT", 0)
	require.Equal(t, ResultApplied, b.Apply(snapshotUpdate(10)))
	held := b.View()
	heldBestBid := held.Bids[0]

	for i := uint64(11); i < 40; i++ {
		b.Apply(Update{Symbol: "BTCUSDT", Seq: i, Bids: []PriceLevel{{Price: 90 + float64(i), Qty: float64(i)}}})
	}
	assert.Equal(t, heldBestBid, held.Bids[0])
	assert.Equal(t, uint64(10), held.Seq)
}

func TestStoreConcurrentReadersSingleWriter(t *testing.T) {
	s := NewStore(0)
	require.Equal(t, ResultApplied, s.Apply(snapshotUpdate(1)))

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				snap, _ := s.View("BTCUSDT", time.Now())
				if snap != nil && len(snap.Bids) > 0 && len(snap.Asks) > 0 {
					assert.Less(t, snap.Bids[0].Price, snap.Asks[0].Price)
				}
			}
		}()
	}

	for i := uint64(2); i < 2000; i++ {
		s.Apply(Update{Symbol: "BTCUSDT", Seq: i, Bids: []PriceLevel{{Price: 100, Qty: float64(i%7) + 1}}})
	}
	close(stop)
	wg.Wait()
}

func TestStoreUnknownSymbol(t *testing.T) {
	s := NewStore(0)
	snap, st := s.View("ETHUSDT", time.Now())
	assert.Nil(t, snap)
	assert.Equal(t, StateUninitialized, st)

	s.Apply(snapshotUpdate(1))
	s.Drop("BTCUSDT")
	assert.Equal(t, StateUninitialized, s.State("BTCUSDT", time.Now()))
}
