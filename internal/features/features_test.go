package features

import (
	"testing"

	"cost_engine/internal/models"
	"cost_engine/internal/orderbook"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot() *orderbook.Snapshot {
	return &orderbook.Snapshot{
		Symbol: "BTCUSDT",
		Bids:   []orderbook.PriceLevel{{Price: 100, Qty: 2}, {Price: 99, Qty: 5}},
		Asks:   []orderbook.PriceLevel{{Price: 101, Qty: 3}, {Price: 102, Qty: 4}},
	}
}

func TestComputeVector(t *testing.T) {
	v, ok := Compute(testSnapshot(), 5)
	require.True(t, ok)

	assert.InDelta(t, 100.5, v.Mid, 1e-12)
	assert.InDelta(t, 1.0, v.Spread, 1e-12)
	assert.InDelta(t, 1.0/100.5*10000, v.SpreadBps, 1e-9)
	assert.InDelta(t, 7.0, v.BidDepth, 1e-12)
	assert.InDelta(t, 7.0, v.AskDepth, 1e-12)
	assert.InDelta(t, 0.0, v.Imbalance, 1e-12)

	// micro-price leans toward the heavier side
	assert.InDelta(t, (100*3+101*2)/5.0, v.MicroPrice, 1e-12)
}

func TestComputeTopNImbalance(t *testing.T) {
	snap := testSnapshot()
	v, ok := Compute(snap, 1)
	require.True(t, ok)
	// top-1: bid qty 2, ask qty 3
	assert.InDelta(t, (2.0-3.0)/5.0, v.Imbalance, 1e-12)
}

func TestComputeEmptySide(t *testing.T) {
	snap := testSnapshot()
	snap.Asks = nil
	_, ok := Compute(snap, 5)
	assert.False(t, ok)
}

func TestWalkDepthBuy(t *testing.T) {
	p := WalkDepth(testSnapshot(), models.SideBuy, 4)
	require.False(t, p.Insufficient)
	assert.InDelta(t, 4.0, p.FilledQty, 1e-12)
	assert.InDelta(t, (3*101+1*102)/4.0, p.VWAP, 1e-12)
	require.Len(t, p.Fills, 2)
	assert.Equal(t, Fill{Price: 101, Qty: 3}, p.Fills[0])
	assert.Equal(t, Fill{Price: 102, Qty: 1}, p.Fills[1])
}

func TestWalkDepthSell(t *testing.T) {
	p := WalkDepth(testSnapshot(), models.SideSell, 3)
	require.False(t, p.Insufficient)
	assert.InDelta(t, (2*100+1*99)/3.0, p.VWAP, 1e-12)
}

func TestWalkDepthInsufficientLiquidity(t *testing.T) {
	p := WalkDepth(testSnapshot(), models.SideBuy, 10)
	assert.True(t, p.Insufficient)
	assert.InDelta(t, 7.0, p.FilledQty, 1e-12)
	// VWAP covers only the 7 available units, nothing fabricated.
	assert.InDelta(t, (3*101+4*102)/7.0, p.VWAP, 1e-12)
}

func TestWalkDepthEmptyBook(t *testing.T) {
	p := WalkDepth(&orderbook.Snapshot{}, models.SideBuy, 1)
	assert.True(t, p.Insufficient)
	assert.Zero(t, p.FilledQty)
	assert.Zero(t, p.VWAP)
}
