// Package features derives per-query inputs for the cost models from an
// order book snapshot.
package features

import (
	"cost_engine/internal/models"
	"cost_engine/internal/orderbook"
)

const DefaultImbalanceLevels = 5

// Vector is the per-snapshot feature set shared by the cost models.
type Vector struct {
	Mid        float64
	Spread     float64
	SpreadBps  float64
	MicroPrice float64
	Imbalance  float64
	BidDepth   float64
	AskDepth   float64
}

// Compute extracts the feature vector. ok is false when either side of the
// book is empty, since spread and mid are undefined then.
func Compute(snap *orderbook.Snapshot, topN int) (Vector, bool) {
	if topN <= 0 {
		topN = DefaultImbalanceLevels
	}
	bb, okBid := snap.BestBid()
	ba, okAsk := snap.BestAsk()
	if !okBid || !okAsk {
		return Vector{}, false
	}

	mid := (bb.Price + ba.Price) / 2
	spread := ba.Price - bb.Price
	spreadBps := 0.0
	if mid > 0 {
		spreadBps = spread / mid * 10000
	}

	micro := mid
	if bb.Qty+ba.Qty > 0 {
		micro = (bb.Price*ba.Qty + ba.Price*bb.Qty) / (bb.Qty + ba.Qty)
	}

	bidDepth := sumTop(snap.Bids, topN)
	askDepth := sumTop(snap.Asks, topN)

	return Vector{
		Mid:        mid,
		Spread:     spread,
		SpreadBps:  spreadBps,
		MicroPrice: micro,
		Imbalance:  imbalance(bidDepth, askDepth),
		BidDepth:   bidDepth,
		AskDepth:   askDepth,
	}, true
}

// Fill is one consumed level of a depth walk.
type Fill struct {
	Price float64
	Qty   float64
}

// DepthProfile is the result of walking one side of the book for a
// requested size. Insufficient is set when the visible levels ran out
// before the size was covered; FilledQty then holds what was available.
type DepthProfile struct {
	Fills        []Fill
	FilledQty    float64
	VWAP         float64
	Insufficient bool
}

// WalkDepth consumes levels on the side the order would execute against:
// asks for a buy, bids for a sell.
func WalkDepth(snap *orderbook.Snapshot, side models.Side, size float64) DepthProfile {
	levels := snap.Asks
	if side == models.SideSell {
		levels = snap.Bids
	}

	var p DepthProfile
	if size <= 0 {
		return p
	}
	remaining := size
	cost := 0.0
	for _, lvl := range levels {
		take := lvl.Qty
		if take > remaining {
			take = remaining
		}
		p.Fills = append(p.Fills, Fill{Price: lvl.Price, Qty: take})
		p.FilledQty += take
		cost += take * lvl.Price
		remaining -= take
		if remaining <= 0 {
			break
		}
	}
	if p.FilledQty > 0 {
		p.VWAP = cost / p.FilledQty
	}
	p.Insufficient = p.FilledQty < size
	return p
}

// DepthWithin sums visible quantity over the first n levels of the side
// an order of the given direction would execute against. It is the
// liquidity proxy for the impact model.
func DepthWithin(snap *orderbook.Snapshot, side models.Side, n int) float64 {
	levels := snap.Asks
	if side == models.SideSell {
		levels = snap.Bids
	}
	if n <= 0 {
		n = len(levels)
	}
	return sumTop(levels, n)
}

func sumTop(levels []orderbook.PriceLevel, n int) float64 {
	if n > len(levels) {
		n = len(levels)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += levels[i].Qty
	}
	return sum
}

func imbalance(bidQty, askQty float64) float64 {
	if bidQty+askQty == 0 {
		return 0
	}
	return (bidQty - askQty) / (bidQty + askQty)
}
