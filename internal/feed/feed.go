// Package feed connects to exchange WebSocket streams and normalizes
// their depth messages into order book updates.
package feed

import (
	"strconv"

	"cost_engine/internal/orderbook"
)

// Handler consumes one normalized update and reports how the book took
// it. Adapters use the result to decide when a fresh snapshot is needed.
type Handler func(orderbook.Update) orderbook.ApplyResult

func needsResync(res orderbook.ApplyResult) bool {
	switch res {
	case orderbook.ResultGap, orderbook.ResultDroppedNoSnapshot, orderbook.ResultRejectedCrossed:
		return true
	}
	return false
}

func parseLevels(rows [][]string) []orderbook.PriceLevel {
	levels := make([]orderbook.PriceLevel, 0, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		price, err := strconv.ParseFloat(row[0], 64)
		if err != nil {
			continue
		}
		qty, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			continue
		}
		levels = append(levels, orderbook.PriceLevel{Price: price, Qty: qty})
	}
	return levels
}
