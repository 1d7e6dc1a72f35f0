package feed

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cost_engine/internal/orderbook"
)

func TestParseLevels(t *testing.T) {
	levels := parseLevels([][]string{
		{"100.5", "2"},
		{"99", "0"},
		{"bad", "1"},
		{"101", "oops"},
		{"102"},
		{"103.25", "4.5", "extra", "fields"},
	})
	assert.Equal(t, []orderbook.PriceLevel{
		{Price: 100.5, Qty: 2},
		{Price: 99, Qty: 0},
		{Price: 103.25, Qty: 4.5},
	}, levels)
}

func TestNeedsResync(t *testing.T) {
	assert.False(t, needsResync(orderbook.ResultApplied))
	assert.False(t, needsResync(orderbook.ResultIgnoredDuplicate))
	assert.True(t, needsResync(orderbook.ResultGap))
	assert.True(t, needsResync(orderbook.ResultDroppedNoSnapshot))
	assert.True(t, needsResync(orderbook.ResultRejectedCrossed))
}

func TestNewOKXDerivesInstID(t *testing.T) {
	f, err := NewOKX(OKXConfig{Symbol: "btc-usdt", Depth: 50}, zerolog.Nop(), nil)
	require.NoError(t, err)
	assert.Equal(t, "BTC-USDT", f.instID)
	assert.Equal(t, "BTCUSDT", f.symbol)
	assert.Equal(t, "books50", f.channel)

	_, err = NewOKX(OKXConfig{}, zerolog.Nop(), nil)
	assert.Error(t, err)
}

func TestNewBinanceRequiresSymbol(t *testing.T) {
	_, err := NewBinance(BinanceConfig{}, zerolog.Nop(), nil)
	assert.Error(t, err)

	f, err := NewBinance(BinanceConfig{Symbol: "ethusdt"}, zerolog.Nop(), nil)
	require.NoError(t, err)
	assert.Equal(t, "ETHUSDT", f.symbol)
	assert.Equal(t, 1000, f.cfg.SnapshotDepth)
}
