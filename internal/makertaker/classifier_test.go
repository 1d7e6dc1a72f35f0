package makertaker

import (
	"math"
	"testing"

	"cost_engine/internal/models"
	"cost_engine/internal/orderbook"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func model(t *testing.T, p Params) Model {
	t.Helper()
	m, err := New(p)
	require.NoError(t, err)
	return m
}

func TestScoreMatchesSigmoid(t *testing.T) {
	m := model(t, Params{Weights: []float64{0.5, -1.0, 2.0, 0.3}, Bias: -0.2})
	probs := m.Score(1.5, 0.8, -0.4, models.SideSell)

	z := -0.2 + 0.5*1.5 + -1.0*0.8 + 2.0*-0.4 + 0.3*1
	want := 1 / (1 + math.Exp(-z))
	assert.InDelta(t, want, probs.Taker, 1e-12)
	assert.InDelta(t, 1-want, probs.Maker, 1e-12)
}

func TestScoreStandardization(t *testing.T) {
	m := model(t, Params{
		Weights: []float64{1, 0, 0, 0},
		Means:   []float64{10, 0, 0, 0},
		Scales:  []float64{2, 1, 1, 1},
	})
	probs := m.Score(10, 0, 0, models.SideBuy)
	assert.InDelta(t, 0.5, probs.Taker, 1e-12)
}

func TestProbabilitiesBounded(t *testing.T) {
	m := model(t, Params{Weights: []float64{1000, 0, 0, 0}})
	hi := m.Score(1e9, 0, 0, models.SideBuy)
	assert.Equal(t, 1.0, hi.Taker)
	assert.Equal(t, 0.0, hi.Maker)

	lo := m.Score(-1e9, 0, 0, models.SideBuy)
	assert.Equal(t, 0.0, lo.Taker)
	assert.Equal(t, 1.0, lo.Maker)
}

func TestSideChangesScore(t *testing.T) {
	m := model(t, Params{Weights: []float64{0, 0, 0, 1.5}})
	buy := m.Score(1, 1, 0, models.SideBuy)
	sell := m.Score(1, 1, 0, models.SideSell)
	assert.Greater(t, sell.Taker, buy.Taker)
}

func TestParamsValidate(t *testing.T) {
	assert.Error(t, Params{Weights: []float64{1, 2}}.Validate())
	assert.Error(t, Params{Weights: []float64{1, 2, 3, 4}, Scales: []float64{1, 0, 1, 1}}.Validate())
	assert.NoError(t, Params{Weights: []float64{1, 2, 3, 4}}.Validate())
}

func TestClassify(t *testing.T) {
	snap := &orderbook.Snapshot{
		Bids: []orderbook.PriceLevel{{Price: 100, Qty: 1}},
		Asks: []orderbook.PriceLevel{{Price: 101, Qty: 1}},
	}
	assert.Equal(t, "taker", Classify(101, models.SideBuy, snap))
	assert.Equal(t, "maker", Classify(100.5, models.SideBuy, snap))
	assert.Equal(t, "taker", Classify(99.9, models.SideSell, snap))
	assert.Equal(t, "maker", Classify(100.1, models.SideSell, snap))
}
