// Package makertaker scores the probability that an order completes as a
// taker (crossing) versus a maker (resting).
package makertaker

import (
	"fmt"
	"math"

	"cost_engine/internal/models"
	"cost_engine/internal/orderbook"
)

// Params are the logistic-regression coefficients produced by the tuning
// pipeline. Feature order is fixed: {size, spread, imbalance, side} with
// side encoded 0 for buy, 1 for sell. Means/Scales, when present, apply
// the training-time standardization before the dot product.
type Params struct {
	Weights []float64 `yaml:"weights"`
	Bias    float64   `yaml:"bias"`
	Means   []float64 `yaml:"means"`
	Scales  []float64 `yaml:"scales"`
}

const featureCount = 4

func (p Params) Validate() error {
	if len(p.Weights) != featureCount {
		return fmt.Errorf("maker_taker weights must have %d entries, got %d", featureCount, len(p.Weights))
	}
	if len(p.Means) != 0 && len(p.Means) != featureCount {
		return fmt.Errorf("maker_taker means must have %d entries, got %d", featureCount, len(p.Means))
	}
	if len(p.Scales) != 0 && len(p.Scales) != featureCount {
		return fmt.Errorf("maker_taker scales must have %d entries, got %d", featureCount, len(p.Scales))
	}
	for i, s := range p.Scales {
		if s == 0 {
			return fmt.Errorf("maker_taker scale %d must not be zero", i)
		}
	}
	return nil
}

// Model is an immutable classifier built from validated Params.
type Model struct {
	p Params
}

func New(p Params) (Model, error) {
	if err := p.Validate(); err != nil {
		return Model{}, err
	}
	return Model{p: p}, nil
}

// Probabilities always satisfy Maker+Taker == 1 with both in [0,1]; the
// sigmoid itself is the only normalization.
type Probabilities struct {
	Maker float64
	Taker float64
}

// Score evaluates p_taker = sigmoid(w·x + b) over the standard feature set.
func (m Model) Score(size, spread, imbalance float64, side models.Side) Probabilities {
	x := [featureCount]float64{size, spread, imbalance, sideFlag(side)}
	if len(m.p.Means) == featureCount {
		for i := range x {
			x[i] -= m.p.Means[i]
		}
	}
	if len(m.p.Scales) == featureCount {
		for i := range x {
			x[i] /= m.p.Scales[i]
		}
	}
	z := m.p.Bias
	for i, w := range m.p.Weights {
		z += w * x[i]
	}
	taker := sigmoid(z)
	return Probabilities{Maker: 1 - taker, Taker: taker}
}

// Classify is the deterministic price-based rule: a limit price at or
// through the opposing best quote crosses immediately.
func Classify(limitPrice float64, side models.Side, snap *orderbook.Snapshot) string {
	bb, okBid := snap.BestBid()
	ba, okAsk := snap.BestAsk()
	switch side {
	case models.SideBuy:
		if okAsk && limitPrice >= ba.Price {
			return "taker"
		}
	case models.SideSell:
		if okBid && limitPrice <= bb.Price {
			return "taker"
		}
	}
	return "maker"
}

func sideFlag(side models.Side) float64 {
	if side == models.SideSell {
		return 1
	}
	return 0
}

func sigmoid(z float64) float64 {
	// Clamp to keep exp finite; sigmoid saturates long before ±40 anyway.
	if z > 40 {
		return 1
	}
	if z < -40 {
		return 0
	}
	return 1 / (1 + math.Exp(-z))
}
