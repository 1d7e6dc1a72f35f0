// Package slippage prices the spread-crossing cost of an order: a baseline
// VWAP walk over visible depth, corrected toward a tuned quantile (90th by
// default) of the historical slippage distribution.
package slippage

import (
	"errors"
	"fmt"

	"cost_engine/internal/features"
	"cost_engine/internal/models"
	"cost_engine/internal/orderbook"
)

// ErrEmptyBook is returned when the execution side has no levels at all.
var ErrEmptyBook = errors.New("no visible depth on execution side")

// Params configure the correction model. When ModelFile is set a gradient
// boosted model is loaded from disk; otherwise the linear coefficients
// apply. Both come from the external tuning pipeline.
type Params struct {
	Quantile      float64 `yaml:"quantile"`
	Intercept     float64 `yaml:"intercept"`
	SizeCoef      float64 `yaml:"size_coef"`
	SpreadCoef    float64 `yaml:"spread_coef"`
	ImbalanceCoef float64 `yaml:"imbalance_coef"`
	BaselineCoef  float64 `yaml:"baseline_coef"`
	ModelFile     string  `yaml:"model_file"`
}

func (p Params) Validate() error {
	if p.Quantile < 0 || p.Quantile >= 1 {
		return fmt.Errorf("slippage quantile must be in [0, 1), got %v", p.Quantile)
	}
	return nil
}

// FeatureVec is the correction model input contract.
type FeatureVec struct {
	Size        float64
	Spread      float64
	Imbalance   float64
	BaselineBps float64
}

// Corrector maps a feature vector to a corrected bps estimate. The
// estimator does not own training; implementations wrap externally tuned
// artifacts.
type Corrector interface {
	CorrectBps(f FeatureVec) float64
}

// Linear is the default corrector: the tuned quantile regression.
type Linear struct {
	p Params
}

func (m Linear) CorrectBps(f FeatureVec) float64 {
	return m.p.Intercept +
		m.p.SizeCoef*f.Size +
		m.p.SpreadCoef*f.Spread +
		m.p.ImbalanceCoef*f.Imbalance +
		m.p.BaselineCoef*f.BaselineBps
}

// Result carries both the raw walk and the corrected estimate. On a
// partial fill QuantileBps equals BaselineBps: the correction was tuned on
// full fills and depth is never fabricated.
type Result struct {
	BaselineBps float64
	QuantileBps float64
	VWAP        float64
	FilledQty   float64
	PartialFill bool
}

// Estimator walks the book and applies the correction model.
type Estimator struct {
	model Corrector
}

// New builds an estimator from tuned parameters, loading the boosted model
// when one is configured.
func New(p Params) (*Estimator, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.ModelFile != "" {
		gbm, err := LoadGBM(p.ModelFile)
		if err != nil {
			return nil, fmt.Errorf("load slippage model %s: %w", p.ModelFile, err)
		}
		return &Estimator{model: gbm}, nil
	}
	return &Estimator{model: Linear{p: p}}, nil
}

// NewWithCorrector plugs in any corrector implementation.
func NewWithCorrector(c Corrector) *Estimator {
	return &Estimator{model: c}
}

// Estimate walks depth for side/size and returns the corrected bps
// estimate. Sign convention: positive bps is adverse for the order's side.
func (e *Estimator) Estimate(snap *orderbook.Snapshot, side models.Side, size float64, feat features.Vector) (Result, error) {
	profile := features.WalkDepth(snap, side, size)
	if profile.FilledQty <= 0 {
		return Result{}, ErrEmptyBook
	}

	baseline := (profile.VWAP - feat.Mid) / feat.Mid * 10000
	if side == models.SideSell {
		baseline = -baseline
	}

	res := Result{
		BaselineBps: baseline,
		VWAP:        profile.VWAP,
		FilledQty:   profile.FilledQty,
		PartialFill: profile.Insufficient,
	}
	if res.PartialFill {
		res.QuantileBps = baseline
		return res, nil
	}
	res.QuantileBps = e.model.CorrectBps(FeatureVec{
		Size:        size,
		Spread:      feat.Spread,
		Imbalance:   feat.Imbalance,
		BaselineBps: baseline,
	})
	return res, nil
}
