package slippage

import (
	"github.com/dmitryikh/leaves"
)

// GBM wraps a LightGBM ensemble exported by the tuning pipeline. Feature
// order matches FeatureVec: {size, spread, imbalance, baseline_bps}.
type GBM struct {
	ensemble *leaves.Ensemble
}

func LoadGBM(path string) (*GBM, error) {
	ensemble, err := leaves.LGEnsembleFromFile(path, false)
	if err != nil {
		return nil, err
	}
	return &GBM{ensemble: ensemble}, nil
}

func (m *GBM) CorrectBps(f FeatureVec) float64 {
	return m.ensemble.PredictSingle([]float64{f.Size, f.Spread, f.Imbalance, f.BaselineBps}, 0)
}
