// Package impact estimates market-impact cost with an Almgren-Chriss style
// decomposition into a temporary and a permanent component.
package impact

import (
	"errors"
	"fmt"
	"math"
)

// ErrModelNotReady is returned while the volatility window holds fewer
// than two samples. Callers surface the condition instead of pricing
// impact at a fabricated zero.
var ErrModelNotReady = errors.New("impact model not ready")

// Params are externally tuned risk parameters. Eta scales the temporary
// component, Alpha the permanent one, Gamma is the participation exponent.
// DepthLevels picks how many visible levels form the liquidity proxy V.
type Params struct {
	Eta         float64 `yaml:"eta"`
	Alpha       float64 `yaml:"alpha"`
	Gamma       float64 `yaml:"gamma"`
	DepthLevels int     `yaml:"depth_levels"`
}

func (p Params) Validate() error {
	if p.Eta < 0 || p.Alpha < 0 {
		return fmt.Errorf("impact eta/alpha must not be negative (eta=%v alpha=%v)", p.Eta, p.Alpha)
	}
	if p.Gamma <= 0 || p.Gamma > 2 {
		return fmt.Errorf("impact gamma must be in (0, 2], got %v", p.Gamma)
	}
	if p.DepthLevels < 0 {
		return fmt.Errorf("impact depth_levels must not be negative, got %v", p.DepthLevels)
	}
	return nil
}

// Result is the cost split. Units follow the tuned coefficients (quote
// currency in the shipped bundles).
type Result struct {
	Temporary float64
	Permanent float64
	Total     float64
}

// Estimate computes
//
//	temporary = eta * sigma * (Q/V)^gamma
//	permanent = alpha * sigma * Q
//
// where sigma is the current realized volatility, Q the order size and V
// the visible-depth liquidity proxy. sigmaOK is the volatility estimator's
// readiness flag; without it, or without any visible depth to form V, the
// model is not ready.
func Estimate(p Params, sigma float64, sigmaOK bool, size, refVolume float64) (Result, error) {
	if !sigmaOK {
		return Result{}, fmt.Errorf("%w: volatility undefined", ErrModelNotReady)
	}
	if refVolume <= 0 {
		return Result{}, fmt.Errorf("%w: no visible depth for liquidity proxy", ErrModelNotReady)
	}
	if size <= 0 {
		return Result{}, fmt.Errorf("size must be positive, got %v", size)
	}

	tmp := p.Eta * sigma * math.Pow(size/refVolume, p.Gamma)
	perm := p.Alpha * sigma * size
	return Result{Temporary: tmp, Permanent: perm, Total: tmp + perm}, nil
}
