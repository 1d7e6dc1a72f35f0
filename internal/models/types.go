package models

import (
	"fmt"
	"strings"
)

// Side is the direction of the hypothetical order being costed.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

func ParseSide(raw string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "buy", "b":
		return SideBuy, nil
	case "sell", "s":
		return SideSell, nil
	}
	return "", fmt.Errorf("invalid side %q (want buy or sell)", raw)
}

// CostRequest describes a hypothetical order to estimate.
type CostRequest struct {
	Symbol string  `json:"symbol"`
	Side   Side    `json:"side"`
	Size   float64 `json:"size"`
	// MonthlyVolume is the caller's trailing 30-day traded volume in quote
	// units. It selects the fee tier; the engine does not track it.
	MonthlyVolume float64 `json:"monthly_volume"`
}

func (r CostRequest) Validate() error {
	if strings.TrimSpace(r.Symbol) == "" {
		return fmt.Errorf("symbol is required")
	}
	if r.Side != SideBuy && r.Side != SideSell {
		return fmt.Errorf("invalid side %q", r.Side)
	}
	if r.Size <= 0 {
		return fmt.Errorf("size must be positive, got %v", r.Size)
	}
	if r.MonthlyVolume < 0 {
		return fmt.Errorf("monthly_volume must not be negative, got %v", r.MonthlyVolume)
	}
	return nil
}

// CostEstimate is the full cost breakdown for a CostRequest.
//
// ImpactReady is false when the volatility window has fewer than two
// samples; ImpactCost is then unset rather than a fabricated zero, and
// TotalCost excludes it. PartialFill marks estimates where visible depth
// did not cover the requested size.
type CostEstimate struct {
	Symbol    string  `json:"symbol"`
	Side      Side    `json:"side"`
	Size      float64 `json:"size"`
	Timestamp int64   `json:"timestamp"`

	Mid      float64 `json:"mid"`
	Notional float64 `json:"notional"`

	SlippageBps  float64 `json:"slippage_bps"`
	SlippageCost float64 `json:"slippage_cost"`
	ImpactCost   float64 `json:"impact_cost"`
	ImpactReady  bool    `json:"impact_ready"`
	FeeAmount    float64 `json:"fee_amount"`

	MakerProbability float64 `json:"maker_probability"`
	TakerProbability float64 `json:"taker_probability"`

	TotalCost float64 `json:"total_cost"`

	PartialFill bool    `json:"partial_fill"`
	FilledSize  float64 `json:"filled_size"`

	BookState string             `json:"book_state"`
	LatencyMs float64            `json:"latency_ms"`
	StageMs   map[string]float64 `json:"stage_latency_ms,omitempty"`
}
