// Package fees applies a tiered maker/taker fee schedule.
package fees

import "fmt"

// Tier is one row of the schedule: the rates that apply from Volume
// (trailing 30-day traded volume, quote units) upward.
type Tier struct {
	Volume float64 `yaml:"volume"`
	Maker  float64 `yaml:"maker"`
	Taker  float64 `yaml:"taker"`
}

// Schedule is an ordered fee table plus the exchange's minimum fee floor.
type Schedule struct {
	Minimum float64 `yaml:"minimum"`
	Tiers   []Tier  `yaml:"tiers"`
}

// DefaultSchedule mirrors the OKX spot schedule the models were tuned on.
func DefaultSchedule() Schedule {
	return Schedule{
		Minimum: 0.1,
		Tiers: []Tier{
			{Volume: 0, Maker: 0.0010, Taker: 0.0015},
			{Volume: 100_000, Maker: 0.0009, Taker: 0.0014},
			{Volume: 500_000, Maker: 0.0008, Taker: 0.0013},
			{Volume: 1_000_000, Maker: 0.0007, Taker: 0.0012},
		},
	}
}

func (s Schedule) Validate() error {
	if len(s.Tiers) == 0 {
		return fmt.Errorf("fee schedule has no tiers")
	}
	if s.Tiers[0].Volume != 0 {
		return fmt.Errorf("first fee tier must start at volume 0, got %v", s.Tiers[0].Volume)
	}
	if s.Minimum < 0 {
		return fmt.Errorf("minimum fee must not be negative, got %v", s.Minimum)
	}
	prev := -1.0
	for i, t := range s.Tiers {
		if t.Volume <= prev {
			return fmt.Errorf("fee tier %d: volume thresholds must be strictly increasing", i)
		}
		if t.Maker < 0 || t.Taker < 0 {
			return fmt.Errorf("fee tier %d: rates must not be negative", i)
		}
		prev = t.Volume
	}
	return nil
}

// TierFor returns the tier with the highest threshold not above volume.
func (s Schedule) TierFor(volume float64) Tier {
	tier := s.Tiers[0]
	for _, t := range s.Tiers[1:] {
		if volume >= t.Volume {
			tier = t
		}
	}
	return tier
}

// Fee blends maker and taker rates by probability and applies the floor.
func (s Schedule) Fee(notional, volume, pMaker, pTaker float64) float64 {
	t := s.TierFor(volume)
	fee := notional * (pMaker*t.Maker + pTaker*t.Taker)
	if fee < s.Minimum {
		return s.Minimum
	}
	return fee
}
