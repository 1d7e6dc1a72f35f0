package fees

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoTier() Schedule {
	return Schedule{
		Minimum: 0.1,
		Tiers: []Tier{
			{Volume: 0, Maker: 0.001, Taker: 0.002},
			{Volume: 1_000_000, Maker: 0.0005, Taker: 0.0015},
		},
	}
}

func TestTierLookup(t *testing.T) {
	s := twoTier()
	assert.Equal(t, 0.002, s.TierFor(500_000).Taker)
	assert.Equal(t, 0.0015, s.TierFor(1_000_000).Taker)
	assert.Equal(t, 0.0015, s.TierFor(5_000_000).Taker)
}

func TestFeeBlendAndFloor(t *testing.T) {
	s := twoTier()

	// volume 500k sits in the base tier
	fee := s.Fee(10_000, 500_000, 0.25, 0.75)
	assert.InDelta(t, 10_000*(0.25*0.001+0.75*0.002), fee, 1e-9)

	// tiny notional hits the minimum fee
	assert.Equal(t, 0.1, s.Fee(1, 0, 0.5, 0.5))
}

func TestFeeIdenticalWithinTier(t *testing.T) {
	s := twoTier()
	a := s.Fee(25_000, 10_000, 0.4, 0.6)
	b := s.Fee(25_000, 999_999, 0.4, 0.6)
	assert.Equal(t, a, b)

	// crossing the boundary changes the rate, never the floor
	c := s.Fee(25_000, 1_000_000, 0.4, 0.6)
	assert.Less(t, c, a)
	assert.GreaterOrEqual(t, c, s.Minimum)
}

func TestValidate(t *testing.T) {
	require.NoError(t, DefaultSchedule().Validate())

	bad := twoTier()
	bad.Tiers[1].Volume = 0
	assert.Error(t, bad.Validate())

	bad = twoTier()
	bad.Tiers = nil
	assert.Error(t, bad.Validate())

	bad = twoTier()
	bad.Tiers[0].Volume = 50
	assert.Error(t, bad.Validate())

	bad = twoTier()
	bad.Tiers[0].Maker = -0.001
	assert.Error(t, bad.Validate())
}
