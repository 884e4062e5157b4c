package vwap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sawpanic/alphacore/internal/domain/market"
)

func vwapTick(price, volume float64, at time.Time) market.Tick {
	return market.Tick{Symbol: "BTC-USD", Price: price, Volume: volume, Timestamp: at}
}

func TestCalculator_SessionMode_AccumulatesAcrossAllTicks(t *testing.T) {
	c := NewCalculator(2.0, 0)
	now := time.Now()
	c.OnTick(vwapTick(100, 1, now))
	c.OnTick(vwapTick(200, 1, now))
	assert.InDelta(t, 150.0, c.Metrics().VWAP, 1e-9)
}

func TestCalculator_RollingMode_EvictsOutsideWindow(t *testing.T) {
	c := NewCalculator(2.0, 2)
	now := time.Now()
	c.OnTick(vwapTick(100, 1, now))
	c.OnTick(vwapTick(200, 1, now))
	c.OnTick(vwapTick(300, 1, now))
	// Window of 2 keeps only the last two ticks: (200+300)/2 = 250
	assert.InDelta(t, 250.0, c.Metrics().VWAP, 1e-9)
}

func TestCalculator_Metrics_BandsStraddleVWAP(t *testing.T) {
	c := NewCalculator(2.0, 0)
	now := time.Now()
	c.OnTick(vwapTick(95, 1, now))
	c.OnTick(vwapTick(105, 1, now))
	c.OnTick(vwapTick(100, 1, now))
	m := c.Metrics()
	assert.GreaterOrEqual(t, m.UpperBand, m.VWAP)
	assert.LessOrEqual(t, m.LowerBand, m.VWAP)
}

func TestCalculator_Reset_ClearsAccumulatorsAndAnchor(t *testing.T) {
	c := NewCalculator(2.0, 0)
	now := time.Now()
	c.OnTick(vwapTick(100, 1, now))
	c.Anchor(now)
	c.Reset()
	assert.Equal(t, 0.0, c.Metrics().VWAP)
	assert.False(t, c.Anchored())
}

func TestCalculator_Anchor_ClearsSessionAccumulatorsInSessionMode(t *testing.T) {
	c := NewCalculator(2.0, 0)
	now := time.Now()
	c.OnTick(vwapTick(100, 1, now))
	c.OnTick(vwapTick(200, 1, now))
	c.Anchor(now.Add(time.Hour))

	assert.True(t, c.Anchored())
	assert.Equal(t, now.Add(time.Hour), c.AnchorTime())

	c.OnTick(vwapTick(50, 1, now.Add(time.Hour)))
	assert.InDelta(t, 50.0, c.Metrics().VWAP, 1e-9)
}

func TestCalculator_Anchor_IgnoredInRollingMode(t *testing.T) {
	c := NewCalculator(2.0, 5)
	now := time.Now()
	c.OnTick(vwapTick(100, 1, now))
	c.OnTick(vwapTick(200, 1, now))
	before := c.Metrics().VWAP
	c.Anchor(now)
	assert.Equal(t, before, c.Metrics().VWAP)
}

func TestCalculator_Signal_NeutralWithoutVWAP(t *testing.T) {
	c := NewCalculator(2.0, 0)
	assert.Equal(t, SignalNeutral, c.Signal(100))
}

func TestCalculator_Signal_ClassifiesDeviationDirectionAndStrength(t *testing.T) {
	c := NewCalculator(2.0, 0)
	now := time.Now()
	c.OnTick(vwapTick(100, 10, now))

	assert.Equal(t, SignalStrongAbove, c.Signal(110))
	assert.Equal(t, SignalAbove, c.Signal(101))
	assert.Equal(t, SignalNeutral, c.Signal(100.1))
	assert.Equal(t, SignalBelow, c.Signal(99))
	assert.Equal(t, SignalStrongBelow, c.Signal(90))
}

func TestSignal_StringNames(t *testing.T) {
	assert.Equal(t, "NEUTRAL", SignalNeutral.String())
	assert.Equal(t, "ABOVE", SignalAbove.String())
	assert.Equal(t, "STRONG_ABOVE", SignalStrongAbove.String())
	assert.Equal(t, "BELOW", SignalBelow.String())
	assert.Equal(t, "STRONG_BELOW", SignalStrongBelow.String())
}

func TestCalculator_IsMeanReverting_FalseWithoutEnoughHistory(t *testing.T) {
	c := NewCalculator(2.0, 0)
	c.OnTick(vwapTick(100, 1, time.Now()))
	assert.False(t, c.IsMeanReverting())
}

func TestCalculator_IsMeanReverting_TrueWhenDeviationShrinks(t *testing.T) {
	c := NewCalculator(2.0, 0)
	now := time.Now()
	// Session VWAP is 112: deviation shrinks from |120-112| = 8 to |110-112| = 2.
	prices := []float64{120, 115, 110, 105, 110}
	for _, p := range prices {
		c.OnTick(vwapTick(p, 1, now))
	}
	assert.True(t, c.IsMeanReverting())
}

func TestComputeVWAP_EmptyIsZero(t *testing.T) {
	assert.Equal(t, 0.0, ComputeVWAP(nil))
}

func TestComputeVWAP_WeightedByVolume(t *testing.T) {
	now := time.Now()
	ticks := []market.Tick{vwapTick(100, 1, now), vwapTick(200, 3, now)}
	assert.InDelta(t, 175.0, ComputeVWAP(ticks), 1e-9)
}

func TestComputeVWAPInPeriod_FiltersOutsideRange(t *testing.T) {
	base := time.Now()
	ticks := []market.Tick{
		vwapTick(100, 1, base),
		vwapTick(200, 1, base.Add(time.Hour)),
		vwapTick(300, 1, base.Add(2*time.Hour)),
	}
	v := ComputeVWAPInPeriod(ticks, base, base.Add(time.Hour))
	assert.InDelta(t, 150.0, v, 1e-9)
}

func TestGetVolumeProfile_BucketsByToleranceBand(t *testing.T) {
	now := time.Now()
	ticks := []market.Tick{
		vwapTick(100.0, 5, now),
		vwapTick(110.0, 3, now),
		vwapTick(90.0, 2, now),
	}
	profile := GetVolumeProfile(ticks, 100.0)
	assert.Equal(t, 5.0, profile.VolumeAtVWAP)
	assert.Equal(t, 3.0, profile.VolumeAboveVWAP)
	assert.Equal(t, 2.0, profile.VolumeBelowVWAP)
}

func TestGetVolumeProfile_ZeroVWAPLevelIsZeroValue(t *testing.T) {
	assert.Equal(t, VolumeProfile{}, GetVolumeProfile(nil, 0))
}
