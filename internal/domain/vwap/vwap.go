// Package vwap computes volume-weighted average price in either a
// running-session or rolling-window mode, along with volume-weighted
// deviation bands, a discrete deviation signal, and a mean-reversion
// heuristic.
package vwap

import (
	"math"
	"time"

	"github.com/sawpanic/alphacore/internal/domain/market"
)

// Signal is the discrete deviation call derived from the current
// price's distance from VWAP.
type Signal int

const (
	SignalNeutral Signal = iota
	SignalAbove
	SignalStrongAbove
	SignalBelow
	SignalStrongBelow
)

func (s Signal) String() string {
	switch s {
	case SignalAbove:
		return "ABOVE"
	case SignalStrongAbove:
		return "STRONG_ABOVE"
	case SignalBelow:
		return "BELOW"
	case SignalStrongBelow:
		return "STRONG_BELOW"
	default:
		return "NEUTRAL"
	}
}

// Metrics is a full VWAP snapshot: the level, its bands, the current
// deviation, and volume/ratio context.
type Metrics struct {
	VWAP             float64
	UpperBand        float64
	LowerBand        float64
	Deviation        float64 // percent
	VolumeAtVWAP     float64
	PriceToVWAPRatio float64
	PriceAboveVWAP   bool
	Anchored         bool
}

// VolumeProfile buckets traded volume relative to the VWAP level
// within a 0.1% tolerance band.
type VolumeProfile struct {
	VolumeAboveVWAP float64
	VolumeBelowVWAP float64
	VolumeAtVWAP    float64
}

const recentPriceWindow = 10

// Calculator computes VWAP either over the full session (rollingWindow
// == 0) or over the last rollingWindow ticks. bandMultiplier scales
// the volume-weighted standard deviation to form the upper/lower
// bands. Anchor() resets the session accumulators to start a new
// VWAP epoch (e.g. at a new trading day or a detected regime change)
// without losing the calculator's configuration.
type Calculator struct {
	bandMultiplier float64
	rollingWindow  int

	vwap          float64
	cumulativePV  float64
	cumulativeVol float64
	cumulativePV2 float64

	tickWindow   []market.Tick
	recentPrices []float64

	anchored   bool
	anchorTime time.Time
}

// NewCalculator creates a VWAP calculator. rollingWindow == 0 selects
// session (cumulative until Anchor or Reset) mode; a positive value selects a
// rolling tick-count window.
func NewCalculator(bandMultiplier float64, rollingWindow int) *Calculator {
	return &Calculator{bandMultiplier: bandMultiplier, rollingWindow: rollingWindow}
}

// OnTick folds a new trade into the VWAP accumulators.
func (c *Calculator) OnTick(t market.Tick) {
	if c.rollingWindow > 0 {
		c.tickWindow = append(c.tickWindow, t)
		if len(c.tickWindow) > c.rollingWindow {
			c.tickWindow = c.tickWindow[1:]
		}
		c.updateRolling()
	} else {
		c.updateSession(t)
	}

	c.recentPrices = append(c.recentPrices, t.Price)
	if len(c.recentPrices) > recentPriceWindow {
		c.recentPrices = c.recentPrices[1:]
	}
}

func (c *Calculator) updateRolling() {
	if len(c.tickWindow) == 0 {
		c.vwap = 0.0
		return
	}
	sumPV, sumV, sumPV2 := 0.0, 0.0, 0.0
	for _, t := range c.tickWindow {
		sumPV += t.Price * t.Volume
		sumV += t.Volume
		sumPV2 += t.Price * t.Price * t.Volume
	}

	c.cumulativeVol = sumV
	c.cumulativePV = sumPV
	c.cumulativePV2 = sumPV2
	if sumV > 0 {
		c.vwap = sumPV / sumV
	} else {
		c.vwap = 0.0
	}
}

func (c *Calculator) updateSession(t market.Tick) {
	c.cumulativePV += t.Price * t.Volume
	c.cumulativeVol += t.Volume
	c.cumulativePV2 += t.Price * t.Price * t.Volume

	if c.cumulativeVol > 0 {
		c.vwap = c.cumulativePV / c.cumulativeVol
	}
}

// Reset clears all accumulators and the anchor state.
func (c *Calculator) Reset() {
	c.vwap = 0.0
	c.cumulativePV = 0.0
	c.cumulativeVol = 0.0
	c.cumulativePV2 = 0.0
	c.tickWindow = nil
	c.recentPrices = nil
	c.anchored = false
}

// Anchor starts a new VWAP epoch: the session accumulators are
// cleared but the calculator retains its configuration and recent
// price history, and Anchored() reports true until the next Reset or
// Anchor call. Rolling-window mode ignores the anchor (its window
// already bounds the lookback) but still records the anchor time so
// callers can report when the last anchor occurred.
func (c *Calculator) Anchor(at time.Time) {
	c.anchorTime = at
	c.anchored = true
	if c.rollingWindow == 0 {
		c.cumulativePV = 0.0
		c.cumulativeVol = 0.0
		c.cumulativePV2 = 0.0
	}
}

// Anchored reports whether Anchor has been called since construction
// or the last Reset.
func (c *Calculator) Anchored() bool {
	return c.anchored
}

// AnchorTime returns the timestamp of the last Anchor call.
func (c *Calculator) AnchorTime() time.Time {
	return c.anchorTime
}

func (c *Calculator) stdDev() float64 {
	if c.cumulativeVol <= 0 {
		return 0.0
	}
	meanPriceSquared := c.cumulativePV2 / c.cumulativeVol
	variance := meanPriceSquared - c.vwap*c.vwap
	if variance < 0 {
		variance = 0.0
	}
	return math.Sqrt(variance)
}

// Metrics returns the current VWAP snapshot, including its bands and
// the deviation of the most recent price.
func (c *Calculator) Metrics() Metrics {
	sd := c.stdDev()
	currentPrice := 0.0
	if len(c.recentPrices) > 0 {
		currentPrice = c.recentPrices[len(c.recentPrices)-1]
	}

	ratio := 1.0
	if c.vwap > 0 {
		ratio = currentPrice / c.vwap
	}

	return Metrics{
		VWAP:             c.vwap,
		UpperBand:        c.vwap + c.bandMultiplier*sd,
		LowerBand:        c.vwap - c.bandMultiplier*sd,
		Deviation:        c.deviationPercent(currentPrice),
		VolumeAtVWAP:     c.cumulativeVol,
		PriceToVWAPRatio: ratio,
		PriceAboveVWAP:   currentPrice > c.vwap,
		Anchored:         c.anchored,
	}
}

// Bands returns the lower and upper deviation bands.
func (c *Calculator) Bands() (lower, upper float64) {
	sd := c.stdDev()
	return c.vwap - c.bandMultiplier*sd, c.vwap + c.bandMultiplier*sd
}

// Signal classifies currentPrice's deviation from VWAP into a
// discrete directional call.
func (c *Calculator) Signal(currentPrice float64) Signal {
	if c.vwap <= 0 {
		return SignalNeutral
	}
	dev := c.deviationPercent(currentPrice)
	switch {
	case dev > 2.0:
		return SignalStrongAbove
	case dev > 0.5:
		return SignalAbove
	case dev < -2.0:
		return SignalStrongBelow
	case dev < -0.5:
		return SignalBelow
	default:
		return SignalNeutral
	}
}

func (c *Calculator) deviationPercent(currentPrice float64) float64 {
	if c.vwap <= 0 {
		return 0.0
	}
	return ((currentPrice - c.vwap) / c.vwap) * 100.0
}

// IsMeanReverting reports whether recent price deviation from VWAP
// has shrunk by more than 20% over the last 10 ticks, suggesting the
// price is returning to fair value.
func (c *Calculator) IsMeanReverting() bool {
	if len(c.recentPrices) < 5 {
		return false
	}
	firstDev := math.Abs(c.recentPrices[0] - c.vwap)
	lastDev := math.Abs(c.recentPrices[len(c.recentPrices)-1] - c.vwap)
	return lastDev < firstDev*0.8
}

// ComputeVWAP computes the volume-weighted average price of a tick
// slice with no state retained between calls.
func ComputeVWAP(ticks []market.Tick) float64 {
	if len(ticks) == 0 {
		return 0.0
	}
	sumPV, sumV := 0.0, 0.0
	for _, t := range ticks {
		sumPV += t.Price * t.Volume
		sumV += t.Volume
	}
	if sumV <= 0 {
		return 0.0
	}
	return sumPV / sumV
}

// ComputeVWAPInPeriod computes VWAP restricted to ticks falling within
// [start, end].
func ComputeVWAPInPeriod(ticks []market.Tick, start, end time.Time) float64 {
	sumPV, sumV := 0.0, 0.0
	for _, t := range ticks {
		if !t.Timestamp.Before(start) && !t.Timestamp.After(end) {
			sumPV += t.Price * t.Volume
			sumV += t.Volume
		}
	}
	if sumV <= 0 {
		return 0.0
	}
	return sumPV / sumV
}

// GetVolumeProfile buckets ticks into above/below/at-VWAP volume using
// a 0.1% tolerance band around vwap.
func GetVolumeProfile(ticks []market.Tick, vwapLevel float64) VolumeProfile {
	var profile VolumeProfile
	if vwapLevel <= 0 {
		return profile
	}

	tolerance := vwapLevel * 0.001
	for _, t := range ticks {
		switch {
		case t.Price > vwapLevel+tolerance:
			profile.VolumeAboveVWAP += t.Volume
		case t.Price < vwapLevel-tolerance:
			profile.VolumeBelowVWAP += t.Volume
		default:
			profile.VolumeAtVWAP += t.Volume
		}
	}
	return profile
}
