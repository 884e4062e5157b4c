// Package regime classifies the prevailing market regime from a
// rolling price window: trending vs. mean-reverting, crossed with
// high vs. low realized volatility, via the Hurst exponent,
// autocorrelation, realized volatility, and trend strength. It also
// supplies the regime-to-signal-weight table the composer uses to mix
// momentum and mean-reversion signals.
package regime

import (
	"math"
)

// Regime is one of the four market quadrants, plus the UNKNOWN
// sentinel reported before enough history has accumulated and the
// TRANSITIONING label, which Detector's classification never produces.
type Regime int

const (
	RegimeUnknown Regime = iota
	RegimeTrendingHighVol
	RegimeTrendingLowVol
	RegimeMeanRevertingHighVol
	RegimeMeanRevertingLowVol
	RegimeTransitioning
)

// String renders the abbreviated label used at the sink boundary.
func (r Regime) String() string {
	switch r {
	case RegimeTrendingHighVol:
		return "TRENDING_HIGH_VOL"
	case RegimeTrendingLowVol:
		return "TRENDING_LOW_VOL"
	case RegimeMeanRevertingHighVol:
		return "MEAN_REV_HIGH_VOL"
	case RegimeMeanRevertingLowVol:
		return "MEAN_REV_LOW_VOL"
	case RegimeTransitioning:
		return "TRANSITIONING"
	default:
		return "UNKNOWN"
	}
}

// Metrics is a snapshot of the detector's current classification and
// the statistics that drove it.
type Metrics struct {
	Regime          Regime
	HurstExponent   float64
	Autocorrelation float64
	Volatility      float64
	VolRegime       float64
	TrendStrength   float64
	Confidence      float64
	TransitionProb  float64
}

// SignalWeights mixes momentum, mean-reversion, and breakout signal
// weight alongside a volatility adjustment multiplier, keyed by the
// currently detected regime.
type SignalWeights struct {
	MomentumWeight   float64
	MeanRevWeight    float64
	BreakoutWeight   float64
	VolatilityAdjust float64
}

const historyCap = 50

// Detector tracks a rolling price/return window per symbol and
// derives the regime classification computed by its classify method.
// Holds no concurrency primitives; one Detector per symbol, owned by
// that symbol's composer pipeline.
type Detector struct {
	window    int
	hurstLag  int
	volWindow int

	prices  []float64
	returns []float64
	volumes []float64

	current Regime
	metrics Metrics

	history []Regime
}

// NewDetector creates a regime detector retaining the last window
// prices, estimating the Hurst exponent over lags up to hurstLag, and
// computing realized volatility over the last volWindow returns.
func NewDetector(window, hurstLag, volWindow int) *Detector {
	return &Detector{
		window:    window,
		hurstLag:  hurstLag,
		volWindow: volWindow,
		current:   RegimeUnknown,
		metrics:   Metrics{HurstExponent: 0.5},
	}
}

// OnPrice folds a new price/volume observation (from a tick or a
// closed candle) into the detector's rolling window and refreshes the
// classification once enough history has accumulated.
func (d *Detector) OnPrice(price, volume float64) {
	d.prices = append(d.prices, price)
	d.volumes = append(d.volumes, volume)
	if len(d.prices) > d.window {
		d.prices = d.prices[1:]
		d.volumes = d.volumes[1:]
	}

	if len(d.prices) >= 2 {
		ret := math.Log(d.prices[len(d.prices)-1] / d.prices[len(d.prices)-2])
		d.returns = append(d.returns, ret)
		if len(d.returns) > d.window {
			d.returns = d.returns[1:]
		}
	}

	if len(d.prices) >= d.hurstLag*2 {
		d.updateMetrics()
		newRegime := d.classify()
		if newRegime != d.current {
			d.current = newRegime
			d.history = append(d.history, newRegime)
			if len(d.history) > historyCap {
				d.history = d.history[1:]
			}
		}
		d.metrics.Regime = d.current
		d.metrics.Confidence = d.confidence()
		d.metrics.TransitionProb = d.TransitionProbability()
	}
}

func (d *Detector) updateMetrics() {
	d.metrics.HurstExponent = HurstExponent(d.prices, d.hurstLag)
	d.metrics.Autocorrelation = Autocorrelation(d.returns, 1)
	d.metrics.Volatility = d.realizedVolatility()
	d.metrics.VolRegime = d.volatilityRegime()
	d.metrics.TrendStrength = d.trendStrength()
}

func (d *Detector) classify() Regime {
	volRegime := d.volatilityRegime()
	highVol := volRegime > 0.6
	trending := d.metrics.HurstExponent > 0.55 || d.metrics.TrendStrength > 0.6

	switch {
	case trending && highVol:
		return RegimeTrendingHighVol
	case trending && !highVol:
		return RegimeTrendingLowVol
	case !trending && highVol:
		return RegimeMeanRevertingHighVol
	default:
		return RegimeMeanRevertingLowVol
	}
}

func (d *Detector) realizedVolatility() float64 {
	if len(d.returns) < 10 {
		return 0.0
	}
	start := 0
	if len(d.returns) > d.volWindow {
		start = len(d.returns) - d.volWindow
	}

	sumSq := 0.0
	n := 0
	for i := start; i < len(d.returns); i++ {
		sumSq += d.returns[i] * d.returns[i]
		n++
	}
	variance := sumSq / float64(n)
	return math.Sqrt(variance * 252.0)
}

func (d *Detector) volatilityRegime() float64 {
	if d.metrics.Volatility <= 0.0 {
		return 0.5
	}
	return math.Min(d.metrics.Volatility/1.0, 1.0)
}

func (d *Detector) trendStrength() float64 {
	if len(d.prices) < 20 {
		return 0.0
	}

	n := len(d.prices)
	if n > 50 {
		n = 50
	}
	start := len(d.prices) - n

	sumX, sumY, sumXY, sumX2 := 0.0, 0.0, 0.0, 0.0
	for i := 0; i < n; i++ {
		x := float64(i)
		y := d.prices[start+i]
		sumX += x
		sumY += y
		sumXY += x * y
		sumX2 += x * x
	}

	denom := float64(n)*sumX2 - sumX*sumX
	if denom == 0 {
		return 0.0
	}
	slope := (float64(n)*sumXY - sumX*sumY) / denom
	avgPrice := sumY / float64(n)

	trendPct := 0.0
	if avgPrice > 0 {
		trendPct = math.Abs(slope/avgPrice) * 100.0
	}
	return math.Min(trendPct/5.0, 1.0)
}

func (d *Detector) confidence() float64 {
	if len(d.history) < 5 {
		return 0.3
	}
	matches := 0
	for i := len(d.history) - 5; i < len(d.history); i++ {
		if d.history[i] == d.current {
			matches++
		}
	}
	return float64(matches) / 5.0
}

// Metrics returns the last computed classification snapshot.
func (d *Detector) Metrics() Metrics {
	return d.metrics
}

// SignalWeights returns the signal mixing weights for the currently
// detected regime.
func (d *Detector) SignalWeights() SignalWeights {
	return WeightsFor(d.current)
}

// HasRegimeChanged reports whether the regime lookback periods ago
// differs from the most recent classification.
func (d *Detector) HasRegimeChanged(lookback int) bool {
	if len(d.history) < lookback+1 {
		return false
	}
	recent := d.history[len(d.history)-1]
	older := d.history[len(d.history)-lookback-1]
	return recent != older
}

// TransitionProbability estimates the fraction of the last 10 regime
// observations where the regime changed from the prior one. Returns
// 0.5 as a neutral prior when fewer than 10 observations exist.
func (d *Detector) TransitionProbability() float64 {
	if len(d.history) < 10 {
		return 0.5
	}
	changes := 0
	for i := len(d.history) - 10; i < len(d.history)-1; i++ {
		if d.history[i] != d.history[i+1] {
			changes++
		}
	}
	return float64(changes) / 9.0
}

// Reset clears all accumulated price, return, and regime history.
func (d *Detector) Reset() {
	d.prices = nil
	d.returns = nil
	d.volumes = nil
	d.history = nil
	d.current = RegimeUnknown
	d.metrics = Metrics{HurstExponent: 0.5}
}

// WeightsFor returns the signal mixing weights the composer applies
// for a given regime classification.
func WeightsFor(r Regime) SignalWeights {
	switch r {
	case RegimeTrendingHighVol:
		return SignalWeights{MomentumWeight: 0.7, MeanRevWeight: 0.2, BreakoutWeight: 0.5, VolatilityAdjust: 1.5}
	case RegimeTrendingLowVol:
		return SignalWeights{MomentumWeight: 0.8, MeanRevWeight: 0.1, BreakoutWeight: 0.6, VolatilityAdjust: 1.0}
	case RegimeMeanRevertingHighVol:
		return SignalWeights{MomentumWeight: 0.2, MeanRevWeight: 0.7, BreakoutWeight: 0.3, VolatilityAdjust: 1.2}
	case RegimeMeanRevertingLowVol:
		return SignalWeights{MomentumWeight: 0.3, MeanRevWeight: 0.8, BreakoutWeight: 0.4, VolatilityAdjust: 0.8}
	default:
		return SignalWeights{MomentumWeight: 0.5, MeanRevWeight: 0.5, BreakoutWeight: 0.5, VolatilityAdjust: 1.0}
	}
}

// HurstExponent estimates the Hurst exponent of a price series via
// rescaled-range (R/S) analysis over log returns, for lags 2..maxLag.
// Requires at least 3 valid lag observations to fit the regression;
// returns 0.5 (a random walk) otherwise.
func HurstExponent(prices []float64, maxLag int) float64 {
	if len(prices) < maxLag*2 {
		return 0.5
	}

	logReturns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i] > 0 && prices[i-1] > 0 {
			logReturns = append(logReturns, math.Log(prices[i]/prices[i-1]))
		}
	}
	if len(logReturns) < maxLag {
		return 0.5
	}

	var logLags, logRS []float64

	maxSeg := maxLag
	if maxSeg > len(logReturns)/2 {
		maxSeg = len(logReturns) / 2
	}

	for lag := 2; lag <= maxSeg; lag++ {
		numSegments := len(logReturns) / lag
		if numSegments == 0 {
			continue
		}
		avgRS := 0.0

		for seg := 0; seg < numSegments; seg++ {
			start := seg * lag
			segment := logReturns[start : start+lag]

			mean := 0.0
			for _, v := range segment {
				mean += v
			}
			mean /= float64(lag)

			cumSum := 0.0
			maxDev, minDev := math.Inf(-1), math.Inf(1)
			for _, v := range segment {
				cumSum += v - mean
				if cumSum > maxDev {
					maxDev = cumSum
				}
				if cumSum < minDev {
					minDev = cumSum
				}
			}
			r := maxDev - minDev

			variance := 0.0
			for _, v := range segment {
				d := v - mean
				variance += d * d
			}
			s := math.Sqrt(variance / float64(lag))

			if s > 1e-10 {
				avgRS += r / s
			}
		}

		avgRS /= float64(numSegments)
		logLags = append(logLags, math.Log(float64(lag)))
		logRS = append(logRS, math.Log(avgRS))
	}

	if len(logLags) < 3 {
		return 0.5
	}

	n := float64(len(logLags))
	sumX, sumY, sumXY, sumX2 := 0.0, 0.0, 0.0, 0.0
	for i := range logLags {
		sumX += logLags[i]
		sumY += logRS[i]
		sumXY += logLags[i] * logRS[i]
		sumX2 += logLags[i] * logLags[i]
	}

	denom := n*sumX2 - sumX*sumX
	if denom == 0 {
		return 0.5
	}
	h := (n*sumXY - sumX*sumY) / denom

	return math.Min(math.Max(h, 0.0), 1.0)
}

// Autocorrelation computes the lag-k sample autocorrelation of a
// return series. Requires at least lag+10 observations; returns 0
// otherwise.
func Autocorrelation(returns []float64, lag int) float64 {
	if len(returns) < lag+10 {
		return 0.0
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	numerator := 0.0
	n := len(returns) - lag
	for i := 0; i < n; i++ {
		numerator += (returns[i] - mean) * (returns[i+lag] - mean)
	}

	denominator := 0.0
	for _, r := range returns {
		d := r - mean
		denominator += d * d
	}

	if denominator <= 1e-10 {
		return 0.0
	}
	return numerator / denominator
}

// DetectChange applies a CUSUM test for a mean shift in a return
// series: the running sum of deviations from the overall mean,
// normalized by the series standard deviation, is compared against
// threshold. Requires at least 20 observations.
func DetectChange(returns []float64, threshold float64) bool {
	if len(returns) < 20 {
		return false
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	cusum, maxCusum := 0.0, 0.0
	for _, r := range returns {
		cusum += r - mean
		if math.Abs(cusum) > maxCusum {
			maxCusum = math.Abs(cusum)
		}
	}

	variance := 0.0
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	stddev := math.Sqrt(variance / float64(len(returns)))

	return stddev > 1e-10 && (maxCusum/stddev) > threshold
}

// DetectRegimeChange is DetectChange under the name used by callers
// that want a regime-shift event distinct from a full reclassification.
func DetectRegimeChange(returns []float64, threshold float64) bool {
	return DetectChange(returns, threshold)
}
