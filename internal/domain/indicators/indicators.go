// Package indicators implements the stateless technical indicator
// library: every function takes a price/volume window and returns a
// value, with no hidden state between calls. Callers own the window
// management (ring buffers, slices) and re-slice on every call.
package indicators

import "math"

// Mean returns the arithmetic mean of data, or 0 for an empty slice.
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, v := range data {
		sum += v
	}
	return sum / float64(len(data))
}

// StdDev returns the sample standard deviation of data (n-1 divisor)
// about the given mean. Returns 0 for fewer than two points.
func StdDev(data []float64, mean float64) float64 {
	if len(data) < 2 {
		return 0.0
	}
	variance := 0.0
	for _, v := range data {
		d := v - mean
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(data)-1))
}

// WelfordStdDev computes the sample standard deviation in a single
// pass using Welford's online algorithm, avoiding the catastrophic
// cancellation of sum(x^2) - (sum(x))^2/n for large or closely spaced
// price values.
func WelfordStdDev(data []float64) (mean, stddev float64) {
	if len(data) == 0 {
		return 0, 0
	}
	count := 0.0
	m2 := 0.0
	for _, v := range data {
		count++
		delta := v - mean
		mean += delta / count
		delta2 := v - mean
		m2 += delta * delta2
	}
	if count < 2 {
		return mean, 0
	}
	return mean, math.Sqrt(m2 / (count - 1))
}

// Bollinger is the mean, upper, and lower band for a price window.
type Bollinger struct {
	Mean  float64
	Upper float64
	Lower float64
}

// ComputeBollinger computes Bollinger bands over the last period
// closes in closes using a multiplier of mult standard deviations.
// Returns a zero Bollinger if fewer than period closes are available.
func ComputeBollinger(closes []float64, period int, mult float64) Bollinger {
	if len(closes) < period {
		return Bollinger{}
	}
	window := closes[len(closes)-period:]
	mean, sd := WelfordStdDev(window)
	return Bollinger{Mean: mean, Upper: mean + mult*sd, Lower: mean - mult*sd}
}

// PercentB returns the position of price within the Bollinger bands,
// 0 at the lower band and 1 at the upper band. Returns 0.5 for a
// degenerate (zero-width) band.
func PercentB(price, lower, upper float64) float64 {
	if upper == lower {
		return 0.5
	}
	return (price - lower) / (upper - lower)
}

// Bandwidth returns the normalized width of the Bollinger bands
// relative to the middle band. Returns 0 if middle is 0.
func Bandwidth(upper, lower, middle float64) float64 {
	if middle == 0.0 {
		return 0.0
	}
	return (upper - lower) / middle
}

// IsSqueeze reports whether the Bollinger bandwidth over the last
// period closes falls below threshold.
func IsSqueeze(closes []float64, period int, mult, threshold float64) bool {
	if len(closes) < period {
		return false
	}
	bb := ComputeBollinger(closes, period, mult)
	return Bandwidth(bb.Upper, bb.Lower, bb.Mean) < threshold
}

// Breakout classifies the most recent close against its Bollinger
// bands, including direction during a volatility squeeze.
type Breakout int

const (
	BreakoutNone Breakout = iota
	BreakoutBullish
	BreakoutBearish
	BreakoutSqueezeBullish
	BreakoutSqueezeBearish
)

func (b Breakout) String() string {
	switch b {
	case BreakoutBullish:
		return "BULLISH_BREAKOUT"
	case BreakoutBearish:
		return "BEARISH_BREAKOUT"
	case BreakoutSqueezeBullish:
		return "SQUEEZE_BULLISH"
	case BreakoutSqueezeBearish:
		return "SQUEEZE_BEARISH"
	default:
		return "NONE"
	}
}

// DetectBreakout classifies the latest close as breaking out above or
// below its Bollinger bands, or as a directional squeeze when the
// bandwidth is tight and the five-bar momentum leans one way.
func DetectBreakout(closes []float64, period int, mult float64) Breakout {
	if len(closes) < period+1 {
		return BreakoutNone
	}
	bb := ComputeBollinger(closes, period, mult)
	current := closes[len(closes)-1]
	bandwidth := Bandwidth(bb.Upper, bb.Lower, bb.Mean)
	squeeze := bandwidth < 0.05

	switch {
	case current > bb.Upper:
		return BreakoutBullish
	case current < bb.Lower:
		return BreakoutBearish
	case squeeze && len(closes) >= 5:
		momentum := closes[len(closes)-1]/closes[len(closes)-5] - 1.0
		if momentum > 0.001 {
			return BreakoutSqueezeBullish
		}
		if momentum < -0.001 {
			return BreakoutSqueezeBearish
		}
	}
	return BreakoutNone
}

// DetectBollingerBreakout is DetectBreakout under the name used by
// callers that want the adaptive/supplemented breakout detector
// explicitly distinguished from the plain Bollinger computation.
func DetectBollingerBreakout(closes []float64, period int, mult float64) Breakout {
	return DetectBreakout(closes, period, mult)
}

// AdaptiveBollinger supplements the fixed-period bands with a signal
// for whether volatility is currently expanding.
type AdaptiveBollinger struct {
	Bollinger
	Bandwidth   float64
	IsExpanding bool
}

// ComputeAdaptiveBollinger compares the current Bollinger bandwidth
// against the bandwidth five bars ago to flag expanding volatility.
// Requires at least period+10 closes; returns a zero value otherwise.
func ComputeAdaptiveBollinger(closes []float64, period int, mult float64) AdaptiveBollinger {
	if len(closes) < period+10 {
		return AdaptiveBollinger{}
	}
	bb := ComputeBollinger(closes, period, mult)
	bw := Bandwidth(bb.Upper, bb.Lower, bb.Mean)

	prevCloses := closes[:len(closes)-5]
	prevBB := ComputeBollinger(prevCloses, period, mult)
	prevBW := Bandwidth(prevBB.Upper, prevBB.Lower, prevBB.Mean)

	return AdaptiveBollinger{Bollinger: bb, Bandwidth: bw, IsExpanding: bw > prevBW}
}

// RSI computes the Relative Strength Index over the last period
// closes using a simple (non-Wilder-smoothed) average gain/loss
// ratio. Returns 50 (neutral) when fewer than period+1 closes are
// available, and 100 when there is no loss in the window.
func RSI(closes []float64, period int) float64 {
	if len(closes) <= period {
		return 50.0
	}

	gain, loss := 0.0, 0.0
	start := len(closes) - period - 1
	for i := start; i < len(closes)-1; i++ {
		diff := closes[i+1] - closes[i]
		if diff > 0 {
			gain += diff
		} else {
			loss -= diff
		}
	}

	if loss == 0.0 {
		return 100.0
	}

	rs := gain / loss
	return 100.0 - (100.0 / (1.0 + rs))
}

// VolumeRatio returns the ratio of summed up-volume to summed
// down-volume. Returns 1.0 if down-volume is zero.
func VolumeRatio(upVol, downVol []float64) float64 {
	sumUp, sumDown := 0.0, 0.0
	for _, v := range upVol {
		sumUp += v
	}
	for _, v := range downVol {
		sumDown += v
	}
	if sumDown == 0.0 {
		return 1.0
	}
	return sumUp / sumDown
}

// EMA computes the exponential moving average of data over period,
// seeding the recursion with the first data point.
func EMA(data []float64, period int) float64 {
	if len(data) == 0 || period <= 0 {
		return 0.0
	}
	if len(data) == 1 {
		return data[0]
	}

	alpha := 2.0 / (float64(period) + 1.0)
	ema := data[0]
	for i := 1; i < len(data); i++ {
		ema = alpha*data[i] + (1.0-alpha)*ema
	}
	return ema
}

// MACDResult is the MACD line, its signal line, and their difference.
type MACDResult struct {
	MACD      float64
	Signal    float64
	Histogram float64
}

// MACD computes the MACD line as the difference of a fast and slow
// EMA. The signal line is taken as 0.9 times the MACD line rather than
// a true EMA-of-MACD smoothing; this is a known deviation from the
// standard indicator, carried forward for compatibility with upstream
// consumers of this value.
func MACD(closes []float64, fastPeriod, slowPeriod, signalPeriod int) MACDResult {
	if len(closes) < slowPeriod+signalPeriod {
		return MACDResult{}
	}

	fastEMA := EMA(closes, fastPeriod)
	slowEMA := EMA(closes, slowPeriod)

	macd := fastEMA - slowEMA
	signal := macd * 0.9
	return MACDResult{MACD: macd, Signal: signal, Histogram: macd - signal}
}

// ATR computes the Average True Range over period bars of high, low,
// and close data. Returns 0 if insufficient history is available.
func ATR(highs, lows, closes []float64, period int) float64 {
	if len(highs) < period+1 || len(lows) < period+1 || len(closes) < period+1 {
		return 0.0
	}

	trueRanges := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		tr1 := highs[i] - lows[i]
		tr2 := math.Abs(highs[i] - closes[i-1])
		tr3 := math.Abs(lows[i] - closes[i-1])
		trueRanges = append(trueRanges, math.Max(tr1, math.Max(tr2, tr3)))
	}

	if len(trueRanges) < period {
		return 0.0
	}

	sum := 0.0
	for i := len(trueRanges) - period; i < len(trueRanges); i++ {
		sum += trueRanges[i]
	}
	return sum / float64(period)
}

// StochasticResult is the %K and %D lines of the stochastic
// oscillator.
type StochasticResult struct {
	K float64
	D float64
}

// Stochastic computes the stochastic oscillator over the last period
// bars. %D is taken as 0.9 times %K rather than a true 3-period SMA
// of %K; this is a known deviation, carried forward for compatibility.
// Returns {50, 50} if insufficient history or a degenerate range.
func Stochastic(highs, lows, closes []float64, period int) StochasticResult {
	result := StochasticResult{K: 50.0, D: 50.0}
	if len(closes) < period {
		return result
	}

	start := len(closes) - period
	highest, lowest := highs[start], lows[start]
	for i := start; i < len(highs); i++ {
		if highs[i] > highest {
			highest = highs[i]
		}
		if lows[i] < lowest {
			lowest = lows[i]
		}
	}

	if highest == lowest {
		return result
	}

	currentClose := closes[len(closes)-1]
	result.K = 100.0 * (currentClose - lowest) / (highest - lowest)
	result.D = result.K * 0.9
	return result
}

// RollSpread estimates the effective bid-ask spread from the serial
// covariance of consecutive price changes (Roll 1984). Returns 0 when
// the covariance is non-negative, since the model is undefined there.
func RollSpread(prices []float64) float64 {
	if len(prices) < 3 {
		return 0.0
	}

	changes := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		changes[i-1] = prices[i] - prices[i-1]
	}

	meanChange := Mean(changes)
	cov := 0.0
	for i := 1; i < len(changes); i++ {
		cov += (changes[i] - meanChange) * (changes[i-1] - meanChange)
	}
	cov /= float64(len(changes) - 1)

	if cov >= 0 {
		return 0.0
	}
	return 2.0 * math.Sqrt(-cov)
}

// SimpleVWAP computes the volume-weighted average price over the
// given price/volume series. Returns 0 for mismatched or empty input.
func SimpleVWAP(prices, volumes []float64) float64 {
	if len(prices) != len(volumes) || len(prices) == 0 {
		return 0.0
	}
	sumPV, sumV := 0.0, 0.0
	for i := range prices {
		sumPV += prices[i] * volumes[i]
		sumV += volumes[i]
	}
	if sumV == 0 {
		return 0.0
	}
	return sumPV / sumV
}
