// Package alpha computes the two alpha-generating signals of the
// pipeline: a tick-window momentum/mean-reversion z-score, and a
// candle-window composite BUY/SELL/NONE classification built from
// Bollinger bands, RSI, and the up/down volume ratio.
package alpha

import (
	"math"

	"github.com/sawpanic/alphacore/internal/domain/indicators"
	"github.com/sawpanic/alphacore/internal/domain/market"
)

// TickSignal is the per-tick momentum/mean-reversion output.
type TickSignal struct {
	Symbol    string
	Momentum  float64
	MeanRevZ  float64
	Timeframe string
}

// TickEngine computes momentum and a mean-reversion z-score over a
// fixed-size sliding window of ticks. Variance is tracked with
// Welford's online algorithm rather than the textbook
// sum(x^2)/n - mean^2 formula: the latter loses precision
// catastrophically once price levels grow large relative to their
// tick-to-tick variation, which this algorithm avoids while producing
// the same momentum/meanRevZ output contract.
type TickEngine struct {
	windowSize int
	timeframe  string

	window []market.Tick

	count float64
	mean  float64
	m2    float64
}

// NewTickEngine creates a tick-window alpha engine retaining the last
// windowSize ticks, labeling emitted signals with timeframe.
func NewTickEngine(windowSize int, timeframe string) *TickEngine {
	return &TickEngine{windowSize: windowSize, timeframe: timeframe}
}

// OnTick folds a new tick into the window and returns the refreshed
// signal once the window is full.
func (e *TickEngine) OnTick(t market.Tick) (TickSignal, bool) {
	e.window = append(e.window, t)
	e.addSample(t.Price)

	if len(e.window) > e.windowSize {
		old := e.window[0]
		e.window = e.window[1:]
		e.removeSample(old.Price)
	}

	if len(e.window) < e.windowSize {
		return TickSignal{}, false
	}

	sd := 0.0
	if e.count > 0 {
		sd = math.Sqrt(e.m2 / e.count)
	}

	oldest := e.window[0]
	momentum := t.Price/oldest.Price - 1.0

	meanRevZ := 0.0
	if sd > 1e-8 {
		meanRevZ = (t.Price - e.mean) / sd
	}

	return TickSignal{
		Symbol:    t.Symbol,
		Momentum:  momentum,
		MeanRevZ:  meanRevZ,
		Timeframe: "TICK_" + e.timeframe,
	}, true
}

// addSample folds a new price into the Welford accumulators.
func (e *TickEngine) addSample(price float64) {
	e.count++
	delta := price - e.mean
	e.mean += delta / e.count
	delta2 := price - e.mean
	e.m2 += delta * delta2
}

// removeSample reverses addSample for the price leaving the window,
// keeping the running mean/variance exact for a fixed-size window.
func (e *TickEngine) removeSample(price float64) {
	if e.count <= 1 {
		e.count = 0
		e.mean = 0
		e.m2 = 0
		return
	}
	e.count--
	delta := price - e.mean
	e.mean -= delta / e.count
	delta2 := price - e.mean
	e.m2 -= delta * delta2
	if e.m2 < 0 {
		e.m2 = 0
	}
}

// CandleClassification is the discrete candle-window composite call.
type CandleClassification int

const (
	ClassificationNone CandleClassification = iota
	ClassificationBuy
	ClassificationSell
)

func (c CandleClassification) String() string {
	switch c {
	case ClassificationBuy:
		return "BUY"
	case ClassificationSell:
		return "SELL"
	default:
		return "NONE"
	}
}

// CandleSignal is the composite candle-window alpha call.
type CandleSignal struct {
	Symbol         string
	RSI            float64
	VolumeRatio    float64
	Classification CandleClassification
	Timeframe      string
}

// CandleEngine derives a composite BUY/SELL/NONE classification from
// closed candles: price breaking below the lower Bollinger band with
// an oversold RSI and weak up-volume signals BUY; the mirror signals
// SELL.
type CandleEngine struct {
	timeframe string

	closes  []float64
	highs   []float64
	lows    []float64
	volumes []float64
}

// NewCandleEngine creates a candle-window alpha engine labeling
// emitted signals with timeframe.
func NewCandleEngine(timeframe string) *CandleEngine {
	return &CandleEngine{timeframe: timeframe}
}

const (
	bollingerPeriod = 20
	bollingerMult   = 2.0
	rsiPeriod       = 14
)

// OnCandle folds a closed candle into the engine's history and
// returns the refreshed composite signal once enough history exists
// for the Bollinger/RSI windows.
func (e *CandleEngine) OnCandle(c market.Candle) (CandleSignal, bool) {
	e.closes = append(e.closes, c.Close)
	e.highs = append(e.highs, c.High)
	e.lows = append(e.lows, c.Low)
	e.volumes = append(e.volumes, c.Volume)

	if len(e.closes) < bollingerPeriod {
		return CandleSignal{}, false
	}

	bb := indicators.ComputeBollinger(e.closes, bollingerPeriod, bollingerMult)
	rsi := indicators.RSI(e.closes, rsiPeriod)

	var upVol, downVol []float64
	for i := 1; i < len(e.closes); i++ {
		if e.closes[i] > e.closes[i-1] {
			upVol = append(upVol, e.volumes[i])
		} else {
			downVol = append(downVol, e.volumes[i])
		}
	}
	vbr := indicators.VolumeRatio(upVol, downVol)

	price := e.closes[len(e.closes)-1]
	classification := ClassificationNone

	switch {
	case price < bb.Lower && rsi < 30 && vbr < 0.7:
		classification = ClassificationBuy
	case price > bb.Upper && rsi > 70 && vbr > 1.3:
		classification = ClassificationSell
	}

	return CandleSignal{
		Symbol:         c.Symbol,
		RSI:            rsi,
		VolumeRatio:    vbr,
		Classification: classification,
		Timeframe: "CANDLE_" + e.timeframe,
	}, true
}
