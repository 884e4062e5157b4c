// Package composer binds one symbol's full analyzer stack into a
// single pipeline: every tick is fed to the candle aggregator, the
// tick- and candle-window alpha engines, the microstructure analyzer,
// the order-flow engine, the regime detector, and the VWAP
// calculator, in that order, then the resulting partial signals are
// merged into one SignalRecord with a combined score and a discrete
// recommendation. Exactly one Composer owns a given symbol's state;
// distinct symbols run on distinct Composers with no shared mutable
// state, so they may be driven concurrently by distinct feed
// goroutines.
package composer

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/alphacore/internal/domain/aggregator"
	"github.com/sawpanic/alphacore/internal/domain/alpha"
	"github.com/sawpanic/alphacore/internal/domain/indicators"
	"github.com/sawpanic/alphacore/internal/domain/market"
	"github.com/sawpanic/alphacore/internal/domain/microstructure"
	"github.com/sawpanic/alphacore/internal/domain/orderflow"
	"github.com/sawpanic/alphacore/internal/domain/regime"
	"github.com/sawpanic/alphacore/internal/domain/vwap"
	"github.com/sawpanic/alphacore/internal/sink"
	"github.com/sawpanic/alphacore/internal/telemetry"
)

// Recommendation is the composer's discrete, sink-boundary-facing
// trading call, resolved from a first-match-wins table over the
// combined score, the plain Bollinger band position, and the
// microstructure analyzer's VPIN toxicity.
type Recommendation int

const (
	RecommendationNeutral Recommendation = iota
	RecommendationBuy
	RecommendationSell
	RecommendationStrongBuy
	RecommendationStrongSell
	RecommendationWaitToxic
	RecommendationWaitSqueeze
)

func (r Recommendation) String() string {
	switch r {
	case RecommendationBuy:
		return "BUY"
	case RecommendationSell:
		return "SELL"
	case RecommendationStrongBuy:
		return "STRONG_BUY"
	case RecommendationStrongSell:
		return "STRONG_SELL"
	case RecommendationWaitToxic:
		return "WAIT_TOXIC"
	case RecommendationWaitSqueeze:
		return "WAIT_SQUEEZE"
	default:
		return "NEUTRAL"
	}
}

// SignalRecord is the merged, per-tick output of a symbol's full
// analyzer stack. Every nested result is the tagged-variant struct its
// own package defines; string rendering (regime names, recommendation
// names, classification names) only happens at this struct's sink
// boundary, not inside the analyzers themselves.
type SignalRecord struct {
	Symbol         string
	Timestamp      time.Time
	TickSignal     alpha.TickSignal
	CandleSignal   *alpha.CandleSignal // nil until a candle closes
	VPIN           microstructure.VPINMetrics
	Hasbrouck      microstructure.HasbrouckMetrics
	OrderFlow      orderflow.Signal
	Regime         regime.Metrics
	VWAP           vwap.Metrics
	Bollinger      indicators.Bollinger
	Breakout       indicators.Breakout
	CombinedScore  float64
	Recommendation Recommendation
}

const (
	bollingerPeriod = 10
	bollingerMult   = 2.0
)

// Config sizes every sub-component's window. New uses every field as
// given; zero values are not replaced by DefaultConfig's.
type Config struct {
	CandleIntervalSeconds float64
	TickWindowSize        int
	OrderFlowWindow       int
	ToxicityThreshold     float64
	VPINBucketSize        float64
	VPINWindow            int
	ImpactWindow          int
	RegimeWindow          int
	RegimeHurstLag        int
	RegimeVolWindow       int
	VWAPBandMultiplier    float64
	VWAPRollingWindow     int // 0 = session mode
	Timeframe             string
	RegimeChangeWindow    int     // closes considered by the CUSUM regime-shift check
	RegimeChangeThreshold float64 // CUSUM/stddev threshold
}

// DefaultConfig returns a reasonable set of window sizes for a liquid
// large-cap symbol.
func DefaultConfig() Config {
	return Config{
		CandleIntervalSeconds: 60,
		TickWindowSize:        50,
		OrderFlowWindow:       100,
		ToxicityThreshold:     0.7,
		VPINBucketSize:        1000,
		VPINWindow:            50,
		ImpactWindow:          100,
		RegimeWindow:          100,
		RegimeHurstLag:        20,
		RegimeVolWindow:       30,
		VWAPBandMultiplier:    2.0,
		VWAPRollingWindow:     0,
		Timeframe:             "1m",
		RegimeChangeWindow:    30,
		RegimeChangeThreshold: 2.0,
	}
}

// Composer owns one symbol's full analyzer stack and emits merged
// SignalRecords to the injected Sink. It is not safe for concurrent
// use; the owning feed goroutine is the sole caller of OnTick.
type Composer struct {
	symbol string
	sink   sink.Sink

	agg          *aggregator.Aggregator
	tickEngine   *alpha.TickEngine
	candleEngine *alpha.CandleEngine
	micro        *microstructure.Analyzer
	flow         *orderflow.Engine
	regimeDet    *regime.Detector
	vwapCalc     *vwap.Calculator

	closes []float64

	lastPrice float64
	hasPrice  bool

	lastCandleSignal *alpha.CandleSignal

	vwapDay    int
	hasVWAPDay bool

	regimeChangeWindow    int
	regimeChangeThreshold float64
}

// New creates a Composer for symbol, emitting merged signals to s.
func New(symbol string, s sink.Sink, cfg Config) *Composer {
	c := &Composer{
		symbol:                symbol,
		sink:                  s,
		tickEngine:            alpha.NewTickEngine(cfg.TickWindowSize, cfg.Timeframe),
		micro:                 microstructure.NewAnalyzer(cfg.VPINBucketSize, cfg.VPINWindow, cfg.ImpactWindow),
		flow:                  orderflow.NewEngine(cfg.OrderFlowWindow, cfg.ToxicityThreshold),
		regimeDet:             regime.NewDetector(cfg.RegimeWindow, cfg.RegimeHurstLag, cfg.RegimeVolWindow),
		vwapCalc:              vwap.NewCalculator(cfg.VWAPBandMultiplier, cfg.VWAPRollingWindow),
		regimeChangeWindow:    cfg.RegimeChangeWindow,
		regimeChangeThreshold: cfg.RegimeChangeThreshold,
	}
	c.candleEngine = alpha.NewCandleEngine(cfg.Timeframe)

	c.agg = aggregator.New(cfg.CandleIntervalSeconds, func(closed market.Candle) {
		c.onCandleClosed(closed)
	})

	return c
}

// maybeAnchorVWAP resets the VWAP session at a UTC day boundary: the
// first tick of a new UTC calendar day re-anchors the session VWAP so
// yesterday's volume doesn't bias today's bands. Rolling-window VWAP
// mode ignores the anchor by construction.
func (c *Composer) maybeAnchorVWAP(ts time.Time) {
	day := ts.UTC().Year()*1000 + ts.UTC().YearDay()
	if c.hasVWAPDay && day != c.vwapDay {
		c.vwapCalc.Anchor(ts)
	}
	c.vwapDay = day
	c.hasVWAPDay = true
}

func (c *Composer) onCandleClosed(candle market.Candle) {
	c.closes = append(c.closes, candle.Close)

	if signal, ok := c.candleEngine.OnCandle(candle); ok {
		c.lastCandleSignal = &signal
	}

	if returns := priceReturns(c.closes, c.regimeChangeWindow); len(returns) > 1 {
		if regime.DetectRegimeChange(returns, c.regimeChangeThreshold) {
			log.Info().Str("symbol", c.symbol).Time("candle_close", candle.CloseTime).Msg("regime_shift detected")
		}
	}

	c.sink.WriteCandle(c.symbol, candle.Open, candle.High, candle.Low, candle.Close, candle.Volume, candle.CloseTime.UnixNano())
}

// priceReturns computes simple returns over the last window closes
// (or all of them if fewer are available).
func priceReturns(closes []float64, window int) []float64 {
	if window > 0 && len(closes) > window {
		closes = closes[len(closes)-window:]
	}
	if len(closes) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		returns = append(returns, (closes[i]-closes[i-1])/closes[i-1])
	}
	return returns
}

// OnTick feeds a new trade print through the full analyzer stack and
// returns the merged SignalRecord. Emission to the sink happens at
// most once per tick, after every sub-component has observed it. An
// invalid tick (non-positive or non-finite price, negative/non-finite
// volume, zero timestamp) is dropped before touching any engine state;
// OnTick returns a zero-value SignalRecord for the symbol in that case
// and increments TicksDropped.
func (c *Composer) OnTick(t market.Tick) SignalRecord {
	if !t.IsValid() {
		telemetry.TicksDropped.WithLabelValues(c.symbol).Inc()
		return SignalRecord{Symbol: c.symbol, Timestamp: t.Timestamp}
	}

	isBuy := c.hasPrice && t.Price > c.lastPrice
	c.lastPrice = t.Price
	c.hasPrice = true

	c.maybeAnchorVWAP(t.Timestamp)

	c.agg.OnTick(t)

	tickSignal, _ := c.tickEngine.OnTick(t)
	classification := c.micro.OnTick(t)
	flowSignal, _ := c.flow.OnTick(t.Price, t.Volume, isBuy, t.Timestamp.UnixNano())
	c.regimeDet.OnPrice(t.Price, t.Volume)
	c.vwapCalc.OnTick(t)

	vpin := c.micro.VPIN()
	hasbrouck := c.micro.HasbrouckMetrics()
	regimeMetrics := c.regimeDet.Metrics()
	vwapMetrics := c.vwapCalc.Metrics()
	bb := indicators.ComputeBollinger(c.closes, bollingerPeriod, bollingerMult)
	breakout := indicators.DetectBollingerBreakout(c.closes, bollingerPeriod, bollingerMult)

	weights := c.regimeDet.SignalWeights()
	combined := weights.MomentumWeight*tickSignal.Momentum + weights.MeanRevWeight*tickSignal.MeanRevZ

	record := SignalRecord{
		Symbol:         c.symbol,
		Timestamp:      t.Timestamp,
		TickSignal:     tickSignal,
		CandleSignal:   c.lastCandleSignal,
		VPIN:           vpin,
		Hasbrouck:      hasbrouck,
		OrderFlow:      flowSignal,
		Regime:         regimeMetrics,
		VWAP:           vwapMetrics,
		Bollinger:      bb,
		Breakout:       breakout,
		CombinedScore:  combined,
		Recommendation: resolveRecommendation(bb, t.Price, combined, vpin.Toxicity),
	}

	_ = classification // retained on the analyzer; surfaced via VPIN/Hasbrouck snapshots

	telemetry.TicksProcessed.WithLabelValues(c.symbol).Inc()
	telemetry.RecommendationTotal.WithLabelValues(c.symbol, record.Recommendation.String()).Inc()

	c.emit(record, t.Price, t.Volume)
	return record
}

// resolveRecommendation resolves BB=BUY/SELL/isSqueezing from the
// plain Bollinger bands the way the mean-reversion BollingerTracker
// does: BUY requires price under the lower band with %B < 0.1, SELL
// requires price over the upper band with %B > 0.9, independent of the
// breakout/momentum classifier.
func resolveRecommendation(bb indicators.Bollinger, price, combined, toxicity float64) Recommendation {
	percentB := indicators.PercentB(price, bb.Lower, bb.Upper)
	bandwidth := indicators.Bandwidth(bb.Upper, bb.Lower, bb.Mean)
	bbBuy := price < bb.Lower && percentB < 0.1
	bbSell := price > bb.Upper && percentB > 0.9
	isSqueezing := bandwidth < 0.05

	switch {
	case bbBuy && combined > 0.01 && toxicity < 0.5:
		return RecommendationStrongBuy
	case bbSell && combined < -0.01 && toxicity < 0.5:
		return RecommendationStrongSell
	case combined > 0.01 && toxicity < 0.5:
		return RecommendationBuy
	case combined < -0.01 && toxicity < 0.5:
		return RecommendationSell
	case toxicity > 0.7:
		return RecommendationWaitToxic
	case isSqueezing:
		return RecommendationWaitSqueeze
	default:
		return RecommendationNeutral
	}
}

func (c *Composer) emit(r SignalRecord, price, volume float64) {
	ts := r.Timestamp.UnixNano()

	c.sink.WriteAlphaSignal(c.symbol, r.TickSignal.Momentum, r.TickSignal.MeanRevZ, 0, 0, r.TickSignal.Timeframe)
	c.sink.WriteMicrostructure(c.symbol, r.VPIN.VPIN, r.VPIN.Toxicity, r.Hasbrouck.Lambda, 0, ts)
	c.sink.WriteOrderFlow(c.symbol, r.OrderFlow.OFI, r.OrderFlow.BidPressure, r.OrderFlow.AskPressure, r.OrderFlow.CumulativeDelta, ts)
	c.sink.WriteRegime(c.symbol, r.Regime.Regime.String(), r.Regime.HurstExponent, r.Regime.Volatility, r.Regime.TrendStrength, ts)
	c.sink.WriteVWAP(c.symbol, r.VWAP.VWAP, r.VWAP.Deviation, ts)
	c.sink.WriteTick(c.symbol, price, volume, ts)
}
