// Package orderflow derives short-horizon order-flow signals from a
// classified trade stream: order-flow imbalance (OFI), bid/ask
// pressure, trade aggression relative to recent average size,
// cumulative volume delta, and a composite flow-toxicity score.
package orderflow

import (
	"math"
	"sort"
)

// OFIResult is the order-flow-imbalance snapshot computed over the
// current trade window.
type OFIResult struct {
	Imbalance    float64
	BidPressure  float64
	AskPressure  float64
	Aggression   float64
	Momentum     float64
	TimestampUnixNano int64
}

// Imbalance maintains a fixed-size trade window (keyed purely on
// trade count, not time) and derives imbalance, aggression, and
// momentum from it.
//
// The eviction loop below intentionally mirrors the original
// implementation's per-side-independent trimming: buy and sell
// volumes are evicted independently whenever their combined count
// exceeds the window, which means the buy-side and sell-side windows
// can drift to different effective lengths over a run of one-sided
// trades. This is a known, preserved quirk rather than a bug fix.
type Imbalance struct {
	window int

	buyVolumes []float64
	sellVolumes []float64
	timestamps  []int64
}

// NewImbalance creates an order-flow-imbalance tracker retaining up
// to window combined buy+sell observations.
func NewImbalance(window int) *Imbalance {
	return &Imbalance{window: window}
}

// OnTrade folds a classified trade into the window.
func (o *Imbalance) OnTrade(price, volume float64, isBuy bool, timestampUnixNano int64) {
	if isBuy {
		o.buyVolumes = append(o.buyVolumes, volume)
	} else {
		o.sellVolumes = append(o.sellVolumes, volume)
	}
	o.timestamps = append(o.timestamps, timestampUnixNano)

	for len(o.buyVolumes)+len(o.sellVolumes) > o.window {
		if len(o.buyVolumes) > 0 {
			o.buyVolumes = o.buyVolumes[1:]
		}
		if len(o.sellVolumes) > 0 {
			o.sellVolumes = o.sellVolumes[1:]
		}
		if len(o.timestamps) > 0 {
			o.timestamps = o.timestamps[1:]
		}
	}
}

func sum(vs []float64) float64 {
	s := 0.0
	for _, v := range vs {
		s += v
	}
	return s
}

func (o *Imbalance) computeImbalance() float64 {
	buyVol, sellVol := sum(o.buyVolumes), sum(o.sellVolumes)
	total := buyVol + sellVol
	if total < 1e-10 {
		return 0.0
	}
	return (buyVol - sellVol) / total
}

func (o *Imbalance) computeAggression() float64 {
	all := make([]float64, 0, len(o.buyVolumes)+len(o.sellVolumes))
	all = append(all, o.buyVolumes...)
	all = append(all, o.sellVolumes...)
	if len(all) == 0 {
		return 0.0
	}

	sort.Float64s(all)
	median := all[len(all)/2]
	threshold := median * 1.5

	large := 0
	for _, v := range all {
		if v > threshold {
			large++
		}
	}
	return float64(large) / float64(len(all))
}

func (o *Imbalance) computeMomentum() float64 {
	if len(o.timestamps) < 2 {
		return 0.0
	}

	halfWindow := o.window / 2
	recentBuy, recentSell, oldBuy, oldSell := 0.0, 0.0, 0.0, 0.0
	buyIdx, sellIdx := 0, 0

	for i := 0; i < len(o.timestamps); i++ {
		isRecent := i >= halfWindow
		if buyIdx < len(o.buyVolumes) {
			if isRecent {
				recentBuy += o.buyVolumes[buyIdx]
			} else {
				oldBuy += o.buyVolumes[buyIdx]
			}
			buyIdx++
		}
		if sellIdx < len(o.sellVolumes) {
			if isRecent {
				recentSell += o.sellVolumes[sellIdx]
			} else {
				oldSell += o.sellVolumes[sellIdx]
			}
			sellIdx++
		}
	}

	recentImb := 0.0
	if recentBuy+recentSell > 0 {
		recentImb = (recentBuy - recentSell) / (recentBuy + recentSell)
	}
	oldImb := 0.0
	if oldBuy+oldSell > 0 {
		oldImb = (oldBuy - oldSell) / (oldBuy + oldSell)
	}

	return recentImb - oldImb
}

// OFI returns the current order-flow-imbalance snapshot, or false if
// no trades have been observed yet. BidPressure and AskPressure
// always sum to 1 (or are both 0.5 when no volume has been seen).
func (o *Imbalance) OFI() (OFIResult, bool) {
	if len(o.buyVolumes) == 0 && len(o.sellVolumes) == 0 {
		return OFIResult{}, false
	}

	buyVol, sellVol := sum(o.buyVolumes), sum(o.sellVolumes)
	total := buyVol + sellVol

	bidPressure, askPressure := 0.5, 0.5
	if total > 0 {
		bidPressure = buyVol / total
		askPressure = sellVol / total
	}

	var ts int64
	if len(o.timestamps) > 0 {
		ts = o.timestamps[len(o.timestamps)-1]
	}

	return OFIResult{
		Imbalance:         o.computeImbalance(),
		BidPressure:       bidPressure,
		AskPressure:       askPressure,
		Aggression:        o.computeAggression(),
		Momentum:          o.computeMomentum(),
		TimestampUnixNano: ts,
	}, true
}

// IsExtreme reports whether the current imbalance magnitude exceeds
// threshold.
func (o *Imbalance) IsExtreme(threshold float64) bool {
	return math.Abs(o.computeImbalance()) > threshold
}

// PressureResult is the bid/ask volume split over a fixed-size trade
// window.
type PressureResult struct {
	BidVolume      float64
	AskVolume      float64
	ImbalanceRatio float64
	Dominant       float64 // +1 bid-dominant, -1 ask-dominant, 0 balanced
}

// Pressure tracks bid- and ask-side volume independently over a
// shared trade-count window.
type Pressure struct {
	window int
	bidVolumes []float64
	askVolumes []float64
}

// NewPressure creates a bid/ask pressure tracker over window trades
// per side.
func NewPressure(window int) *Pressure {
	return &Pressure{window: window}
}

// OnTrade folds a classified trade into the bid or ask side.
func (p *Pressure) OnTrade(isBuy bool, volume float64) {
	if isBuy {
		p.bidVolumes = append(p.bidVolumes, volume)
	} else {
		p.askVolumes = append(p.askVolumes, volume)
	}
	for len(p.bidVolumes) > p.window {
		p.bidVolumes = p.bidVolumes[1:]
	}
	for len(p.askVolumes) > p.window {
		p.askVolumes = p.askVolumes[1:]
	}
}

// Pressure returns the current bid/ask pressure snapshot.
func (p *Pressure) Pressure() PressureResult {
	bidVol, askVol := sum(p.bidVolumes), sum(p.askVolumes)
	total := bidVol + askVol

	ratio := 0.0
	if total > 0 {
		ratio = (bidVol - askVol) / total
	}

	dominant := 0.0
	switch {
	case ratio > 0.1:
		dominant = 1.0
	case ratio < -0.1:
		dominant = -1.0
	}

	return PressureResult{BidVolume: bidVol, AskVolume: askVol, ImbalanceRatio: ratio, Dominant: dominant}
}

// Aggression tracks a rolling window of per-trade aggression scores:
// how far a trade's volume exceeds the running average, signed by
// side.
type Aggression struct {
	window int
	scores []float64
}

// NewAggression creates an aggression tracker over the last window
// trades.
func NewAggression(window int) *Aggression {
	return &Aggression{window: window}
}

// OnTrade records a trade's aggression score relative to avgVolume.
func (a *Aggression) OnTrade(volume, avgVolume float64, isBuy bool) {
	score := 0.0
	if avgVolume > 0 {
		score = volume/avgVolume - 1.0
	}
	if !isBuy {
		score = -score
	}

	a.scores = append(a.scores, score)
	for len(a.scores) > a.window {
		a.scores = a.scores[1:]
	}
}

// Aggression returns the mean aggression score over the window.
func (a *Aggression) Aggression() float64 {
	if len(a.scores) == 0 {
		return 0.0
	}
	return sum(a.scores) / float64(len(a.scores))
}

// VolumeDelta accumulates signed trade volume (buy positive, sell
// negative) both as a running total and over a short recent window.
type VolumeDelta struct {
	cumulative float64
	recent     []float64
}

const recentDeltaWindow = 20

// OnTrade folds a trade into the cumulative and recent delta series.
func (v *VolumeDelta) OnTrade(volume float64, isBuy bool) {
	delta := volume
	if !isBuy {
		delta = -volume
	}
	v.cumulative += delta
	v.recent = append(v.recent, delta)
	if len(v.recent) > recentDeltaWindow {
		v.recent = v.recent[1:]
	}
}

// Cumulative returns the running signed volume total since the last
// Reset.
func (v *VolumeDelta) Cumulative() float64 {
	return v.cumulative
}

// Recent returns the signed volume sum over the last 20 trades.
func (v *VolumeDelta) Recent() float64 {
	return sum(v.recent)
}

// Reset clears the cumulative and recent delta state.
func (v *VolumeDelta) Reset() {
	v.cumulative = 0.0
	v.recent = nil
}

// ToxicityScore is the weighted composite order-flow toxicity score
// and its components.
type ToxicityScore struct {
	Toxicity         float64
	OFIContribution  float64
	PressureContrib  float64
	AggressionContrib float64
	IsToxic          bool
}

// Toxicity combines OFI, pressure, and aggression into a single
// bounded score, weighted 0.4/0.3/0.3 respectively.
type Toxicity struct {
	threshold float64
	value     float64

	ofiWeight        float64
	pressureWeight   float64
	aggressionWeight float64
}

// NewToxicity creates a toxicity scorer that flags IsToxic once the
// composite score exceeds threshold.
func NewToxicity(threshold float64) *Toxicity {
	return &Toxicity{
		threshold:        threshold,
		ofiWeight:        0.4,
		pressureWeight:   0.3,
		aggressionWeight: 0.3,
	}
}

// Update recomputes the toxicity score from the latest OFI, pressure,
// and aggression readings. All three components are normalized into
// [0, 1] before weighting, so Toxicity is always in [0, 1].
func (t *Toxicity) Update(ofi, pressure, aggression float64) {
	ofiNorm := (math.Abs(ofi) + 1.0) / 2.0
	pressureNorm := (math.Abs(pressure) + 1.0) / 2.0
	aggressionNorm := math.Min(1.0, math.Abs(aggression))

	t.value = t.ofiWeight*ofiNorm + t.pressureWeight*pressureNorm + t.aggressionWeight*aggressionNorm
}

// Score returns the current toxicity breakdown.
func (t *Toxicity) Score() ToxicityScore {
	return ToxicityScore{
		Toxicity:          t.value,
		OFIContribution:   t.ofiWeight * t.value,
		PressureContrib:   t.pressureWeight * t.value,
		AggressionContrib: t.aggressionWeight * t.value,
		IsToxic:           t.value > t.threshold,
	}
}

// FlowDirection is the discrete directional call derived from OFI and
// pressure.
type FlowDirection int

const (
	FlowNeutral FlowDirection = iota
	FlowBuyDominant
	FlowSellDominant
)

func (f FlowDirection) String() string {
	switch f {
	case FlowBuyDominant:
		return "BUY_DOMINANT"
	case FlowSellDominant:
		return "SELL_DOMINANT"
	default:
		return "NEUTRAL"
	}
}

// Signal is the merged order-flow signal the composer consumes.
type Signal struct {
	OFI               float64
	BidPressure       float64
	AskPressure       float64
	Aggression        float64
	CumulativeDelta   float64
	Toxicity          float64
	IsToxic           bool
	FlowDirection     FlowDirection
	TimestampUnixNano int64
}

// Engine binds the OFI, pressure, aggression, volume-delta, and
// toxicity trackers into a single per-symbol order-flow pipeline.
type Engine struct {
	ofi        *Imbalance
	pressure   *Pressure
	aggression *Aggression
	delta      VolumeDelta
	toxicity   *Toxicity

	avgVolume float64
	tickCount int64
}

// NewEngine creates an order-flow engine over the given trade window,
// flagging toxicity once the composite score exceeds toxicityThreshold.
func NewEngine(window int, toxicityThreshold float64) *Engine {
	return &Engine{
		ofi:        NewImbalance(window),
		pressure:   NewPressure(window),
		aggression: NewAggression(window),
		toxicity:   NewToxicity(toxicityThreshold),
	}
}

// OnTick folds a classified trade into every component and returns
// the merged signal, or false until at least one trade has been seen.
func (e *Engine) OnTick(price, volume float64, isBuy bool, timestampUnixNano int64) (Signal, bool) {
	e.tickCount++
	e.avgVolume = (float64(e.tickCount-1)*e.avgVolume + volume) / float64(e.tickCount)

	e.ofi.OnTrade(price, volume, isBuy, timestampUnixNano)
	e.pressure.OnTrade(isBuy, volume)
	e.aggression.OnTrade(volume, e.avgVolume, isBuy)
	e.delta.OnTrade(volume, isBuy)

	ofiResult, ok := e.ofi.OFI()
	if !ok {
		return Signal{}, false
	}

	pressureResult := e.pressure.Pressure()
	aggrScore := e.aggression.Aggression()

	e.toxicity.Update(ofiResult.Imbalance, pressureResult.ImbalanceRatio, aggrScore)
	toxScore := e.toxicity.Score()

	flowDir := determineFlowDirection(ofiResult.Imbalance, pressureResult.ImbalanceRatio)

	return Signal{
		OFI:               ofiResult.Imbalance,
		BidPressure:       ofiResult.BidPressure,
		AskPressure:       ofiResult.AskPressure,
		Aggression:        aggrScore,
		CumulativeDelta:   e.delta.Cumulative(),
		Toxicity:          toxScore.Toxicity,
		IsToxic:           toxScore.IsToxic,
		FlowDirection:     flowDir,
		TimestampUnixNano: timestampUnixNano,
	}, true
}

func determineFlowDirection(ofi, pressure float64) FlowDirection {
	combined := (ofi + pressure) / 2.0
	switch {
	case combined > 0.2:
		return FlowBuyDominant
	case combined < -0.2:
		return FlowSellDominant
	default:
		return FlowNeutral
	}
}

// Reset clears the volume-delta accumulator and average-volume
// tracking. The bounded OFI/pressure/aggression windows age out
// naturally and are left as-is.
func (e *Engine) Reset() {
	e.delta.Reset()
	e.avgVolume = 0.0
	e.tickCount = 0
}
