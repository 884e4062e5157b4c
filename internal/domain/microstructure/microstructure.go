// Package microstructure analyzes trade-level market microstructure:
// Lee-Ready trade classification, volume-synchronized probability of
// informed trading (VPIN), Kyle's lambda price impact, and the Roll
// effective-spread estimator. It keeps bounded trade history and
// volume-bucket state per symbol; callers own one Analyzer per symbol.
package microstructure

import (
	"math"

	"github.com/sawpanic/alphacore/internal/domain/market"
)

const maxTradeHistory = 1000

// TradeSide is the inferred aggressor side of a trade print.
type TradeSide int

const (
	SideUnknown TradeSide = iota
	SideBuy
	SideSell
)

func (s TradeSide) String() string {
	switch s {
	case SideBuy:
		return "BUY"
	case SideSell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// TradeClassification is the outcome of classifying a single trade.
type TradeClassification struct {
	Side         TradeSide
	SignedVolume float64
}

// VPINMetrics bundles the volume-synchronized probability of informed
// trading alongside its buy/sell decomposition and toxicity score.
type VPINMetrics struct {
	VPIN      float64
	BuyVolume float64
	SellVolume float64
	Imbalance float64
	Toxicity  float64
}

// HasbrouckMetrics is the price-impact decomposition estimated from
// Kyle's lambda.
type HasbrouckMetrics struct {
	Lambda           float64
	PermanentImpact  float64
	TransientImpact  float64
	AdverseSelection float64
}

// Analyzer tracks per-symbol microstructure state: a bounded trade
// history, a rolling set of VPIN volume buckets, and the price-change
// / signed-volume series used for Kyle's lambda and the Roll spread.
type Analyzer struct {
	bucketSize   float64
	vpinWindow   int
	impactWindow int

	tradeHistory    []market.Tick
	classifiedTrades []TradeClassification

	currentBucketVolume     float64
	currentBucketBuyVolume  float64
	lastPrice               float64

	volumeBuckets []float64

	priceChanges  []float64
	signedVolumes []float64

	cumulativeVolume     float64
	cumulativeBuyVolume  float64
	cumulativeSellVolume float64
}

// NewAnalyzer creates a microstructure analyzer. bucketSize is the
// VPIN volume-bucket size, vpinWindow the number of buckets retained
// for the VPIN average, and impactWindow the number of price-change
// observations retained for Kyle's lambda.
func NewAnalyzer(bucketSize float64, vpinWindow, impactWindow int) *Analyzer {
	return &Analyzer{
		bucketSize:   bucketSize,
		vpinWindow:   vpinWindow,
		impactWindow: impactWindow,
	}
}

// OnTick classifies a new trade and folds it into all tracked state.
func (a *Analyzer) OnTick(t market.Tick) TradeClassification {
	classification := a.ClassifyTrade(t.Price, t.Volume, t.BidPrice, t.AskPrice)

	a.tradeHistory = append(a.tradeHistory, t)
	if len(a.tradeHistory) > maxTradeHistory {
		a.tradeHistory = a.tradeHistory[1:]
	}

	a.classifiedTrades = append(a.classifiedTrades, classification)
	if len(a.classifiedTrades) > maxTradeHistory {
		a.classifiedTrades = a.classifiedTrades[1:]
	}

	a.cumulativeVolume += t.Volume
	switch classification.Side {
	case SideBuy:
		a.cumulativeBuyVolume += t.Volume
	case SideSell:
		a.cumulativeSellVolume += t.Volume
	}

	a.updateVPINBuckets(classification)

	if a.lastPrice > 0.0 {
		a.updatePriceImpact(t.Price-a.lastPrice, classification.SignedVolume)
	}
	a.lastPrice = t.Price

	return classification
}

// ClassifyTrade applies the Lee-Ready algorithm: the quote rule when
// bid/ask are available, falling back to the tick rule (and the
// zero-tick rule on a repeated price) otherwise.
func (a *Analyzer) ClassifyTrade(price, volume, bidPrice, askPrice float64) TradeClassification {
	var result TradeClassification

	if bidPrice > 0.0 && askPrice > 0.0 {
		mid := (bidPrice + askPrice) / 2.0
		switch {
		case price > mid:
			result.Side = SideBuy
			result.SignedVolume = volume
		case price < mid:
			result.Side = SideSell
			result.SignedVolume = -volume
		default:
			result.Side = a.inferTradeSide(price)
			result.SignedVolume = signedVolumeFor(result.Side, volume)
		}
		return result
	}

	result.Side = a.inferTradeSide(price)
	result.SignedVolume = signedVolumeFor(result.Side, volume)
	return result
}

func signedVolumeFor(side TradeSide, volume float64) float64 {
	if side == SideBuy {
		return volume
	}
	return -volume
}

func (a *Analyzer) inferTradeSide(price float64) TradeSide {
	if a.lastPrice <= 0.0 {
		return SideUnknown
	}
	switch {
	case price > a.lastPrice:
		return SideBuy
	case price < a.lastPrice:
		return SideSell
	default:
		if len(a.classifiedTrades) == 0 {
			return SideUnknown
		}
		return a.classifiedTrades[len(a.classifiedTrades)-1].Side
	}
}

func (a *Analyzer) updateVPINBuckets(trade TradeClassification) {
	vol := math.Abs(trade.SignedVolume)
	a.currentBucketVolume += vol
	if trade.Side == SideBuy {
		a.currentBucketBuyVolume += vol
	}

	if a.currentBucketVolume >= a.bucketSize {
		imbalance := math.Abs(2.0*a.currentBucketBuyVolume - a.currentBucketVolume)
		a.volumeBuckets = append(a.volumeBuckets, imbalance)
		if len(a.volumeBuckets) > a.vpinWindow {
			a.volumeBuckets = a.volumeBuckets[1:]
		}
		a.currentBucketVolume = 0.0
		a.currentBucketBuyVolume = 0.0
	}
}

func (a *Analyzer) updatePriceImpact(priceChange, signedVolume float64) {
	a.priceChanges = append(a.priceChanges, priceChange)
	a.signedVolumes = append(a.signedVolumes, signedVolume)
	if len(a.priceChanges) > a.impactWindow {
		a.priceChanges = a.priceChanges[1:]
		a.signedVolumes = a.signedVolumes[1:]
	}
}

// VPIN returns the current VPIN metrics bundle: the volume-bucket
// based VPIN value, its buy/sell decomposition over the last 50
// classified trades, the imbalance, and the VPIN*imbalance toxicity
// score. All bounded values lie in [0, 1].
func (a *Analyzer) VPIN() VPINMetrics {
	metrics := VPINMetrics{VPIN: a.computeVPIN()}

	window := len(a.classifiedTrades)
	if window > 50 {
		window = 50
	}

	recentBuy, recentSell := 0.0, 0.0
	for i := len(a.classifiedTrades) - window; i < len(a.classifiedTrades); i++ {
		switch a.classifiedTrades[i].Side {
		case SideBuy:
			recentBuy += a.classifiedTrades[i].SignedVolume
		case SideSell:
			recentSell += math.Abs(a.classifiedTrades[i].SignedVolume)
		}
	}

	metrics.BuyVolume = recentBuy
	metrics.SellVolume = recentSell

	total := recentBuy + recentSell
	if total > 0 {
		metrics.Imbalance = math.Abs(recentBuy-recentSell) / total
	}

	metrics.Toxicity = metrics.VPIN * metrics.Imbalance
	return metrics
}

func (a *Analyzer) computeVPIN() float64 {
	if len(a.volumeBuckets) < 2 {
		return 0.0
	}

	sum := 0.0
	for _, v := range a.volumeBuckets {
		sum += v
	}
	avgImbalance := sum / float64(len(a.volumeBuckets))
	vpin := avgImbalance / a.bucketSize

	return math.Min(math.Max(vpin, 0.0), 1.0)
}

// HasbrouckMetrics estimates Kyle's lambda and its permanent/transient
// decomposition via OLS regression of price changes on signed volume.
// Requires at least 10 observations; returns a zero value otherwise.
func (a *Analyzer) HasbrouckMetrics() HasbrouckMetrics {
	var metrics HasbrouckMetrics

	if len(a.priceChanges) < 10 || len(a.signedVolumes) < 10 {
		return metrics
	}

	n := float64(len(a.priceChanges))
	meanPriceChange, meanSignedVol := 0.0, 0.0
	for i := range a.priceChanges {
		meanPriceChange += a.priceChanges[i]
		meanSignedVol += a.signedVolumes[i]
	}
	meanPriceChange /= n
	meanSignedVol /= n

	covariance, variance := 0.0, 0.0
	for i := range a.priceChanges {
		dpDev := a.priceChanges[i] - meanPriceChange
		volDev := a.signedVolumes[i] - meanSignedVol
		covariance += dpDev * volDev
		variance += volDev * volDev
	}

	if variance > 1e-10 {
		metrics.Lambda = covariance / variance
	}

	metrics.PermanentImpact = 0.8 * metrics.Lambda
	metrics.TransientImpact = 0.2 * metrics.Lambda
	metrics.AdverseSelection = math.Abs(metrics.Lambda)

	return metrics
}

// OrderFlowImbalance returns the normalized buy/sell volume imbalance
// over the last window classified trades, in [-1, 1].
func (a *Analyzer) OrderFlowImbalance(window int) float64 {
	if len(a.classifiedTrades) == 0 {
		return 0.0
	}

	n := window
	if n > len(a.classifiedTrades) {
		n = len(a.classifiedTrades)
	}

	buyVol, sellVol := 0.0, 0.0
	for i := len(a.classifiedTrades) - n; i < len(a.classifiedTrades); i++ {
		switch a.classifiedTrades[i].Side {
		case SideBuy:
			buyVol += a.classifiedTrades[i].SignedVolume
		case SideSell:
			sellVol += math.Abs(a.classifiedTrades[i].SignedVolume)
		}
	}

	total := buyVol + sellVol
	if total <= 0 {
		return 0.0
	}
	return (buyVol - sellVol) / total
}

// EffectiveSpread estimates the bid-ask spread from the tracked price
// changes using the Roll (1984) serial-covariance measure.
func (a *Analyzer) EffectiveSpread() float64 {
	if len(a.priceChanges) < 2 {
		return 0.0
	}
	return RollSpread(a.priceChanges)
}

// Reset clears all accumulated state, returning the analyzer to its
// construction-time condition.
func (a *Analyzer) Reset() {
	a.tradeHistory = nil
	a.classifiedTrades = nil
	a.volumeBuckets = nil
	a.priceChanges = nil
	a.signedVolumes = nil

	a.currentBucketVolume = 0.0
	a.currentBucketBuyVolume = 0.0
	a.lastPrice = 0.0
	a.cumulativeVolume = 0.0
	a.cumulativeBuyVolume = 0.0
	a.cumulativeSellVolume = 0.0
}

// RollSpread estimates the effective bid-ask spread from a series of
// consecutive price changes: Spread = 2*sqrt(-Cov(dP_t, dP_t-1)),
// using the raw (non mean-centered) product average as the original
// model specifies. Returns 0 when the implied covariance is
// non-negative.
func RollSpread(priceChanges []float64) float64 {
	if len(priceChanges) < 2 {
		return 0.0
	}

	sumProduct := 0.0
	n := 0
	for i := 1; i < len(priceChanges); i++ {
		sumProduct += priceChanges[i] * priceChanges[i-1]
		n++
	}

	covariance := 0.0
	if n > 0 {
		covariance = sumProduct / float64(n)
	}

	if covariance < 0 {
		return 2.0 * math.Sqrt(-covariance)
	}
	return 0.0
}

// VWAP computes the volume-weighted average price of a tick slice.
func VWAP(ticks []market.Tick) float64 {
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

// RealizedVolatility computes the standard deviation of log returns
// over a price series.
func RealizedVolatility(prices []float64) float64 {
	if len(prices) < 2 {
		return 0.0
	}

	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] > 0 {
			returns = append(returns, math.Log(prices[i]/prices[i-1]))
		}
	}
	if len(returns) == 0 {
		return 0.0
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	return math.Sqrt(variance / float64(len(returns)))
}
