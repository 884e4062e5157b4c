package microstructure

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sawpanic/alphacore/internal/domain/market"
)

func mkTick(price, volume, bid, ask float64) market.Tick {
	return market.Tick{Symbol: "BTC-USD", Price: price, Volume: volume, BidPrice: bid, AskPrice: ask, Timestamp: time.Now()}
}

func TestClassifyTrade_QuoteRuleAboveMidIsBuy(t *testing.T) {
	a := NewAnalyzer(100, 10, 20)
	result := a.ClassifyTrade(101, 5, 99, 101.5)
	assert.Equal(t, SideBuy, result.Side)
	assert.Equal(t, 5.0, result.SignedVolume)
}

func TestClassifyTrade_QuoteRuleBelowMidIsSell(t *testing.T) {
	a := NewAnalyzer(100, 10, 20)
	result := a.ClassifyTrade(99, 5, 99, 101)
	assert.Equal(t, SideSell, result.Side)
	assert.Equal(t, -5.0, result.SignedVolume)
}

func TestClassifyTrade_NoQuotesFallsBackToTickRule(t *testing.T) {
	a := NewAnalyzer(100, 10, 20)
	a.OnTick(mkTick(100, 1, 0, 0))
	result := a.ClassifyTrade(105, 1, 0, 0)
	assert.Equal(t, SideBuy, result.Side)
}

func TestClassifyTrade_NoHistoryAndNoQuotesIsUnknown(t *testing.T) {
	a := NewAnalyzer(100, 10, 20)
	result := a.ClassifyTrade(100, 1, 0, 0)
	assert.Equal(t, SideUnknown, result.Side)
}

func TestTradeSide_StringNames(t *testing.T) {
	assert.Equal(t, "BUY", SideBuy.String())
	assert.Equal(t, "SELL", SideSell.String())
	assert.Equal(t, "UNKNOWN", SideUnknown.String())
}

func TestVPIN_InsufficientBucketsIsZero(t *testing.T) {
	a := NewAnalyzer(1000, 10, 20)
	a.OnTick(mkTick(100, 1, 99, 101))
	metrics := a.VPIN()
	assert.Equal(t, 0.0, metrics.VPIN)
}

func TestVPIN_BoundedInUnitInterval(t *testing.T) {
	a := NewAnalyzer(10, 5, 20)
	for i := 0; i < 200; i++ {
		price := 100.0
		if i%2 == 0 {
			price = 101.0
		}
		a.OnTick(mkTick(price, 3, 99, 102))
	}
	metrics := a.VPIN()
	assert.GreaterOrEqual(t, metrics.VPIN, 0.0)
	assert.LessOrEqual(t, metrics.VPIN, 1.0)
	assert.GreaterOrEqual(t, metrics.Toxicity, 0.0)
	assert.LessOrEqual(t, metrics.Toxicity, 1.0)
	assert.GreaterOrEqual(t, metrics.Imbalance, 0.0)
	assert.LessOrEqual(t, metrics.Imbalance, 1.0)
}

func TestHasbrouckMetrics_InsufficientHistoryIsZero(t *testing.T) {
	a := NewAnalyzer(100, 10, 20)
	a.OnTick(mkTick(100, 1, 99, 101))
	assert.Equal(t, HasbrouckMetrics{}, a.HasbrouckMetrics())
}

func TestHasbrouckMetrics_PermanentAndTransientSumToLambda(t *testing.T) {
	a := NewAnalyzer(1000, 10, 20)
	price := 100.0
	for i := 0; i < 15; i++ {
		price += 1.0
		a.OnTick(mkTick(price, 2, price-1, price+1))
	}
	m := a.HasbrouckMetrics()
	assert.InDelta(t, m.Lambda, m.PermanentImpact+m.TransientImpact, 1e-9)
}

func TestOrderFlowImbalance_NoTradesIsZero(t *testing.T) {
	a := NewAnalyzer(100, 10, 20)
	assert.Equal(t, 0.0, a.OrderFlowImbalance(10))
}

func TestOrderFlowImbalance_Bounds(t *testing.T) {
	a := NewAnalyzer(100, 10, 20)
	for i := 0; i < 20; i++ {
		a.OnTick(mkTick(100+float64(i%3), 1, 99, 101))
	}
	imbalance := a.OrderFlowImbalance(10)
	assert.GreaterOrEqual(t, imbalance, -1.0)
	assert.LessOrEqual(t, imbalance, 1.0)
}

func TestEffectiveSpread_InsufficientHistoryIsZero(t *testing.T) {
	a := NewAnalyzer(100, 10, 20)
	assert.Equal(t, 0.0, a.EffectiveSpread())
}

func TestReset_ClearsAccumulatedState(t *testing.T) {
	a := NewAnalyzer(100, 10, 20)
	for i := 0; i < 20; i++ {
		a.OnTick(mkTick(100+float64(i), 1, 99, 101))
	}
	a.Reset()
	assert.Equal(t, 0.0, a.VPIN().VPIN)
	assert.Equal(t, 0.0, a.OrderFlowImbalance(10))
	assert.Equal(t, 0.0, a.EffectiveSpread())
}

func TestRollSpread_NegativeCovarianceYieldsSpread(t *testing.T) {
	changes := []float64{1, -1, 1, -1, 1, -1}
	assert.Greater(t, RollSpread(changes), 0.0)
}

func TestRollSpread_NonNegativeCovarianceIsZero(t *testing.T) {
	changes := []float64{1, 1, 1, 1}
	assert.Equal(t, 0.0, RollSpread(changes))
}

func TestVWAP_EmptyIsZero(t *testing.T) {
	assert.Equal(t, 0.0, VWAP(nil))
}

func TestVWAP_WeightedByVolume(t *testing.T) {
	ticks := []market.Tick{mkTick(100, 1, 0, 0), mkTick(200, 3, 0, 0)}
	assert.InDelta(t, 175.0, VWAP(ticks), 1e-9)
}

func TestRealizedVolatility_ConstantPriceIsZero(t *testing.T) {
	prices := []float64{100, 100, 100, 100}
	assert.Equal(t, 0.0, RealizedVolatility(prices))
}

func TestRealizedVolatility_NonNegative(t *testing.T) {
	prices := []float64{100, 102, 98, 105, 95, 110}
	assert.GreaterOrEqual(t, RealizedVolatility(prices), 0.0)
}
