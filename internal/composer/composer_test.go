package composer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/alphacore/internal/domain/indicators"
	"github.com/sawpanic/alphacore/internal/domain/market"
	"github.com/sawpanic/alphacore/internal/sink"
)

type recordingSink struct {
	ticks     int
	candles   int
	lastPrice float64
}

func (r *recordingSink) WriteAlphaSignal(string, float64, float64, float64, float64, string) {}
func (r *recordingSink) WriteMicrostructure(string, float64, float64, float64, float64, int64) {}
func (r *recordingSink) WriteOrderFlow(string, float64, float64, float64, float64, int64)      {}
func (r *recordingSink) WriteRegime(string, string, float64, float64, float64, int64)          {}
func (r *recordingSink) WriteVWAP(string, float64, float64, int64)                             {}
func (r *recordingSink) WriteCandle(string, float64, float64, float64, float64, float64, int64) {
	r.candles++
}
func (r *recordingSink) WriteTick(symbol string, price, volume float64, tsNanos int64) {
	r.ticks++
	r.lastPrice = price
}
func (r *recordingSink) Flush() {}

var _ sink.Sink = (*recordingSink)(nil)

func tickSeries(prices []float64, spacing time.Duration) []market.Tick {
	ticks := make([]market.Tick, len(prices))
	base := time.Now()
	for i, p := range prices {
		ticks[i] = market.Tick{
			Symbol:    "BTC-USD",
			Price:     p,
			Volume:    1,
			BidPrice:  p - 0.5,
			AskPrice:  p + 0.5,
			Timestamp: base.Add(time.Duration(i) * spacing),
		}
	}
	return ticks
}

func TestComposer_OnTick_EmitsOneTickWritePerTick(t *testing.T) {
	rs := &recordingSink{}
	c := New("BTC-USD", rs, DefaultConfig())

	ticks := tickSeries([]float64{100, 101, 99, 102}, time.Second)
	for _, tk := range ticks {
		c.OnTick(tk)
	}

	assert.Equal(t, len(ticks), rs.ticks)
	assert.Equal(t, 102.0, rs.lastPrice)
}

func TestComposer_OnTick_CandleSignalNilBeforeFirstCandleCloses(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CandleIntervalSeconds = 60
	c := New("BTC-USD", sink.NoopSink{}, cfg)

	record := c.OnTick(market.Tick{Symbol: "BTC-USD", Price: 100, Volume: 1, Timestamp: time.Now()})
	assert.Nil(t, record.CandleSignal)
}

func TestComposer_OnTick_CandleClosesAfterIntervalElapses(t *testing.T) {
	rs := &recordingSink{}
	cfg := DefaultConfig()
	cfg.CandleIntervalSeconds = 5
	c := New("BTC-USD", rs, cfg)

	ticks := tickSeries([]float64{100, 101, 102}, 10*time.Second)
	for _, tk := range ticks {
		c.OnTick(tk)
	}

	assert.Greater(t, rs.candles, 0)
}

func TestComposer_OnTick_RecordCarriesSymbolAndTimestamp(t *testing.T) {
	c := New("ETH-USD", sink.NoopSink{}, DefaultConfig())
	now := time.Now()
	record := c.OnTick(market.Tick{Symbol: "ETH-USD", Price: 2000, Volume: 1, Timestamp: now})

	assert.Equal(t, "ETH-USD", record.Symbol)
	assert.Equal(t, now, record.Timestamp)
}

func TestComposer_OnTick_CombinedScoreDrivesRecommendation(t *testing.T) {
	c := New("BTC-USD", sink.NoopSink{}, DefaultConfig())

	var last SignalRecord
	for i, tk := range tickSeries([]float64{
		100, 101, 102, 103, 104, 105, 106, 107, 108, 109,
		110, 111, 112, 113, 114, 115, 116, 117, 118, 119,
	}, time.Second) {
		last = c.OnTick(tk)
		_ = i
	}

	require.NotEqual(t, "", last.Recommendation.String())
	assert.Equal(t, resolveRecommendation(last.Bollinger, 119, last.CombinedScore, last.VPIN.Toxicity), last.Recommendation)
}

func TestRecommendation_StringNames(t *testing.T) {
	assert.Equal(t, "NEUTRAL", RecommendationNeutral.String())
	assert.Equal(t, "BUY", RecommendationBuy.String())
	assert.Equal(t, "SELL", RecommendationSell.String())
	assert.Equal(t, "STRONG_BUY", RecommendationStrongBuy.String())
	assert.Equal(t, "STRONG_SELL", RecommendationStrongSell.String())
	assert.Equal(t, "WAIT_TOXIC", RecommendationWaitToxic.String())
	assert.Equal(t, "WAIT_SQUEEZE", RecommendationWaitSqueeze.String())
}

func TestResolveRecommendation_ToxicOverridesDirectionalSignal(t *testing.T) {
	bb := indicators.Bollinger{Mean: 100, Upper: 110, Lower: 90}
	assert.Equal(t, RecommendationWaitToxic, resolveRecommendation(bb, 100, 0.02, 0.9))
}

func TestResolveRecommendation_StrongBuyRequiresPriceUnderLowerBandAndLowPercentB(t *testing.T) {
	bb := indicators.Bollinger{Mean: 100, Upper: 110, Lower: 90}
	assert.Equal(t, RecommendationStrongBuy, resolveRecommendation(bb, 89, 0.02, 0.1))
}

func TestResolveRecommendation_StrongSellRequiresPriceOverUpperBandAndHighPercentB(t *testing.T) {
	bb := indicators.Bollinger{Mean: 100, Upper: 110, Lower: 90}
	assert.Equal(t, RecommendationStrongSell, resolveRecommendation(bb, 111, -0.02, 0.1))
}

func TestResolveRecommendation_BBBuyWithoutCombinedScoreConfirmationIsNeutral(t *testing.T) {
	bb := indicators.Bollinger{Mean: 100, Upper: 110, Lower: 90}
	assert.Equal(t, RecommendationNeutral, resolveRecommendation(bb, 89, 0.005, 0.1))
}

func TestResolveRecommendation_SqueezeWaitsRegardlessOfFiveBarMomentum(t *testing.T) {
	bb := indicators.Bollinger{Mean: 100, Upper: 102, Lower: 99}
	assert.Equal(t, RecommendationWaitSqueeze, resolveRecommendation(bb, 100, 0, 0.1))
}

func TestPriceReturns_ComputesSimpleReturnsOverWindow(t *testing.T) {
	returns := priceReturns([]float64{100, 110, 99}, 0)
	require.Len(t, returns, 2)
	assert.InDelta(t, 0.10, returns[0], 1e-9)
	assert.InDelta(t, -0.10, returns[1], 1e-9)
}

func TestPriceReturns_FewerThanTwoClosesReturnsNil(t *testing.T) {
	assert.Nil(t, priceReturns([]float64{100}, 0))
	assert.Nil(t, priceReturns(nil, 0))
}

func TestPriceReturns_LimitsToTrailingWindow(t *testing.T) {
	closes := []float64{100, 200, 100, 101, 102}
	returns := priceReturns(closes, 2)
	require.Len(t, returns, 1)
	assert.InDelta(t, (102.0-101.0)/101.0, returns[0], 1e-9)
}

func TestComposer_OnTick_AnchorsVWAPAtUTCDayBoundary(t *testing.T) {
	c := New("BTC-USD", sink.NoopSink{}, DefaultConfig())

	day1 := time.Date(2026, 8, 2, 23, 59, 0, 0, time.UTC)
	day2 := time.Date(2026, 8, 3, 0, 0, 1, 0, time.UTC)

	r1 := c.OnTick(market.Tick{Symbol: "BTC-USD", Price: 100, Volume: 1, Timestamp: day1})
	assert.False(t, r1.VWAP.Anchored)

	r2 := c.OnTick(market.Tick{Symbol: "BTC-USD", Price: 101, Volume: 1, Timestamp: day2})
	assert.True(t, r2.VWAP.Anchored)
}

func TestComposer_OnTick_DropsInvalidTickWithoutTouchingState(t *testing.T) {
	rs := &recordingSink{}
	c := New("BTC-USD", rs, DefaultConfig())

	c.OnTick(market.Tick{Symbol: "BTC-USD", Price: 100, Volume: 1, Timestamp: time.Now()})
	require.Equal(t, 1, rs.ticks)

	record := c.OnTick(market.Tick{Symbol: "BTC-USD", Price: -1, Volume: 1, Timestamp: time.Now()})

	assert.Equal(t, 1, rs.ticks, "invalid tick must not reach the sink")
	assert.Equal(t, 100.0, rs.lastPrice, "invalid tick must not update last price")
	assert.Equal(t, SignalRecord{Symbol: "BTC-USD", Timestamp: record.Timestamp}, record)
}
