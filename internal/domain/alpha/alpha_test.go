package alpha

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sawpanic/alphacore/internal/domain/market"
)

func tickAt(price float64) market.Tick {
	return market.Tick{Symbol: "BTC-USD", Price: price, Volume: 1, Timestamp: time.Now()}
}

func candleAt(close, high, low, volume float64) market.Candle {
	return market.Candle{Symbol: "BTC-USD", Open: close, High: high, Low: low, Close: close, Volume: volume}
}

func TestTickEngine_OnTick_NotReadyBeforeWindowFills(t *testing.T) {
	e := NewTickEngine(5, "1m")
	_, ok := e.OnTick(tickAt(100))
	assert.False(t, ok)
}

func TestTickEngine_OnTick_MomentumReflectsWindowReturn(t *testing.T) {
	e := NewTickEngine(3, "1m")
	e.OnTick(tickAt(100))
	e.OnTick(tickAt(101))
	sig, ok := e.OnTick(tickAt(110))
	assert.True(t, ok)
	assert.InDelta(t, 0.10, sig.Momentum, 1e-9)
	assert.Equal(t, "TICK_1m", sig.Timeframe)
}

func TestTickEngine_OnTick_SlidingWindowMatchesFreshEngineOverSameTail(t *testing.T) {
	sliding := NewTickEngine(3, "1m")
	prices := []float64{100, 101, 102, 103, 104, 105}
	var last TickSignal
	for _, p := range prices {
		last, _ = sliding.OnTick(tickAt(p))
	}

	fresh := NewTickEngine(3, "1m")
	var want TickSignal
	for _, p := range prices[len(prices)-3:] {
		want, _ = fresh.OnTick(tickAt(p))
	}

	assert.InDelta(t, want.Momentum, last.Momentum, 1e-9)
	assert.InDelta(t, want.MeanRevZ, last.MeanRevZ, 1e-6)
}

func TestTickEngine_OnTick_ZeroVarianceYieldsZeroMeanRevZ(t *testing.T) {
	e := NewTickEngine(3, "1m")
	e.OnTick(tickAt(100))
	e.OnTick(tickAt(100))
	sig, ok := e.OnTick(tickAt(100))
	assert.True(t, ok)
	assert.Equal(t, 0.0, sig.MeanRevZ)
}

func TestCandleClassification_StringNames(t *testing.T) {
	assert.Equal(t, "NONE", ClassificationNone.String())
	assert.Equal(t, "BUY", ClassificationBuy.String())
	assert.Equal(t, "SELL", ClassificationSell.String())
}

func TestCandleEngine_OnCandle_NotReadyBeforeBollingerPeriod(t *testing.T) {
	e := NewCandleEngine("1h")
	for i := 0; i < bollingerPeriod-1; i++ {
		_, ok := e.OnCandle(candleAt(100, 101, 99, 10))
		assert.False(t, ok)
	}
}

func TestCandleEngine_OnCandle_ClassifiesBuyOnOversoldBreakdown(t *testing.T) {
	e := NewCandleEngine("1h")
	for i := 0; i < bollingerPeriod; i++ {
		e.OnCandle(candleAt(100, 100.5, 99.5, 10))
	}
	sig, ok := e.OnCandle(candleAt(70, 71, 69, 1))
	assert.True(t, ok)
	assert.Equal(t, "CANDLE_1h", sig.Timeframe)
	assert.Equal(t, ClassificationBuy, sig.Classification)
}

func TestCandleEngine_OnCandle_ClassifiesSellOnOverboughtBreakout(t *testing.T) {
	e := NewCandleEngine("1h")
	for i := 0; i < bollingerPeriod; i++ {
		e.OnCandle(candleAt(100, 100.5, 99.5, 1))
	}
	sig, ok := e.OnCandle(candleAt(150, 151, 149, 30))
	assert.True(t, ok)
	assert.Equal(t, ClassificationSell, sig.Classification)
}
