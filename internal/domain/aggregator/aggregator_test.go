package aggregator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/alphacore/internal/domain/market"
)

func aggTick(price, volume float64, at time.Time) market.Tick {
	return market.Tick{Symbol: "BTC-USD", Price: price, Volume: volume, Timestamp: at}
}

func TestAggregator_Current_NoneBeforeFirstTick(t *testing.T) {
	a := New(60, nil)
	_, ok := a.Current()
	assert.False(t, ok)
}

func TestAggregator_OnTick_OpensCandleOnFirstTick(t *testing.T) {
	a := New(60, nil)
	now := time.Now()
	a.OnTick(aggTick(100, 5, now))

	c, ok := a.Current()
	require.True(t, ok)
	assert.Equal(t, 100.0, c.Open)
	assert.Equal(t, 5.0, c.Volume)
}

func TestAggregator_OnTick_AccumulatesWithinInterval(t *testing.T) {
	a := New(60, nil)
	now := time.Now()
	a.OnTick(aggTick(100, 1, now))
	a.OnTick(aggTick(105, 1, now.Add(10*time.Second)))
	a.OnTick(aggTick(95, 1, now.Add(20*time.Second)))

	c, ok := a.Current()
	require.True(t, ok)
	assert.Equal(t, 105.0, c.High)
	assert.Equal(t, 95.0, c.Low)
	assert.Equal(t, 3.0, c.Volume)
}

func TestAggregator_OnTick_EmitsOnIntervalElapsedExcludingTrigger(t *testing.T) {
	var closed []market.Candle
	a := New(10, func(c market.Candle) { closed = append(closed, c) })

	now := time.Now()
	a.OnTick(aggTick(100, 1, now))
	a.OnTick(aggTick(101, 1, now.Add(5*time.Second)))
	a.OnTick(aggTick(200, 7, now.Add(15*time.Second)))

	require.Len(t, closed, 1)
	assert.Equal(t, 2.0, closed[0].Volume)
	assert.Equal(t, 101.0, closed[0].Close)

	c, ok := a.Current()
	require.True(t, ok)
	assert.Equal(t, 200.0, c.Open)
	assert.Equal(t, 0.0, c.Volume)
}

func TestAggregator_Reset_ClearsCurrentCandle(t *testing.T) {
	a := New(60, nil)
	a.OnTick(aggTick(100, 1, time.Now()))
	a.Reset()
	_, ok := a.Current()
	assert.False(t, ok)
}
