package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/alphacore/internal/domain/market"
)

func seriesTicks(prices []float64) []market.Tick {
	ticks := make([]market.Tick, len(prices))
	base := time.Now()
	for i, p := range prices {
		ticks[i] = market.Tick{Symbol: "BTC-USD", Price: p, Volume: 1, Timestamp: base.Add(time.Duration(i) * time.Second)}
	}
	return ticks
}

func TestRun_EmptyTicksReturnsNoTrades(t *testing.T) {
	bt := New(DefaultConfig())
	result := bt.Run("BTC-USD", nil, func(ticks []market.Tick, i int) int { return 0 })
	assert.Equal(t, ErrorKindNoTrades, result.Error)
}

func TestRun_FlatSignalNeverTrades(t *testing.T) {
	bt := New(DefaultConfig())
	ticks := seriesTicks([]float64{100, 101, 99, 102})
	result := bt.Run("BTC-USD", ticks, func(ticks []market.Tick, i int) int { return 0 })
	assert.Equal(t, ErrorKindNoTrades, result.Error)
	assert.Empty(t, result.Trades)
}

func TestRun_LongEntryThenExitOnSignal(t *testing.T) {
	bt := New(DefaultConfig())
	ticks := seriesTicks([]float64{100, 105, 110, 108})

	signalFn := func(ticks []market.Tick, i int) int {
		switch i {
		case 0:
			return 1
		case 2:
			return -1
		default:
			return 0
		}
	}

	result := bt.Run("BTC-USD", ticks, signalFn)
	require.Equal(t, ErrorKindNone, result.Error)
	require.Len(t, result.Trades, 1)

	trade := result.Trades[0]
	assert.False(t, trade.IsShort)
	assert.Equal(t, ExitSignal, trade.ExitReason)
	assert.Greater(t, trade.ExitPrice, trade.EntryPrice)
	assert.Greater(t, trade.PnL, 0.0)
	assert.Len(t, result.EquityCurve, len(ticks))
}

func TestRun_OpenPositionAtEndClosesAsEndOfBacktest(t *testing.T) {
	bt := New(DefaultConfig())
	ticks := seriesTicks([]float64{100, 101, 102, 103})

	signalFn := func(ticks []market.Tick, i int) int {
		if i == 0 {
			return 1
		}
		return 0
	}

	result := bt.Run("BTC-USD", ticks, signalFn)
	require.Equal(t, ErrorKindNone, result.Error)
	require.Len(t, result.Trades, 1)
	assert.Equal(t, ExitEndOfBacktest, result.Trades[0].ExitReason)
}

func TestRun_ShortSellingDisabledByDefaultIgnoresSellSignal(t *testing.T) {
	bt := New(DefaultConfig())
	ticks := seriesTicks([]float64{100, 95, 90})

	signalFn := func(ticks []market.Tick, i int) int { return -1 }

	result := bt.Run("BTC-USD", ticks, signalFn)
	assert.Equal(t, ErrorKindNoTrades, result.Error)
}

func TestRun_ShortSellingWhenEnabledOpensShortPosition(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableShortSelling = true
	bt := New(cfg)

	ticks := seriesTicks([]float64{100, 95, 90, 105})
	signalFn := func(ticks []market.Tick, i int) int {
		switch i {
		case 0:
			return -1
		case 2:
			return 1
		default:
			return 0
		}
	}

	result := bt.Run("BTC-USD", ticks, signalFn)
	require.Equal(t, ErrorKindNone, result.Error)
	require.NotEmpty(t, result.Trades)
	assert.True(t, result.Trades[0].IsShort)
}

func TestRun_BuySignalFlipsOpenShortDirectlyToLong(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableShortSelling = true
	bt := New(cfg)

	ticks := seriesTicks([]float64{100, 95, 90, 105})
	signalFn := func(ticks []market.Tick, i int) int {
		switch i {
		case 0:
			return -1
		case 2:
			return 1
		default:
			return 0
		}
	}

	result := bt.Run("BTC-USD", ticks, signalFn)
	require.Equal(t, ErrorKindNone, result.Error)
	require.Len(t, result.Trades, 2, "the +1 signal must close the short and open a new long, not be dropped")

	short := result.Trades[0]
	assert.True(t, short.IsShort)
	assert.Equal(t, ExitSignal, short.ExitReason)
	assert.InDelta(t, 90.0, short.ExitPrice, 0.5)

	long := result.Trades[1]
	assert.False(t, long.IsShort)
	assert.InDelta(t, 90.0, long.EntryPrice, 0.5)
	assert.Equal(t, ExitEndOfBacktest, long.ExitReason)
}

func TestRun_SlippageAndCommissionReduceRoundTripPnL(t *testing.T) {
	noCost := Config{InitialCapital: 100000, CommissionRate: 0, SlippageBps: 0, MaxPositionSize: 0.25}
	withCost := Config{InitialCapital: 100000, CommissionRate: 0.01, SlippageBps: 50, MaxPositionSize: 0.25}

	ticks := seriesTicks([]float64{100, 105, 110, 108})
	signalFn := func(ticks []market.Tick, i int) int {
		switch i {
		case 0:
			return 1
		case 2:
			return -1
		default:
			return 0
		}
	}

	cheapResult := New(noCost).Run("BTC-USD", ticks, signalFn)
	costlyResult := New(withCost).Run("BTC-USD", ticks, signalFn)

	require.Len(t, cheapResult.Trades, 1)
	require.Len(t, costlyResult.Trades, 1)
	assert.Greater(t, cheapResult.Trades[0].PnL, costlyResult.Trades[0].PnL)
}

func TestWalkForward_ProducesOneWindowPerStep(t *testing.T) {
	bt := New(DefaultConfig())
	ticks := seriesTicks([]float64{100, 101, 102, 103, 104, 105, 106, 107, 108, 109, 110, 111})

	windows := bt.WalkForward("BTC-USD", ticks, func(ticks []market.Tick, i int) int { return 0 }, 4, 2)
	assert.NotEmpty(t, windows)
}

func TestWalkForward_ShorterThanWindowYieldsNone(t *testing.T) {
	bt := New(DefaultConfig())
	ticks := seriesTicks([]float64{100, 101, 102})
	windows := bt.WalkForward("BTC-USD", ticks, func(ticks []market.Tick, i int) int { return 0 }, 4, 4)
	assert.Empty(t, windows)
}

func TestMonteCarlo_EmptyTradesReturnsZeroValue(t *testing.T) {
	bt := New(DefaultConfig())
	result := bt.MonteCarlo(100000, nil, 100, 1)
	assert.Equal(t, MonteCarloResult{}, result)
}

func TestMonteCarlo_IsDeterministicForFixedSeed(t *testing.T) {
	bt := New(DefaultConfig())
	trades := []Trade{
		{PnL: 100},
		{PnL: -50},
		{PnL: 200},
		{PnL: -30},
	}

	r1 := bt.MonteCarlo(10000, trades, 50, 42)
	r2 := bt.MonteCarlo(10000, trades, 50, 42)

	assert.Equal(t, r1.SimulatedReturns, r2.SimulatedReturns)
	assert.Equal(t, r1.MeanReturn, r2.MeanReturn)
}

func TestMonteCarlo_SimulatedReturnsOneResultPerSimulation(t *testing.T) {
	bt := New(DefaultConfig())
	trades := []Trade{{PnL: 10}, {PnL: -5}, {PnL: 15}}
	result := bt.MonteCarlo(10000, trades, 25, 7)
	assert.Len(t, result.SimulatedReturns, 25)
	assert.GreaterOrEqual(t, result.CVaR95, result.VaR95)
}
