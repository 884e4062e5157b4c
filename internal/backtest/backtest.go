// Package backtest replays a tick series through a trading signal
// function and a long/flat/short position model, tracking slippage,
// commission, and an equity curve, then derives summary statistics.
// It also supports walk-forward (sliding train/test window) and Monte
// Carlo (bootstrap-resampled trade order) evaluation of the same
// signal function.
package backtest

import (
	"math"
	"math/rand"

	"github.com/sawpanic/alphacore/internal/domain/market"
	"github.com/sawpanic/alphacore/internal/performance"
	"github.com/sawpanic/alphacore/internal/telemetry"
)

// SignalFunc inspects the tick history up to and including ticks[i]
// and returns the desired position direction for this tick: +1 go (or
// stay) long, -1 go (or stay) short, 0 hold.
type SignalFunc func(ticks []market.Tick, i int) int

// Config holds the cost model and risk limits applied during a run.
type Config struct {
	InitialCapital      float64
	CommissionRate      float64 // fraction of notional, e.g. 0.001 = 10bps
	SlippageBps         float64
	MaxPositionSize     float64 // fraction of capital, e.g. 0.25
	EnableShortSelling  bool
	EnableMarginTrading bool
	MarginRequirement   float64 // fraction of notional required as margin
}

// DefaultConfig returns a conservative long-only configuration with no
// margin.
func DefaultConfig() Config {
	return Config{
		InitialCapital:      100000.0,
		CommissionRate:      0.001,
		SlippageBps:         5.0,
		MaxPositionSize:     0.25,
		EnableShortSelling:  false,
		EnableMarginTrading: false,
		MarginRequirement:   1.0,
	}
}

// ExitReason records why a trade was closed.
type ExitReason string

const (
	ExitSignal        ExitReason = "SIGNAL"
	ExitEndOfBacktest ExitReason = "END_OF_BACKTEST"
)

// Trade records one completed round trip.
type Trade struct {
	Symbol     string
	EntryPrice float64
	ExitPrice  float64
	Quantity   float64
	EntryTime  market.Tick
	ExitTime   market.Tick
	PnL        float64
	Commission float64
	IsShort    bool
	ExitReason ExitReason
}

// ErrorKind distinguishes a degenerate result (e.g. empty trade
// history) from a normally-computed one, so callers can tell "zero
// performance" from "no evaluation happened".
type ErrorKind int

const (
	ErrorKindNone ErrorKind = iota
	ErrorKindNoTrades
)

// Result is the full output of a backtest run: trade list, equity
// curve, and derived performance statistics.
type Result struct {
	Trades       []Trade
	EquityCurve  []float64
	Returns      []float64
	Metrics      performance.Metrics
	TotalReturn  float64
	FinalCapital float64
	NumTrades    int
	Error        ErrorKind
}

// Backtester drives a tick series through a SignalFunc under a fixed
// Config, with no state retained between Run calls.
type Backtester struct {
	config Config
}

// New creates a Backtester with the given cost/risk configuration.
func New(config Config) *Backtester {
	return &Backtester{config: config}
}

// applySlippage adjusts price by SlippageBps against the direction of
// the trade: buys pay up, sells receive less.
func (b *Backtester) applySlippage(price float64, isBuy bool) float64 {
	adj := b.config.SlippageBps / 10000.0
	if isBuy {
		return price * (1.0 + adj)
	}
	return price * (1.0 - adj)
}

func (b *Backtester) calculateCommission(notional float64) float64 {
	return notional * b.config.CommissionRate
}

func (b *Backtester) canEnterPosition(cash, price, quantity float64) bool {
	notional := price * quantity
	if b.config.EnableMarginTrading {
		return notional*b.config.MarginRequirement <= cash
	}
	return notional <= cash
}

func (b *Backtester) positionSize(cash, price float64) float64 {
	if price <= 0 {
		return 0.0
	}
	return (cash * b.config.MaxPositionSize) / price
}

// Run replays ticks through signalFn, holding at most one position
// (long or, if enabled, short) at a time. On signal=+1 with position
// <= 0 it enters long (closing any short first); on signal=-1 with
// position >= 0 it closes any long and, if short selling is enabled,
// opens a short. signal=0 holds whatever position (if any) is open.
// Slippage and commission are applied to every fill, and the portfolio
// is marked to market every tick to build the equity curve. An empty
// tick slice or a run that produces no completed trades returns a
// zero-valued Result with Error set to ErrorKindNoTrades.
func (b *Backtester) Run(symbol string, ticks []market.Tick, signalFn SignalFunc) Result {
	telemetry.BacktestRuns.Inc()

	if len(ticks) == 0 {
		return Result{Error: ErrorKindNoTrades}
	}

	portfolio := market.NewPortfolio(b.config.InitialCapital)
	var trades []Trade
	var entryPrice float64
	var entryTick market.Tick
	isShort := false
	inPosition := false

	equityCurve := make([]float64, 0, len(ticks))

	closePosition := func(t market.Tick, reason ExitReason) {
		pos := portfolio.Position(symbol)
		fillPrice := b.applySlippage(t.Price, isShort)
		commission := b.calculateCommission(entryPrice*math.Abs(pos.Quantity)) +
			b.calculateCommission(fillPrice*math.Abs(pos.Quantity))
		portfolio.ClosePosition(symbol, fillPrice, t.Timestamp)

		pnl := (fillPrice - entryPrice) * pos.Quantity
		trades = append(trades, Trade{
			Symbol:     symbol,
			EntryPrice: entryPrice,
			ExitPrice:  fillPrice,
			Quantity:   pos.Quantity,
			EntryTime:  entryTick,
			ExitTime:   t,
			PnL:        pnl - commission,
			Commission: commission,
			IsShort:    isShort,
			ExitReason: reason,
		})
		inPosition = false
	}

	for i, t := range ticks {
		portfolio.UpdatePrice(symbol, t.Price)
		signal := signalFn(ticks, i)

		switch {
		case signal > 0:
			if inPosition && isShort {
				closePosition(t, ExitSignal)
			}
			if !inPosition {
				qty := b.positionSize(portfolio.Metrics().Cash, t.Price)
				if qty > 0 && b.canEnterPosition(portfolio.Metrics().Cash, t.Price, qty) {
					fillPrice := b.applySlippage(t.Price, true)
					portfolio.AddPosition(symbol, qty, fillPrice, t.Timestamp)
					entryPrice = fillPrice
					entryTick = t
					isShort = false
					inPosition = true
				}
			}

		case signal < 0:
			if inPosition && !isShort {
				closePosition(t, ExitSignal)
			}
			if !inPosition && b.config.EnableShortSelling {
				qty := b.positionSize(portfolio.Metrics().Cash, t.Price)
				if qty > 0 && b.canEnterPosition(portfolio.Metrics().Cash, t.Price, qty) {
					fillPrice := b.applySlippage(t.Price, false)
					portfolio.AddPosition(symbol, -qty, fillPrice, t.Timestamp)
					entryPrice = fillPrice
					entryTick = t
					isShort = true
					inPosition = true
				}
			}
		}

		equityCurve = append(equityCurve, portfolio.Metrics().TotalValue)
	}

	if inPosition {
		closePosition(ticks[len(ticks)-1], ExitEndOfBacktest)
		equityCurve[len(equityCurve)-1] = portfolio.Metrics().TotalValue
	}

	if len(trades) == 0 {
		return Result{Error: ErrorKindNoTrades}
	}

	return computeResult(b.config.InitialCapital, trades, equityCurve)
}

func computeResult(initialCapital float64, trades []Trade, equityCurve []float64) Result {
	returns := make([]float64, len(trades))
	for i, tr := range trades {
		returns[i] = tr.PnL / initialCapital
	}

	metrics := performance.ComputeAll(returns, equityCurve, 0.0)
	finalCapital := initialCapital
	for _, tr := range trades {
		finalCapital += tr.PnL
	}

	return Result{
		Trades:       trades,
		EquityCurve:  equityCurve,
		Returns:      returns,
		Metrics:      metrics,
		TotalReturn:  (finalCapital - initialCapital) / initialCapital * 100.0,
		FinalCapital: finalCapital,
		NumTrades:    len(trades),
		Error:        ErrorKindNone,
	}
}

// WalkForwardWindow is one train/test split of a walk-forward
// evaluation.
type WalkForwardWindow struct {
	TrainResult Result
	TestResult  Result
}

// WalkForward slides a trainSize+testSize window across ticks in
// testSize-sized steps, running signalFn independently against the
// train and test slices of each window. It returns one WalkForwardWindow
// per step; a tick series shorter than a single window yields none.
func (b *Backtester) WalkForward(symbol string, ticks []market.Tick, signalFn SignalFunc, trainSize, testSize int) []WalkForwardWindow {
	var windows []WalkForwardWindow
	windowSize := trainSize + testSize

	for start := 0; start+windowSize <= len(ticks); start += testSize {
		trainTicks := ticks[start : start+trainSize]
		testTicks := ticks[start+trainSize : start+windowSize]

		trainResult := b.Run(symbol, trainTicks, signalFn)
		testResult := b.Run(symbol, testTicks, signalFn)

		windows = append(windows, WalkForwardWindow{TrainResult: trainResult, TestResult: testResult})
	}

	return windows
}

// MonteCarloResult summarizes a bootstrap resampling evaluation: every
// simulated equity curve's final total return, plus distribution
// statistics over those returns.
type MonteCarloResult struct {
	SimulatedReturns []float64
	MeanReturn       float64
	StdDevReturn     float64
	VaR95            float64
	CVaR95           float64
}

// MonteCarlo runs numSimulations bootstrap resamples of completed
// trades' PnL order (shuffling the sequence in which trades are
// applied to the equity curve, not their individual outcomes) and
// reports the distribution of resulting total returns. seed fixes the
// PRNG so results are reproducible.
func (b *Backtester) MonteCarlo(initialCapital float64, trades []Trade, numSimulations int, seed int64) MonteCarloResult {
	if len(trades) == 0 || numSimulations <= 0 {
		return MonteCarloResult{}
	}

	rng := rand.New(rand.NewSource(seed))
	simReturns := make([]float64, numSimulations)

	indices := make([]int, len(trades))
	for i := range indices {
		indices[i] = i
	}

	for sim := 0; sim < numSimulations; sim++ {
		rng.Shuffle(len(indices), func(i, j int) { indices[i], indices[j] = indices[j], indices[i] })

		capital := initialCapital
		for _, idx := range indices {
			capital += trades[idx].PnL
		}
		simReturns[sim] = (capital - initialCapital) / initialCapital * 100.0
	}

	mean := 0.0
	for _, r := range simReturns {
		mean += r
	}
	mean /= float64(len(simReturns))

	variance := 0.0
	for _, r := range simReturns {
		d := r - mean
		variance += d * d
	}
	stddev := 0.0
	if len(simReturns) > 1 {
		stddev = math.Sqrt(variance / float64(len(simReturns)-1))
	}

	fractionalReturns := make([]float64, len(simReturns))
	for i, r := range simReturns {
		fractionalReturns[i] = r / 100.0
	}

	return MonteCarloResult{
		SimulatedReturns: simReturns,
		MeanReturn:       mean,
		StdDevReturn:     stddev,
		VaR95:            performance.VaR(fractionalReturns, 0.95) * 100.0,
		CVaR95:           performance.CVaR(fractionalReturns, 0.95) * 100.0,
	}
}
