// Package aggregator builds fixed-interval OHLCV candles from a tick
// stream.
package aggregator

import (
	"time"

	"github.com/sawpanic/alphacore/internal/domain/market"
)

// OnCandleClosed is invoked with the just-finalized candle.
type OnCandleClosed func(market.Candle)

// Aggregator accumulates ticks into a single open candle per interval
// and emits it once a tick's age from the interval's start reaches
// intervalSeconds.
//
// The emitted candle does not include the triggering tick: the trigger
// tick opens the next candle instead, with volume reset to zero. This
// matches the published aggregator behavior exactly rather than the
// more "natural" include-the-trigger-tick alternative.
type Aggregator struct {
	interval time.Duration
	onClosed OnCandleClosed

	current *market.Candle
}

// New creates an Aggregator with the given interval and close callback.
func New(intervalSeconds float64, onClosed OnCandleClosed) *Aggregator {
	return &Aggregator{
		interval: time.Duration(intervalSeconds * float64(time.Second)),
		onClosed: onClosed,
	}
}

// OnTick folds a tick into the current candle, emitting and replacing
// it when the interval has elapsed.
func (a *Aggregator) OnTick(t market.Tick) {
	if a.current == nil {
		c := market.NewCandle(t.Symbol, t)
		a.current = &c
		return
	}

	if t.Timestamp.Sub(a.current.OpenTime) >= a.interval {
		closed := *a.current
		if a.onClosed != nil {
			a.onClosed(closed)
		}
		c := market.NewCandle(t.Symbol, t)
		c.Volume = 0
		a.current = &c
		return
	}

	a.current.Update(t)
}

// Current returns the in-progress candle and whether one is open.
func (a *Aggregator) Current() (market.Candle, bool) {
	if a.current == nil {
		return market.Candle{}, false
	}
	return *a.current, true
}

// Reset clears the in-progress candle.
func (a *Aggregator) Reset() {
	a.current = nil
}
