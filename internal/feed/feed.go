// Package feed specifies the tick-source contract the composer
// consumes: anything that can push MarketTicks into a callback and be
// stopped. internal/feed/binance is the one networked implementation;
// Replay below is the in-memory implementation used by the replay
// command and by tests.
package feed

import (
	"github.com/sawpanic/alphacore/internal/domain/market"
)

// OnTick is called once per trade print, in arrival order, for the
// symbol(s) the feed was configured with.
type OnTick func(market.Tick)

// Feed is any tick source that can be started against a callback and
// stopped. Implementations run their own I/O loop on a background
// goroutine; Stop must be safe to call once and must not block
// indefinitely.
type Feed interface {
	Start(onTick OnTick) error
	Stop()
}

// Replay drives a fixed, in-memory tick vector through onTick
// synchronously, in order, with no goroutines or I/O. Used by the
// replay command and by tests that want deterministic, synchronous
// delivery; the backtester reads its tick slice directly.
type Replay struct {
	ticks []market.Tick
}

// NewReplay creates a Replay feed over the given tick vector.
func NewReplay(ticks []market.Tick) *Replay {
	return &Replay{ticks: ticks}
}

// Start replays every tick through onTick and returns once the vector
// is exhausted; it never runs in the background.
func (r *Replay) Start(onTick OnTick) error {
	for _, t := range r.ticks {
		onTick(t)
	}
	return nil
}

// Stop is a no-op: Start has already returned by the time a caller
// could invoke it.
func (r *Replay) Stop() {}
