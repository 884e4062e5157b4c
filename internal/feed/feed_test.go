package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/alphacore/internal/domain/market"
)

func TestReplay_Start_DeliversEveryTickInOrder(t *testing.T) {
	ticks := []market.Tick{
		{Symbol: "BTC-USD", Price: 100, Timestamp: time.Now()},
		{Symbol: "BTC-USD", Price: 101, Timestamp: time.Now()},
		{Symbol: "BTC-USD", Price: 102, Timestamp: time.Now()},
	}
	r := NewReplay(ticks)

	var seen []float64
	err := r.Start(func(t market.Tick) { seen = append(seen, t.Price) })

	require.NoError(t, err)
	assert.Equal(t, []float64{100, 101, 102}, seen)
}

func TestReplay_Start_EmptyVectorCallsNothing(t *testing.T) {
	r := NewReplay(nil)
	called := false
	err := r.Start(func(t market.Tick) { called = true })
	require.NoError(t, err)
	assert.False(t, called)
}

func TestReplay_Stop_IsNoop(t *testing.T) {
	r := NewReplay(nil)
	assert.NotPanics(t, func() { r.Stop() })
}

var _ Feed = (*Replay)(nil)
