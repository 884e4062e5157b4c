package orderflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestImbalance_OFI_FalseBeforeAnyTrade(t *testing.T) {
	im := NewImbalance(10)
	_, ok := im.OFI()
	assert.False(t, ok)
}

func TestImbalance_OFI_PressureSumsToOne(t *testing.T) {
	im := NewImbalance(10)
	im.OnTrade(100, 5, true, 1)
	im.OnTrade(100, 3, false, 2)

	result, ok := im.OFI()
	assert.True(t, ok)
	assert.InDelta(t, 1.0, result.BidPressure+result.AskPressure, 1e-9)
}

func TestImbalance_OFI_AllBuysYieldsFullBidPressure(t *testing.T) {
	im := NewImbalance(10)
	im.OnTrade(100, 5, true, 1)
	result, ok := im.OFI()
	assert.True(t, ok)
	assert.Equal(t, 1.0, result.BidPressure)
	assert.Equal(t, 0.0, result.AskPressure)
	assert.Equal(t, 1.0, result.Imbalance)
}

func TestImbalance_IsExtreme(t *testing.T) {
	im := NewImbalance(10)
	im.OnTrade(100, 10, true, 1)
	im.OnTrade(100, 1, false, 2)
	assert.True(t, im.IsExtreme(0.5))
	assert.False(t, im.IsExtreme(0.99))
}

func TestPressure_BalancedIsNeutral(t *testing.T) {
	p := NewPressure(10)
	p.OnTrade(true, 5)
	p.OnTrade(false, 5)
	result := p.Pressure()
	assert.Equal(t, 0.0, result.ImbalanceRatio)
	assert.Equal(t, 0.0, result.Dominant)
}

func TestPressure_BidDominant(t *testing.T) {
	p := NewPressure(10)
	p.OnTrade(true, 10)
	p.OnTrade(false, 1)
	result := p.Pressure()
	assert.Equal(t, 1.0, result.Dominant)
}

func TestPressure_WindowEvictsOldestPerSide(t *testing.T) {
	p := NewPressure(2)
	p.OnTrade(true, 1)
	p.OnTrade(true, 2)
	p.OnTrade(true, 3)
	result := p.Pressure()
	assert.Equal(t, 5.0, result.BidVolume)
}

func TestAggression_EmptyIsZero(t *testing.T) {
	a := NewAggression(10)
	assert.Equal(t, 0.0, a.Aggression())
}

func TestAggression_AboveAverageBuyIsPositive(t *testing.T) {
	a := NewAggression(10)
	a.OnTrade(20, 10, true)
	assert.Greater(t, a.Aggression(), 0.0)
}

func TestAggression_AboveAverageSellIsNegative(t *testing.T) {
	a := NewAggression(10)
	a.OnTrade(20, 10, false)
	assert.Less(t, a.Aggression(), 0.0)
}

func TestVolumeDelta_CumulativeAndRecent(t *testing.T) {
	var v VolumeDelta
	v.OnTrade(5, true)
	v.OnTrade(3, false)
	assert.Equal(t, 2.0, v.Cumulative())
	assert.Equal(t, 2.0, v.Recent())
}

func TestVolumeDelta_Reset(t *testing.T) {
	var v VolumeDelta
	v.OnTrade(5, true)
	v.Reset()
	assert.Equal(t, 0.0, v.Cumulative())
	assert.Equal(t, 0.0, v.Recent())
}

func TestToxicity_ScoreWithinUnitInterval(t *testing.T) {
	tox := NewToxicity(0.5)
	tox.Update(0.8, -0.6, 0.9)
	score := tox.Score()
	assert.GreaterOrEqual(t, score.Toxicity, 0.0)
	assert.LessOrEqual(t, score.Toxicity, 1.0)
}

func TestToxicity_IsToxicAboveThreshold(t *testing.T) {
	tox := NewToxicity(0.1)
	tox.Update(1.0, 1.0, 1.0)
	assert.True(t, tox.Score().IsToxic)

	calm := NewToxicity(0.99)
	calm.Update(0.0, 0.0, 0.0)
	assert.False(t, calm.Score().IsToxic)
}

func TestFlowDirection_StringNames(t *testing.T) {
	assert.Equal(t, "NEUTRAL", FlowNeutral.String())
	assert.Equal(t, "BUY_DOMINANT", FlowBuyDominant.String())
	assert.Equal(t, "SELL_DOMINANT", FlowSellDominant.String())
}

func TestEngine_OnTick_OkOnFirstTrade(t *testing.T) {
	e := NewEngine(10, 0.5)
	_, ok := e.OnTick(100, 0, true, 0)
	assert.True(t, ok)
}

func TestEngine_OnTick_BuyDominantSignalIsFlaggedBuyDominant(t *testing.T) {
	e := NewEngine(10, 0.9)
	var sig Signal
	for i := 0; i < 10; i++ {
		sig, _ = e.OnTick(100, 10, true, int64(i))
	}
	assert.Equal(t, FlowBuyDominant, sig.FlowDirection)
	assert.GreaterOrEqual(t, sig.Toxicity, 0.0)
	assert.LessOrEqual(t, sig.Toxicity, 1.0)
}

func TestEngine_Reset_ClearsDeltaAndAverageVolume(t *testing.T) {
	e := NewEngine(10, 0.5)
	e.OnTick(100, 10, true, 1)
	e.Reset()
	assert.Equal(t, 0.0, e.delta.Cumulative())
	assert.Equal(t, int64(0), e.tickCount)
}
