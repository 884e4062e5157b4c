package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTicksProcessed_CountsPerSymbol(t *testing.T) {
	TicksProcessed.WithLabelValues("TEST-SYMBOL").Add(0) // ensure series exists
	before := testutil.ToFloat64(TicksProcessed.WithLabelValues("TEST-SYMBOL"))

	TicksProcessed.WithLabelValues("TEST-SYMBOL").Inc()
	TicksProcessed.WithLabelValues("TEST-SYMBOL").Inc()

	after := testutil.ToFloat64(TicksProcessed.WithLabelValues("TEST-SYMBOL"))
	assert.Equal(t, before+2, after)
}

func TestTicksDropped_CountsPerSymbol(t *testing.T) {
	before := testutil.ToFloat64(TicksDropped.WithLabelValues("TEST-SYMBOL"))
	TicksDropped.WithLabelValues("TEST-SYMBOL").Inc()
	after := testutil.ToFloat64(TicksDropped.WithLabelValues("TEST-SYMBOL"))
	assert.Equal(t, before+1, after)
}

func TestSinkQueueDepth_SetsGaugePerSink(t *testing.T) {
	SinkQueueDepth.WithLabelValues("test-sink").Set(7)
	assert.Equal(t, float64(7), testutil.ToFloat64(SinkQueueDepth.WithLabelValues("test-sink")))
}

func TestRecommendationTotal_CountsBySymbolAndRecommendation(t *testing.T) {
	before := testutil.ToFloat64(RecommendationTotal.WithLabelValues("TEST-SYMBOL", "BUY"))
	RecommendationTotal.WithLabelValues("TEST-SYMBOL", "BUY").Inc()
	after := testutil.ToFloat64(RecommendationTotal.WithLabelValues("TEST-SYMBOL", "BUY"))
	assert.Equal(t, before+1, after)
}
