// Package telemetry exposes the process's Prometheus metrics:
// ticks processed, sink queue depth, backtest runs, and composer
// recommendation counts.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TicksProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alphacore_ticks_processed_total",
		Help: "Total ticks processed by a symbol's composer pipeline.",
	}, []string{"symbol"})

	TicksDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alphacore_ticks_dropped_total",
		Help: "Total ticks rejected as invalid (non-positive price, NaN/Inf, zero timestamp) before reaching the pipeline.",
	}, []string{"symbol"})

	SinkQueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "alphacore_sink_queue_depth",
		Help: "Current number of line-protocol points queued for write.",
	}, []string{"sink"})

	BacktestRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alphacore_backtest_runs_total",
		Help: "Total backtest runs executed.",
	})

	RecommendationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alphacore_composer_recommendation_total",
		Help: "Count of composer recommendations emitted, by symbol and recommendation.",
	}, []string{"symbol", "recommendation"})
)
