package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/fatih/color"

	"github.com/sawpanic/alphacore/internal/composer"
	"github.com/sawpanic/alphacore/internal/config"
	"github.com/sawpanic/alphacore/internal/domain/market"
	"github.com/sawpanic/alphacore/internal/sink"
)

// composerConfigFrom maps the loaded application config's Composer/Regime
// sections onto a composer.Config, falling back to composer.DefaultConfig
// for anything the file left at zero value.
func composerConfigFrom(cfg *config.AppConfig) composer.Config {
	d := composer.DefaultConfig()
	c := cfg.Composer
	r := cfg.Regime

	out := composer.Config{
		CandleIntervalSeconds: c.CandleIntervalSeconds,
		TickWindowSize:        c.TickWindowSize,
		OrderFlowWindow:       c.OrderFlowWindow,
		ToxicityThreshold:     c.ToxicityThreshold,
		VPINBucketSize:        c.VPINBucketSize,
		VPINWindow:            c.VPINWindow,
		ImpactWindow:          c.ImpactWindow,
		RegimeWindow:          r.Window,
		RegimeHurstLag:        r.HurstLag,
		RegimeVolWindow:       r.VolWindow,
		VWAPBandMultiplier:    c.VWAPBandMultiplier,
		VWAPRollingWindow:     c.VWAPRollingWindow,
		Timeframe:             c.Timeframe,
		RegimeChangeWindow:    d.RegimeChangeWindow,
		RegimeChangeThreshold: d.RegimeChangeThreshold,
	}
	if out.CandleIntervalSeconds == 0 {
		out.CandleIntervalSeconds = d.CandleIntervalSeconds
	}
	if out.ToxicityThreshold == 0 {
		out.ToxicityThreshold = d.ToxicityThreshold
	}
	if out.TickWindowSize == 0 {
		out.TickWindowSize = d.TickWindowSize
	}
	if out.OrderFlowWindow == 0 {
		out.OrderFlowWindow = d.OrderFlowWindow
	}
	if out.VPINBucketSize == 0 {
		out.VPINBucketSize = d.VPINBucketSize
	}
	if out.VPINWindow == 0 {
		out.VPINWindow = d.VPINWindow
	}
	if out.ImpactWindow == 0 {
		out.ImpactWindow = d.ImpactWindow
	}
	if out.RegimeWindow == 0 {
		out.RegimeWindow = d.RegimeWindow
	}
	if out.RegimeHurstLag == 0 {
		out.RegimeHurstLag = d.RegimeHurstLag
	}
	if out.RegimeVolWindow == 0 {
		out.RegimeVolWindow = d.RegimeVolWindow
	}
	if out.VWAPBandMultiplier == 0 {
		out.VWAPBandMultiplier = d.VWAPBandMultiplier
	}
	if out.Timeframe == "" {
		out.Timeframe = d.Timeframe
	}
	return out
}

// buildSink constructs a LineProtocolSink if the config names an
// endpoint, otherwise a NoopSink.
func buildSink(cfg *config.AppConfig) sink.Sink {
	if cfg.Sink.URL == "" {
		return sink.NoopSink{}
	}
	sc := sink.DefaultConfig()
	sc.URL = cfg.Sink.URL
	sc.Org = cfg.Sink.Org
	sc.Bucket = cfg.Sink.Bucket
	sc.Token = cfg.Sink.Token
	return sink.New(sc)
}

// printRecord renders a composer.SignalRecord to stdout, highlighting
// the recommendation by severity.
func printRecord(r composer.SignalRecord) {
	rec := r.Recommendation.String()

	var painted string
	switch r.Recommendation {
	case composer.RecommendationStrongBuy, composer.RecommendationBuy:
		painted = color.GreenString(rec)
	case composer.RecommendationStrongSell, composer.RecommendationSell:
		painted = color.RedString(rec)
	case composer.RecommendationWaitToxic, composer.RecommendationWaitSqueeze:
		painted = color.YellowString(rec)
	default:
		painted = rec
	}

	fmt.Printf("%-10s %s  score=%7.4f  vpin=%5.3f  toxicity=%5.3f  regime=%s  %s\n",
		r.Symbol, r.Timestamp.Format(time.RFC3339), r.CombinedScore,
		r.VPIN.VPIN, r.VPIN.Toxicity, r.Regime.Regime.String(), painted)
}

// loadTicksCSV reads a tick series from a CSV file with columns
// symbol,price,volume,unix_nanos. Used by the replay and backtest
// commands to drive a deterministic, file-backed feed.
func loadTicksCSV(path string) ([]market.Tick, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open tick file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read tick file: %w", err)
	}

	ticks := make([]market.Tick, 0, len(records))
	for i, rec := range records {
		if len(rec) < 4 {
			return nil, fmt.Errorf("line %d: expected 4 columns, got %d", i+1, len(rec))
		}
		price, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid price: %w", i+1, err)
		}
		volume, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid volume: %w", i+1, err)
		}
		nanos, err := strconv.ParseInt(rec[3], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid timestamp: %w", i+1, err)
		}
		ticks = append(ticks, market.Tick{
			Symbol:    rec[0],
			Price:     price,
			Volume:    volume,
			Timestamp: time.Unix(0, nanos),
		})
	}
	return ticks, nil
}
