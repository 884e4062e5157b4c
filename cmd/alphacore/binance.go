package main

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/alphacore/internal/cache"
	"github.com/sawpanic/alphacore/internal/composer"
	"github.com/sawpanic/alphacore/internal/config"
	"github.com/sawpanic/alphacore/internal/domain/market"
	"github.com/sawpanic/alphacore/internal/feed/binance"
)

func binanceCmd(ctx context.Context, configPath *string) *cobra.Command {
	var (
		symbol   string
		backfill int
	)

	cmd := &cobra.Command{
		Use:   "binance",
		Short: "Stream live aggTrade prints from Binance through the analyzer pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			s := buildSink(cfg)
			defer s.Flush()

			var signalCache *cache.SignalCache
			if cfg.Cache.Addr != "" {
				signalCache = cache.New(cache.Config{
					Addr:       cfg.Cache.Addr,
					DB:         cfg.Cache.DB,
					DefaultTTL: time.Duration(cfg.Cache.DefaultTTLSeconds) * time.Second,
				})
				defer signalCache.Close()
			}

			c := composer.New(symbol, s, composerConfigFrom(cfg))
			f := binance.New(binance.DefaultConfig(symbol))

			onTick := func(t market.Tick) {
				record := c.OnTick(t)
				printRecord(record)
				if signalCache != nil {
					_ = signalCache.Set(cmd.Context(), record)
				}
			}

			if backfill > 0 {
				log.Info().Str("symbol", symbol).Int("limit", backfill).Msg("backfilling recent trades over REST")
				history, err := f.FetchHistoricalTrades(cmd.Context(), backfill)
				if err != nil {
					log.Warn().Err(err).Msg("historical backfill failed, continuing with live stream only")
				}
				for _, t := range history {
					onTick(t)
				}
			}

			log.Info().Str("symbol", symbol).Msg("connecting to binance stream")
			if err := f.Start(onTick); err != nil {
				return err
			}

			<-cmd.Context().Done()
			f.Stop()
			return nil
		},
	}
	cmd.Flags().StringVar(&symbol, "symbol", "btcusdt", "lowercase binance symbol, e.g. btcusdt")
	cmd.Flags().IntVar(&backfill, "backfill", 0, "replay this many recent trades over REST before streaming live (max 1000)")
	return cmd
}
