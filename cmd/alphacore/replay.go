package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sawpanic/alphacore/internal/composer"
	"github.com/sawpanic/alphacore/internal/config"
	"github.com/sawpanic/alphacore/internal/domain/market"
	"github.com/sawpanic/alphacore/internal/feed"
)

func replayCmd(ctx context.Context, configPath *string) *cobra.Command {
	var (
		symbol  string
		tickCSV string
	)

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay a CSV tick file through the analyzer pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			ticks, err := loadTicksCSV(tickCSV)
			if err != nil {
				return err
			}
			if len(ticks) == 0 {
				return fmt.Errorf("no ticks loaded from %s", tickCSV)
			}

			s := buildSink(cfg)
			defer s.Flush()

			c := composer.New(symbol, s, composerConfigFrom(cfg))
			rf := feed.NewReplay(ticks)
			return rf.Start(func(t market.Tick) {
				printRecord(c.OnTick(t))
			})
		},
	}
	cmd.Flags().StringVar(&symbol, "symbol", "BTCUSDT", "symbol label for the replayed ticks")
	cmd.Flags().StringVar(&tickCSV, "ticks", "", "path to a CSV tick file (symbol,price,volume,unix_nanos)")
	cmd.MarkFlagRequired("ticks")
	return cmd
}
