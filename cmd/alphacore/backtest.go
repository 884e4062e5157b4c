package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sawpanic/alphacore/internal/backtest"
	"github.com/sawpanic/alphacore/internal/composer"
	"github.com/sawpanic/alphacore/internal/config"
	"github.com/sawpanic/alphacore/internal/domain/market"
	applog "github.com/sawpanic/alphacore/internal/log"
	"github.com/sawpanic/alphacore/internal/sink"
)

// recommendationToSignal maps a composer recommendation to the
// backtester's {-1,0,+1} signal contract: BUY-family goes long,
// SELL-family goes short/flat, everything else holds.
func recommendationToSignal(r composer.Recommendation) int {
	switch r {
	case composer.RecommendationBuy, composer.RecommendationStrongBuy:
		return 1
	case composer.RecommendationSell, composer.RecommendationStrongSell:
		return -1
	default:
		return 0
	}
}

func backtestCmd(ctx context.Context, configPath *string) *cobra.Command {
	var (
		symbol  string
		tickCSV string
	)

	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Replay a CSV tick file through the composer and score the resulting signal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			stages := applog.NewStepLogger("backtest", []string{"load", "replay", "report"})

			stages.StartStep("load")
			ticks, err := loadTicksCSV(tickCSV)
			if err != nil {
				stages.Fail(err.Error())
				return err
			}
			if len(ticks) == 0 {
				err := fmt.Errorf("no ticks loaded from %s", tickCSV)
				stages.Fail(err.Error())
				return err
			}

			stages.StartStep("replay")
			c := composer.New(symbol, sink.NoopSink{}, composerConfigFrom(cfg))
			processed := -1

			tickProgress := applog.NewProgressIndicator("ticks replayed", len(ticks), applog.DefaultProgressConfig())

			signalFn := func(ticks []market.Tick, i int) int {
				if i > processed {
					record := c.OnTick(ticks[i])
					processed = i
					tickProgress.Update(i + 1)
					return recommendationToSignal(record.Recommendation)
				}
				return 0
			}

			bt := backtest.New(backtest.DefaultConfig())
			result := bt.Run(symbol, ticks, signalFn)
			tickProgress.Finish()

			stages.StartStep("report")
			defer stages.Finish()

			if result.Error == backtest.ErrorKindNoTrades {
				fmt.Println("no trades generated")
				return nil
			}

			fmt.Printf("trades=%d  total_return=%.2f%%  final_capital=%.2f\n",
				result.NumTrades, result.TotalReturn, result.FinalCapital)
			fmt.Printf("sharpe=%.3f  sortino=%.3f  max_drawdown=%.2f%%  win_rate=%.1f%%\n",
				result.Metrics.SharpeRatio, result.Metrics.SortinoRatio,
				result.Metrics.MaxDrawdownPercent, result.Metrics.WinRate*100)

			if result.TotalReturn >= 0 {
				color.Green("net positive over %d trades", result.NumTrades)
			} else {
				color.Red("net negative over %d trades", result.NumTrades)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&symbol, "symbol", "BTCUSDT", "symbol label for the replayed ticks")
	cmd.Flags().StringVar(&tickCSV, "ticks", "", "path to a CSV tick file (symbol,price,volume,unix_nanos)")
	cmd.MarkFlagRequired("ticks")
	return cmd
}
