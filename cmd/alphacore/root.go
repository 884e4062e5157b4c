package main

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func Execute(ctx context.Context) error {
	var configPath string

	root := &cobra.Command{Use: "alphacore", Short: "Streaming alpha-signal analytics engine"}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")

	root.AddCommand(replayCmd(ctx, &configPath))
	root.AddCommand(binanceCmd(ctx, &configPath))
	root.AddCommand(backtestCmd(ctx, &configPath))
	root.AddCommand(serveCmd(ctx, &configPath))

	log.Info().Msg("alphacore starting")
	return root.ExecuteContext(ctx)
}
