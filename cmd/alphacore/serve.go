package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/alphacore/internal/cache"
	"github.com/sawpanic/alphacore/internal/config"
	"github.com/sawpanic/alphacore/internal/httpapi"
)

func serveCmd(ctx context.Context, configPath *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the /healthz and /signals/{symbol} HTTP API over the Redis signal cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			cacheCfg := cache.Config{
				Addr:       cfg.Cache.Addr,
				DB:         cfg.Cache.DB,
				DefaultTTL: time.Duration(cfg.Cache.DefaultTTLSeconds) * time.Second,
			}
			if cacheCfg.Addr == "" {
				cacheCfg.Addr = "localhost:6379"
			}
			signalCache := cache.New(cacheCfg)
			defer signalCache.Close()

			server := httpapi.New(signalCache)

			log.Info().Str("addr", addr).Msg("serving http api")
			return http.ListenAndServe(addr, server.Handler())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "HTTP listen address")
	return cmd
}
