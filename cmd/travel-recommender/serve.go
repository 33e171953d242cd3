// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/travel-recommender/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve recommendations over HTTP",
	Long: `Serve exposes POST /api/v1/recommendations, GET /api/v1/health and
/metrics. It stops gracefully on SIGINT or SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := mustConfig()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		app, err := buildPipeline(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer app.Close()

		checks := map[string]server.Check{
			"store": func(ctx context.Context) error {
				_, err := app.store.Count(ctx)
				return err
			},
			"index": func(ctx context.Context) error {
				n, err := app.index.Len(ctx)
				if err == nil && n == 0 {
					return fmt.Errorf("index is empty")
				}
				return err
			},
		}
		return server.New(cfg.Server, app.controller, checks, logger).ListenAndServe(ctx)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default :8080)")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))

	rootCmd.AddCommand(serveCmd)
}
