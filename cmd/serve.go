// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"

	"toxic-scan/internal/extract"
	"toxic-scan/internal/logging"
	"toxic-scan/internal/store"
	"toxic-scan/internal/watch"
	"toxic-scan/internal/web"

	"github.com/spf13/cobra"
)

func newServeCmd(g *globalOptions) *cobra.Command {
	var address string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API.

When the store is enabled, analyses and daily statistics are persisted,
custom patterns can be managed under /api/v1/patterns, and old analyses
are pruned on store.prune_schedule. With catalog.watch set, edits to the
catalog file are picked up without a restart.

Examples:
  toxic-scan serve
  toxic-scan serve --listen :9090 --config /etc/toxic-scan/config.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			a, err := newApp(ctx, g, storeIfEnabled, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()

			cfg := a.cfg
			if address != "" {
				cfg.Server.Address = address
			}
			mode := cfg.Server.Mode
			if cfg.Defaults.Debug {
				mode = "debug"
			}

			reloader := &watch.Reloader{Loader: a.loader, Detector: a.detector, Metrics: a.metrics, Log: a.log}

			if a.store != nil && cfg.Store.RetentionDays > 0 {
				scheduler, err := store.NewScheduler(a.store, cfg.Store.RetentionDays, cfg.Store.PruneSchedule, a.log)
				if err != nil {
					return err
				}
				if err := scheduler.Start(ctx); err != nil {
					return err
				}
				defer scheduler.Stop()
			}

			if cfg.Catalog.Watch {
				watcher, err := watch.New(reloader, cfg.Catalog.Debounce, a.log)
				if err != nil {
					return err
				}
				done := make(chan struct{})
				go func() {
					defer close(done)
					if err := watcher.Run(ctx); err != nil {
						a.log.Error("catalog watcher stopped", logging.Error(err))
					}
				}()
				defer func() {
					cancel()
					<-done
				}()
			}

			opts := web.Options{
				Detector:        a.detector,
				Extractor:       extract.New(cfg.Limits.MaxFileSize),
				Gatherer:        a.registry,
				Logger:          a.log,
				MaxTextLength:   cfg.Limits.MaxTextLength,
				Address:         cfg.Server.Address,
				Mode:            mode,
				ReadTimeout:     cfg.Server.ReadTimeout,
				WriteTimeout:    cfg.Server.WriteTimeout,
				ShutdownTimeout: cfg.Server.ShutdownTimeout,
			}
			if a.store != nil {
				opts.Store = a.store
				opts.Reloader = reloader
			}
			srv, err := web.New(opts)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "toxic-scan listening on %s (store: %t, watch: %t)\n",
				cfg.Server.Address, a.store != nil, cfg.Catalog.Watch)
			return srv.Run(ctx)
		},
	}
	cmd.Flags().StringVarP(&address, "listen", "l", "", "override the listen address")
	return cmd
}
