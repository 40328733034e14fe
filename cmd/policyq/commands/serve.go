// Copyright (c) 2026 Tigera, Inc. All rights reserved.

package commands

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tigera/policyq/pkg/engine"
	"github.com/tigera/policyq/pkg/loader"
	"github.com/tigera/policyq/pkg/metrics"
	"github.com/tigera/policyq/pkg/server"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(o *options) *cobra.Command {
	var (
		listen          string
		refreshInterval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the queries over HTTP",
		Long: `Serve can-i, can-connect and who-can queries over HTTP, reloading the snapshot on an interval.
A failed reload keeps answering from the previous snapshot.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("listen") {
				o.cfg.ListenAddr = listen
			}
			if cmd.Flags().Changed("refresh-interval") {
				o.cfg.RefreshInterval = refreshInterval
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return o.serve(ctx)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "Address to listen on, overrides POLICYQ_LISTEN_ADDR")
	cmd.Flags().DurationVar(&refreshInterval, "refresh-interval", 0, "Interval between snapshot reloads, 0 to load once")
	return cmd
}

func (o *options) serve(ctx context.Context) error {
	source, err := o.source()
	if err != nil {
		return err
	}

	collector, err := metrics.NewCollector()
	if err != nil {
		return errors.WithMessage(err, "creating metrics collector")
	}

	holder := engine.NewHolder(o.engineOptions()...)
	refresher := loader.NewRefresher(source, holder, o.cfg.RefreshInterval)
	// Fail fast on a source that cannot be loaded at all.
	if err := refresher.Refresh(ctx); err != nil {
		return errors.WithMessage(err, "loading initial snapshot")
	}

	srv, err := server.New(
		server.WithAddr(o.cfg.ListenAddr),
		server.WithHolder(holder),
		server.WithCollector(collector),
	)
	if err != nil {
		return err
	}

	if o.cfg.RefreshInterval > 0 {
		go func() {
			// The initial load is done, wait a full interval before the first reload.
			select {
			case <-ctx.Done():
				return
			case <-time.After(o.cfg.RefreshInterval):
			}
			refresher.Run(ctx)
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "serving queries")
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutting down server")
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
