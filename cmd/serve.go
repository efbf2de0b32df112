package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rifqisp97-lab/technician-guardian/internal/config"
	"github.com/rifqisp97-lab/technician-guardian/internal/exporter"
	"github.com/rifqisp97-lab/technician-guardian/internal/logging"
	"github.com/rifqisp97-lab/technician-guardian/internal/store"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Poll the sheet and serve Prometheus metrics",
	Long: `Serve downloads the published sheet every sheet.poll_interval, normalizes it
and exposes the result on /metrics. Each good snapshot is cached in the store
file; after a restart or a failed download the cached snapshot keeps being
served.

Endpoints:
  /metrics        Prometheus metrics
  /healthz        200 once a snapshot is available, 503 before
  /api/snapshot   the current snapshot as JSON`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.ValidateSheetConfig(cfg); err != nil {
			return err
		}
		loc, err := cfg.Location()
		if err != nil {
			return err
		}

		db, err := store.Open(cfg.Store.Path, cfg.Store.Retain)
		if err != nil {
			return err
		}
		defer db.Close()

		exp := exporter.New(newFetcher(cfg.Sheet), db, exporter.Options{
			ListenAddress:    cfg.Server.ListenAddress,
			ReadTimeout:      cfg.Server.ReadTimeout,
			WriteTimeout:     cfg.Server.WriteTimeout,
			Location:         loc,
			Keyed:            cfg.Parse.Keyed,
			NotComplyMinutes: cfg.Report.NotComplyMinutes,
		})
		if err := exp.Warm(); err != nil {
			logging.Warn("failed to load cached snapshot", "path", cfg.Store.Path, "error", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// db is closed only after the collect loop has returned
		collecting := make(chan struct{})
		go func() {
			defer close(collecting)
			exp.Run(ctx, cfg.Sheet.PollInterval)
		}()
		defer func() {
			stop()
			<-collecting
		}()

		errCh := make(chan error, 1)
		go func() {
			logging.Info("serving metrics",
				"address", cfg.Server.ListenAddress,
				"sheet", logging.RedactURL(cfg.Sheet.URL),
				"poll_interval", cfg.Sheet.PollInterval)
			if err := exp.Serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return err
			}
		case <-ctx.Done():
			logging.Info("shutting down")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return exp.Shutdown(shutdownCtx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
