package main

import (
	"context"
	"time"

	"fintrack/internal/cli"
	apphttp "fintrack/internal/http"
	"fintrack/internal/metrics"
	"fintrack/internal/services"
	"fintrack/internal/worker"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

func serveCmd(a *app) *cobra.Command {
	var (
		port        string
		syncReports bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web dashboard",
		Long: `Serve the HTMX dashboard, the JSON report API, health probes and metrics.

With --sync-reports and a configured spreadsheet the report tab is rewritten
every SYNC_INTERVAL from this process, which is useful when no AMQP worker runs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if port != "" {
				a.cfg.Port = port
			}
			return a.serve(cmd.Context(), syncReports)
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "listen port; overrides PORT")
	cmd.Flags().BoolVar(&syncReports, "sync-reports", false, "periodically write the report to Google Sheets")
	return cmd
}

func (a *app) serve(ctx context.Context, syncReports bool) error {
	m := metrics.New()
	l, err := cli.OpenLedger(ctx, a.cfg, a.logger, m)
	if err != nil {
		return err
	}
	defer func() {
		if err := l.Close(); err != nil {
			a.logger.Warn("Closing backend failed", "error", err)
		}
	}()

	opts := []apphttp.Option{
		apphttp.WithLogger(a.logger),
		apphttp.WithMetrics(m),
		apphttp.WithCacheTTL(a.cfg.CacheTTL),
	}
	if p, ok := l.Backend.Store.(interface{ Ping(context.Context) error }); ok {
		opts = append(opts, apphttp.WithReadinessCheck("storage", p.Ping))
	}
	d := services.NewDispatcher(l.Service, services.WithDispatchMetrics(m))
	srv := apphttp.NewServer(":"+a.cfg.Port, d, opts...)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.ListenAndServe)
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if syncReports {
		if l.Backend.Reports == nil {
			a.logger.Warn("Report sync requested but no spreadsheet is configured")
		} else {
			proc := worker.NewProcessor(
				worker.NewReportWorker(l.Backend.Store, l.Backend.Reports, m),
				worker.ProcessorConfig{Interval: a.cfg.SyncInterval, SyncOnStart: true},
			)
			if err := proc.Start(gctx); err != nil {
				return err
			}
			g.Go(func() error {
				<-gctx.Done()
				stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return proc.Stop(stopCtx)
			})
		}
	}

	a.logger.Info("Starting fintrack server", "port", a.cfg.Port, "backend", a.cfg.DataBackend)
	if err := g.Wait(); err != nil {
		return err
	}
	a.logger.Info("Server stopped gracefully")
	return nil
}
