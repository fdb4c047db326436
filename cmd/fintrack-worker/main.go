package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fintrack/internal/backend"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/log"
	"fintrack/internal/metrics"
	"fintrack/internal/worker"

	"golang.org/x/sync/errgroup"
)

func main() {
	configFile := flag.String("config", "", "config file")
	flag.Parse()

	cfg, err := cli.LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(log.ComponentWorker, cfg)
	logger.Info("Starting fintrack-worker")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Worker failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	if cfg.DataBackend == config.BackendMemory {
		return errors.New("the worker needs a persistent backend (sqlite or sheets)")
	}
	if !cfg.AMQPEnabled() {
		return errors.New("AMQP_URL is required for the worker")
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	res, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Warn("Closing backend failed", "error", err)
		}
	}()
	if res.Reports == nil {
		return errors.New("GOOGLE_SPREADSHEET_ID is required for the worker")
	}
	if res.Publisher == nil {
		return errors.New("could not connect to AMQP")
	}

	m := metrics.New()
	rw := worker.NewReportWorker(res.Store, res.Reports, m)
	proc := worker.NewProcessor(rw, worker.ProcessorConfig{Interval: cfg.SyncInterval, SyncOnStart: true})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := res.Publisher.ConsumeLedgerChanged(gctx, rw.HandleLedgerChanged)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	if err := proc.Start(gctx); err != nil {
		return err
	}
	g.Go(func() error {
		<-gctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return proc.Stop(stopCtx)
	})

	logger.Info("Worker running",
		"backend", cfg.DataBackend,
		"queue", cfg.AMQPQueue,
		"sync_interval", cfg.SyncInterval)
	return g.Wait()
}
