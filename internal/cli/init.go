// Package cli provides the initialization shared by cmd/fintrack and
// cmd/fintrack-worker.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fintrack/internal/backend"
	"fintrack/internal/config"
	"fintrack/internal/log"
	"fintrack/internal/metrics"
	"fintrack/internal/services"

	"github.com/joho/godotenv"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadConfig reads .env, the optional config file and the environment, then
// validates the result.
func LoadConfig(configFile string) (*config.Config, error) {
	LoadEnvFile()
	v := config.NewViper()
	if err := config.ReadFile(v, configFile); err != nil {
		return nil, err
	}
	cfg := config.LoadFrom(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetupLogger installs the application logger for cfg as the slog default.
func SetupLogger(component string, cfg *config.Config) *log.Logger {
	return log.Setup(component, cfg.LogLevel, cfg.LogFormat)
}

// Ledger bundles an opened ledger with the backend resources behind it.
type Ledger struct {
	Service *services.LedgerService
	Backend *backend.BackendResult
}

// Close releases the backend. The ledger itself holds no resources beyond it.
func (l *Ledger) Close() error {
	if l.Backend == nil || l.Backend.Cleanup == nil {
		return nil
	}
	return l.Backend.Cleanup()
}

// OpenLedger builds the configured backend and loads the ledger from it.
// The AMQP publisher is attached when one is configured and reachable.
func OpenLedger(ctx context.Context, cfg *config.Config, logger *log.Logger, m *metrics.Metrics) (*Ledger, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("create backend: %w", err)
	}

	opts := []services.Option{services.WithLogger(logger), services.WithMetrics(m)}
	if res.Publisher != nil {
		opts = append(opts, services.WithPublisher(res.Publisher))
	}
	svc := services.NewLedgerService(res.Store, opts...)
	if err := svc.Open(ctx); err != nil {
		if res.Cleanup != nil {
			_ = res.Cleanup()
		}
		return nil, err
	}
	logger.Info("Backend ready", "backend", bcfg.Type.String(), "amqp", res.Publisher != nil, "reports", res.Reports != nil)
	return &Ledger{Service: svc, Backend: res}, nil
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. After
// the signal, cleanup runs with the given timeout.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
		case <-ctx.Done():
		}
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
			return
		}
		logger.Info("Shutdown complete")
	}()

	return ctx, done
}
