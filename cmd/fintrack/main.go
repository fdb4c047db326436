package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/log"

	"github.com/spf13/cobra"
)

var version = "dev"

// app is the state shared by every subcommand once the root pre-run has
// loaded configuration.
type app struct {
	configFile string
	logLevel   string
	logFormat  string

	cfg    *config.Config
	logger *log.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "fintrack",
		Short: "Personal finance tracker",
		Long: `fintrack records income and expense entries, aggregates them by category
and reports savings against an optional budget.

Run "fintrack serve" for the web dashboard, or use the subcommands to manage
the ledger from the terminal.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.init,
	}

	root.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (default: ./fintrack.yaml or $HOME/.config/fintrack/fintrack.yaml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error); overrides LOG_LEVEL")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "log format (text, json, tint); overrides LOG_FORMAT")

	root.AddCommand(
		serveCmd(a),
		addCmd(a),
		budgetCmd(a),
		clearCmd(a),
		reportCmd(a),
		importCmd(a),
		versionCmd(),
	)
	return root
}

func (a *app) init(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == "version" {
		return nil
	}
	if a.logLevel != "" {
		_ = os.Setenv("LOG_LEVEL", a.logLevel)
	}
	if a.logFormat != "" {
		_ = os.Setenv("LOG_FORMAT", a.logFormat)
	}
	cfg, err := cli.LoadConfig(a.configFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = cli.SetupLogger(log.ComponentApp, cfg)
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "fintrack %s\n", version)
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
