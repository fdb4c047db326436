package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"fintrack/internal/cli"
	"fintrack/internal/core"
	"fintrack/internal/importer"
	"fintrack/internal/metrics"
	"fintrack/internal/presentation"
	"fintrack/internal/services"

	"github.com/spf13/cobra"
)

// withDispatcher opens the configured ledger for the duration of fn.
func (a *app) withDispatcher(ctx context.Context, fn func(d *services.Dispatcher) error) error {
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
	return fn(services.NewDispatcher(l.Service, services.WithDispatchMetrics(m)))
}

// printOutcome shows the mutation result and the refreshed report.
func printOutcome(w io.Writer, msg string, out services.Outcome) {
	if out.Dashboard.Warning != "" {
		fmt.Fprintln(w, presentation.FormatWarning(out.Dashboard.Warning))
	} else {
		fmt.Fprintln(w, presentation.FormatSuccess(msg))
	}
	fmt.Fprintln(w, presentation.RenderTerminal(out.Dashboard))
}

func addCmd(a *app) *cobra.Command {
	var raw core.RawEntry
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an income or expense entry",
		Example: `  fintrack add --type income --category Salary --amount 1000 --date 2025-01-31
  fintrack add -t expense -c Rent -a 400`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withDispatcher(cmd.Context(), func(d *services.Dispatcher) error {
				out, err := d.Dispatch(cmd.Context(), services.Command{Action: services.ActionAddEntry, Entry: raw})
				if err != nil {
					return err
				}
				printOutcome(cmd.OutOrStdout(), fmt.Sprintf("Added %s %s %s", out.Entry.Type, out.Entry.Category, core.FormatAmount(out.Entry.Amount)), out)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&raw.Type, "type", "t", "", "entry type (income or expense)")
	cmd.Flags().StringVarP(&raw.Category, "category", "c", "", "category name")
	cmd.Flags().StringVarP(&raw.Amount, "amount", "a", "", "amount, e.g. 12.50")
	cmd.Flags().StringVarP(&raw.Date, "date", "d", time.Now().Format(core.DateLayout), "date (YYYY-MM-DD)")
	return cmd
}

func budgetCmd(a *app) *cobra.Command {
	var raw core.RawBudget
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Set the income and expense budgets",
		Long:  "Set both budget thresholds. An omitted value means unset (0).",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withDispatcher(cmd.Context(), func(d *services.Dispatcher) error {
				out, err := d.Dispatch(cmd.Context(), services.Command{Action: services.ActionSetBudget, Budget: raw})
				if err != nil {
					return err
				}
				printOutcome(cmd.OutOrStdout(), "Budget saved", out)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&raw.Income, "income", "", "income budget")
	cmd.Flags().StringVar(&raw.Expense, "expense", "", "expense budget")
	return cmd
}

func clearCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every entry and reset the budget",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return fmt.Errorf("refusing to clear the ledger without --yes")
			}
			return a.withDispatcher(cmd.Context(), func(d *services.Dispatcher) error {
				out, err := d.Dispatch(cmd.Context(), services.Command{Action: services.ActionClear})
				if err != nil {
					return err
				}
				printOutcome(cmd.OutOrStdout(), "All entries cleared", out)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm clearing all data")
	return cmd
}

func reportCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show totals per category, savings and budget status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withDispatcher(cmd.Context(), func(d *services.Dispatcher) error {
				out, err := d.Dispatch(cmd.Context(), services.Command{Action: services.ActionRefresh})
				if err != nil {
					return err
				}
				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(out.Dashboard)
				}
				fmt.Fprintln(cmd.OutOrStdout(), presentation.RenderTerminal(out.Dashboard))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the dashboard as JSON")
	return cmd
}

func importCmd(a *app) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "import [files...]",
		Short: "Import transactions from OFX/QFX statements",
		Long: `Import bank or credit card transactions from OFX/QFX files.

Credits become income and debits become expenses. Transactions already in the
ledger are skipped, so importing the same statement twice is harmless.`,
		Example: `  fintrack import ~/Downloads/checking_jan.qfx
  fintrack import --dry-run ~/Downloads/*.ofx`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := expandFiles(args)
			if err != nil {
				return err
			}
			parser := importer.NewOFXParser(a.logger)
			var parsed []core.Entry
			for _, f := range files {
				res, err := parseFile(cmd.Context(), parser, f)
				if err != nil {
					return err
				}
				parsed = append(parsed, res.Entries...)
			}

			return a.withDispatcher(cmd.Context(), func(d *services.Dispatcher) error {
				fresh, dups := importer.FilterNew(d.Ledger().View().Entries, parsed)
				w := cmd.OutOrStdout()
				if dryRun {
					fmt.Fprintf(w, "Would import %d entries (%d already present)\n", len(fresh), dups)
					for _, e := range fresh {
						fmt.Fprintf(w, "  %s  %-7s  %-30s %10s\n", e.Date, e.Type, e.Category, core.FormatAmount(e.Amount))
					}
					return nil
				}
				out, err := d.Dispatch(cmd.Context(), services.Command{Action: services.ActionImport, Entries: fresh})
				if err != nil {
					return err
				}
				printOutcome(w, fmt.Sprintf("Imported %d entries (%d already present)", len(fresh), dups), out)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "preview without saving")
	return cmd
}

func expandFiles(patterns []string) ([]string, error) {
	var files []string
	for _, p := range patterns {
		matches, err := filepath.Glob(p)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", p, err)
		}
		if len(matches) == 0 {
			if _, err := os.Stat(p); err != nil {
				return nil, fmt.Errorf("no files match %s", p)
			}
			matches = []string{p}
		}
		files = append(files, matches...)
	}
	return files, nil
}

func parseFile(ctx context.Context, p *importer.OFXParser, path string) (importer.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return importer.Result{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	res, err := p.Parse(ctx, f)
	if err != nil {
		return importer.Result{}, fmt.Errorf("%s: %w", path, err)
	}
	return res, nil
}
