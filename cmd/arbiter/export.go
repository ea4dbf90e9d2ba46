package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"rxsentinel/arbiter/pkg/cli"
	"rxsentinel/arbiter/pkg/config"
	"rxsentinel/arbiter/pkg/ledger"
	"rxsentinel/arbiter/pkg/ledger/export"
)

var exportFlags struct {
	caseID string
	kind   string
	from   string
	to     string
	after  uint64
	limit  int
	format string
	output string
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export audit ledger entries",
	Long: `Export audit ledger entries as JSON or CSV.

Entries stream out in chain order, one page at a time, so exporting a
large ledger never loads it whole. Filters narrow the export to one
case, one entry kind, or a time window.

Examples:
  # Export the full ledger as JSON
  arbiter export --output audit.json

  # Export one case as CSV
  arbiter export --case-id CASE-2001 --format csv --output case.csv

  # Export a time window to stdout
  arbiter export --from 2026-03-01T00:00:00Z --to 2026-04-01T00:00:00Z

  # Export only overrides
  arbiter export --kind override`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportFlags.caseID, "case-id", "", "filter by case ID")
	exportCmd.Flags().StringVar(&exportFlags.kind, "kind", "", "filter by entry kind (evaluation-run, decision, override, evaluator-failure)")
	exportCmd.Flags().StringVar(&exportFlags.from, "from", "", "inclusive lower bound on recorded_at (RFC3339)")
	exportCmd.Flags().StringVar(&exportFlags.to, "to", "", "inclusive upper bound on recorded_at (RFC3339)")
	exportCmd.Flags().Uint64Var(&exportFlags.after, "after", 0, "only entries after this sequence")
	exportCmd.Flags().IntVar(&exportFlags.limit, "limit", 0, "stop after this many entries (0 = all)")
	exportCmd.Flags().StringVar(&exportFlags.format, "format", string(cli.FormatJSON), "output format: json, csv")
	exportCmd.Flags().StringVarP(&exportFlags.output, "output", "o", "", "output file (default: stdout)")
}

// streamExporter is satisfied by both ledger exporters.
type streamExporter interface {
	ExportStream(ctx context.Context, entries <-chan ledger.Entry, w io.Writer) error
}

func runExport(cmd *cobra.Command, args []string) error {
	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()

	cfg.Telemetry.Logging.Level = "warn"
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	if err := setupLogging(cfg); err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}

	q, err := buildExportQuery()
	if err != nil {
		return err
	}

	var exporter streamExporter
	switch cli.OutputFormat(exportFlags.format) {
	case cli.FormatJSON:
		exporter = export.NewJSONExporter(cfg.Ledger.Export.JSONPretty)
	case cli.FormatCSV:
		exporter = export.NewCSVExporter(cfg.Ledger.Export.CSVIncludeHeader)
	default:
		return fmt.Errorf("unsupported export format: %s (supported: json, csv)", exportFlags.format)
	}

	store, err := openLedgerStore(cfg)
	if err != nil {
		return cli.NewCommandError("export", err)
	}
	led := ledger.New(store)
	defer led.Close()

	out := io.Writer(os.Stdout)
	if exportFlags.output != "" {
		f, err := os.Create(exportFlags.output)
		if err != nil {
			return cli.NewCommandError("export", fmt.Errorf("failed to create output file: %w", err))
		}
		defer f.Close()
		out = f
	}

	ctx := cli.SetupSignalHandler()

	// A full export to a file knows its total up front, so it can show
	// progress. Filtered exports cannot without a counting pass.
	var progress cli.ProgressReporter
	if exportFlags.output != "" && q == (ledger.Query{}) {
		if head, err := led.Head(ctx); err == nil && head != nil {
			progress = cli.NewProgressReporter(os.Stderr)
			progress.Start(int64(head.Sequence))
		}
	}

	entries, errs := export.StreamQuery(ctx, led, q, cfg.Ledger.Query.DefaultLimit)
	if progress != nil {
		entries = teeProgress(ctx, entries, progress)
	}

	if err := exporter.ExportStream(ctx, entries, out); err != nil {
		if progress != nil {
			progress.Error(err)
		}
		return cli.NewCommandError("export", err)
	}
	if err := <-errs; err != nil {
		if progress != nil {
			progress.Error(err)
		}
		return cli.NewCommandError("export", err)
	}

	if progress != nil {
		progress.Finish()
	}
	if exportFlags.output != "" {
		fmt.Printf("✓ Exported to %s\n", exportFlags.output)
	}
	return nil
}

func buildExportQuery() (ledger.Query, error) {
	q := ledger.Query{
		CaseID: exportFlags.caseID,
		Kind:   exportFlags.kind,
		After:  exportFlags.after,
		Limit:  exportFlags.limit,
	}
	if exportFlags.from != "" {
		from, err := time.Parse(time.RFC3339, exportFlags.from)
		if err != nil {
			return ledger.Query{}, fmt.Errorf("invalid --from time: %w", err)
		}
		q.From = &from
	}
	if exportFlags.to != "" {
		to, err := time.Parse(time.RFC3339, exportFlags.to)
		if err != nil {
			return ledger.Query{}, fmt.Errorf("invalid --to time: %w", err)
		}
		q.To = &to
	}
	return q, nil
}

// teeProgress relays entries while counting them for the progress bar.
func teeProgress(ctx context.Context, in <-chan ledger.Entry, p cli.ProgressReporter) <-chan ledger.Entry {
	out := make(chan ledger.Entry)
	go func() {
		defer close(out)
		var n int64
		for e := range in {
			select {
			case out <- e:
				n++
				p.Update(n)
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
