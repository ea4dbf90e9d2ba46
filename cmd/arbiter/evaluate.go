package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"rxsentinel/arbiter/pkg/cli"
	"rxsentinel/arbiter/pkg/config"
	"rxsentinel/arbiter/pkg/dispensing"
	"rxsentinel/arbiter/pkg/evaluator"
	"rxsentinel/arbiter/pkg/evaluator/rules"
	"rxsentinel/arbiter/pkg/ledger"
	"rxsentinel/arbiter/pkg/orchestrator"
	"rxsentinel/arbiter/pkg/verdict"
)

var evaluateFlags struct {
	file   string
	format string
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate a single case file",
	Long: `Evaluate one dispensing case from a JSON file and print the decision.

The case runs through the same evaluator registry and audit ledger as
the HTTP service; the decision is recorded before it is printed. Rule
parameters come from the configuration's inline block or params file
(the git source is a service concern and is not consulted here).

Exit status:
  0  decision is DISPENSE
  2  decision is HOLD
  3  decision is ESCALATE
  1  the case could not be evaluated

Examples:
  # Evaluate a case and print the decision
  arbiter evaluate --file case.json

  # Machine-readable output for pipeline use
  arbiter evaluate --file case.json --format json`,
	RunE: evaluateCase,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringVarP(&evaluateFlags.file, "file", "f", "", "case file (JSON)")
	evaluateCmd.Flags().StringVar(&evaluateFlags.format, "format", string(cli.FormatText), "output format: text, json")
}

func evaluateCase(cmd *cobra.Command, args []string) error {
	if evaluateFlags.file == "" {
		return fmt.Errorf("--file must be specified")
	}

	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()

	// One-shot runs keep quiet on stdout; the decision is the output.
	if !verbose {
		cfg.Telemetry.Logging.Level = "warn"
	} else {
		cfg.Telemetry.Logging.Level = "debug"
	}
	if err := setupLogging(cfg); err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}

	data, err := os.ReadFile(evaluateFlags.file)
	if err != nil {
		return cli.NewCommandError("evaluate", fmt.Errorf("failed to read case file: %w", err))
	}
	var c dispensing.Case
	if err := json.Unmarshal(data, &c); err != nil {
		return cli.NewCommandError("evaluate", fmt.Errorf("case file %q is not a valid case document: %w", evaluateFlags.file, err))
	}

	ctx := cli.SetupSignalHandler()

	src, err := openRefdata(ctx, cfg)
	if err != nil {
		return cli.NewCommandError("evaluate", err)
	}
	defer src.Close()

	reg, err := rules.BuildRegistry(cfg.Rules.Params, src)
	if err != nil {
		return cli.NewCommandError("evaluate", err)
	}

	store, err := openLedgerStore(cfg)
	if err != nil {
		return cli.NewCommandError("evaluate", err)
	}
	led := ledger.New(store, ledger.WithLogger(slog.Default()))
	defer led.Close()

	orch, err := orchestrator.New(cfg.Orchestrator, evaluator.NewHolder(reg), led,
		orchestrator.WithLogger(slog.Default()))
	if err != nil {
		return cli.NewCommandError("evaluate", err)
	}

	decision, err := orch.Run(ctx, c.Normalize())
	if err != nil {
		var malformed *dispensing.MalformedCaseError
		if errors.As(err, &malformed) {
			fmt.Fprintln(os.Stderr, "case failed structural validation:")
			for _, v := range malformed.Violations {
				fmt.Fprintf(os.Stderr, "  - %s\n", v)
			}
			return cli.NewCommandError("evaluate", fmt.Errorf("case %q is malformed", c.CaseID))
		}
		return cli.NewCommandError("evaluate", err)
	}

	switch cli.OutputFormat(evaluateFlags.format) {
	case cli.FormatJSON:
		formatter := &cli.JSONFormatter{Indent: true}
		if err := formatter.FormatTo(os.Stdout, decision); err != nil {
			return cli.NewCommandError("evaluate", err)
		}
	default:
		printDecision(os.Stdout, decision)
	}

	switch decision.Outcome {
	case verdict.Hold:
		return cli.NewExitError(2, fmt.Sprintf("decision: HOLD (%s)", decision.EscalationTarget))
	case verdict.Escalate:
		return cli.NewExitError(3, fmt.Sprintf("decision: ESCALATE (%s)", decision.EscalationTarget))
	}
	return nil
}

func printDecision(w io.Writer, d *verdict.Decision) {
	fmt.Fprintf(w, "Decision: %s\n", d.Outcome)
	fmt.Fprintf(w, "Case: %s\n", d.CaseID)
	if d.EscalationTarget != verdict.EscalateNone {
		fmt.Fprintf(w, "Escalation: %s\n", d.EscalationTarget)
	}
	fmt.Fprintf(w, "Decision ID: %s\n", d.ID)
	fmt.Fprintf(w, "Registry: %s\n", d.RegistryVersion)

	if len(d.Verdicts) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Verdicts:")
		for _, v := range d.Verdicts {
			fmt.Fprintf(w, "  %s\n", v)
		}
	}
	if len(d.Failures) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Evaluator failures:")
		for _, f := range d.Failures {
			fmt.Fprintf(w, "  %s (%s): %s\n", f.Evaluator, f.Class, f.Message)
		}
	}

	fmt.Fprintf(w, "\n%s\n", d.ReasonSummary())
}
