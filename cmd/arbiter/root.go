package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"rxsentinel/arbiter/pkg/cli"
)

// Flags shared by every subcommand.
var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "arbiter",
	Short: "Compliance orchestration and verdict engine for pharmacy dispensing",
	Long: `Arbiter renders dispense/hold/escalate decisions for pharmacy
dispensing cases.

Each case snapshot is evaluated by the applicable compliance evaluators
(licensure, DEA registration, state shipping rules, refill timing,
cumulative dosage, beyond-use dating, compounding, documentation).
Verdicts merge into a single decision, and every run is recorded to a
hash-chained audit ledger before the decision is released.`,
	Version: Version,

	// Execute prints errors once; cobra's own printer would double
	// them, and a stack of usage text after a runtime failure buries
	// the message.
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command. The process exits 0 on success, with
// the code carried by a cli.ExitError when a command sets one, and 1 on
// any other error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		var exit *cli.ExitError
		if errors.As(err, &exit) {
			os.Exit(exit.Code)
		}
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
