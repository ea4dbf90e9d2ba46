/*
Package cli provides shared utilities for the arbiter command tree.

Output Formatting:

Commands that print structured results (decisions, verification
reports) render them as human-readable text by default and as JSON
under --format json:

	if cli.OutputFormat(flags.format) == cli.FormatJSON {
		formatter := &cli.JSONFormatter{Indent: true}
		return formatter.FormatTo(os.Stdout, report)
	}

Progress Reporting:

Long-running exports report progress:

	progress := cli.NewProgressReporter(os.Stderr)
	progress.Start(totalEntries)
	for i := int64(0); i < totalEntries; i++ {
		// Do work
		progress.Update(i + 1)
	}
	progress.Finish()

Signal Handling:

One-shot commands run under a signal-aware context so an interrupt
stops ledger scans and reference lookups mid-flight:

	ctx := cli.SetupSignalHandler()

Exit Codes:

Commands whose result (not failure) should drive the process exit
status return a *cli.ExitError; Execute inspects it and exits with the
carried code.
*/
package cli
