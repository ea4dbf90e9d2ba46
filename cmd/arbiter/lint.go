package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"rxsentinel/arbiter/pkg/cli"
	"rxsentinel/arbiter/pkg/evaluator/rules"
)

var lintFlags struct {
	file   string
	dir    string
	format string
}

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Validate rule parameter files",
	Long: `Validate rule parameter files for syntax and semantic errors.

The lint command parses parameter files and checks every threshold the
evaluators consume: verification-age windows, refill ceilings, dosage
class limits, beyond-use margins, and compounding component caps. A
file that lints clean is guaranteed to build a registry.

Examples:
  # Lint a single file
  arbiter lint --file params.yaml

  # Lint a directory of parameter files
  arbiter lint --dir params/

  # JSON output for CI
  arbiter lint --file params.yaml --format json`,
	RunE: lintParams,
}

func init() {
	rootCmd.AddCommand(lintCmd)

	lintCmd.Flags().StringVarP(&lintFlags.file, "file", "f", "", "parameter file to validate")
	lintCmd.Flags().StringVarP(&lintFlags.dir, "dir", "d", "", "directory of parameter files")
	lintCmd.Flags().StringVar(&lintFlags.format, "format", string(cli.FormatText), "output format: text, json")
}

// LintResult is the validation outcome for one parameter file.
type LintResult struct {
	File   string `json:"file"`
	Valid  bool   `json:"valid"`
	Digest string `json:"digest,omitempty"`
	Error  string `json:"error,omitempty"`
}

func lintParams(cmd *cobra.Command, args []string) error {
	if lintFlags.file == "" && lintFlags.dir == "" {
		return fmt.Errorf("either --file or --dir must be specified")
	}

	var files []string
	if lintFlags.file != "" {
		files = append(files, lintFlags.file)
	}
	if lintFlags.dir != "" {
		for _, pattern := range []string{"*.yaml", "*.yml"} {
			matches, err := filepath.Glob(filepath.Join(lintFlags.dir, pattern))
			if err != nil {
				return fmt.Errorf("failed to list parameter files: %w", err)
			}
			files = append(files, matches...)
		}
	}
	if len(files) == 0 {
		return fmt.Errorf("no parameter files found")
	}

	results := make([]LintResult, 0, len(files))
	for _, file := range files {
		results = append(results, lintParamsFile(file))
	}

	if cli.OutputFormat(lintFlags.format) == cli.FormatJSON {
		formatter := &cli.JSONFormatter{Indent: true}
		if err := formatter.FormatTo(os.Stdout, results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			if r.Valid {
				fmt.Printf("✓ %s (digest %s)\n", r.File, r.Digest)
			} else {
				fmt.Printf("✗ %s: %s\n", r.File, r.Error)
			}
		}
	}

	for _, r := range results {
		if !r.Valid {
			return cli.NewCommandError("lint", fmt.Errorf("%d of %d files failed validation", countInvalid(results), len(results)))
		}
	}
	return nil
}

// lintParamsFile validates one file. Unlike config loading it starts
// from a zero Params, not Defaults, so a field the file omits is caught
// here instead of silently inheriting a default.
func lintParamsFile(path string) LintResult {
	result := LintResult{File: path}

	data, err := os.ReadFile(path)
	if err != nil {
		result.Error = fmt.Sprintf("failed to read: %v", err)
		return result
	}

	var params rules.Params
	if err := yaml.Unmarshal(data, &params); err != nil {
		result.Error = fmt.Sprintf("failed to parse: %v", err)
		return result
	}

	if err := params.Validate(); err != nil {
		result.Error = err.Error()
		return result
	}

	digest, err := params.Digest()
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.Valid = true
	result.Digest = digest
	return result
}

func countInvalid(results []LintResult) int {
	n := 0
	for _, r := range results {
		if !r.Valid {
			n++
		}
	}
	return n
}
