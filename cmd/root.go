// Package cmd wires excflow's cobra command surface onto the analysis
// pipeline: config -> stubs -> detect -> extract -> assemble -> propagate
// -> query, rendered through one of output's formatters (spec.md §6).
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/excflow/excflow/internal/ident"
	"github.com/excflow/excflow/internal/telemetry"
)

// Version is set at build time via -ldflags.
var Version = "0.1.0"

// Exit codes (spec.md §6): invocation errors are a user mistake (bad flag,
// bad directory); resolution errors mean the function name itself didn't
// resolve; audit failures are a successful run that found something to
// report in CI mode.
const (
	ExitSuccess         = 0
	ExitInvocationError = 1
	ExitResolutionError = 2
	ExitAuditFailure    = 3
)

// auditFailure is returned by the audit command's RunE when the audit
// itself succeeded but found uncovered escapes under --ci — distinguishing
// "ran fine, found a problem" from every other error RunE can return.
type auditFailure struct{ uncovered int }

func (e *auditFailure) Error() string {
	return fmt.Sprintf("%d entrypoint(s) have uncovered exceptions", e.uncovered)
}

var (
	directory      string
	format         string
	noCache        bool
	verboseFlag    bool
	debugFlag      bool
	disableMetrics bool
)

var rootCmd = &cobra.Command{
	Use:   "excflow",
	Short: "Whole-program exception-flow analysis for Python",
	Long: `excflow traces which exceptions a Python function can raise, which
callers can observe them, and which framework entrypoints leave them
uncaught — across an entire project, not just one file.`,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		telemetry.LoadSession()
		telemetry.Init(disableMetrics)
		telemetry.SetVersion(Version)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&directory, "directory", "d", ".", "project directory to analyze")
	rootCmd.PersistentFlags().StringVarP(&format, "format", "f", "text", "output format: text|json (sarif is audit-only)")
	rootCmd.PersistentFlags().BoolVar(&noCache, "no-cache", false, "skip the on-disk extraction cache")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "debug output")
	rootCmd.PersistentFlags().BoolVar(&disableMetrics, "disable-metrics", false, "disable anonymous usage reporting")
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	err := rootCmd.Execute()
	if err == nil {
		return ExitSuccess
	}

	fmt.Fprintln(os.Stderr, "Error:", err)

	var notFound *ident.FunctionNotFoundError
	var ambiguous *ident.AmbiguousFunctionError
	if errors.As(err, &notFound) || errors.As(err, &ambiguous) {
		return ExitResolutionError
	}
	var failure *auditFailure
	if errors.As(err, &failure) {
		return ExitAuditFailure
	}
	return ExitInvocationError
}
