package cmd

import (
	"github.com/spf13/cobra"

	"github.com/excflow/excflow/internal/model"
	"github.com/excflow/excflow/internal/query"
	"github.com/excflow/excflow/output"
)

var (
	callersRecursive bool
	callersStrict    bool
)

var callersCmd = &cobra.Command{
	Use:   "callers <function>",
	Short: "Find resolved callers of a function",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := buildSession(cmd.Context())
		if err != nil {
			return err
		}
		tf := output.NewTextFormatter(output.NewDefaultOptions(), s.logger)

		if callersRecursive {
			results, err := s.engine.FindCallersTransitive(args[0])
			if err != nil {
				return err
			}
			results = filterTransitiveCallers(results, callersStrict)
			return render("callers", results, func() error { return tf.FormatCallersTransitive(args[0], results) })
		}

		calls, err := s.engine.FindCallers(args[0])
		if err != nil {
			return err
		}
		calls = filterDirectCallers(calls, callersStrict)
		return render("callers", calls, func() error { return tf.FormatCallers(args[0], calls) })
	},
}

func filterDirectCallers(calls []model.CallSite, strict bool) []model.CallSite {
	if !strict {
		return calls
	}
	out := calls[:0]
	for _, c := range calls {
		if !c.Resolution.IsHeuristic() {
			out = append(out, c)
		}
	}
	return out
}

func filterTransitiveCallers(results []query.CallerResult, strict bool) []query.CallerResult {
	if !strict {
		return results
	}
	out := results[:0]
	for _, r := range results {
		if !r.Resolution.IsHeuristic() {
			out = append(out, r)
		}
	}
	return out
}

func init() {
	callersCmd.Flags().BoolVarP(&callersRecursive, "recursive", "r", false, "find transitive callers instead of only direct ones")
	callersCmd.Flags().BoolVar(&callersStrict, "strict", false, "exclude callers resolved only by heuristic (name-fallback, polymorphic)")
	rootCmd.AddCommand(callersCmd)
}
