package cmd

import (
	"github.com/spf13/cobra"

	"github.com/excflow/excflow/output"
)

var traceCmd = &cobra.Command{
	Use:   "trace <function>",
	Short: "Walk the call tree rooted at a function, annotated with raises and escapes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := buildSession(cmd.Context())
		if err != nil {
			return err
		}
		tree, err := s.engine.TraceFunction(args[0], s.cfg.TraceMaxDepth)
		if err != nil {
			return err
		}
		tf := output.NewTextFormatter(output.NewDefaultOptions(), s.logger)
		return render("trace", tree, func() error { return tf.FormatTrace(tree) })
	},
}

func init() {
	rootCmd.AddCommand(traceCmd)
}
