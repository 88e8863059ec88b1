package cmd

import (
	"github.com/spf13/cobra"

	"github.com/excflow/excflow/output"
)

var raisesIncludeSubclasses bool

var raisesCmd = &cobra.Command{
	Use:   "raises <Exception>",
	Short: "Find every raise site of an exception type, across the whole project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := buildSession(cmd.Context())
		if err != nil {
			return err
		}
		raises := s.engine.FindRaisesByException(args[0], raisesIncludeSubclasses)
		tf := output.NewTextFormatter(output.NewDefaultOptions(), s.logger)
		return render("raises", raises, func() error { return tf.FormatRaisesByException(args[0], raises) })
	},
}

func init() {
	raisesCmd.Flags().BoolVarP(&raisesIncludeSubclasses, "subclasses", "s", false, "also match raises of a subclass of the named exception")
	rootCmd.AddCommand(raisesCmd)
}
