package cmd

import (
	"github.com/spf13/cobra"

	"github.com/excflow/excflow/output"
)

var catchesIncludeSubclasses bool

var catchesCmd = &cobra.Command{
	Use:   "catches <Exception>",
	Short: "Find every catch site that handles an exception type, across the whole project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := buildSession(cmd.Context())
		if err != nil {
			return err
		}
		matches := s.engine.FindCatchesByException(args[0], catchesIncludeSubclasses)
		tf := output.NewTextFormatter(output.NewDefaultOptions(), s.logger)
		return render("catches", matches, func() error { return tf.FormatCatchesByException(args[0], matches) })
	},
}

func init() {
	catchesCmd.Flags().BoolVarP(&catchesIncludeSubclasses, "subclasses", "s", false, "also match a catch of a base class of the named exception")
	rootCmd.AddCommand(catchesCmd)
}
