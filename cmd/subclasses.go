package cmd

import (
	"github.com/spf13/cobra"

	"github.com/excflow/excflow/output"
)

var subclassesCmd = &cobra.Command{
	Use:   "subclasses <Class>",
	Short: "List every known subclass of an exception type",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := buildSession(cmd.Context())
		if err != nil {
			return err
		}
		subs := s.model.Hierarchy.GetSubclasses(args[0])
		tf := output.NewTextFormatter(output.NewDefaultOptions(), s.logger)
		return render("subclasses", subs, func() error { return tf.FormatSubclasses(args[0], subs) })
	},
}

func init() {
	rootCmd.AddCommand(subclassesCmd)
}
