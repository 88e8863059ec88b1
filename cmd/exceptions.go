package cmd

import (
	"github.com/spf13/cobra"

	"github.com/excflow/excflow/output"
)

var exceptionsCmd = &cobra.Command{
	Use:   "exceptions",
	Short: "Print every exception type known to the program, with its immediate bases",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := buildSession(cmd.Context())
		if err != nil {
			return err
		}
		types := s.model.Hierarchy.GetAllExceptionTypes()
		entries := make([]output.ExceptionTypeEntry, 0, len(types))
		for _, t := range types {
			entries = append(entries, output.ExceptionTypeEntry{
				Name:  t,
				Bases: s.model.Hierarchy.Bases(t),
			})
		}
		tf := output.NewTextFormatter(output.NewDefaultOptions(), s.logger)
		return render("exceptions", entries, func() error { return tf.FormatExceptionHierarchy(entries) })
	},
}

func init() {
	rootCmd.AddCommand(exceptionsCmd)
}
