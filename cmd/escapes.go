package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/excflow/excflow/internal/model"
	"github.com/excflow/excflow/output"
)

var (
	escapesStrict     bool
	escapesAggressive bool
)

var escapesCmd = &cobra.Command{
	Use:   "escapes <function>",
	Short: "List the exception types that escape a function",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := buildSession(cmd.Context())
		if err != nil {
			return err
		}
		mode, err := resolveModeOverride(s.cfg.ResolutionMode, escapesStrict, escapesAggressive)
		if err != nil {
			return err
		}
		escapes, err := s.engineForMode(mode).FindEscapes(args[0])
		if err != nil {
			return err
		}
		tf := output.NewTextFormatter(output.NewDefaultOptions(), s.logger)
		return render("escapes", escapes, func() error { return tf.FormatEscapes(args[0], escapes) })
	},
}

// resolveModeOverride applies --strict/--aggressive on top of a session's
// configured resolution mode, rejecting both at once.
func resolveModeOverride(base model.ResolutionMode, strict, aggressive bool) (model.ResolutionMode, error) {
	switch {
	case strict && aggressive:
		return "", fmt.Errorf("--strict and --aggressive are mutually exclusive")
	case strict:
		return model.ModeStrict, nil
	case aggressive:
		return model.ModeAggressive, nil
	default:
		return base, nil
	}
}

func init() {
	escapesCmd.Flags().BoolVar(&escapesStrict, "strict", false, "resolve only high-confidence call edges")
	escapesCmd.Flags().BoolVar(&escapesAggressive, "aggressive", false, "same escape sets as default mode, which already includes polymorphic call edges")
	rootCmd.AddCommand(escapesCmd)
}
