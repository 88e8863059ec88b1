package cmd

import (
	"github.com/spf13/cobra"

	"github.com/excflow/excflow/output"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print summary counts for the analyzed program",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := buildSession(cmd.Context())
		if err != nil {
			return err
		}
		stats := collectStats(s)
		tf := output.NewTextFormatter(output.NewDefaultOptions(), s.logger)
		return render("stats", stats, func() error { return tf.FormatStats(stats) })
	},
}

func collectStats(s *session) output.StatsResult {
	files := make(map[string]bool)
	for _, key := range s.model.AllFunctionKeys() {
		files[key.File] = true
	}
	return output.StatsResult{
		Files:          len(files),
		Functions:      len(s.model.Functions),
		Classes:        len(s.model.Classes),
		RaiseSites:     len(s.model.RaiseSites),
		CatchSites:     len(s.model.CatchSites),
		CallSites:      len(s.model.CallSites),
		Entrypoints:    len(s.model.Entrypoints),
		GlobalHandlers: len(s.model.Handlers),
		Diagnostics:    len(s.model.Diagnostics),
		ExceptionTypes: len(s.model.Hierarchy.GetAllExceptionTypes()),
		StubEntries:    len(s.stubs.All()),
		ResolutionMode: string(s.cfg.ResolutionMode),
	}
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
