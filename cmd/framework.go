package cmd

import (
	"github.com/spf13/cobra"

	"github.com/excflow/excflow/internal/model"
	"github.com/excflow/excflow/internal/query"
	"github.com/excflow/excflow/output"
)

// frameworkNames lists every framework that detectors can tag an Entrypoint
// with (internal/detect's default registry), plus the synthetic "cli" group
// for script entrypoints that carry no framework metadata at all. Each gets
// its own `excflow <name> {audit|entrypoints|routes-to}` command group,
// matching how the command surface names the framework as a word rather
// than a --framework flag value.
var frameworkNames = []string{"flask", "fastapi", "django", "cli"}

var auditCI bool

func init() {
	for _, name := range frameworkNames {
		rootCmd.AddCommand(newFrameworkCmd(name))
	}
}

func newFrameworkCmd(framework string) *cobra.Command {
	group := &cobra.Command{
		Use:   framework,
		Short: "Framework-boundary queries for " + framework + " entrypoints",
	}

	audit := &cobra.Command{
		Use:   "audit",
		Short: "Audit " + framework + " entrypoints for uncaught exceptions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := buildSession(cmd.Context())
			if err != nil {
				return err
			}
			results := filterByFramework(s.engine.AuditIntegration(), framework)
			if format == "sarif" {
				return output.NewSARIFFormatter().Format(results)
			}
			tf := output.NewTextFormatter(output.NewDefaultOptions(), s.logger)
			err = render("audit", results, func() error { return tf.FormatAudit(results) })
			if err != nil {
				return err
			}
			if auditCI && countUncovered(results) > 0 {
				return &auditFailure{uncovered: countUncovered(results)}
			}
			return nil
		},
	}
	audit.Flags().BoolVar(&auditCI, "ci", false, "exit 3 if any entrypoint has an uncovered exception")

	entrypoints := &cobra.Command{
		Use:   "entrypoints",
		Short: "List " + framework + " entrypoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := buildSession(cmd.Context())
			if err != nil {
				return err
			}
			eps := filterEntrypoints(s.model.Entrypoints, framework)
			tf := output.NewTextFormatter(output.NewDefaultOptions(), s.logger)
			return render("entrypoints", eps, func() error { return tf.FormatEntrypoints(eps) })
		},
	}

	routesTo := &cobra.Command{
		Use:   "routes-to <Exception>",
		Short: "Find " + framework + " entrypoints from which an exception type can escape",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := buildSession(cmd.Context())
			if err != nil {
				return err
			}
			results := filterByFramework(s.engine.RoutesToException(args[0]), framework)
			tf := output.NewTextFormatter(output.NewDefaultOptions(), s.logger)
			return render("routes-to", results, func() error { return tf.FormatRoutesTo(args[0], results) })
		},
	}

	group.AddCommand(audit, entrypoints, routesTo)
	return group
}

func matchesFramework(ep model.Entrypoint, framework string) bool {
	if framework == "cli" {
		return ep.Kind == model.EntrypointCLIScript
	}
	return ep.Metadata["framework"] == framework
}

func filterEntrypoints(eps []model.Entrypoint, framework string) []model.Entrypoint {
	out := make([]model.Entrypoint, 0, len(eps))
	for _, ep := range eps {
		if matchesFramework(ep, framework) {
			out = append(out, ep)
		}
	}
	return out
}

func filterByFramework(results []query.AuditResult, framework string) []query.AuditResult {
	out := make([]query.AuditResult, 0, len(results))
	for _, r := range results {
		if matchesFramework(r.Entrypoint, framework) {
			out = append(out, r)
		}
	}
	return out
}

func countUncovered(results []query.AuditResult) int {
	n := 0
	for _, r := range results {
		if len(r.Uncovered) > 0 {
			n++
		}
	}
	return n
}
