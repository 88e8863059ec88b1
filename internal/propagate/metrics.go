package propagate

import "github.com/prometheus/client_golang/prometheus"

// metrics are registered in-process only: nothing ever serves them over
// HTTP, and no command reads Registry back (`excflow stats` does not render
// these families).
var (
	Registry = prometheus.NewRegistry()

	filesExtracted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "excflow_files_extracted_total",
		Help: "Python source files successfully extracted.",
	})
	iterationsRun = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "excflow_propagation_iterations",
		Help:    "Fixpoint iterations run per propagation pass.",
		Buckets: prometheus.LinearBuckets(1, 5, 20),
	})
	functionsModeled = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "excflow_functions_modeled",
		Help: "Distinct functions in the most recently built ProgramModel.",
	})
	edgesResolved = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "excflow_call_edges_resolved_total",
		Help: "Call edges resolved, labeled by resolution kind.",
	}, []string{"kind"})
)

func init() {
	Registry.MustRegister(filesExtracted, iterationsRun, functionsModeled, edgesResolved)
}
