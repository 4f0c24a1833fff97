package solver

import "github.com/prometheus/client_golang/prometheus"

var (
	resultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "captchad",
			Subsystem: "solver",
			Name:      "results_total",
			Help:      "Inference outcomes by kind (ok or error kind)",
		},
		[]string{"kind"},
	)

	inferenceSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "captchad",
			Subsystem: "solver",
			Name:      "inference_seconds",
			Help:      "Duration of successful decode+forward+tokenize calls",
			Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	loadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "captchad",
			Subsystem: "solver",
			Name:      "loads_total",
			Help:      "Model load attempts by outcome",
		},
		[]string{"outcome"},
	)

	modelLoaded = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "captchad",
			Subsystem: "solver",
			Name:      "model_loaded",
			Help:      "1 when a model handle is loaded",
		},
	)
)

func init() {
	prometheus.MustRegister(resultsTotal, inferenceSeconds, loadsTotal, modelLoaded)
}
