package retriever

import "github.com/prometheus/client_golang/prometheus"

var IndexChunkScans = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "retriever",
	Subsystem: "index",
	Name:      "chunk_scans",
}, []string{"cause"})

var IndexRevalidations = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "retriever",
	Subsystem: "index",
	Name:      "revalidations",
})

var IndexRevalidateDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
	Namespace: "retriever",
	Subsystem: "index",
	Name:      "revalidate_duration",
	Buckets:   []float64{0.0001, 0.001, 0.01, 0.1, 1, 10},
})

var ReductionChunkFolds = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "retriever",
	Subsystem: "reduction",
	Name:      "chunk_folds",
})

var ReductionRefolds = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "retriever",
	Subsystem: "reduction",
	Name:      "refolds",
})

var ReductionFoldDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
	Namespace: "retriever",
	Subsystem: "reduction",
	Name:      "fold_duration",
	Buckets:   []float64{0.0001, 0.001, 0.01, 0.1, 1, 10},
})

// Collectors returns every metric of this package, for hosts that want
// them registered:
//
//	prometheus.MustRegister(retriever.Collectors()...)
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		IndexChunkScans,
		IndexRevalidations,
		IndexRevalidateDuration,
		ReductionChunkFolds,
		ReductionRefolds,
		ReductionFoldDuration,
	}
}
