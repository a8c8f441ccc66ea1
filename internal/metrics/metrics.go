package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Compile metrics, labeled by the route a source took through the
	// dispatcher ("native" or "nvcc") and the outcome.
	CompilesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cubuild_compiles_total",
		Help: "The total number of single-source compilations",
	}, []string{"route", "status"})

	CompileDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cubuild_compile_duration_seconds",
		Help:    "Wall time of single-source compilations",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~200s
	}, []string{"route"})

	// ToolkitLocated is 1 when a CUDA toolkit was found for this build.
	ToolkitLocated = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cubuild_toolkit_located",
		Help: "Whether a CUDA toolkit was located (1) or the build is native-only (0)",
	})

	ExtensionsBuilt = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cubuild_extensions_built_total",
		Help: "The total number of extensions built",
	}, []string{"status"})
)
