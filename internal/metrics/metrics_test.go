package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestBuildMetrics(t *testing.T) {
	t.Run("ToolkitLocated", func(t *testing.T) {
		ToolkitLocated.Set(1)
		assert.Equal(t, float64(1), testutil.ToFloat64(ToolkitLocated))

		ToolkitLocated.Set(0)
		assert.Equal(t, float64(0), testutil.ToFloat64(ToolkitLocated))
	})

	t.Run("CompilesTotal", func(t *testing.T) {
		before := testutil.ToFloat64(CompilesTotal.WithLabelValues("nvcc", "ok"))
		CompilesTotal.WithLabelValues("nvcc", "ok").Inc()
		CompilesTotal.WithLabelValues("nvcc", "ok").Inc()
		assert.Equal(t, before+2, testutil.ToFloat64(CompilesTotal.WithLabelValues("nvcc", "ok")))
	})

	t.Run("CompileDuration", func(t *testing.T) {
		// Histograms aren't directly readable with testutil; just make sure
		// observing doesn't panic.
		assert.NotPanics(t, func() {
			CompileDuration.WithLabelValues("native").Observe(0.42)
		})
	})

	t.Run("ExtensionsBuilt", func(t *testing.T) {
		before := testutil.ToFloat64(ExtensionsBuilt.WithLabelValues("ok"))
		ExtensionsBuilt.WithLabelValues("ok").Inc()
		assert.Equal(t, before+1, testutil.ToFloat64(ExtensionsBuilt.WithLabelValues("ok")))
	})
}
