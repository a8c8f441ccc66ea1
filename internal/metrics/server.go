package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Serve exposes /metrics on addr for the duration of the build. It returns
// immediately; the listener dies with the process. Long builds are scraped,
// short ones simply never get hit.
func Serve(addr string, log *zap.Logger) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Warn("metrics listener stopped", zap.String("address", addr), zap.Error(err))
		}
	}()
	log.Info("serving build metrics", zap.String("address", addr))
}
