package common

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/armadaproject/firstfit/internal/common/armadacontext"
	"github.com/armadaproject/firstfit/internal/common/logging"
	"github.com/armadaproject/firstfit/internal/common/serve"
)

// ServeMetrics serves the metrics of the default Prometheus registry on the given port.
// The returned function shuts the server down.
func ServeMetrics(ctx *armadacontext.Context, port uint16) (shutdown func()) {
	return ServeMetricsFor(ctx, port, prometheus.DefaultGatherer)
}

// ServeMetricsFor serves the metrics of gatherer on the given port.
func ServeMetricsFor(ctx *armadacontext.Context, port uint16, gatherer prometheus.Gatherer) (shutdown func()) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	ctx, cancel := armadacontext.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ctx.Log.Infof("Serving metrics on port %d", port)
		if err := serve.ListenAndServe(ctx, srv); err != nil {
			logging.WithStacktrace(ctx.Log, err).Error("metrics server failure")
		}
	}()
	return func() {
		cancel()
		<-done
	}
}
