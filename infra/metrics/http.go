package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	coremetrics "github.com/resqlink/resqlink/core/metrics"
	"github.com/resqlink/resqlink/infra/logger"
)

// StartPromServer exposes the Prometheus scrape endpoint on the configured
// port and blocks until the context is canceled. The endpoint gets its own
// mux so it never mixes with application handlers.
func StartPromServer(ctx context.Context, cfg coremetrics.Config) error {
	cfg.SetDefaults()
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: ":" + cfg.PrometheusPort, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.New("prom-server").Errorf("shutdown: %v", err)
		}
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
