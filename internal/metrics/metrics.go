// Package metrics holds the Prometheus collectors of the find daemon.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// BuildsTotal counts index builds by result (ok, error, cancelled)
	BuildsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ade_find_builds_total",
		Help: "Total index builds by result",
	}, []string{"result"})

	// BuildDuration tracks how long a full build takes
	BuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ade_find_build_duration_seconds",
		Help:    "Index build duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~80s
	})

	// IndexEntries is the size of the installed snapshot per category
	IndexEntries = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ade_find_index_entries",
		Help: "Entries in the installed snapshot by category",
	}, []string{"category"})

	// QueryDuration tracks query latency by operation
	QueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ade_find_query_duration_seconds",
		Help:    "Query duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10), // 10µs to ~2.6s
	}, []string{"op"})

	// QueryCacheTotal counts result cache lookups by result (hit, miss)
	QueryCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ade_find_query_cache_total",
		Help: "Query result cache lookups by result",
	}, []string{"result"})
)

// ObserveQuery records the latency of op started at start
func ObserveQuery(op string, start time.Time) {
	QueryDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// Serve exposes /metrics on addr until ctx is done
func Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return ServeListener(ctx, ln, logger)
}

// ServeListener exposes /metrics on ln until ctx is done. It closes ln.
func ServeListener(ctx context.Context, ln net.Listener, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics listening", "addr", ln.Addr().String())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
