// Package metrics exposes pipeline progress as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "detectshot"

// Collector records frame, pair and boundary metrics for analysis runs.
type Collector struct {
	registry *prometheus.Registry
	logger   zerolog.Logger

	framesTotal   prometheus.Counter
	pairsTotal    *prometheus.CounterVec
	pairScore     prometheus.Histogram
	pairDuration  prometheus.Histogram
	boundaries    *prometheus.CounterVec
	openIntervals *prometheus.GaugeVec
}

// NewCollector registers the metrics on a fresh registry.
func NewCollector(namespace string, logger zerolog.Logger) *Collector {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		logger:   logger.With().Str("component", "metrics").Logger(),

		framesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Frames pulled from the source.",
		}),
		pairsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pairs_total",
			Help:      "Adjacent frame pairs scored, by whether a homography was fit.",
		}, []string{"defined"}),
		pairScore: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pair_score",
			Help:      "Inlier ratio of adjacent frame pairs.",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}),
		pairDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pair_duration_seconds",
			Help:      "Time spent describing and comparing one frame pair.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		boundaries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "boundaries_total",
			Help:      "Boundary interval transitions.",
		}, []string{"kind", "transition"}),
		openIntervals: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_interval",
			Help:      "1 while an interval of the kind is open.",
		}, []string{"kind"}),
	}
}

// Registry returns the registry holding the collector's metrics.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RecordFrame counts one pulled frame.
func (c *Collector) RecordFrame() {
	c.framesTotal.Inc()
}

// RecordPair records one scored pair.
func (c *Collector) RecordPair(score float64, defined bool, elapsed time.Duration) {
	c.pairsTotal.WithLabelValues(strconv.FormatBool(defined)).Inc()
	c.pairScore.Observe(score)
	c.pairDuration.Observe(elapsed.Seconds())
}

// RecordTransition records an interval opening or closing.
func (c *Collector) RecordTransition(kind, transition string) {
	c.boundaries.WithLabelValues(kind, transition).Inc()
	switch transition {
	case "opened":
		c.openIntervals.WithLabelValues(kind).Set(1)
	case "closed":
		c.openIntervals.WithLabelValues(kind).Set(0)
	}
}

// Handler serves the collector's metrics in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (c *Collector) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		c.logger.Info().Str("addr", addr).Msg("serving metrics")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
