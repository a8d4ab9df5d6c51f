// Package instrumented decorates an objectfs.Gateway with Prometheus metrics.
package instrumented

import (
	"context"
	"errors"
	"io"
	"iter"
	"time"

	objectfs "github.com/Jumpaku/go-objectfs"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	Namespace = "objectfs"
	Subsystem = "gateway"

	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// Metrics are the collectors shared by every Gateway wrapped with the same Metrics.
type Metrics struct {
	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
	Listed   prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg unless reg is nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: Subsystem,
				Name:      "requests_total",
				Help:      "Counter of object store requests.",
			}, []string{"op", "outcome"}),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Subsystem: Subsystem,
				Name:      "request_seconds",
				Help:      "Bucketed histogram of object store request latency.",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 16),
			}, []string{"op"}),
		Listed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: Subsystem,
				Name:      "listed_objects_total",
				Help:      "Counter of objects and prefixes returned by listings.",
			}),
	}
	if reg != nil {
		reg.MustRegister(m.Requests, m.Duration, m.Listed)
	}
	return m
}

// Gateway records the outcome and latency of every call to the wrapped Gateway.
type Gateway struct {
	next    objectfs.Gateway
	metrics *Metrics
}

// Verify interface implementation at compile time.
var _ objectfs.Gateway = (*Gateway)(nil)

func New(next objectfs.Gateway, metrics *Metrics) *Gateway {
	return &Gateway{next: next, metrics: metrics}
}

func (g *Gateway) observe(op string, start time.Time, err error) {
	outcome := OutcomeOK
	switch {
	case errors.Is(err, objectfs.ErrNotFound):
		outcome = OutcomeNotFound
	case err != nil:
		outcome = OutcomeError
	}
	g.metrics.Requests.WithLabelValues(op, outcome).Inc()
	g.metrics.Duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// List is observed once, when the iteration ends.
func (g *Gateway) List(ctx context.Context, prefix string, opts objectfs.ListOptions) iter.Seq2[objectfs.ObjectInfo, error] {
	return func(yield func(objectfs.ObjectInfo, error) bool) {
		start := time.Now()
		var listErr error
		defer func() { g.observe("list", start, listErr) }()
		for info, err := range g.next.List(ctx, prefix, opts) {
			if err != nil {
				listErr = err
			} else {
				g.metrics.Listed.Inc()
			}
			if !yield(info, err) {
				return
			}
		}
	}
}

func (g *Gateway) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (err error) {
	defer func(start time.Time) { g.observe("put", start, err) }(time.Now())
	return g.next.Put(ctx, key, body, size, contentType)
}

func (g *Gateway) Copy(ctx context.Context, srcKey, dstKey string) (err error) {
	defer func(start time.Time) { g.observe("copy", start, err) }(time.Now())
	return g.next.Copy(ctx, srcKey, dstKey)
}

func (g *Gateway) Stat(ctx context.Context, key string) (info objectfs.ObjectInfo, err error) {
	defer func(start time.Time) { g.observe("stat", start, err) }(time.Now())
	return g.next.Stat(ctx, key)
}

func (g *Gateway) Get(ctx context.Context, key string) (r io.ReadCloser, err error) {
	defer func(start time.Time) { g.observe("get", start, err) }(time.Now())
	return g.next.Get(ctx, key)
}

func (g *Gateway) Delete(ctx context.Context, key string) (err error) {
	defer func(start time.Time) { g.observe("delete", start, err) }(time.Now())
	return g.next.Delete(ctx, key)
}
