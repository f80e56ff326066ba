// Package metrics exports Prometheus metrics for units of work. A Collector
// is a uow.Observer and is attached with uow.WithObserver.
package metrics

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/fortressi/uow"
)

// Collector holds Prometheus metrics for units of work.
type Collector struct {
	Transitions      *prometheus.CounterVec
	RollbackFailures *prometheus.CounterVec
	UnitDuration     *prometheus.HistogramVec

	started  *xsync.MapOf[uuid.UUID, uow.Event]
	gatherer prometheus.Gatherer
}

var _ uow.Observer = (*Collector)(nil)

// NewDefault registers metrics with the default Prometheus registry.
func NewDefault() *Collector {
	return newCollector(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
}

// New registers metrics with the provided registry. If registry is nil, a new
// isolated registry is created.
func New(registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	return newCollector(registry, registry)
}

func newCollector(registerer prometheus.Registerer, gatherer prometheus.Gatherer) *Collector {
	c := &Collector{
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "uow_unit_transitions_total",
			Help: "Total unit status transitions by phase and resulting status.",
		}, []string{"phase", "status"}),
		RollbackFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "uow_rollback_failures_total",
			Help: "Total failed unit rollbacks by phase.",
		}, []string{"phase"}),
		UnitDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "uow_unit_duration_seconds",
			Help:    "Duration of unit actions and rollbacks in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"phase", "outcome"}),
		started:  xsync.NewMapOf[uuid.UUID, uow.Event](),
		gatherer: gatherer,
	}

	registerer.MustRegister(
		c.Transitions,
		c.RollbackFailures,
		c.UnitDuration,
	)

	return c
}

// Handler returns an HTTP handler that exposes metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

// WriteText gathers the metrics and writes them to w in the Prometheus text
// exposition format.
func (c *Collector) WriteText(w io.Writer) error {
	families, err := c.gatherer.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metric family %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// Observe implements uow.Observer.
func (c *Collector) Observe(_ context.Context, ev uow.Event) {
	phase := ev.Phase.String()
	c.Transitions.WithLabelValues(phase, ev.To.String()).Inc()

	switch ev.Type {
	case uow.EventStarted, uow.EventRollbackStarted:
		c.started.Store(ev.UnitID, ev)
	case uow.EventSucceeded, uow.EventFailed, uow.EventRolledBack, uow.EventRollbackFailed:
		if ev.Type == uow.EventRollbackFailed {
			c.RollbackFailures.WithLabelValues(phase).Inc()
		}
		if start, ok := c.started.LoadAndDelete(ev.UnitID); ok {
			c.UnitDuration.WithLabelValues(phase, ev.Type.String()).Observe(ev.At.Sub(start.At).Seconds())
		}
	}
}

// Pending returns the number of actions or rollbacks that have started but
// not finished.
func (c *Collector) Pending() int {
	return c.started.Size()
}
