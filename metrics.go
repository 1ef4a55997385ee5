package main

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lg/energy-balance-api/internal/energy"
)

// metrics holds the Prometheus collectors for the service.
type metrics struct {
	registry *prometheus.Registry

	QueryDuration     *prometheus.HistogramVec
	SourceCalls       *prometheus.CounterVec
	LiveSubscriptions prometheus.Gauge
	Updates           *prometheus.CounterVec
	Degraded          *prometheus.CounterVec
}

func newMetrics(reg *prometheus.Registry) *metrics {
	m := &metrics{
		registry: reg,
		QueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "energy_store_query_duration_seconds",
				Help:    "Duration of store reads including retries",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
			[]string{"op", "result"},
		),
		SourceCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "energy_source_calls_total",
				Help: "Activity provider calls made by the energy core, by source and outcome",
			},
			[]string{"source", "result"},
		),
		LiveSubscriptions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "energy_live_subscriptions",
				Help: "Currently open live energy balance streams",
			},
		),
		Updates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "energy_balance_updates_total",
				Help: "Energy balance results delivered, by mode and outcome",
			},
			[]string{"mode", "result"},
		),
		Degraded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "energy_component_degraded_total",
				Help: "Delivered balances with a component substituted by 0 kcal",
			},
			[]string{"component", "status"},
		),
	}
	reg.MustRegister(m.QueryDuration, m.SourceCalls, m.LiveSubscriptions, m.Updates, m.Degraded)
	return m
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// resultLabel classifies an error for metric labels.
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case energy.IsFatal(err):
		return "fatal"
	case errorIsDenied(err):
		return "permission_denied"
	}
	return "error"
}

// observeQuery is installed as store.Store.OnQuery.
func (m *metrics) observeQuery(op string, d time.Duration, err error) {
	m.QueryDuration.WithLabelValues(op, resultLabel(err)).Observe(d.Seconds())
}

// observeUpdate records one delivered balance.
func (m *metrics) observeUpdate(u energy.Update) {
	m.Updates.WithLabelValues(u.Mode.String(), resultLabel(u.Err)).Inc()
	if u.Err != nil {
		return
	}
	for c, s := range map[energy.Component]energy.Status{
		energy.ComponentNEAT:       u.Balance.NEATStatus,
		energy.ComponentActive:     u.Balance.ActiveStatus,
		energy.ComponentCaloriesIn: u.Balance.CaloriesInStatus,
	} {
		if s.Degraded() {
			m.Degraded.WithLabelValues(c.String(), s.String()).Inc()
		}
	}
}

/* ─── Instrumented provider ──────────────────────────────────────────── */

// instrumentedProvider counts every call the core makes to its provider.
type instrumentedProvider struct {
	next    energy.ActivityProvider
	metrics *metrics
}

func (m *metrics) instrument(p energy.ActivityProvider) energy.ActivityProvider {
	return instrumentedProvider{next: p, metrics: m}
}

func (p instrumentedProvider) StepCount(ctx context.Context, w energy.TimeWindow, exclude []energy.TimeWindow) (int64, error) {
	n, err := p.next.StepCount(ctx, w, exclude)
	p.metrics.SourceCalls.WithLabelValues("steps", resultLabel(err)).Inc()
	return n, err
}

func (p instrumentedProvider) ExerciseSessions(ctx context.Context, w energy.TimeWindow) ([]energy.ExerciseInterval, error) {
	s, err := p.next.ExerciseSessions(ctx, w)
	p.metrics.SourceCalls.WithLabelValues("exercise", resultLabel(err)).Inc()
	return s, err
}

func (p instrumentedProvider) FoodIntake(ctx context.Context, w energy.TimeWindow) ([]energy.FoodIntakeRecord, error) {
	r, err := p.next.FoodIntake(ctx, w)
	p.metrics.SourceCalls.WithLabelValues("food", resultLabel(err)).Inc()
	return r, err
}
