package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the order engine collectors. A nil *Registry records nothing.
type Registry struct {
	reg               *prometheus.Registry
	OrdersCreated     prometheus.Counter
	OrdersRejected    *prometheus.CounterVec
	Transitions       *prometheus.CounterVec
	CreateRetries     prometheus.Counter
	CreateLatencySec  prometheus.Histogram
	IdempotentReplays prometheus.Counter
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	created := prometheus.NewCounter(prometheus.CounterOpts{Name: "preorder_orders_created_total"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "preorder_orders_rejected_total"}, []string{"reason"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "preorder_order_transitions_total"}, []string{"to"})
	retries := prometheus.NewCounter(prometheus.CounterOpts{Name: "preorder_order_retries_total"})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "preorder_order_create_latency_seconds",
		Buckets: prometheus.DefBuckets,
	})
	replays := prometheus.NewCounter(prometheus.CounterOpts{Name: "preorder_idempotent_replays_total"})

	r.MustRegister(created, rejected, transitions, retries, latency, replays,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return &Registry{
		reg:               r,
		OrdersCreated:     created,
		OrdersRejected:    rejected,
		Transitions:       transitions,
		CreateRetries:     retries,
		CreateLatencySec:  latency,
		IdempotentReplays: replays,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }

func (r *Registry) ObserveCreated(seconds float64) {
	if r == nil {
		return
	}
	r.OrdersCreated.Inc()
	r.CreateLatencySec.Observe(seconds)
}

func (r *Registry) ObserveRejected(reason string) {
	if r == nil {
		return
	}
	r.OrdersRejected.WithLabelValues(reason).Inc()
}

func (r *Registry) ObserveTransition(to string) {
	if r == nil {
		return
	}
	r.Transitions.WithLabelValues(to).Inc()
}

func (r *Registry) ObserveRetry() {
	if r == nil {
		return
	}
	r.CreateRetries.Inc()
}

func (r *Registry) ObserveReplay() {
	if r == nil {
		return
	}
	r.IdempotentReplays.Inc()
}
