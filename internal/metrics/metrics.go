// Package metrics exposes Prometheus counters for the auth gate and the auth operations.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "usersvc"

// Metrics registers its collectors on a private registry.
// A nil *Metrics records nothing.
type Metrics struct {
	registry       *prometheus.Registry
	gateDecisions  *prometheus.CounterVec
	authOperations *prometheus.CounterVec
	userOperations *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		gateDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_decisions_total",
			Help:      "Requests seen by the auth gate, by outcome and reason.",
		}, []string{"outcome", "reason"}),
		authOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_operations_total",
			Help:      "Login, renewal, rotation and validation attempts, by result.",
		}, []string{"operation", "result"}),
		userOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "user_operations_total",
			Help:      "User directory operations, by result.",
		}, []string{"operation", "result"}),
	}
	m.registry.MustRegister(
		m.gateDecisions,
		m.authOperations,
		m.userOperations,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) GateDecision(outcome, reason string) {
	if m == nil {
		return
	}
	m.gateDecisions.WithLabelValues(outcome, reason).Inc()
}

func (m *Metrics) AuthOperation(operation string, err error) {
	if m == nil {
		return
	}
	m.authOperations.WithLabelValues(operation, result(err)).Inc()
}

func (m *Metrics) UserOperation(operation string, err error) {
	if m == nil {
		return
	}
	m.userOperations.WithLabelValues(operation, result(err)).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func result(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
