// Package metrics exposes the console's Prometheus collectors.
//
// Every method is safe to call on a nil *Metrics, so components can be built
// without a registry in tests and tools.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "celerix"

// Metrics groups the console collectors.
type Metrics struct {
	notificationsPushed  *prometheus.CounterVec
	notificationsRemoved *prometheus.CounterVec
	detectorCycles       *prometheus.CounterVec
	statusUpdates        *prometheus.CounterVec
	sessionsActive       prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		notificationsPushed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_pushed_total",
			Help:      "Notifications pushed, by category.",
		}, []string{"category"}),
		notificationsRemoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_removed_total",
			Help:      "Notifications removed, by reason (expired, dismissed).",
		}, []string{"reason"}),
		detectorCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detector_cycles_total",
			Help:      "Change detector poll cycles, by result.",
		}, []string{"result"}),
		statusUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_updates_total",
			Help:      "Status updates, by collection and result.",
		}, []string{"collection", "result"}),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Operator sessions currently open.",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.notificationsPushed,
			m.notificationsRemoved,
			m.detectorCycles,
			m.statusUpdates,
			m.sessionsActive,
		)
	}
	return m
}

func (m *Metrics) NotificationPushed(category string) {
	if m == nil {
		return
	}
	m.notificationsPushed.WithLabelValues(category).Inc()
}

func (m *Metrics) NotificationRemoved(reason string) {
	if m == nil {
		return
	}
	m.notificationsRemoved.WithLabelValues(reason).Inc()
}

// DetectorCycle counts one poll; result is "initialized", "unchanged", "notified" or "skipped".
func (m *Metrics) DetectorCycle(result string) {
	if m == nil {
		return
	}
	m.detectorCycles.WithLabelValues(result).Inc()
}

// StatusUpdate counts one update; result is "updated", "not_found" or "failed".
func (m *Metrics) StatusUpdate(collection, result string) {
	if m == nil {
		return
	}
	m.statusUpdates.WithLabelValues(collection, result).Inc()
}

func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.sessionsActive.Inc()
}

func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.sessionsActive.Dec()
}
