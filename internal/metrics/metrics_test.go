package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.NotificationPushed("success")
		m.NotificationRemoved("expired")
		m.DetectorCycle("skipped")
		m.StatusUpdate("orders", "updated")
		m.SessionOpened()
		m.SessionClosed()
	})
}

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.NotificationPushed("success")
	m.NotificationPushed("success")
	m.NotificationPushed("error")
	m.StatusUpdate("tracking", "not_found")
	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.notificationsPushed.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notificationsPushed.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.statusUpdates.WithLabelValues("tracking", "not_found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionsActive))

	count, err := testutil.GatherAndCount(reg)
	assert.NoError(t, err)
	assert.Equal(t, 4, count)
}
