package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTransitionCounters(t *testing.T) {
	m := NewMetrics("clinic", "api", prometheus.NewRegistry())

	m.Transition("accept", nil)
	m.Transition("accept", nil)
	m.Transition("complete", errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Transitions.WithLabelValues("accept", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transitions.WithLabelValues("complete", "error")))
}

func TestStatsCounters(t *testing.T) {
	m := NewMetrics("clinic", "api", prometheus.NewRegistry())

	m.StatsRequest("stats", true)
	m.StatsRequest("stats", false)
	m.StatsFallback("insights")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.StatsRequests.WithLabelValues("stats", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StatsRequests.WithLabelValues("stats", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StatsFallbacks.WithLabelValues("insights")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.AppointmentCreated("regular")
		m.Transition("accept", nil)
		m.StatsRequest("stats", true)
		m.StatsFallback("stats")
		m.OutboxWritten("appointment.created")
		m.OutboxProcessed(nil)
		m.OutboxRetry("appointment.created")
		m.OutboxBatch(time.Now())
		m.Notification(nil)
		m.Database("list", time.Now(), nil)
		m.Redis("publish", time.Now(), nil)
	})
}
