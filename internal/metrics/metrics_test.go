package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollectors(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.LoginInitiated()
	m.CallbackOutcome("SessionBridged")
	m.CallbackOutcome("SessionBridged")
	m.CallbackOutcome("StateMismatch")
	m.TokenExchange(20*time.Millisecond, nil)
	m.TokenExchange(time.Second, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.logins))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.callbacks.WithLabelValues("SessionBridged")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.callbacks.WithLabelValues("StateMismatch")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.exchange))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.LoginInitiated()
		m.CallbackOutcome("Failed")
		m.TokenExchange(time.Second, nil)
	})
}
