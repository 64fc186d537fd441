// Package metrics exposes Prometheus collectors for the login flow.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	callbacks *prometheus.CounterVec
	logins    prometheus.Counter
	exchange  *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		logins: f.NewCounter(prometheus.CounterOpts{
			Namespace: "eid",
			Name:      "login_initiated_total",
			Help:      "Login redirects sent to the broker.",
		}),
		callbacks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eid",
			Name:      "callback_outcomes_total",
			Help:      "Callback handshakes by terminal state.",
		}, []string{"state"}),
		exchange: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "eid",
			Name:      "token_exchange_seconds",
			Help:      "Latency of the broker token request.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"result"}),
	}
}

// A nil *Metrics records nothing.

func (m *Metrics) LoginInitiated() {
	if m == nil {
		return
	}
	m.logins.Inc()
}

func (m *Metrics) CallbackOutcome(state string) {
	if m == nil {
		return
	}
	m.callbacks.WithLabelValues(state).Inc()
}

func (m *Metrics) TokenExchange(d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.exchange.WithLabelValues(result).Observe(d.Seconds())
}
