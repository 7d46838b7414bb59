package keymanager

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	decisions *prometheus.CounterVec
}

// newMetrics registers the gateway's decision counter. A nil registerer
// keeps the counters local, which the tests use.
func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "keymanager",
			Name:      "decisions_total",
			Help:      "Authorization decisions by operation and outcome.",
		}, []string{"operation", "outcome"}),
	}

	if reg != nil {
		reg.MustRegister(m.decisions)
	}

	return m
}

func (m *metrics) observe(operation string, err error) {
	m.decisions.WithLabelValues(operation, outcomeLabel(err)).Inc()
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "allow"
	case errors.Is(err, ErrAuthorizationDenied):
		return "authorization_denied"
	case errors.Is(err, ErrAllowListDenied):
		return "allow_list_denied"
	case errors.Is(err, ErrReplay):
		return "replay"
	case errors.Is(err, ErrSignature):
		return "signature"
	case errors.Is(err, ErrStructural):
		return "structural"
	}

	return "error"
}
