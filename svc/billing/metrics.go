package billing

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the billing Prometheus collectors.
type Metrics struct {
	WebhookEvents    *prometheus.CounterVec
	GatewayErrors    *prometheus.CounterVec
	CheckoutSessions *prometheus.CounterVec
}

// NewMetrics registers the collectors with reg. A nil reg uses the default
// registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		WebhookEvents: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "smartfolio",
				Subsystem: "billing",
				Name:      "webhook_events_total",
				Help:      "Billing webhook deliveries by provider, event kind and outcome.",
			},
			[]string{"provider", "kind", "outcome"}, // outcome: applied, ignored, rejected, failed
		),
		GatewayErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "smartfolio",
				Subsystem: "billing",
				Name:      "gateway_errors_total",
				Help:      "Failed billing provider calls by provider and operation.",
			},
			[]string{"provider", "operation"},
		),
		CheckoutSessions: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "smartfolio",
				Subsystem: "billing",
				Name:      "checkout_sessions_total",
				Help:      "Checkout sessions created by plan.",
			},
			[]string{"plan"},
		),
	}
}

func (m *Metrics) recordWebhook(provider, kind, outcome string) {
	if m == nil {
		return
	}
	m.WebhookEvents.WithLabelValues(provider, kind, outcome).Inc()
}

func (m *Metrics) recordCheckout(plan string) {
	if m == nil {
		return
	}
	m.CheckoutSessions.WithLabelValues(plan).Inc()
}

// GatewayErrorObserver returns a callback for subscription.WithErrorObserver.
func (m *Metrics) GatewayErrorObserver(provider string) func(op string, err error) {
	return func(op string, _ error) {
		if m == nil {
			return
		}
		m.GatewayErrors.WithLabelValues(provider, op).Inc()
	}
}
