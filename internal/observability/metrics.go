package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds the process-wide counters. A single instance is provided
// through fx and shared by the webhook and charge services.
type Metrics struct {
	Registry *prometheus.Registry

	WebhookEvents *prometheus.CounterVec
	Charges       *prometheus.CounterVec
	Donations     *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		Registry: reg,
		WebhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "donare_webhook_events_total",
			Help: "Webhook events by outcome (processed, duplicate, rejected).",
		}, []string{"outcome"}),
		Charges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "donare_recurring_charges_total",
			Help: "Recurring charge attempts by outcome (charged, skipped, failed).",
		}, []string{"outcome"}),
		Donations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "donare_donations_total",
			Help: "Donation intake submissions by stage.",
		}, []string{"stage"}),
	}
	reg.MustRegister(m.WebhookEvents, m.Charges, m.Donations)
	return m
}
