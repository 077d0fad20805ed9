package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	GuardOutcomes    *prometheus.CounterVec
	EventsPublished  *prometheus.CounterVec
	EventsDropped    *prometheus.CounterVec
	EventsDispatched *prometheus.CounterVec
	WebhookSends     *prometheus.CounterVec
	EmailDeliveries  *prometheus.CounterVec
	TaskFailures     *prometheus.CounterVec
	UsersRegistered  prometheus.Counter
	ReportsFiled     *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the metrics on reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		GuardOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hatch_guard_outcomes_total",
			Help: "Guard chain decisions by deciding guard and decision",
		}, []string{"guard", "decision"}),
		EventsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hatch_events_published_total",
			Help: "Events handed to the broker by channel",
		}, []string{"channel"}),
		EventsDropped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hatch_events_dropped_total",
			Help: "Events the broker refused by channel",
		}, []string{"channel"}),
		EventsDispatched: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hatch_events_dispatched_total",
			Help: "Consumed events by channel and result",
		}, []string{"channel", "result"}),
		WebhookSends: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hatch_webhook_sends_total",
			Help: "Chat webhook deliveries by result",
		}, []string{"result"}),
		EmailDeliveries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hatch_email_deliveries_total",
			Help: "Verification email attempts by provider and result",
		}, []string{"provider", "result"}),
		TaskFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hatch_background_task_failures_total",
			Help: "Background tasks that returned an error or panicked",
		}, []string{"task"}),
		UsersRegistered: f.NewCounter(prometheus.CounterOpts{
			Name: "hatch_users_registered_total",
			Help: "Total number of accounts created",
		}),
		ReportsFiled: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hatch_reports_filed_total",
			Help: "Accepted content reports by location",
		}, []string{"location"}),
	}
}

func (m *Metrics) ObserveGuard(guard, decision string) {
	if m == nil {
		return
	}
	m.GuardOutcomes.WithLabelValues(guard, decision).Inc()
}

func (m *Metrics) IncEventPublished(channel string) {
	if m == nil {
		return
	}
	m.EventsPublished.WithLabelValues(channel).Inc()
}

func (m *Metrics) IncEventDropped(channel string) {
	if m == nil {
		return
	}
	m.EventsDropped.WithLabelValues(channel).Inc()
}

func (m *Metrics) IncEventDispatched(channel, result string) {
	if m == nil {
		return
	}
	m.EventsDispatched.WithLabelValues(channel, result).Inc()
}

func (m *Metrics) IncWebhookSend(result string) {
	if m == nil {
		return
	}
	m.WebhookSends.WithLabelValues(result).Inc()
}

func (m *Metrics) IncEmailDelivery(provider, result string) {
	if m == nil {
		return
	}
	m.EmailDeliveries.WithLabelValues(provider, result).Inc()
}

// IncrementUsersRegistered increments the users registered counter by 1
func (m *Metrics) IncrementUsersRegistered() {
	if m == nil {
		return
	}
	m.UsersRegistered.Inc()
}

func (m *Metrics) IncReportFiled(location string) {
	if m == nil {
		return
	}
	m.ReportsFiled.WithLabelValues(location).Inc()
}
