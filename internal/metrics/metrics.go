package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	IntakeVerdicts *prometheus.CounterVec
	Confirmations  *prometheus.CounterVec
	MXLookups      *prometheus.CounterVec
	RateLimited    prometheus.Counter

	gatherer prometheus.Gatherer
}

// New registers the waitlist collectors on reg. A nil reg uses the default registry.
func New(reg *prometheus.Registry) *Metrics {
	var registerer prometheus.Registerer = prometheus.DefaultRegisterer
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if reg != nil {
		registerer = reg
		gatherer = reg
	}
	factory := promauto.With(registerer)

	return &Metrics{
		IntakeVerdicts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "waitlist_intake_verdicts_total",
			Help: "Total number of intake verdicts by outcome",
		}, []string{"verdict"}),
		Confirmations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "waitlist_confirmations_total",
			Help: "Total number of confirmation mails by result",
		}, []string{"result"}),
		MXLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "waitlist_mx_lookups_total",
			Help: "Total number of MX lookups by status",
		}, []string{"status"}),
		RateLimited: factory.NewCounter(prometheus.CounterOpts{
			Name: "waitlist_rate_limited_requests_total",
			Help: "Total number of join requests rejected by the rate limiter",
		}),
		gatherer: gatherer,
	}
}

func (m *Metrics) ObserveVerdict(verdict string) {
	if m == nil {
		return
	}
	if verdict == "" {
		verdict = "accepted"
	}
	m.IntakeVerdicts.WithLabelValues(verdict).Inc()
}

func (m *Metrics) ObserveConfirmation(result string) {
	if m == nil {
		return
	}
	m.Confirmations.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveMXLookup(status string) {
	if m == nil || status == "" {
		return
	}
	m.MXLookups.WithLabelValues(status).Inc()
}

func (m *Metrics) IncrementRateLimited() {
	if m == nil {
		return
	}
	m.RateLimited.Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
