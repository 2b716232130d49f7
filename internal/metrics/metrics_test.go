package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Observe(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveVerdict("")
	m.ObserveVerdict("flagged_scam")
	m.ObserveVerdict("flagged_scam")
	m.ObserveConfirmation("sent")
	m.ObserveMXLookup("not_found")
	m.ObserveMXLookup("")
	m.IncrementRateLimited()

	assert.Equal(t, float64(1), testutil.ToFloat64(m.IntakeVerdicts.WithLabelValues("accepted")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.IntakeVerdicts.WithLabelValues("flagged_scam")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Confirmations.WithLabelValues("sent")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.MXLookups))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RateLimited))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveVerdict("invalid_format")
		m.ObserveConfirmation("failed")
		m.ObserveMXLookup("failed")
		m.IncrementRateLimited()
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveVerdict("invalid_domain")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `waitlist_intake_verdicts_total{verdict="invalid_domain"} 1`)
}
