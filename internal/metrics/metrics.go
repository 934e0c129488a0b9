// Package metrics holds the process-wide prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Stream outcomes.
const (
	OutcomeDone    = "done"
	OutcomeTimeout = "timeout"
	OutcomeError   = "error"
)

// Login outcomes.
const (
	LoginSuccess        = "success"
	LoginTenantNotFound = "tenant_not_found"
	LoginPINIncorrect   = "pin_incorrect"
	LoginIndexHit       = "index_hit"
	LoginStorageError   = "storage_error"
)

var (
	chatStreamsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "companion",
			Name:      "chat_streams_total",
			Help:      "Reply streams by mode and terminal outcome.",
		},
		[]string{"mode", "outcome"},
	)

	chatStreamSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "companion",
			Name:      "chat_stream_seconds",
			Help:      "Time from request to terminal stream event.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 35, 60},
		},
		[]string{"mode"},
	)

	residentLoginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "companion",
			Name:      "resident_logins_total",
			Help:      "Resident PIN login attempts by outcome.",
		},
		[]string{"outcome"},
	)

	pinHashesSkippedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "companion",
			Name:      "pin_hashes_skipped_total",
			Help:      "Stored PIN values skipped during login because they are not well-formed bcrypt hashes.",
		},
	)
)

// ObserveStream records one finished reply stream.
func ObserveStream(mode, outcome string, d time.Duration) {
	chatStreamsTotal.WithLabelValues(mode, outcome).Inc()
	chatStreamSeconds.WithLabelValues(mode).Observe(d.Seconds())
}

// ObserveResidentLogin records one PIN login attempt.
func ObserveResidentLogin(outcome string) {
	residentLoginsTotal.WithLabelValues(outcome).Inc()
}

// PINHashSkipped counts a malformed stored PIN hash.
func PINHashSkipped() {
	pinHashesSkippedTotal.Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
