// Package metrics holds the service's Prometheus collectors on a private registry.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "matchverify"

var (
	registry = prometheus.NewRegistry()

	verifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "verifications_total",
		Help:      "Verified submissions by game and tie-break label.",
	}, []string{"game", "tie_break"})

	verifyConfidence = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "verification_confidence",
		Help:      "Confidence of verified submissions.",
		Buckets:   []float64{0.3, 0.5, 0.6, 0.7, 0.8, 0.9, 0.95, 0.99},
	}, []string{"game"})

	comparisons = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "comparisons_total",
		Help:      "Arbitrated submission pairs by game and alignment.",
	}, []string{"game", "aligned"})

	extractions = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "extract_duration_seconds",
		Help:      "Text extraction latency by outcome.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"outcome"})

	translations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "translations_total",
		Help:      "Translation fallbacks by outcome (hit, miss, error, skipped).",
	}, []string{"outcome"})

	notifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Verdict notifications by transport and outcome.",
	}, []string{"transport", "outcome"})
)

func init() {
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		verifications, verifyConfidence, comparisons, extractions, translations, notifications,
	)
}

// Registry exposes the collectors for the /metrics handler.
func Registry() *prometheus.Registry { return registry }

func ObserveVerify(game, tieBreak string, confidence float64) {
	if tieBreak == "" {
		tieBreak = "none"
	}
	verifications.WithLabelValues(game, tieBreak).Inc()
	verifyConfidence.WithLabelValues(game).Observe(confidence)
}

func ObserveCompare(game string, aligned bool) {
	comparisons.WithLabelValues(game, strconv.FormatBool(aligned)).Inc()
}

func ObserveExtract(outcome string, d time.Duration) {
	extractions.WithLabelValues(outcome).Observe(d.Seconds())
}

func IncTranslate(outcome string) { translations.WithLabelValues(outcome).Inc() }

func IncNotify(transport, outcome string) {
	notifications.WithLabelValues(transport, outcome).Inc()
}
