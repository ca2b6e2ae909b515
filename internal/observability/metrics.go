package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

var (
	personsProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "timereport",
		Subsystem: "pipeline",
		Name:      "persons_processed_total",
		Help:      "Number of persons run through the aggregation, labeled by outcome (present, absent, skipped).",
	}, []string{"outcome"})

	rowsEmitted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "timereport",
		Subsystem: "pipeline",
		Name:      "rows_emitted_total",
		Help:      "Number of report rows appended to report tables.",
	})

	queryDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "timereport",
		Subsystem: "pipeline",
		Name:      "aggregation_query_duration_seconds",
		Help:      "Time spent running the per-person aggregation query.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	lastReportGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "timereport",
		Subsystem: "pipeline",
		Name:      "last_report_timestamp_seconds",
		Help:      "Unix timestamp of the most recent report table finalized.",
	})
)

// Person outcomes recorded by RecordPerson.
const (
	OutcomePresent = "present"
	OutcomeAbsent  = "absent"
	OutcomeSkipped = "skipped"
)

func init() {
	prometheus.MustRegister(personsProcessed, rowsEmitted, queryDuration, lastReportGauge)
}

// RecordPerson counts a processed person under the given outcome.
func RecordPerson(outcome string) {
	personsProcessed.WithLabelValues(outcome).Inc()
}

// PersonCounter exposes the per-outcome counter, mainly for assertions.
func PersonCounter(outcome string) prometheus.Counter {
	return personsProcessed.WithLabelValues(outcome)
}

// RecordRows counts emitted report rows.
func RecordRows(n int) {
	if n <= 0 {
		return
	}
	rowsEmitted.Add(float64(n))
}

// ObserveQuery records the latency of one aggregation query.
func ObserveQuery(d time.Duration) {
	queryDuration.Observe(d.Seconds())
}

// RecordReportFinalized updates the report watermark gauge.
func RecordReportFinalized(ts time.Time) {
	if ts.IsZero() {
		return
	}
	lastReportGauge.Set(float64(ts.Unix()))
}

// Push sends the default registry to a Prometheus Pushgateway under the given job.
func Push(ctx context.Context, url, job string) error {
	return push.New(url, job).
		Gatherer(prometheus.DefaultGatherer).
		PushContext(ctx)
}
