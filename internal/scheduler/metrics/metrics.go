package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/armadaproject/firstfit/internal/scheduler/scheduling"
)

var (
	poolLabels                  = []string{poolLabel}
	poolAndReasonLabels         = []string{poolLabel, terminationReasonLabel}
	poolAndResourceLabels       = []string{poolLabel, resourceLabel}
	roundDurationBucketsSeconds = prometheus.ExponentialBuckets(0.00001, 4, 12)
)

type resettableMetric interface {
	prometheus.Collector
	Reset()
}

// Metrics records the outcome of admission rounds. A pool is the set of resources a round admits jobs against.
type Metrics struct {
	mu sync.Mutex

	admittedJobs      *prometheus.CounterVec
	inspectedJobs     *prometheus.CounterVec
	consideredJobs    *prometheus.GaugeVec
	rounds            *prometheus.CounterVec
	roundDuration     *prometheus.HistogramVec
	remainingResource *prometheus.GaugeVec
	allMetrics        []resettableMetric
}

func New() *Metrics {
	admittedJobs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "admitted_jobs",
			Help: "Number of jobs admitted",
		},
		poolLabels,
	)

	inspectedJobs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "inspected_jobs",
			Help: "Number of candidate jobs inspected, whether admitted or not",
		},
		poolLabels,
	)

	consideredJobs := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: prefix + "considered_jobs",
			Help: "Number of candidate jobs supplied to the last round",
		},
		poolLabels,
	)

	rounds := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "rounds",
			Help: "Number of admission rounds, by why the round ended",
		},
		poolAndReasonLabels,
	)

	roundDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "round_duration_seconds",
			Help:    "Time spent in the admission loop",
			Buckets: roundDurationBucketsSeconds,
		},
		poolLabels,
	)

	remainingResource := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: prefix + "remaining_resources",
			Help: "Resources left unallocated after the last round",
		},
		poolAndResourceLabels,
	)

	return &Metrics{
		admittedJobs:      admittedJobs,
		inspectedJobs:     inspectedJobs,
		consideredJobs:    consideredJobs,
		rounds:            rounds,
		roundDuration:     roundDuration,
		remainingResource: remainingResource,
		allMetrics: []resettableMetric{
			admittedJobs,
			inspectedJobs,
			consideredJobs,
			rounds,
			roundDuration,
			remainingResource,
		},
	}
}

func (m *Metrics) ReportAdmissionResult(pool string, result *scheduling.AdmissionResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.admittedJobs.WithLabelValues(pool).Add(float64(len(result.AdmittedJobIds)))
	m.inspectedJobs.WithLabelValues(pool).Add(float64(result.JobsInspected))
	m.consideredJobs.WithLabelValues(pool).Set(float64(result.JobsConsidered))
	m.rounds.WithLabelValues(pool, result.TerminationReason).Inc()
	m.roundDuration.WithLabelValues(pool).Observe(result.Duration.Seconds())
	for _, r := range result.Remaining.GetResources() {
		m.remainingResource.WithLabelValues(pool, r.Name).Set(r.Value.AsApproximateFloat64())
	}
}

// Reset removes all recorded values.
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, metric := range m.allMetrics {
		metric.Reset()
	}
}

func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	for _, metric := range m.allMetrics {
		metric.Describe(ch)
	}
}

func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	for _, metric := range m.allMetrics {
		metric.Collect(ch)
	}
}
