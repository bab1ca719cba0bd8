package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armadaproject/firstfit/internal/scheduler/internaltypes/testfixtures"
	"github.com/armadaproject/firstfit/internal/scheduler/scheduling"
)

func testResult() *scheduling.AdmissionResult {
	return &scheduling.AdmissionResult{
		AdmittedJobIds:    []string{"a", "b"},
		JobsConsidered:    5,
		JobsInspected:     3,
		MaxInspections:    5,
		TerminationReason: scheduling.RoundLimitReachedTerminationReason,
		Available:         testfixtures.Resources("4", "8"),
		Remaining:         testfixtures.Resources("1.5", "2"),
		Duration:          time.Millisecond,
	}
}

func TestReportAdmissionResult(t *testing.T) {
	m := New()
	m.ReportAdmissionResult("pool1", testResult())
	m.ReportAdmissionResult("pool1", testResult())

	assert.Equal(t, 4.0, testutil.ToFloat64(m.admittedJobs.WithLabelValues("pool1")))
	assert.Equal(t, 6.0, testutil.ToFloat64(m.inspectedJobs.WithLabelValues("pool1")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.consideredJobs.WithLabelValues("pool1")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.rounds.WithLabelValues("pool1", scheduling.RoundLimitReachedTerminationReason)))
	assert.Equal(t, 1.5, testutil.ToFloat64(m.remainingResource.WithLabelValues("pool1", "cpu")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.remainingResource.WithLabelValues("pool1", "memory")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.roundDuration))
}

func TestReset(t *testing.T) {
	m := New()
	m.ReportAdmissionResult("pool1", testResult())
	m.Reset()

	assert.Equal(t, 0, testutil.CollectAndCount(m))
}

func TestRegister(t *testing.T) {
	m := New()
	registry := prometheus.NewRegistry()
	require.NoError(t, registry.Register(m))

	m.ReportAdmissionResult("pool1", testResult())
	families, err := registry.Gather()
	require.NoError(t, err)

	names := make([]string, len(families))
	for i, family := range families {
		names[i] = family.GetName()
	}
	assert.ElementsMatch(
		t,
		[]string{
			"firstfit_scheduler_admitted_jobs",
			"firstfit_scheduler_inspected_jobs",
			"firstfit_scheduler_considered_jobs",
			"firstfit_scheduler_rounds",
			"firstfit_scheduler_round_duration_seconds",
			"firstfit_scheduler_remaining_resources",
		},
		names,
	)
}
