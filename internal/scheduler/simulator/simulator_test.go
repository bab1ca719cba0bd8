package simulator

import (
	"container/heap"
	"math/rand"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/api/resource"

	"github.com/armadaproject/firstfit/internal/common/armadacontext"
	"github.com/armadaproject/firstfit/internal/scheduler/configuration"
	"github.com/armadaproject/firstfit/internal/scheduler/metrics"
	"github.com/armadaproject/firstfit/internal/scheduler/scheduling"
)

func TestSimulator(t *testing.T) {
	tests := map[string]struct {
		clusterSpec      *ClusterSpec
		workloadSpec     *WorkloadSpec
		schedulingConfig configuration.SchedulingConfig
		expected         *SimulationResult
	}{
		"two rounds": {
			clusterSpec: cluster("2", "8Gi"),
			workloadSpec: workload(
				jobTemplate("a", 4, 0, "1", "0", time.Hour),
			),
			schedulingConfig: configuration.DefaultSchedulingConfig(),
			expected: &SimulationResult{
				Rounds:          2,
				Makespan:        2 * time.Hour,
				JobsAdmitted:    4,
				MeanUtilisation: map[string]float64{"cpu": 1, "memory": 0},
			},
		},
		"half utilised": {
			clusterSpec: cluster("4", "8Gi"),
			workloadSpec: workload(
				jobTemplate("a", 2, 0, "1", "4Gi", time.Hour),
			),
			schedulingConfig: configuration.DefaultSchedulingConfig(),
			expected: &SimulationResult{
				Rounds:          1,
				Makespan:        time.Hour,
				JobsAdmitted:    2,
				MeanUtilisation: map[string]float64{"cpu": 0.5, "memory": 1},
			},
		},
		"dependencies": {
			clusterSpec: cluster("16", "64Gi"),
			workloadSpec: workload(
				jobTemplate("a", 1, 0, "1", "1Gi", time.Hour),
				withDependencies(jobTemplate("b", 2, 0, "1", "1Gi", time.Hour), "a"),
				withDependencies(jobTemplate("c", 1, 0, "1", "1Gi", 30*time.Minute), "a", "b"),
			),
			schedulingConfig: configuration.DefaultSchedulingConfig(),
			expected: &SimulationResult{
				Rounds:          3,
				Makespan:        150 * time.Minute,
				JobsAdmitted:    4,
				MeanUtilisation: map[string]float64{"cpu": 3.5 / 16 / 2.5, "memory": 3.5 / 64 / 2.5},
			},
		},
		"empty template completes immediately": {
			clusterSpec: cluster("1", "1Gi"),
			workloadSpec: workload(
				jobTemplate("a", 0, 0, "1", "0", time.Hour),
				withDependencies(jobTemplate("b", 1, 0, "1", "0", time.Hour), "a"),
			),
			schedulingConfig: configuration.DefaultSchedulingConfig(),
			expected: &SimulationResult{
				Rounds:          1,
				Makespan:        time.Hour,
				JobsAdmitted:    1,
				MeanUtilisation: map[string]float64{"cpu": 1, "memory": 0},
			},
		},
		"round limit": {
			clusterSpec: cluster("4", "4Gi"),
			workloadSpec: workload(
				jobTemplate("a", 3, 0, "1", "1Gi", time.Hour),
			),
			schedulingConfig: withRoundLimit(configuration.DefaultSchedulingConfig(), 1),
			expected: &SimulationResult{
				Rounds:          3,
				Makespan:        time.Hour,
				JobsAdmitted:    3,
				MeanUtilisation: map[string]float64{"cpu": 0.75, "memory": 0.75},
			},
		},
		"job too large for the cluster": {
			clusterSpec: cluster("4", "4Gi"),
			workloadSpec: workload(
				jobTemplate("small", 1, 0, "1", "1Gi", time.Hour),
				jobTemplate("large", 1, 0, "8", "1Gi", time.Hour),
				withDependencies(jobTemplate("after", 2, 0, "1", "1Gi", time.Hour), "large"),
			),
			schedulingConfig: configuration.DefaultSchedulingConfig(),
			expected: &SimulationResult{
				Rounds:          2,
				Makespan:        time.Hour,
				JobsAdmitted:    1,
				StuckJobIds:     []string{"large-0", "after-0", "after-1"},
				MeanUtilisation: map[string]float64{"cpu": 0.25, "memory": 0.25},
			},
		},
		"no jobs": {
			clusterSpec:      cluster("4", "4Gi"),
			workloadSpec:     workload(),
			schedulingConfig: configuration.DefaultSchedulingConfig(),
			expected: &SimulationResult{
				MeanUtilisation: map[string]float64{"cpu": 0, "memory": 0},
			},
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			s, err := NewSimulator(tc.clusterSpec, tc.workloadSpec, tc.schedulingConfig, 1000, nil)
			require.NoError(t, err)
			s.SuppressSchedulerLogs = true

			actual, err := s.Run(armadacontext.Discard())
			require.NoError(t, err)

			assert.Equal(t, tc.expected.Rounds, actual.Rounds, "rounds")
			assert.Equal(t, tc.expected.Makespan, actual.Makespan, "makespan")
			assert.Equal(t, tc.expected.JobsAdmitted, actual.JobsAdmitted, "jobsAdmitted")
			assert.Equal(t, tc.expected.StuckJobIds, actual.StuckJobIds, "stuckJobIds")
			require.Len(t, actual.MeanUtilisation, len(tc.expected.MeanUtilisation))
			for resourceName, expected := range tc.expected.MeanUtilisation {
				assert.InDelta(t, expected, actual.MeanUtilisation[resourceName], 1e-9, resourceName)
			}
		})
	}
}

func TestSimulator_ReportsMetrics(t *testing.T) {
	m := metrics.New()
	s, err := NewSimulator(
		cluster("2", "8Gi"),
		workload(jobTemplate("a", 4, 0, "1", "0", time.Hour)),
		configuration.DefaultSchedulingConfig(),
		1000,
		m,
	)
	require.NoError(t, err)

	_, err = s.Run(armadacontext.Discard())
	require.NoError(t, err)
	assert.Equal(t, 1, testutil.CollectAndCount(m, "firstfit_scheduler_rounds"))
	assert.Equal(t, 2, testutil.CollectAndCount(m, "firstfit_scheduler_remaining_resources"))
}

func TestSimulator_StuckBehindInspectionLimit(t *testing.T) {
	// Only the large job is inspected each round, so the small one is never reached.
	s, err := NewSimulator(
		cluster("4", "4Gi"),
		workload(
			jobTemplate("large", 1, 10, "8", "1Gi", time.Hour),
			jobTemplate("small", 1, 0, "1", "1Gi", time.Hour),
		),
		withRoundLimit(withGreediness(configuration.DefaultSchedulingConfig(), 1), 1),
		10,
		nil,
	)
	require.NoError(t, err)
	s.SuppressSchedulerLogs = true
	logger, hook := test.NewNullLogger()
	result, err := s.Run(armadacontext.New(armadacontext.Background(), logrus.NewEntry(logger)))
	require.NoError(t, err)
	assert.Equal(t, []string{"large-0", "small-0"}, result.StuckJobIds)

	var warnings []string
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel {
			warnings = append(warnings, entry.Message)
		}
	}
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], scheduling.InspectionLimitReachedTerminationReason)
	assert.NotContains(t, warnings[0], "fits")
}

func TestSimulator_MaxRounds(t *testing.T) {
	s, err := NewSimulator(
		cluster("1", "8Gi"),
		workload(jobTemplate("a", 4, 0, "1", "0", time.Hour)),
		configuration.DefaultSchedulingConfig(),
		2,
		nil,
	)
	require.NoError(t, err)

	_, err = s.Run(armadacontext.Discard())
	assert.Error(t, err)
}

func TestSimulator_Cancelled(t *testing.T) {
	s, err := NewSimulator(
		cluster("1", "8Gi"),
		workload(jobTemplate("a", 4, 0, "1", "0", time.Hour)),
		configuration.DefaultSchedulingConfig(),
		1000,
		nil,
	)
	require.NoError(t, err)

	ctx, cancel := armadacontext.WithCancel(armadacontext.Discard())
	cancel()
	_, err = s.Run(ctx)
	assert.ErrorIs(t, err, ctx.Err())
}

func TestNewSimulator_Errors(t *testing.T) {
	tests := map[string]struct {
		clusterSpec      *ClusterSpec
		workloadSpec     *WorkloadSpec
		schedulingConfig configuration.SchedulingConfig
		maxRounds        int
	}{
		"duplicate template ids": {
			clusterSpec:      cluster("1", "1Gi"),
			workloadSpec:     workload(jobTemplate("a", 1, 0, "1", "0", 0), jobTemplate("a", 1, 0, "1", "0", 0)),
			schedulingConfig: configuration.DefaultSchedulingConfig(),
			maxRounds:        1,
		},
		"missing dependency": {
			clusterSpec:      cluster("1", "1Gi"),
			workloadSpec:     workload(withDependencies(jobTemplate("a", 1, 0, "1", "0", 0), "b")),
			schedulingConfig: configuration.DefaultSchedulingConfig(),
			maxRounds:        1,
		},
		"negative number": {
			clusterSpec:      cluster("1", "1Gi"),
			workloadSpec:     workload(jobTemplate("a", -1, 0, "1", "0", 0)),
			schedulingConfig: configuration.DefaultSchedulingConfig(),
			maxRounds:        1,
		},
		"negative capacity": {
			clusterSpec:      cluster("-1", "1Gi"),
			workloadSpec:     workload(),
			schedulingConfig: configuration.DefaultSchedulingConfig(),
			maxRounds:        1,
		},
		"invalid greediness": {
			clusterSpec:      cluster("1", "1Gi"),
			workloadSpec:     workload(),
			schedulingConfig: withGreediness(configuration.DefaultSchedulingConfig(), 2),
			maxRounds:        1,
		},
		"zero max rounds": {
			clusterSpec:      cluster("1", "1Gi"),
			workloadSpec:     workload(),
			schedulingConfig: configuration.DefaultSchedulingConfig(),
			maxRounds:        0,
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewSimulator(tc.clusterSpec, tc.workloadSpec, tc.schedulingConfig, tc.maxRounds, nil)
			assert.Error(t, err)
		})
	}
}

func TestSimulator_GeneratesTemplateIds(t *testing.T) {
	workloadSpec := workload(jobTemplate("", 1, 0, "1", "0", time.Minute))
	s, err := NewSimulator(cluster("1", "1Gi"), workloadSpec, configuration.DefaultSchedulingConfig(), 10, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, s.WorkloadSpec.JobTemplates[0].Id)
	assert.NotEmpty(t, s.Id)
}

func TestEventLog(t *testing.T) {
	var el EventLog
	heap.Push(&el, Event{time: epochStart.Add(time.Hour), sequenceNumber: 0, jobId: "c"})
	heap.Push(&el, Event{time: epochStart, sequenceNumber: 2, jobId: "b"})
	heap.Push(&el, Event{time: epochStart, sequenceNumber: 1, jobId: "a"})

	next, ok := el.nextCompletionTime()
	require.True(t, ok)
	assert.Equal(t, epochStart, next)

	var jobIds []string
	for el.Len() > 0 {
		jobIds = append(jobIds, heap.Pop(&el).(Event).jobId)
	}
	assert.Equal(t, []string{"a", "b", "c"}, jobIds)

	_, ok = el.nextCompletionTime()
	assert.False(t, ok)
}

func TestGenerateRandomShiftedExponentialDuration(t *testing.T) {
	assert.Equal(
		t,
		time.Hour,
		generateRandomShiftedExponentialDuration(
			rand.New(rand.NewSource(0)),
			ShiftedExponential{
				Minimum: time.Hour,
			},
		),
	)
	assert.Less(
		t,
		time.Hour,
		generateRandomShiftedExponentialDuration(
			rand.New(rand.NewSource(0)),
			ShiftedExponential{
				Minimum:  time.Hour,
				TailMean: time.Second,
			},
		),
	)
}

func TestSimulationResult_String(t *testing.T) {
	result := &SimulationResult{
		Rounds:          2,
		Makespan:        time.Hour,
		JobsAdmitted:    3,
		StuckJobIds:     []string{"a"},
		MeanUtilisation: map[string]float64{"memory": 0.25, "cpu": 0.5},
	}
	assert.Equal(
		t,
		"{Rounds: 2, Makespan: 1h0m0s, JobsAdmitted: 3, StuckJobs: 1, MeanUtilisation: {cpu: 0.500, memory: 0.250}}",
		result.String(),
	)
}

func cluster(cpu, memory string) *ClusterSpec {
	return &ClusterSpec{
		Name: "test",
		Resources: map[string]resource.Quantity{
			"cpu":    resource.MustParse(cpu),
			"memory": resource.MustParse(memory),
		},
	}
}

func workload(jobTemplates ...*JobTemplate) *WorkloadSpec {
	return &WorkloadSpec{
		Name:         "test",
		RandomSeed:   1,
		JobTemplates: jobTemplates,
	}
}

func jobTemplate(id string, number int, priority float64, cpu, memory string, runtime time.Duration) *JobTemplate {
	return &JobTemplate{
		Id:       id,
		Number:   number,
		Priority: priority,
		Requirements: map[string]resource.Quantity{
			"cpu":    resource.MustParse(cpu),
			"memory": resource.MustParse(memory),
		},
		Runtime: ShiftedExponential{Minimum: runtime},
	}
}

func withDependencies(jobTemplate *JobTemplate, dependencies ...string) *JobTemplate {
	jobTemplate.Dependencies = dependencies
	return jobTemplate
}

func withRoundLimit(config configuration.SchedulingConfig, roundLimit int) configuration.SchedulingConfig {
	config.RoundLimit = roundLimit
	return config
}

func withGreediness(config configuration.SchedulingConfig, greediness float64) configuration.SchedulingConfig {
	config.Greediness = greediness
	return config
}
