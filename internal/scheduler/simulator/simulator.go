package simulator

import (
	"container/heap"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"

	"github.com/armadaproject/firstfit/internal/common/armadacontext"
	"github.com/armadaproject/firstfit/internal/common/logging"
	"github.com/armadaproject/firstfit/internal/scheduler/configuration"
	"github.com/armadaproject/firstfit/internal/scheduler/internaltypes"
	"github.com/armadaproject/firstfit/internal/scheduler/metrics"
	"github.com/armadaproject/firstfit/internal/scheduler/reward"
	"github.com/armadaproject/firstfit/internal/scheduler/scheduling"
)

var epochStart = time.Unix(0, 0).UTC()

type runningJob struct {
	templateId  string
	requirement internaltypes.ResourceList
}

// Simulator plays the part of the host: it owns the pending pool, runs admission rounds,
// and releases resources when jobs finish. Time is simulated.
type Simulator struct {
	ClusterSpec      *ClusterSpec
	WorkloadSpec     *WorkloadSpec
	schedulingConfig configuration.SchedulingConfig
	roundParams      scheduling.RoundParams
	// Unique id of this simulation, included in all log messages.
	Id string
	// For making internaltypes.ResourceList
	resourceListFactory *internaltypes.ResourceListFactory
	rewardCalculator    *reward.Calculator
	total               internaltypes.ResourceList
	allocated           internaltypes.ResourceList
	// Jobs submitted but not yet admitted, in submission order.
	pending []reward.JobInfo
	// Jobs admitted but not yet finished, by id.
	running           map[string]runningJob
	templatesById     map[string]*JobTemplate
	templateIdByJobId map[string]string
	// Map from template id to the number of its jobs that have not yet succeeded.
	unfinishedJobsByTemplateId map[string]int
	// Map from template id to the templates depending on it.
	dependentsByTemplateId map[string][]*JobTemplate
	// Templates whose jobs have been submitted.
	submittedTemplateIds map[string]bool
	// Current simulated time.
	time time.Time
	// Sequence number of the next event.
	sequenceNumber int
	// Job completions, ordered first by time and second by sequence number.
	eventLog EventLog
	// Used to generate random numbers from a chosen seed.
	rand *rand.Rand
	// Simulation is abandoned after this many rounds.
	maxRounds int
	// If set, the outcome of every round is reported here.
	metrics *metrics.Metrics
	// If true, scheduler logs are omitted.
	// This since the logs are very verbose when scheduling large numbers of jobs.
	SuppressSchedulerLogs bool
	result                *SimulationResult
	// Time-integral of the allocated fraction of each resource, in seconds.
	utilisationSeconds map[string]float64
}

func NewSimulator(
	clusterSpec *ClusterSpec,
	workloadSpec *WorkloadSpec,
	schedulingConfig configuration.SchedulingConfig,
	maxRounds int,
	m *metrics.Metrics,
) (*Simulator, error) {
	roundParams, err := scheduling.RoundParamsFromConfig(schedulingConfig)
	if err != nil {
		return nil, err
	}
	resourceListFactory, err := internaltypes.MakeResourceListFactory(schedulingConfig.SupportedResourceTypes)
	if err != nil {
		return nil, errors.WithMessage(err, "Error with the supportedResourceTypes field in config")
	}
	if maxRounds <= 0 {
		return nil, errors.Errorf("maxRounds must be positive, but is %d", maxRounds)
	}
	initialiseWorkloadSpec(workloadSpec)
	if err := validateWorkloadSpec(workloadSpec); err != nil {
		return nil, err
	}
	total, err := resourceListFactory.FromCapacity(clusterSpec.Resources)
	if err != nil {
		return nil, errors.WithMessagef(err, "invalid resources for cluster %s", clusterSpec.Name)
	}
	randomSeed := workloadSpec.RandomSeed
	if randomSeed == 0 {
		// Seed the RNG using the local time if no explicit random seed is provided.
		randomSeed = time.Now().Unix()
	}
	s := &Simulator{
		ClusterSpec:                clusterSpec,
		WorkloadSpec:               workloadSpec,
		schedulingConfig:           schedulingConfig,
		roundParams:                roundParams,
		Id:                         uuid.New().String(),
		resourceListFactory:        resourceListFactory,
		rewardCalculator:           reward.NewCalculator(schedulingConfig),
		total:                      total,
		allocated:                  resourceListFactory.MakeAllZero(),
		running:                    make(map[string]runningJob),
		templatesById:              make(map[string]*JobTemplate),
		templateIdByJobId:          make(map[string]string),
		unfinishedJobsByTemplateId: make(map[string]int),
		dependentsByTemplateId:     make(map[string][]*JobTemplate),
		submittedTemplateIds:       make(map[string]bool),
		time:                       epochStart,
		rand:                       rand.New(rand.NewSource(randomSeed)),
		maxRounds:                  maxRounds,
		metrics:                    m,
		result:                     &SimulationResult{},
		utilisationSeconds:         make(map[string]float64),
	}
	s.bootstrapWorkload()
	return s, nil
}

func validateWorkloadSpec(workloadSpec *WorkloadSpec) error {
	templateIds := make(map[string]bool, len(workloadSpec.JobTemplates))
	for _, template := range workloadSpec.JobTemplates {
		if templateIds[template.Id] {
			return errors.Errorf("duplicate job template id %s in workload %s", template.Id, workloadSpec.Name)
		}
		templateIds[template.Id] = true
		if template.Number < 0 {
			return errors.Errorf("job template %s has negative number %d", template.Id, template.Number)
		}
		if template.InputBytes < 0 || template.TempInputBytes < 0 || template.TempInputBytes > template.InputBytes {
			return errors.Errorf(
				"job template %s has invalid input sizes: inputBytes=%d, tempInputBytes=%d",
				template.Id, template.InputBytes, template.TempInputBytes,
			)
		}
		if template.Runtime.Minimum < 0 || template.Runtime.TailMean < 0 {
			return errors.Errorf("job template %s has negative runtime", template.Id)
		}
	}
	for _, template := range workloadSpec.JobTemplates {
		for _, dependencyId := range template.Dependencies {
			if !templateIds[dependencyId] {
				return errors.Errorf(
					"job template %s depends on job template %s, which does not exist",
					template.Id, dependencyId,
				)
			}
		}
	}
	return nil
}

func (s *Simulator) bootstrapWorkload() {
	for _, template := range s.WorkloadSpec.JobTemplates {
		s.templatesById[template.Id] = template
		s.unfinishedJobsByTemplateId[template.Id] = template.Number
		for _, dependencyId := range template.Dependencies {
			s.dependentsByTemplateId[dependencyId] = append(s.dependentsByTemplateId[dependencyId], template)
		}
	}
	for _, template := range s.WorkloadSpec.JobTemplates {
		s.submitIfReady(template)
	}
}

// submitIfReady adds the jobs of template to the pending pool if all its dependencies have succeeded.
// Templates without jobs complete immediately, which may in turn make their dependents ready.
func (s *Simulator) submitIfReady(template *JobTemplate) {
	if s.submittedTemplateIds[template.Id] {
		return
	}
	for _, dependencyId := range template.Dependencies {
		if s.unfinishedJobsByTemplateId[dependencyId] > 0 {
			return
		}
	}
	s.submittedTemplateIds[template.Id] = true
	for i := 0; i < template.Number; i++ {
		jobId := fmt.Sprintf("%s-%d", template.Id, i)
		s.templateIdByJobId[jobId] = template.Id
		s.pending = append(s.pending, reward.JobInfo{
			Id:             jobId,
			Priority:       template.Priority,
			Requirements:   template.Requirements,
			InputBytes:     template.InputBytes,
			TempInputBytes: template.TempInputBytes,
		})
	}
	if template.Number == 0 {
		for _, dependent := range s.dependentsByTemplateId[template.Id] {
			s.submitIfReady(dependent)
		}
	}
}

// Run runs admission rounds until every job has finished, no further progress is possible,
// or the round limit of the simulation is reached.
func (s *Simulator) Run(ctx *armadacontext.Context) (*SimulationResult, error) {
	startTime := time.Now()
	ctx = armadacontext.WithLogFields(ctx, logrus.Fields{
		"simulation": s.Id,
		"cluster":    s.ClusterSpec.Name,
		"workload":   s.WorkloadSpec.Name,
	})
	schedulerCtx := ctx
	if s.SuppressSchedulerLogs {
		schedulerCtx = armadacontext.WithLogger(ctx, logrus.NewEntry(logging.NullLogger))
	}
	ctx.Log.Infof("Starting simulation with %d pending jobs", len(s.pending))

	for len(s.pending) > 0 || len(s.running) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if s.result.Rounds >= s.maxRounds {
			return nil, errors.Errorf("simulation %s did not finish within %d rounds", s.Id, s.maxRounds)
		}
		var result *scheduling.AdmissionResult
		if len(s.pending) > 0 {
			var err error
			result, err = s.runRound(schedulerCtx)
			if err != nil {
				return nil, err
			}
			if len(result.AdmittedJobIds) == 0 && len(s.running) == 0 {
				s.result.StuckJobIds = s.pendingJobIds()
				ctx.Log.Warnf(
					"No job was admitted with nothing running (%s); %d pending jobs can never run",
					result.TerminationReason, len(s.pending),
				)
				break
			}
		}
		// Admission was cut short by the round limit, so there may be more jobs that fit right now.
		if result != nil && result.TerminationReason == scheduling.RoundLimitReachedTerminationReason {
			continue
		}
		s.advanceToNextEvent()
	}
	s.result.StuckJobIds = append(s.result.StuckJobIds, s.unsubmittedJobIds()...)
	s.result.Makespan = s.time.Sub(epochStart)
	s.result.MeanUtilisation = s.meanUtilisation()
	ctx.Log.Infof("Simulation finished in %s: %s", time.Since(startTime), s.result)
	return s.result, nil
}

func (s *Simulator) runRound(ctx *armadacontext.Context) (*scheduling.AdmissionResult, error) {
	jobs, err := s.rewardCalculator.Jobs(s.resourceListFactory, s.pending)
	if err != nil {
		return nil, err
	}
	available := s.total.Subtract(s.allocated)
	result, err := scheduling.Admit(ctx, jobs, available, s.roundParams)
	if err != nil {
		return nil, err
	}
	s.result.Rounds++
	s.result.JobsAdmitted += len(result.AdmittedJobIds)
	if s.metrics != nil {
		s.metrics.ReportAdmissionResult(s.ClusterSpec.Name, result)
	}

	admitted := make(map[string]bool, len(result.AdmittedJobs))
	for _, job := range result.AdmittedJobs {
		admitted[job.Id()] = true
		templateId := s.templateIdByJobId[job.Id()]
		s.running[job.Id()] = runningJob{templateId: templateId, requirement: job.Requirement()}
		s.allocated = s.allocated.Add(job.Requirement())
		runtime := generateRandomShiftedExponentialDuration(s.rand, s.templatesById[templateId].Runtime)
		s.pushJobFinishedEvent(s.time.Add(runtime), job.Id())
	}
	s.pending = slices.DeleteFunc(s.pending, func(info reward.JobInfo) bool { return admitted[info.Id] })
	return result, nil
}

func (s *Simulator) pushJobFinishedEvent(time time.Time, jobId string) {
	heap.Push(&s.eventLog, Event{
		time:           time,
		sequenceNumber: s.sequenceNumber,
		jobId:          jobId,
	})
	s.sequenceNumber++
}

// advanceToNextEvent moves the clock to the next job completion and handles all completions at that time.
func (s *Simulator) advanceToNextEvent() {
	next, ok := s.eventLog.nextCompletionTime()
	if !ok {
		return
	}
	s.accumulateUtilisation(next)
	s.time = next
	for s.eventLog.Len() > 0 && s.eventLog[0].time.Equal(next) {
		event := heap.Pop(&s.eventLog).(Event)
		s.handleJobFinished(event.jobId)
	}
}

func (s *Simulator) handleJobFinished(jobId string) {
	job, ok := s.running[jobId]
	if !ok {
		return
	}
	delete(s.running, jobId)
	s.allocated = s.allocated.Subtract(job.requirement)
	s.unfinishedJobsByTemplateId[job.templateId]--
	if s.unfinishedJobsByTemplateId[job.templateId] == 0 {
		for _, dependent := range s.dependentsByTemplateId[job.templateId] {
			s.submitIfReady(dependent)
		}
	}
}

func (s *Simulator) accumulateUtilisation(until time.Time) {
	seconds := until.Sub(s.time).Seconds()
	for name, fraction := range s.allocated.DivideZeroOnError(s.total) {
		s.utilisationSeconds[name] += fraction * seconds
	}
}

func (s *Simulator) meanUtilisation() map[string]float64 {
	rv := make(map[string]float64, len(s.utilisationSeconds))
	makespan := s.time.Sub(epochStart).Seconds()
	for _, name := range s.resourceListFactory.ResourceNames() {
		if makespan > 0 {
			rv[name] = s.utilisationSeconds[name] / makespan
		} else {
			rv[name] = 0
		}
	}
	return rv
}

func (s *Simulator) pendingJobIds() []string {
	rv := make([]string, len(s.pending))
	for i, info := range s.pending {
		rv[i] = info.Id
	}
	return rv
}

// unsubmittedJobIds returns the ids of jobs that were never submitted because a dependency did not finish.
func (s *Simulator) unsubmittedJobIds() []string {
	var rv []string
	for _, template := range s.WorkloadSpec.JobTemplates {
		if s.submittedTemplateIds[template.Id] {
			continue
		}
		for i := 0; i < template.Number; i++ {
			rv = append(rv, fmt.Sprintf("%s-%d", template.Id, i))
		}
	}
	return rv
}

func generateRandomShiftedExponentialDuration(r *rand.Rand, rv ShiftedExponential) time.Duration {
	if rv.TailMean == 0 {
		return rv.Minimum
	} else {
		return rv.Minimum + time.Duration(r.ExpFloat64()*float64(rv.TailMean))
	}
}
