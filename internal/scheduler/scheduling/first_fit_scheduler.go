package scheduling

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/armadaproject/firstfit/internal/common/armadacontext"
	"github.com/armadaproject/firstfit/internal/common/armadaerrors"
	"github.com/armadaproject/firstfit/internal/scheduler/configuration"
	"github.com/armadaproject/firstfit/internal/scheduler/internaltypes"
)

// RoundParams are the knobs of a single admission round.
type RoundParams struct {
	Mode OrderingMode
	// Between 0 and 1; see MaxInspections.
	Greediness float64
	// Maximum number of jobs to admit. Must be positive.
	RoundLimit int
}

func (p RoundParams) Validate() error {
	if !(p.Greediness >= 0 && p.Greediness <= 1) {
		return errors.WithStack(&armadaerrors.ErrInvalidArgument{
			Name:    "greediness",
			Value:   p.Greediness,
			Message: "must be between 0 and 1",
		})
	}
	if p.RoundLimit <= 0 {
		return errors.WithStack(&armadaerrors.ErrInvalidArgument{
			Name:    "roundLimit",
			Value:   p.RoundLimit,
			Message: "must be positive",
		})
	}
	if p.Mode != OrderByReward && p.Mode != OrderByArrival {
		return errors.WithStack(&armadaerrors.ErrInvalidArgument{
			Name:  "orderingMode",
			Value: int(p.Mode),
		})
	}
	return nil
}

func RoundParamsFromConfig(config configuration.SchedulingConfig) (RoundParams, error) {
	mode, err := ParseOrderingMode(config.OrderingMode)
	if err != nil {
		return RoundParams{}, err
	}
	params := RoundParams{
		Mode:       mode,
		Greediness: config.Greediness,
		RoundLimit: config.RoundLimit,
	}
	return params, params.Validate()
}

// Admit decides which of jobs to start in this round given the available resources.
//
// Candidates are walked once, in the order given by params.Mode. Each candidate that fits within the remaining
// resources is admitted and its requirement subtracted; candidates that don't fit are skipped without consuming
// anything and may be presented again in a later round. The walk stops once params.RoundLimit jobs have been
// admitted or MaxInspections candidates have been inspected.
//
// Admit holds no state between calls and never modifies its arguments. Invalid params or jobs cause the whole call
// to fail before any job is admitted.
func Admit(
	ctx *armadacontext.Context,
	jobs []*internaltypes.Job,
	available internaltypes.ResourceList,
	params RoundParams,
) (*AdmissionResult, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if available.HasNegativeValues() {
		return nil, errors.WithStack(&armadaerrors.ErrInvalidArgument{
			Name:    "available",
			Value:   available.String(),
			Message: "available resources must not be negative",
		})
	}
	if err := validateJobs(jobs, available); err != nil {
		return nil, err
	}

	start := time.Now()
	it, err := NewCandidateIterator(jobs, params.Mode)
	if err != nil {
		return nil, err
	}
	maxInspections := MaxInspections(params.Greediness, params.RoundLimit, len(jobs))

	remaining := available
	admittedCapacity := params.RoundLimit
	if len(jobs) < admittedCapacity {
		admittedCapacity = len(jobs)
	}
	admittedJobIds := make([]string, 0, admittedCapacity)
	admittedJobs := make([]*internaltypes.Job, 0, admittedCapacity)
	inspected := 0
	terminationReason := ""
	for {
		job := it.Next()
		if job == nil {
			terminationReason = NoRemainingCandidatesTerminationReason
			break
		}
		if len(admittedJobIds) >= params.RoundLimit {
			terminationReason = RoundLimitReachedTerminationReason
			break
		}
		if inspected >= maxInspections {
			terminationReason = InspectionLimitReachedTerminationReason
			break
		}
		inspected++
		requirement := job.Requirement()
		if resourceName, availableQuantity, requiredQuantity, exceeds := requirement.ExceedsAvailable(remaining); exceeds {
			ctx.Log.Debugf(
				"Skipping job %s: requires %s %s but only %s remains",
				job.Id(), requiredQuantity.String(), resourceName, availableQuantity.String(),
			)
			continue
		}
		remaining = remaining.Subtract(requirement)
		admittedJobIds = append(admittedJobIds, job.Id())
		admittedJobs = append(admittedJobs, job)
	}

	result := &AdmissionResult{
		AdmittedJobIds:    admittedJobIds,
		AdmittedJobs:      admittedJobs,
		JobsConsidered:    len(jobs),
		JobsInspected:     inspected,
		MaxInspections:    maxInspections,
		TerminationReason: terminationReason,
		Available:         available,
		Remaining:         remaining,
		Duration:          time.Since(start),
	}
	ctx.Log.Infof("Finished admission round with mode %s and greediness %v: %s", params.Mode, params.Greediness, result)
	return result, nil
}

// validateJobs returns an error describing every malformed job, or nil if all jobs are valid.
// Requirements are checked against the dimensions of available or, if available is empty,
// against those of the first non-empty requirement.
func validateJobs(jobs []*internaltypes.Job, available internaltypes.ResourceList) error {
	reference := available
	if reference.IsEmpty() {
		for _, job := range jobs {
			if job != nil && !job.Requirement().IsEmpty() {
				reference = job.Requirement()
				break
			}
		}
	}
	var result *multierror.Error
	seen := make(map[string]bool, len(jobs))
	for i, job := range jobs {
		if job == nil {
			result = multierror.Append(result, &armadaerrors.ErrInvalidJob{
				Message: fmt.Sprintf("job at position %d is nil", i),
			})
			continue
		}
		if err := validateJob(job, reference); err != nil {
			result = multierror.Append(result, err)
		}
		if job.Id() != "" && seen[job.Id()] {
			result = multierror.Append(result, &armadaerrors.ErrInvalidJob{JobId: job.Id(), Message: "duplicate job id"})
		}
		seen[job.Id()] = true
	}
	if err := result.ErrorOrNil(); err != nil {
		return errors.WithStack(err)
	}
	return nil
}

func validateJob(job *internaltypes.Job, reference internaltypes.ResourceList) error {
	if job.Id() == "" {
		return &armadaerrors.ErrInvalidJob{Message: "job id must not be empty"}
	}
	requirement := job.Requirement()
	if !requirement.CompatibleWith(reference) {
		return &armadaerrors.ErrInvalidJob{
			JobId:   job.Id(),
			Message: "requirement does not have the same resource types as the other resource lists of the round",
		}
	}
	if requirement.HasNegativeValues() {
		return &armadaerrors.ErrInvalidJob{
			JobId:   job.Id(),
			Message: fmt.Sprintf("requirement %s has negative components", requirement.String()),
		}
	}
	if !isValidReward(job.Reward()) {
		return &armadaerrors.ErrInvalidJob{JobId: job.Id(), Message: "reward is NaN"}
	}
	for _, v := range job.RewardTieBreak() {
		if !isValidReward(v) {
			return &armadaerrors.ErrInvalidJob{JobId: job.Id(), Message: "reward tie breaker is NaN"}
		}
	}
	return nil
}
