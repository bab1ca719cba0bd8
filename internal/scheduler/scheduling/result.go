package scheduling

import (
	"fmt"
	"time"

	"github.com/armadaproject/firstfit/internal/scheduler/internaltypes"
)

const (
	// The round limit on admitted jobs was reached.
	RoundLimitReachedTerminationReason = "round limit reached"
	// The number of candidates allowed by greediness was inspected.
	InspectionLimitReachedTerminationReason = "inspection limit reached"
	// Every candidate was inspected.
	NoRemainingCandidatesTerminationReason = "no remaining candidate jobs"
)

// AdmissionResult is returned by Admit.
type AdmissionResult struct {
	// Ids of admitted jobs, in the order they were admitted. This is the scheduling decision.
	AdmittedJobIds []string
	// Admitted jobs, in the same order as AdmittedJobIds.
	AdmittedJobs []*internaltypes.Job
	// Number of candidate jobs supplied.
	JobsConsidered int
	// Number of candidate jobs inspected, whether admitted or not.
	JobsInspected int
	// Inspection limit derived from greediness.
	MaxInspections int
	// Why the round ended; one of the TerminationReason constants.
	TerminationReason string
	// Resources available at the start of the round.
	Available internaltypes.ResourceList
	// Resources left after admitting jobs.
	Remaining internaltypes.ResourceList
	// Time spent in the admission loop.
	Duration time.Duration
}

// Allocated returns the total requirement of all admitted jobs.
func (r *AdmissionResult) Allocated() internaltypes.ResourceList {
	return r.Available.Subtract(r.Remaining)
}

// JobsSkipped returns the number of inspected jobs that did not fit.
func (r *AdmissionResult) JobsSkipped() int {
	return r.JobsInspected - len(r.AdmittedJobIds)
}

func (r *AdmissionResult) String() string {
	return fmt.Sprintf(
		"{jobsConsidered=%d, jobsInspected=%d, maxInspections=%d, jobsAdmitted=%d, terminationReason=%s, remaining=%s, time=%fs}",
		r.JobsConsidered,
		r.JobsInspected,
		r.MaxInspections,
		len(r.AdmittedJobIds),
		r.TerminationReason,
		r.Remaining.String(),
		r.Duration.Seconds(),
	)
}
