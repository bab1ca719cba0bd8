package scheduling

import (
	"container/heap"
	"math"

	"github.com/pkg/errors"

	"github.com/armadaproject/firstfit/internal/common/armadaerrors"
	"github.com/armadaproject/firstfit/internal/scheduler/configuration"
	"github.com/armadaproject/firstfit/internal/scheduler/internaltypes"
)

// OrderingMode determines the order in which candidate jobs are considered.
type OrderingMode int

const (
	// OrderByReward considers jobs in order of decreasing reward.
	// Jobs with equal reward are considered in the order they were supplied.
	OrderByReward OrderingMode = iota
	// OrderByArrival considers jobs in the order they were supplied, without sorting.
	OrderByArrival
)

func (m OrderingMode) String() string {
	switch m {
	case OrderByReward:
		return configuration.OrderingModeReward
	case OrderByArrival:
		return configuration.OrderingModeArrival
	default:
		return "unknown"
	}
}

func ParseOrderingMode(s string) (OrderingMode, error) {
	switch s {
	case configuration.OrderingModeReward:
		return OrderByReward, nil
	case configuration.OrderingModeArrival:
		return OrderByArrival, nil
	default:
		return 0, errors.WithStack(&armadaerrors.ErrInvalidArgument{
			Name:    "orderingMode",
			Value:   s,
			Message: "valid values are " + configuration.OrderingModeReward + " and " + configuration.OrderingModeArrival,
		})
	}
}

// JobIterator yields candidate jobs one at a time; Next returns nil once all jobs have been yielded.
type JobIterator interface {
	Next() *internaltypes.Job
}

// NewCandidateIterator returns an iterator over jobs in the order given by mode.
// The iterator does not copy jobs; jobs must not be modified while it is in use.
func NewCandidateIterator(jobs []*internaltypes.Job, mode OrderingMode) (JobIterator, error) {
	switch mode {
	case OrderByReward:
		return NewRewardOrderedJobIterator(jobs), nil
	case OrderByArrival:
		return NewInMemoryJobIterator(jobs), nil
	default:
		return nil, errors.WithStack(&armadaerrors.ErrInvalidArgument{
			Name:  "orderingMode",
			Value: int(mode),
		})
	}
}

// InMemoryJobIterator yields jobs in the order they appear in a slice.
type InMemoryJobIterator struct {
	i    int
	jobs []*internaltypes.Job
}

func NewInMemoryJobIterator(jobs []*internaltypes.Job) *InMemoryJobIterator {
	return &InMemoryJobIterator{
		jobs: jobs,
	}
}

func (it *InMemoryJobIterator) Next() *internaltypes.Job {
	if it.i >= len(it.jobs) {
		return nil
	}
	v := it.jobs[it.i]
	it.i++
	return v
}

// RewardOrderedJobIterator yields jobs in the order defined by RewardOrderCompare, breaking ties by position in the
// input slice. It keeps a binary heap of indices into the input, built on the first call to Next. Building the heap
// is linear in the number of jobs and each call to Next is logarithmic, so yielding only the first few jobs is much
// cheaper than sorting all of them.
type RewardOrderedJobIterator struct {
	jobs        []*internaltypes.Job
	indices     []int
	initialised bool
}

func NewRewardOrderedJobIterator(jobs []*internaltypes.Job) *RewardOrderedJobIterator {
	return &RewardOrderedJobIterator{
		jobs: jobs,
	}
}

func (it *RewardOrderedJobIterator) Next() *internaltypes.Job {
	if !it.initialised {
		it.indices = make([]int, len(it.jobs))
		for i := range it.indices {
			it.indices[i] = i
		}
		heap.Init(it)
		it.initialised = true
	}
	if len(it.indices) == 0 {
		return nil
	}
	return it.jobs[heap.Pop(it).(int)]
}

func (it *RewardOrderedJobIterator) Len() int {
	return len(it.indices)
}

func (it *RewardOrderedJobIterator) Less(i, j int) bool {
	a, b := it.indices[i], it.indices[j]
	if c := RewardOrderCompare(it.jobs[a], it.jobs[b]); c != 0 {
		return c < 0
	}
	return a < b
}

func (it *RewardOrderedJobIterator) Swap(i, j int) {
	it.indices[i], it.indices[j] = it.indices[j], it.indices[i]
}

func (it *RewardOrderedJobIterator) Push(x any) {
	it.indices = append(it.indices, x.(int))
}

func (it *RewardOrderedJobIterator) Pop() any {
	n := len(it.indices)
	x := it.indices[n-1]
	it.indices = it.indices[:n-1]
	return x
}

// RewardOrderCompare defines the order in which jobs should be considered when ordering by reward.
// Specifically, it returns
//   - -1 if job should be considered before other,
//   - +1 if other should be considered before job,
//   - 0 if the two are interchangeable.
//
// Jobs with higher reward come first. Equal rewards are resolved by comparing tie breakers lexicographically,
// higher first; a missing tie breaker counts as zero.
func RewardOrderCompare(job, other *internaltypes.Job) int {
	if c := compareDescending(job.Reward(), other.Reward()); c != 0 {
		return c
	}
	jobTieBreak, otherTieBreak := job.RewardTieBreak(), other.RewardTieBreak()
	n := len(jobTieBreak)
	if len(otherTieBreak) > n {
		n = len(otherTieBreak)
	}
	for i := 0; i < n; i++ {
		if c := compareDescending(valueOrZero(jobTieBreak, i), valueOrZero(otherTieBreak, i)); c != 0 {
			return c
		}
	}
	return 0
}

func compareDescending(a, b float64) int {
	if a > b {
		return -1
	} else if a < b {
		return 1
	}
	return 0
}

func valueOrZero(s []float64, i int) float64 {
	if i < len(s) {
		return s[i]
	}
	return 0
}

func isValidReward(reward float64) bool {
	return !math.IsNaN(reward)
}
