// Package reward turns what the host knows about a pending job into the reward used to order candidates.
package reward

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	k8sResource "k8s.io/apimachinery/pkg/api/resource"

	"github.com/armadaproject/firstfit/internal/scheduler/configuration"
	"github.com/armadaproject/firstfit/internal/scheduler/internaltypes"
)

// JobInfo describes a pending job as seen by the host.
type JobInfo struct {
	Id string
	// Higher is more important. May be negative.
	Priority float64
	// Resources required to run the job. Resources the scheduler does not track are ignored.
	Requirements map[string]k8sResource.Quantity
	// Total size of the job's input files, in bytes.
	InputBytes int64
	// Size of the job's input files that are temporary, i.e. deleted once no longer needed, in bytes.
	TempInputBytes int64
}

// Calculator computes job rewards.
//
// By default, the reward is the job priority, with ties broken by the size of temporary inputs and then by the size
// of all inputs, larger first. Running jobs with large temporary inputs first frees storage sooner, and jobs with
// large inputs tend to take longer.
type Calculator struct {
	omitPrioritizeByTempAndInput bool
}

func NewCalculator(config configuration.SchedulingConfig) *Calculator {
	return &Calculator{
		omitPrioritizeByTempAndInput: config.OmitPrioritizeByTempAndInput,
	}
}

// Reward returns the primary reward of the job and the keys used to break ties.
func (c *Calculator) Reward(info JobInfo) (float64, []float64) {
	if c.omitPrioritizeByTempAndInput {
		return info.Priority, nil
	}
	return info.Priority, []float64{float64(info.TempInputBytes), float64(info.InputBytes)}
}

// Job converts info into a job for the given resource dimensions.
func (c *Calculator) Job(factory *internaltypes.ResourceListFactory, info JobInfo) (*internaltypes.Job, error) {
	if info.Id == "" {
		return nil, errors.New("job id must not be empty")
	}
	if info.InputBytes < 0 || info.TempInputBytes < 0 {
		return nil, errors.Errorf("job %s has negative input size", info.Id)
	}
	if info.TempInputBytes > info.InputBytes {
		return nil, errors.Errorf(
			"job %s has %d bytes of temporary inputs but only %d bytes of inputs in total",
			info.Id, info.TempInputBytes, info.InputBytes,
		)
	}
	reward, tieBreak := c.Reward(info)
	requirement := factory.FromJobResourceListIgnoreUnknown(info.Requirements)
	return internaltypes.NewJob(info.Id, requirement, reward, tieBreak...), nil
}

// Jobs converts infos into jobs, preserving order. All problems are reported together.
func (c *Calculator) Jobs(factory *internaltypes.ResourceListFactory, infos []JobInfo) ([]*internaltypes.Job, error) {
	var result *multierror.Error
	jobs := make([]*internaltypes.Job, 0, len(infos))
	for i, info := range infos {
		job, err := c.Job(factory, info)
		if err != nil {
			result = multierror.Append(result, errors.WithMessage(err, fmt.Sprintf("job at position %d", i)))
			continue
		}
		jobs = append(jobs, job)
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return jobs, nil
}
