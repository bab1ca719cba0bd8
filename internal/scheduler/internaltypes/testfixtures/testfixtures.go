// Package testfixtures contains helpers for building resource lists and jobs in tests.
package testfixtures

import (
	"fmt"

	k8sResource "k8s.io/apimachinery/pkg/api/resource"

	"github.com/armadaproject/firstfit/internal/scheduler/configuration"
	"github.com/armadaproject/firstfit/internal/scheduler/internaltypes"
)

// TestResourceListFactory has the dimensions cpu, at milli resolution, and memory.
var TestResourceListFactory = MakeTestResourceListFactory()

func MakeTestResourceListFactory() *internaltypes.ResourceListFactory {
	factory, err := internaltypes.MakeResourceListFactory(configuration.DefaultResourceTypes())
	if err != nil {
		panic(err)
	}
	return factory
}

// Resources returns a ResourceList of TestResourceListFactory with the given cpu and memory.
func Resources(cpu, memory string) internaltypes.ResourceList {
	rl, err := TestResourceListFactory.FromJobResourceListFailOnUnknown(map[string]k8sResource.Quantity{
		"cpu":    k8sResource.MustParse(cpu),
		"memory": k8sResource.MustParse(memory),
	})
	if err != nil {
		panic(err)
	}
	return rl
}

// RawResources returns a ResourceList of TestResourceListFactory with the given raw values,
// i.e. milli-cpu and bytes. Unlike Resources, negative values are kept as is.
func RawResources(milliCpu, memory int64) internaltypes.ResourceList {
	rl, err := TestResourceListFactory.FromRawValues(map[string]int64{
		"cpu":    milliCpu,
		"memory": memory,
	})
	if err != nil {
		panic(err)
	}
	return rl
}

func TestJob(id string, cpu, memory string, reward float64) *internaltypes.Job {
	return internaltypes.NewJob(id, Resources(cpu, memory), reward)
}

// N1CpuJobs returns n jobs each requiring one cpu and no memory, with ids prefix0, prefix1, ...
// and the given reward.
func N1CpuJobs(prefix string, n int, reward float64) []*internaltypes.Job {
	rv := make([]*internaltypes.Job, n)
	for i := 0; i < n; i++ {
		rv[i] = TestJob(fmt.Sprintf("%s%d", prefix, i), "1", "0", reward)
	}
	return rv
}

func JobIds(jobs []*internaltypes.Job) []string {
	rv := make([]string, len(jobs))
	for i, job := range jobs {
		rv[i] = job.Id()
	}
	return rv
}
