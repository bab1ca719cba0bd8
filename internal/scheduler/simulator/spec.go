package simulator

import (
	"time"

	"k8s.io/apimachinery/pkg/api/resource"
)

// ClusterSpec is the set of resources jobs are admitted against.
type ClusterSpec struct {
	Name string
	// Total capacity, e.g. {cpu: 32, memory: 256Gi}.
	Resources map[string]resource.Quantity
}

// WorkloadSpec is a set of job templates to be run to completion.
type WorkloadSpec struct {
	Name string
	// Seed for runtime sampling. If zero, the current time is used.
	RandomSeed   int64
	JobTemplates []*JobTemplate
}

// JobTemplate describes Number identical jobs.
type JobTemplate struct {
	// Unique within the workload. Generated if not set.
	Id string
	// Number of jobs created from this template.
	Number       int
	Priority     float64
	Requirements map[string]resource.Quantity
	// Size of all inputs of each job, in bytes.
	InputBytes int64
	// Size of the temporary inputs of each job, in bytes.
	TempInputBytes int64
	// Time each job takes to run once admitted.
	Runtime ShiftedExponential
	// Ids of templates whose jobs must all have succeeded before jobs of this template are submitted.
	Dependencies []string
}

// ShiftedExponential is an exponential distribution shifted right by Minimum.
// If TailMean is zero, every sample equals Minimum.
type ShiftedExponential struct {
	Minimum  time.Duration
	TailMean time.Duration
}
