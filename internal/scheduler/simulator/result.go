package simulator

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// SimulationResult summarises a finished simulation.
type SimulationResult struct {
	// Number of admission rounds run.
	Rounds int
	// Simulated time from the start until the last job finished.
	Makespan     time.Duration
	JobsAdmitted int
	// Jobs that could never run, either because they don't fit on the empty cluster or because a job they depend on
	// could never run.
	StuckJobIds []string
	// Time-weighted mean fraction of each resource allocated to running jobs.
	MeanUtilisation map[string]float64
}

func (r *SimulationResult) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(
		"{Rounds: %d, Makespan: %s, JobsAdmitted: %d, StuckJobs: %d, MeanUtilisation: {",
		r.Rounds, r.Makespan, r.JobsAdmitted, len(r.StuckJobIds),
	))
	names := maps.Keys(r.MeanUtilisation)
	slices.Sort(names)
	for i, name := range names {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(fmt.Sprintf("%s: %.3f", name, r.MeanUtilisation[name]))
	}
	sb.WriteString("}}")
	return sb.String()
}
