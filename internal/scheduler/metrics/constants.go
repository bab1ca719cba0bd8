package metrics

const (
	// common prefix for all metric names
	prefix = "firstfit_scheduler_"

	// Prometheus Labels
	poolLabel              = "pool"
	resourceLabel          = "resource"
	terminationReasonLabel = "reason"
)
