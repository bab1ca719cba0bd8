// Package armadaerrors contains the error types returned by the admission scheduler.
//
// Configuration problems are reported as ErrInvalidArgument. Problems with individual jobs are
// reported as ErrInvalidJob; if several jobs are malformed, the function should return an error
// of type multierror.Error from package github.com/hashicorp/go-multierror that encapsulates
// those individual errors.
package armadaerrors

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// ErrInvalidArgument is a generic error to be returned on invalid argument.
// Message is optional and is omitted from the error message if not provided.
type ErrInvalidArgument struct {
	Name    string      // Name of the field referred to, e.g., "greediness"
	Value   interface{} // The invalid value that was provided
	Message string      // An optional message to include with the error message, e.g., explaining why the value is invalid
}

func (err *ErrInvalidArgument) Error() string {
	if err.Message == "" {
		return fmt.Sprintf("value %v is invalid for field %q", err.Value, err.Name)
	} else {
		return fmt.Sprintf("value %v is invalid for field %q; %s", err.Value, err.Name, err.Message)
	}
}

// ErrInvalidJob is returned when a job handed to the scheduler is malformed,
// e.g., when its requirement has a negative component or uses resources unknown to the round.
// JobId may be empty if the job itself was missing.
type ErrInvalidJob struct {
	JobId   string
	Message string
}

func (err *ErrInvalidJob) Error() string {
	if err.JobId == "" {
		return fmt.Sprintf("invalid job: %s", err.Message)
	}
	return fmt.Sprintf("invalid job %q: %s", err.JobId, err.Message)
}

// IsInvalidArgument returns true if err, or any error in its chain, is an ErrInvalidArgument.
func IsInvalidArgument(err error) bool {
	var e *ErrInvalidArgument
	return errors.As(err, &e)
}

// IsInvalidJob returns true if err, or any error in its chain, is an ErrInvalidJob.
// Errors aggregated with go-multierror are searched as well.
func IsInvalidJob(err error) bool {
	return len(InvalidJobs(err)) > 0
}

// InvalidJobs returns all ErrInvalidJob contained in err.
func InvalidJobs(err error) []*ErrInvalidJob {
	if err == nil {
		return nil
	}
	var merr *multierror.Error
	if errors.As(err, &merr) {
		var rv []*ErrInvalidJob
		for _, e := range merr.Errors {
			rv = append(rv, InvalidJobs(e)...)
		}
		return rv
	}
	var e *ErrInvalidJob
	if errors.As(err, &e) {
		return []*ErrInvalidJob{e}
	}
	return nil
}
