package cvnet

import (
	"errors"
	"fmt"

	"github.com/hupe1980/cvnet/blobstore"
	"github.com/hupe1980/cvnet/cache"
	"github.com/hupe1980/cvnet/edge"
	"github.com/hupe1980/cvnet/scheduler"
	"github.com/hupe1980/cvnet/similarity"
	"github.com/hupe1980/cvnet/source"
)

var (
	// ErrUnknownMethod is returned for an unknown similarity, edge or
	// composition-vector method name.
	ErrUnknownMethod = errors.New("unknown method")
	// ErrInvalidConfig is returned for out-of-range configuration values.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrCorruptArtifact matches cached artifacts that failed to decode.
	ErrCorruptArtifact = cache.ErrCorrupt
	// ErrNotFound matches missing blobs.
	ErrNotFound = blobstore.ErrNotFound
	// ErrIncomplete is returned by Run when any task failed or was skipped.
	// The graph is not written; rerunning resumes from the cache.
	ErrIncomplete = errors.New("run incomplete")
)

// TaskError is one failed task of a run.
type TaskError struct {
	Phase string
	Task  string
	Err   error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Phase, e.Task, e.Err)
}

func (e *TaskError) Unwrap() error { return e.Err }

// IncompleteError lists the failures behind ErrIncomplete.
type IncompleteError struct {
	Tasks []*TaskError
}

func (e *IncompleteError) Error() string {
	if len(e.Tasks) == 0 {
		return ErrIncomplete.Error()
	}
	return fmt.Sprintf("%v: %d task(s) failed, first: %v", ErrIncomplete, len(e.Tasks), e.Tasks[0])
}

// Unwrap exposes ErrIncomplete and every task error.
func (e *IncompleteError) Unwrap() []error {
	errs := make([]error, 0, len(e.Tasks)+1)
	errs = append(errs, ErrIncomplete)
	for _, t := range e.Tasks {
		errs = append(errs, t)
	}
	return errs
}

func incomplete(reports []*scheduler.Report) error {
	ie := &IncompleteError{}
	for _, rep := range reports {
		for _, f := range rep.Failures() {
			ie.Tasks = append(ie.Tasks, &TaskError{Phase: f.Phase, Task: f.Task, Err: f.Err})
		}
	}
	return ie
}

func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, similarity.ErrUnknownMethod) ||
		errors.Is(err, edge.ErrUnknownMethod) ||
		errors.Is(err, source.ErrUnknownMethod) {
		return fmt.Errorf("%w: %w", ErrUnknownMethod, err)
	}
	return err
}
