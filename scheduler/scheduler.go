package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
)

// Outcome classifies a finished task.
type Outcome int

const (
	Succeeded Outcome = iota
	Cached
	Failed
	Skipped
)

func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "succeeded"
	case Cached:
		return "cached"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// NoGenome marks a task that produces no genome.
const NoGenome = -1

// Task is one unit of work in a phase.
type Task struct {
	// Name identifies the task in reports and logs.
	Name string
	// Needs lists the genome positions the task reads.
	Needs []uint32
	// Produces is the genome position this task builds, or NoGenome.
	// A failure marks it so dependants in later phases are skipped.
	Produces int
	// Run does the work. cached reports that a valid artifact was reused.
	Run func(ctx context.Context) (cached bool, err error)
}

// Result is the outcome of one task.
type Result struct {
	Phase    string
	Task     string
	Outcome  Outcome
	Err      error
	Duration time.Duration
}

// Observer is called once per finished task, from the worker goroutine.
type Observer func(Result)

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithObserver registers fn for every task result.
func WithObserver(fn Observer) Option {
	return func(s *Scheduler) { s.observers = append(s.observers, fn) }
}

// Scheduler runs phases on a shared pool and remembers failed genomes.
type Scheduler struct {
	pool      *WorkerPool
	observers []Observer

	mu     sync.Mutex
	failed *roaring.Bitmap
}

// New creates a Scheduler with the given number of workers.
func New(workers int, opts ...Option) *Scheduler {
	s := &Scheduler{
		pool:   NewWorkerPool(workers),
		failed: roaring.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Workers returns the pool size.
func (s *Scheduler) Workers() int { return s.pool.Size() }

// Close stops the worker pool.
func (s *Scheduler) Close() { s.pool.Close() }

// FailedGenomes returns the positions of genomes whose producer failed.
func (s *Scheduler) FailedGenomes() []uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failed.ToArray()
}

func (s *Scheduler) blocked(needs []uint32) (uint32, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range needs {
		if s.failed.Contains(g) {
			return g, true
		}
	}
	return 0, false
}

func (s *Scheduler) markFailed(g int) {
	if g < 0 {
		return
	}
	s.mu.Lock()
	s.failed.Add(uint32(g))
	s.mu.Unlock()
}

// Run executes tasks and waits for all of them. It never returns early on a
// task error; a canceled ctx skips the tasks not yet started.
func (s *Scheduler) Run(ctx context.Context, phase string, tasks []Task) *Report {
	rep := &Report{Phase: phase, Results: make([]Result, len(tasks))}
	start := time.Now()

	var wg sync.WaitGroup
	for i, t := range tasks {
		if g, ok := s.blocked(t.Needs); ok {
			s.finish(rep, i, Result{Phase: phase, Task: t.Name, Outcome: Skipped,
				Err: fmt.Errorf("genome %d unavailable", g)}, t.Produces)
			continue
		}
		if err := ctx.Err(); err != nil {
			s.finish(rep, i, Result{Phase: phase, Task: t.Name, Outcome: Skipped, Err: err}, NoGenome)
			continue
		}

		wg.Add(1)
		err := s.pool.Submit(ctx, func() {
			defer wg.Done()
			s.finish(rep, i, execute(ctx, phase, t), t.Produces)
		})
		if err != nil {
			wg.Done()
			s.finish(rep, i, Result{Phase: phase, Task: t.Name, Outcome: Skipped, Err: err}, NoGenome)
		}
	}
	wg.Wait()

	rep.Duration = time.Since(start)
	rep.Canceled = ctx.Err()
	return rep
}

func (s *Scheduler) finish(rep *Report, i int, r Result, produces int) {
	// A skipped producer also leaves its genome unavailable downstream.
	if r.Outcome == Failed || r.Outcome == Skipped {
		s.markFailed(produces)
	}
	rep.record(i, r)
	for _, fn := range s.observers {
		fn(r)
	}
}

func execute(ctx context.Context, phase string, t Task) (r Result) {
	r = Result{Phase: phase, Task: t.Name}
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			r.Outcome = Failed
			r.Err = fmt.Errorf("panic: %v\n%s", p, debug.Stack())
		}
		r.Duration = time.Since(start)
	}()

	cached, err := t.Run(ctx)
	switch {
	case err != nil:
		r.Outcome, r.Err = Failed, err
	case cached:
		r.Outcome = Cached
	default:
		r.Outcome = Succeeded
	}
	return r
}

// Report aggregates the results of one phase.
type Report struct {
	Phase     string
	Results   []Result
	Duration  time.Duration
	Canceled  error
	Succeeded int
	Cached    int
	Failed    int
	Skipped   int

	mu sync.Mutex
}

func (r *Report) record(i int, res Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Results[i] = res
	switch res.Outcome {
	case Succeeded:
		r.Succeeded++
	case Cached:
		r.Cached++
	case Failed:
		r.Failed++
	case Skipped:
		r.Skipped++
	}
}

// Ok reports whether every task succeeded or was cached.
func (r *Report) Ok() bool {
	return r.Failed == 0 && r.Skipped == 0 && r.Canceled == nil
}

// Failures returns the failed and skipped results in task order.
func (r *Report) Failures() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Outcome == Failed || res.Outcome == Skipped {
			out = append(out, res)
		}
	}
	return out
}

// Err returns nil when the phase is complete and a *PhaseError otherwise.
func (r *Report) Err() error {
	if r.Ok() {
		return nil
	}
	return &PhaseError{Phase: r.Phase, Failures: r.Failures(), Canceled: r.Canceled}
}

// PhaseError aggregates the failures of one phase.
type PhaseError struct {
	Phase    string
	Failures []Result
	Canceled error
}

func (e *PhaseError) Error() string {
	var b strings.Builder
	failed, skipped := 0, 0
	for _, f := range e.Failures {
		if f.Outcome == Failed {
			failed++
		} else {
			skipped++
		}
	}
	fmt.Fprintf(&b, "phase %s: %d failed, %d skipped", e.Phase, failed, skipped)
	for _, f := range e.Failures {
		if f.Outcome == Failed {
			fmt.Fprintf(&b, "; %s: %v", f.Task, f.Err)
			break
		}
	}
	if e.Canceled != nil {
		fmt.Fprintf(&b, "; %v", e.Canceled)
	}
	return b.String()
}

// Unwrap exposes the task errors to errors.Is and errors.As.
func (e *PhaseError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures)+1)
	for _, f := range e.Failures {
		if f.Err != nil {
			errs = append(errs, f.Err)
		}
	}
	if e.Canceled != nil {
		errs = append(errs, e.Canceled)
	}
	return errs
}

var _ interface{ Unwrap() []error } = (*PhaseError)(nil)

// ErrTaskFailed can be matched with errors.Is on any PhaseError.
var ErrTaskFailed = errors.New("task failed")

// Is matches ErrTaskFailed.
func (e *PhaseError) Is(target error) bool { return target == ErrTaskFailed }
