package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// CacheOracle answers whether a fingerprint already has a recorded
// successful result. The engine only ever reads; recording after a success
// is the caller's responsibility.
type CacheOracle interface {
	Lookup(ctx context.Context, fingerprint string) (bool, error)
}

// RunResult is what executing a task's command yields: the output the task
// declared plus everything it wrote, line by line with arrival timestamps.
type RunResult struct {
	Output json.RawMessage
	Stdout []CapturedLine
	Stderr []CapturedLine
}

// Runner executes a task's opaque command.
//
// Contract:
//   - Run must respect ctx cancellation and return promptly when ctx is done.
//   - A non-nil error means the task failed; the returned RunResult still
//     carries whatever output was captured before the failure.
//   - CheckStatus runs the task's status command and reports whether it
//     exited zero, meaning the task's work is already done.
type Runner interface {
	Run(ctx context.Context, task *TaskDef, env []string) (*RunResult, error)
	CheckStatus(ctx context.Context, task *TaskDef, env []string) bool
}

// Config carries the task definitions and the requested root task names.
type Config struct {
	Tasks []TaskDef
	Roots []string
}

// Options wires the engine's external collaborators.
type Options struct {
	Runner Runner
	Cache  CacheOracle // nil means every lookup misses
	Env    []string    // base environment for task commands
}

// Engine drives one run of a task graph: it owns the graph and its state
// cells, consults the cache oracle, executes commands through the runner and
// broadcasts a notification after every status transition. The graph
// structure is immutable; the engine is the sole writer of task status.
type Engine struct {
	graph    *Graph
	notifier *Notifier
	runner   Runner
	cache    CacheOracle
	env      []string
}

// New validates the configuration and builds an engine. Graph construction
// errors (cycles, unknown tasks or dependencies) abort creation.
func New(cfg Config, opts Options) (*Engine, error) {
	if opts.Runner == nil {
		return nil, fmt.Errorf("runner is required")
	}
	graph, err := NewGraph(cfg.Tasks, cfg.Roots)
	if err != nil {
		return nil, err
	}
	return &Engine{
		graph:    graph,
		notifier: NewNotifier(),
		runner:   opts.Runner,
		cache:    opts.Cache,
		env:      opts.Env,
	}, nil
}

// Graph exposes the immutable structure and its state cells for observers.
func (e *Engine) Graph() *Graph {
	return e.graph
}

// Notifier exposes the change broadcast for observers.
func (e *Engine) Notifier() *Notifier {
	return e.notifier
}

// Run advances every task to a terminal status and returns the merged
// outputs of the succeeded tasks. One goroutine is started per node; each
// blocks until its own dependencies are terminal, so fan-out is bounded only
// by the graph's shape. Task failures are data, recorded in the failing
// cell and cascaded to dependents as dependency_failed; Run itself returns
// an error only for infrastructure faults such as an unusable cache store
// or an internal state machine violation.
func (e *Engine) Run(ctx context.Context) (Outputs, error) {
	g, ctx := errgroup.WithContext(ctx)
	for _, cell := range e.graph.Order() {
		cell := cell
		g.Go(func() error {
			return e.runTask(ctx, cell)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	outputs := Outputs{}
	for _, cell := range e.graph.Order() {
		st := cell.Read()
		if st.Status.Kind == StatusSucceeded && st.Status.Output != nil {
			outputs[st.Task.Name] = st.Status.Output
		}
	}
	return outputs, nil
}

// runTask advances a single node: wait for dependencies, then either cascade
// a dependency failure, skip, or execute.
func (e *Engine) runTask(ctx context.Context, cell *StateCell) error {
	task := cell.Task()

	blocked := false
	for _, dep := range task.After {
		depCell, ok := e.graph.Cell(dep)
		if !ok {
			// NewGraph guarantees every edge resolves.
			return fmt.Errorf("task %q: dependency %q has no cell", task.Name, dep)
		}
		select {
		case <-depCell.Done():
		case <-ctx.Done():
			// Only reached when a sibling hit an infrastructure fault (the
			// group cancels) or the caller gave up entirely.
			return ctx.Err()
		}
		if depCell.Read().Status.Kind.Blocking() {
			blocked = true
		}
	}

	// A failed dependency forecloses this task outright: no cache lookup,
	// no execution. The blocking status cascades through every downstream
	// path because this task itself becomes blocking for its dependents.
	if blocked {
		return e.complete(cell, Status{Kind: StatusDependencyFailed})
	}

	fingerprint := task.Fingerprint()
	if e.cache != nil {
		hit, err := e.cache.Lookup(ctx, fingerprint)
		if err != nil {
			// The oracle is unusable: record the fault on this task so
			// dependents resolve, and surface it as an engine error.
			lookupErr := fmt.Errorf("cache lookup for task %q: %w", task.Name, err)
			if cerr := e.complete(cell, Status{
				Kind:    StatusFailed,
				Failure: &Failure{Message: lookupErr.Error()},
			}); cerr != nil {
				return cerr
			}
			return lookupErr
		}
		if hit {
			return e.complete(cell, Status{Kind: StatusCached, Fingerprint: fingerprint})
		}
	}

	if task.StatusCommand != "" && e.runner.CheckStatus(ctx, task, e.taskEnv(task)) {
		return e.complete(cell, Status{Kind: StatusCached, Fingerprint: fingerprint})
	}

	if task.Command == "" {
		return e.complete(cell, Status{Kind: StatusNotImplemented})
	}

	started := time.Now()
	if err := cell.beginRun(started); err != nil {
		return err
	}
	e.notifier.Broadcast()

	res, runErr := e.runner.Run(ctx, task, e.taskEnv(task))
	if res == nil {
		res = &RunResult{}
	}
	duration := time.Since(started)

	if runErr != nil {
		return e.complete(cell, Status{
			Kind:     StatusFailed,
			Duration: duration,
			Failure: &Failure{
				Message: runErr.Error(),
				Stdout:  res.Stdout,
				Stderr:  res.Stderr,
			},
		})
	}
	return e.complete(cell, Status{
		Kind:     StatusSucceeded,
		Duration: duration,
		Output:   res.Output,
	})
}

// complete applies a terminal transition and then fires the notifier, so a
// woken observer always sees the new state.
func (e *Engine) complete(cell *StateCell, s Status) error {
	err := cell.complete(s)
	e.notifier.Broadcast()
	return err
}

// taskEnv extends the base environment with the task's name and the outputs
// of its direct dependencies, which are all terminal by the time this runs.
func (e *Engine) taskEnv(task *TaskDef) []string {
	depOutputs := Outputs{}
	for _, dep := range task.After {
		if depCell, ok := e.graph.Cell(dep); ok {
			st := depCell.Read()
			if st.Status.Kind == StatusSucceeded && st.Status.Output != nil {
				depOutputs[dep] = st.Status.Output
			}
		}
	}
	encoded, _ := json.Marshal(depOutputs)

	env := append([]string(nil), e.env...)
	return append(env,
		"DEVENV_TASK_NAME="+task.Name,
		"DEVENV_TASKS_OUTPUTS="+string(encoded),
	)
}
