package tasks

import (
	"fmt"
	"sync"
	"time"
)

// TaskState is a consistent snapshot of one task's definition and status.
type TaskState struct {
	Task   *TaskDef
	Status Status
}

// StateCell holds the mutable status of one graph node behind a read/write
// lock: any number of observers may Read concurrently, the scheduler is the
// only writer. The done channel is closed exactly once, when the status
// becomes terminal, so dependents can wait without polling.
type StateCell struct {
	mu     sync.RWMutex
	task   *TaskDef
	status Status
	done   chan struct{}
}

func newStateCell(task *TaskDef) *StateCell {
	return &StateCell{
		task:   task,
		status: Status{Kind: StatusPending},
		done:   make(chan struct{}),
	}
}

// Task returns the immutable definition; no lock needed.
func (c *StateCell) Task() *TaskDef {
	return c.task
}

// Read returns a snapshot of the cell. Readers never block each other.
func (c *StateCell) Read() TaskState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return TaskState{Task: c.task, Status: c.status}
}

// Done returns a channel closed once the task reaches a terminal status.
func (c *StateCell) Done() <-chan struct{} {
	return c.done
}

// beginRun transitions pending → running. Any other starting state is an
// invariant violation: the scheduler must not start a task twice or start
// one that was already skipped.
func (c *StateCell) beginRun(now time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status.Kind != StatusPending {
		return fmt.Errorf("task %q: cannot start from status %q", c.task.Name, c.status.Kind)
	}
	c.status = Status{Kind: StatusRunning, StartedAt: now}
	return nil
}

// complete transitions the cell to a terminal status and closes the done
// channel. Legal transitions are running → succeeded/failed and
// pending → failed/cached/not_implemented/dependency_failed; anything else
// is an invariant violation. A pending task can fail without running when an
// infrastructure fault (such as an unusable cache store) pre-empts its
// command. StartedAt is carried over from the running state so observers can
// relate captured output lines to the task start.
func (c *StateCell) complete(s Status) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !s.Kind.Terminal() {
		return fmt.Errorf("task %q: %q is not a terminal status", c.task.Name, s.Kind)
	}

	switch c.status.Kind {
	case StatusRunning:
		if s.Kind != StatusSucceeded && s.Kind != StatusFailed {
			return fmt.Errorf("task %q: cannot complete running task as %q", c.task.Name, s.Kind)
		}
		s.StartedAt = c.status.StartedAt
	case StatusPending:
		if s.Kind == StatusSucceeded {
			return fmt.Errorf("task %q: cannot complete as %q without running", c.task.Name, s.Kind)
		}
	default:
		return fmt.Errorf("task %q: already completed as %q", c.task.Name, c.status.Kind)
	}

	c.status = s
	close(c.done)
	return nil
}
