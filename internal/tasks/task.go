package tasks

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// TaskDef is the immutable definition of a single task.
type TaskDef struct {
	Name          string         // unique identifier, e.g. "app:build"
	Command       string         // shell command; empty means the task has no runnable action
	StatusCommand string         // optional check command; zero exit means the work is already done
	After         []string       // names of tasks that must complete first
	Inputs        map[string]any // arbitrary inputs folded into the fingerprint
}

// Fingerprint derives a stable identity for the task from its name, command
// and inputs. Two tasks with the same fingerprint produce the same result, so
// a recorded fingerprint is sufficient to skip a re-run.
func (t *TaskDef) Fingerprint() string {
	payload, _ := json.Marshal(map[string]any{
		"name":    t.Name,
		"command": t.Command,
		"inputs":  t.Inputs,
	})
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// StatusKind identifies a task's position in its lifecycle.
type StatusKind string

const (
	StatusPending          StatusKind = "pending"
	StatusRunning          StatusKind = "running"
	StatusSucceeded        StatusKind = "succeeded"
	StatusFailed           StatusKind = "failed"
	StatusCached           StatusKind = "cached"
	StatusNotImplemented   StatusKind = "not_implemented"
	StatusDependencyFailed StatusKind = "dependency_failed"
)

// Terminal reports whether no further transition can occur.
func (k StatusKind) Terminal() bool {
	return k != StatusPending && k != StatusRunning
}

// Skipped reports whether the task completed without its command running.
func (k StatusKind) Skipped() bool {
	return k == StatusCached || k == StatusNotImplemented
}

// Blocking reports whether this outcome forecloses downstream dependents.
func (k StatusKind) Blocking() bool {
	return k == StatusFailed || k == StatusDependencyFailed
}

// CapturedLine is one line of subprocess output with its arrival time.
type CapturedLine struct {
	At   time.Time
	Text string
}

// Failure describes a failed task execution: the error plus everything the
// command wrote, kept as separate time-ordered stdout and stderr sequences.
type Failure struct {
	Message string
	Stdout  []CapturedLine
	Stderr  []CapturedLine
}

// Status is the mutable per-task state. Which fields are meaningful depends
// on Kind: StartedAt is set once the task enters running and is preserved
// through completion, Duration and Output/Failure are set on the terminal
// success/failure kinds, Fingerprint on cached skips.
type Status struct {
	Kind        StatusKind
	StartedAt   time.Time
	Duration    time.Duration
	Output      json.RawMessage
	Failure     *Failure
	Fingerprint string
}

// Outputs maps task names to the JSON each task declared via its output file.
type Outputs map[string]json.RawMessage
