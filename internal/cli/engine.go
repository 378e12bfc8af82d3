package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/gabyx/devenv/internal/cache"
	"github.com/gabyx/devenv/internal/config"
	"github.com/gabyx/devenv/internal/runner"
	"github.com/gabyx/devenv/internal/secrets"
	"github.com/gabyx/devenv/internal/tasks"
	"github.com/gabyx/devenv/internal/ui"
)

// taskDefs maps the parsed tasks file onto engine definitions.
func taskDefs(f *config.TasksFile) []tasks.TaskDef {
	defs := make([]tasks.TaskDef, 0, len(f.Tasks))
	for _, tc := range f.Tasks {
		defs = append(defs, tasks.TaskDef{
			Name:          tc.Name,
			Command:       tc.Command,
			StatusCommand: tc.Status,
			After:         tc.After,
			Inputs:        tc.Inputs,
		})
	}
	return defs
}

// buildEngine loads the tasks file, opens the cache store and wires the
// engine for the requested roots. The caller owns closing the store.
func buildEngine(roots []string) (*tasks.Engine, *cache.Store, error) {
	f, err := config.Load(tasksFile)
	if err != nil {
		return nil, nil, err
	}

	store, err := cache.Open(resolveCacheDB())
	if err != nil {
		return nil, nil, err
	}

	env := os.Environ()
	sec, err := secrets.Load(secretsPath)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	if sec != nil {
		env = append(env, sec.Environ()...)
	}

	eng, err := tasks.New(
		tasks.Config{Tasks: taskDefs(f), Roots: roots},
		tasks.Options{
			Runner: runner.New(verbosity() == config.Verbose),
			Cache:  store,
			Env:    env,
		},
	)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return eng, store, nil
}

// recordSuccesses persists the fingerprints of succeeded tasks so future
// runs can skip them. Cache write failures degrade to a warning: the run
// itself already finished.
func recordSuccesses(ctx context.Context, eng *tasks.Engine, store *cache.Store) {
	for _, cell := range eng.Graph().Order() {
		st := cell.Read()
		if st.Status.Kind != tasks.StatusSucceeded {
			continue
		}
		if err := store.Record(ctx, st.Task.Name, st.Task.Fingerprint()); err != nil {
			fmt.Fprintf(os.Stderr, "warning: recording cache entry for %q: %v\n", st.Task.Name, err)
		}
	}
}

// runOnce executes one full run for the given roots and returns an error if
// any task failed or was foreclosed.
func runOnce(ctx context.Context, roots []string) (ui.TasksStatus, tasks.Outputs, error) {
	eng, store, err := buildEngine(roots)
	if err != nil {
		return ui.TasksStatus{}, nil, err
	}
	defer store.Close()

	status, outputs, err := ui.New(eng, verbosity()).Run(ctx)
	if err != nil {
		return status, outputs, err
	}

	recordSuccesses(ctx, eng, store)

	if !status.OK() {
		return status, outputs, fmt.Errorf("%d task(s) failed", status.Failed+status.DependencyFailed)
	}
	return status, outputs, nil
}
