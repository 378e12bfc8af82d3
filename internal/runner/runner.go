// Package runner executes task commands as bash subprocesses, capturing
// stdout and stderr line by line with arrival timestamps.
package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/gabyx/devenv/internal/tasks"
)

// maxLineBytes bounds a single captured output line.
const maxLineBytes = 1 << 20

// outputFileEnv names the file a task may write its JSON output to.
const outputFileEnv = "DEVENV_TASK_OUTPUT_FILE"

// ShellRunner runs task commands through bash. In verbose mode every
// captured line is teed to Echo, prefixed with the task name so concurrent
// output stays attributable.
type ShellRunner struct {
	Verbose bool
	Echo    io.Writer // verbose tee target, defaults to os.Stderr
}

// New returns a ShellRunner echoing to stderr when verbose.
func New(verbose bool) *ShellRunner {
	return &ShellRunner{Verbose: verbose, Echo: os.Stderr}
}

// Run executes the task's command. A non-nil error means the task failed;
// the returned result still carries everything captured up to that point.
func (r *ShellRunner) Run(ctx context.Context, task *tasks.TaskDef, env []string) (*tasks.RunResult, error) {
	res := &tasks.RunResult{}

	outFile, err := os.CreateTemp("", "devenv-task-output-*.json")
	if err != nil {
		return res, fmt.Errorf("creating output file: %w", err)
	}
	outPath := outFile.Name()
	outFile.Close()
	defer os.Remove(outPath)

	cmd := exec.CommandContext(ctx, "bash", "-c", task.Command)
	cmd.Env = append(append([]string(nil), env...), outputFileEnv+"="+outPath)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return res, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return res, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return res, fmt.Errorf("starting task %q: %w", task.Name, err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		res.Stdout = r.capture(stdout, task.Name)
	}()
	go func() {
		defer wg.Done()
		res.Stderr = r.capture(stderr, task.Name)
	}()
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		return res, fmt.Errorf("task %q: %w", task.Name, err)
	}

	output, err := readOutputFile(outPath)
	if err != nil {
		return res, fmt.Errorf("task %q: %w", task.Name, err)
	}
	res.Output = output
	return res, nil
}

// CheckStatus runs the task's status command and reports whether it exited
// zero. Its output is discarded: the command is a check, not a build step.
func (r *ShellRunner) CheckStatus(ctx context.Context, task *tasks.TaskDef, env []string) bool {
	cmd := exec.CommandContext(ctx, "bash", "-c", task.StatusCommand)
	cmd.Env = env
	return cmd.Run() == nil
}

// capture reads a pipe to exhaustion, timestamping each line on arrival.
func (r *ShellRunner) capture(pipe io.Reader, taskName string) []tasks.CapturedLine {
	var lines []tasks.CapturedLine
	scanner := bufio.NewScanner(pipe)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	for scanner.Scan() {
		text := scanner.Text()
		lines = append(lines, tasks.CapturedLine{At: time.Now(), Text: text})
		if r.Verbose && r.Echo != nil {
			fmt.Fprintf(r.Echo, "[%s] %s\n", taskName, text)
		}
	}
	return lines
}

// readOutputFile parses the task's declared output. An absent or empty file
// means no output; malformed JSON fails the task rather than being dropped.
func readOutputFile(path string) (json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading output file: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("output file is not valid JSON")
	}
	return json.RawMessage(data), nil
}
