// Package ui renders live task status. It is a pure observer of the engine:
// it reads state cells whenever the change notifier wakes it and never
// influences scheduling.
package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/gabyx/devenv/internal/config"
	"github.com/gabyx/devenv/internal/tasks"
)

var (
	styleBold      = lipgloss.NewStyle().Bold(true)
	styleInfo      = lipgloss.NewStyle().Foreground(lipgloss.Color("4")).Bold(true) // blue
	styleSuccess   = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true) // green
	styleFailure   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true) // red
	styleDepFailed = lipgloss.NewStyle().Foreground(lipgloss.Color("5")).Bold(true) // magenta
)

// TasksStatus summarizes all tasks at one point in time: one rendered line
// per task that has left pending, plus per-kind counts.
type TasksStatus struct {
	Lines            []string
	Pending          int
	Running          int
	Succeeded        int
	Failed           int
	Skipped          int
	DependencyFailed int
}

// Done reports whether every task has reached a terminal status.
func (s TasksStatus) Done() bool {
	return s.Pending == 0 && s.Running == 0
}

// OK reports whether the run finished without failed or foreclosed tasks.
// The exit code decision belongs to the caller, not the engine.
func (s TasksStatus) OK() bool {
	return s.Failed == 0 && s.DependencyFailed == 0
}

// TasksUI drives an engine run while rendering progress. On a TTY it
// redraws the status list in place; otherwise it prints one line per status
// change. Verbose mode disables the redraw so it cannot overwrite streamed
// task output.
type TasksUI struct {
	engine    *tasks.Engine
	verbosity config.Verbosity
	out       io.Writer
	isTTY     bool
}

// New creates a UI writing to stderr.
func New(engine *tasks.Engine, verbosity config.Verbosity) *TasksUI {
	return &TasksUI{
		engine:    engine,
		verbosity: verbosity,
		out:       os.Stderr,
		isTTY:     isatty.IsTerminal(os.Stderr.Fd()) && verbosity != config.Verbose,
	}
}

// Run executes the engine while observing it, and returns the final status
// summary plus the run's outputs. The returned error covers engine
// infrastructure faults only; task failures are visible in TasksStatus.
func (u *TasksUI) Run(ctx context.Context) (TasksStatus, tasks.Outputs, error) {
	type outcome struct {
		outputs tasks.Outputs
		err     error
	}
	done := make(chan outcome, 1)
	finished := make(chan struct{})
	go func() {
		outputs, err := u.engine.Run(ctx)
		done <- outcome{outputs: outputs, err: err}
		close(finished)
	}()

	if u.verbosity == config.Quiet {
		u.await(finished)
	} else {
		u.render(finished)
	}

	if report := u.formatFailures(); report != "" {
		fmt.Fprint(u.out, report)
	}

	res := <-done
	return u.snapshot(), res.outputs, res.err
}

// await blocks until every task is terminal or the engine returns, printing
// nothing. A cancelled run can leave cells pending, so the engine finishing
// also ends the wait.
func (u *TasksUI) await(finished <-chan struct{}) {
	for {
		wake := u.engine.Notifier().Wait()
		if u.snapshot().Done() {
			return
		}
		select {
		case <-wake:
		case <-finished:
			return
		}
	}
}

// render is the observation loop for normal and verbose mode.
func (u *TasksUI) render(finished <-chan struct{}) {
	roots := strings.Join(u.engine.Graph().RootNames(), ", ")
	fmt.Fprintf(u.out, "%-17s %s\n\n", "Running tasks", styleBold.Render(roots))

	started := time.Now()
	lastHeight := 0
	lastShown := make(map[string]string)

	// The wake channel is obtained before each snapshot, so a transition
	// after the snapshot is never missed. When the engine finishes with
	// cells still pending (cancellation), one final frame is drawn.
	final := false
	for {
		wake := u.engine.Notifier().Wait()
		st := u.snapshot()

		if u.isTTY {
			lastHeight = u.redraw(st, started, lastHeight)
		} else {
			u.printChanges(lastShown)
		}

		if st.Done() || final {
			if !u.isTTY {
				fmt.Fprintln(u.out, summaryText(st))
			}
			return
		}
		select {
		case <-wake:
		case <-finished:
			final = true
		}
	}
}

// redraw repaints the whole status list in place and returns the painted
// height for the next frame's cursor-up.
func (u *TasksUI) redraw(st TasksStatus, started time.Time, lastHeight int) int {
	if len(st.Lines) == 0 {
		return lastHeight
	}
	if lastHeight > 0 {
		// Move back to the first status line and clear everything below.
		fmt.Fprintf(u.out, "\x1b[%dA\x1b[0J", lastHeight)
	}

	summary, plainWidth := summaryStyled(st)
	pad := 19 + u.engine.Graph().LongestName() - plainWidth
	if pad < 1 {
		pad = 1
	}
	elapsed := fmt.Sprintf("%.2fs", time.Since(started).Seconds())

	fmt.Fprintf(u.out, "%s\n%s%s%s\n",
		strings.Join(st.Lines, "\n"), summary, strings.Repeat(" ", pad), elapsed)

	return len(st.Lines) + 1
}

// printChanges emits one line per task whose displayed status changed since
// the previous frame. Pending tasks are not shown.
func (u *TasksUI) printChanges(lastShown map[string]string) {
	for _, cell := range u.engine.Graph().Order() {
		state := cell.Read()
		name := state.Task.Name

		var shown, line string
		switch state.Status.Kind {
		case tasks.StatusPending:
			continue
		case tasks.StatusRunning:
			shown = "Running"
			line = fmt.Sprintf("%s %s", styleInfo.Render(fmt.Sprintf("%-17s", "Running")), styleBold.Render(name))
		case tasks.StatusSucceeded:
			dur := formatDuration(state.Status.Duration)
			shown = "Succeeded (" + dur + ")"
			line = fmt.Sprintf("%s %s (%s)", styleSuccess.Render(fmt.Sprintf("%-17s", "Succeeded")), styleBold.Render(name), dur)
		case tasks.StatusFailed:
			dur := formatDuration(state.Status.Duration)
			shown = "Failed (" + dur + ")"
			line = fmt.Sprintf("%s %s (%s)", styleFailure.Render(fmt.Sprintf("%-17s", "Failed")), styleBold.Render(name), dur)
		case tasks.StatusCached:
			shown = "Cached"
			line = fmt.Sprintf("%s %s", styleInfo.Render(fmt.Sprintf("%-17s", "Cached")), styleBold.Render(name))
		case tasks.StatusNotImplemented:
			shown = "Not implemented"
			line = fmt.Sprintf("%s %s", styleInfo.Render(fmt.Sprintf("%-17s", "Not implemented")), styleBold.Render(name))
		case tasks.StatusDependencyFailed:
			shown = "Dependency failed"
			line = fmt.Sprintf("%s %s", styleFailure.Render(fmt.Sprintf("%-17s", "Dependency failed")), styleBold.Render(name))
		}

		if lastShown[name] != shown {
			fmt.Fprintln(u.out, line)
			lastShown[name] = shown
		}
	}
}

// snapshot reads every cell once, in topological enumeration order.
func (u *TasksUI) snapshot() TasksStatus {
	var st TasksStatus
	for _, cell := range u.engine.Graph().Order() {
		state := cell.Read()

		var statusText, duration string
		switch state.Status.Kind {
		case tasks.StatusPending:
			st.Pending++
			continue
		case tasks.StatusRunning:
			st.Running++
			statusText = styleInfo.Render(fmt.Sprintf("%-17s", "Running"))
			duration = formatDuration(time.Since(state.Status.StartedAt))
		case tasks.StatusSucceeded:
			st.Succeeded++
			statusText = styleSuccess.Render(fmt.Sprintf("%-17s", "Succeeded"))
			duration = formatDuration(state.Status.Duration)
		case tasks.StatusFailed:
			st.Failed++
			statusText = styleFailure.Render(fmt.Sprintf("%-17s", "Failed"))
			duration = formatDuration(state.Status.Duration)
		case tasks.StatusCached:
			st.Skipped++
			statusText = styleInfo.Render(fmt.Sprintf("%-17s", "Cached"))
		case tasks.StatusNotImplemented:
			st.Skipped++
			statusText = styleInfo.Render(fmt.Sprintf("%-17s", "Not implemented"))
		case tasks.StatusDependencyFailed:
			st.DependencyFailed++
			statusText = styleDepFailed.Render(fmt.Sprintf("%-17s", "Dependency failed"))
		}

		st.Lines = append(st.Lines, fmt.Sprintf("%s %s %-10s",
			statusText, styleBold.Render(fmt.Sprintf("%-40s", state.Task.Name)), duration))
	}
	return st
}

// summaryStyled builds the count summary ("2 Pending, 1 Running, ...") and
// also returns its unstyled width, since ANSI codes defeat %-padding.
func summaryStyled(st TasksStatus) (string, int) {
	type part struct {
		n     int
		word  string
		style lipgloss.Style
	}
	parts := []part{
		{st.Pending, "Pending", styleInfo},
		{st.Running, "Running", styleInfo},
		{st.Skipped, "Skipped", styleInfo},
		{st.Succeeded, "Succeeded", styleSuccess},
		{st.Failed, "Failed", styleFailure},
		{st.DependencyFailed, "Dependency Failed", styleFailure},
	}

	var styled []string
	width := 0
	for _, p := range parts {
		if p.n == 0 {
			continue
		}
		count := fmt.Sprintf("%d", p.n)
		styled = append(styled, count+" "+p.style.Render(p.word))
		if width > 0 {
			width += 2 // ", "
		}
		width += len(count) + 1 + len(p.word)
	}
	return strings.Join(styled, ", "), width
}

// summaryText is the unstyled summary used as the final non-TTY line.
func summaryText(st TasksStatus) string {
	s, _ := summaryStyled(st)
	return s
}

// formatFailures renders the post-run failure report: for every failed task,
// the error and the captured stdout/stderr lines with their offset from the
// task's start.
func (u *TasksUI) formatFailures() string {
	var b strings.Builder
	for _, cell := range u.engine.Graph().Order() {
		state := cell.Read()
		if state.Status.Kind != tasks.StatusFailed || state.Status.Failure == nil {
			continue
		}
		name := state.Task.Name
		failure := state.Status.Failure

		fmt.Fprintf(&b, "\n--- %s failed with error: %s\n", name, failure.Message)
		fmt.Fprintf(&b, "--- %s stdout:\n", name)
		writeCaptured(&b, failure.Stdout, state.Status.StartedAt)
		fmt.Fprintf(&b, "--- %s stderr:\n", name)
		writeCaptured(&b, failure.Stderr, state.Status.StartedAt)
		b.WriteString("---\n")
	}
	return b.String()
}

// writeCaptured prints lines as "0001.23: text", the offset being the time
// from task start to the line's arrival.
func writeCaptured(b *strings.Builder, lines []tasks.CapturedLine, startedAt time.Time) {
	for _, line := range lines {
		offset := line.At.Sub(startedAt).Seconds()
		if offset < 0 {
			offset = 0
		}
		fmt.Fprintf(b, "%07.2f: %s\n", offset, line.Text)
	}
}

// formatDuration renders sub-second durations in milliseconds and longer
// ones in seconds with two decimals.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}
