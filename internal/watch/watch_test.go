package watch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestNew_InvalidSchedule(t *testing.T) {
	tests := []string{
		"not a schedule",
		"* * *",
		"@sometimes",
	}
	for _, schedule := range tests {
		if _, err := New(schedule); err == nil {
			t.Errorf("New(%q) expected error, got nil", schedule)
		}
	}
}

func TestNew_ValidSchedules(t *testing.T) {
	tests := []string{
		"* * * * *",
		"*/5 * * * *",
		"@hourly",
		"@every 30s",
	}
	for _, schedule := range tests {
		w, err := New(schedule)
		if err != nil {
			t.Errorf("New(%q) error: %v", schedule, err)
			continue
		}
		if w.Schedule() != schedule {
			t.Errorf("Schedule() = %q, want %q", w.Schedule(), schedule)
		}
	}
}

func TestWatcher_StartFiresAndStops(t *testing.T) {
	w, err := New("@every 1s")
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var ticks atomic.Int32
	fired := make(chan struct{}, 1)
	run := func(context.Context) error {
		ticks.Add(1)
		select {
		case fired <- struct{}{}:
		default:
		}
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- w.Start(ctx, run) }()

	select {
	case <-fired:
	case <-time.After(10 * time.Second):
		t.Fatal("watcher never fired")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start() error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start() did not return after cancellation")
	}

	if ticks.Load() == 0 {
		t.Error("no ticks recorded")
	}
}

func TestWatcher_RunErrorDoesNotStopSchedule(t *testing.T) {
	w, err := New("@every 1s")
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var ticks atomic.Int32
	twice := make(chan struct{})
	run := func(context.Context) error {
		if ticks.Add(1) == 2 {
			close(twice)
		}
		return errors.New("run failed")
	}

	done := make(chan error, 1)
	go func() { done <- w.Start(ctx, run) }()

	select {
	case <-twice:
	case <-time.After(15 * time.Second):
		t.Fatal("watcher did not keep firing after a failed run")
	}
	cancel()
	<-done
}
