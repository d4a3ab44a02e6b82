package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"forexcal/internal/event"
	"forexcal/internal/logger"
	"forexcal/internal/pipeline"
)

func testLogger() *logger.Logger {
	return logger.New(logger.LevelError, io.Discard)
}

func scopeFor(month string) event.Scope {
	return event.Scope{Month: month, Year: 2025, Param: "this"}
}

// blockingExec blocks runs until release is closed, so tests can observe
// in-flight state deterministically.
func blockingExec(release <-chan struct{}, err error) RunFunc {
	return func(ctx context.Context, scope event.Scope) (*pipeline.Result, error) {
		select {
		case <-release:
		case <-ctx.Done():
		}
		if err != nil {
			return nil, err
		}
		return &pipeline.Result{
			Session: event.ScrapeSession{
				Month:       scope.Month,
				Year:        scope.Year,
				TotalEvents: 3,
				Partial:     ctx.Err() != nil,
			},
		}, nil
	}
}

func waitIdle(t *testing.T, r *Runner) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if !r.Status().Running {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("runner did not become idle")
}

func TestTriggerRefusesDuplicateScope(t *testing.T) {
	release := make(chan struct{})
	r := New(blockingExec(release, nil), testLogger())

	id, err := r.Trigger(scopeFor("June"))
	if err != nil {
		t.Fatalf("first trigger failed: %v", err)
	}
	if id == "" {
		t.Fatal("expected a run ID")
	}

	if _, err := r.Trigger(scopeFor("June")); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}

	// A different scope is allowed while the first is in flight.
	if _, err := r.Trigger(scopeFor("July")); err != nil {
		t.Fatalf("different scope should run concurrently: %v", err)
	}

	close(release)
	waitIdle(t, r)

	// The scope is triggerable again once its run finished.
	if _, err := r.Trigger(scopeFor("June")); err != nil {
		t.Fatalf("retrigger after completion failed: %v", err)
	}
	waitIdle(t, r)
}

func TestStatusReflectsLifecycle(t *testing.T) {
	release := make(chan struct{})
	r := New(blockingExec(release, nil), testLogger())

	if st := r.Status(); st.Running || st.LastRun != nil {
		t.Fatalf("expected idle initial status, got %+v", st)
	}

	id, err := r.Trigger(scopeFor("June"))
	if err != nil {
		t.Fatalf("trigger failed: %v", err)
	}

	st := r.Status()
	if !st.Running || len(st.Active) != 1 {
		t.Fatalf("expected one active run, got %+v", st)
	}
	if st.Active[0].RunID != id || st.Active[0].Scope != "June_2025" {
		t.Errorf("unexpected active run info: %+v", st.Active[0])
	}

	close(release)
	waitIdle(t, r)

	st = r.Status()
	if st.LastRun == nil {
		t.Fatal("expected a last run record")
	}
	if st.LastRun.Status != "completed" || st.LastRun.TotalEvents != 3 {
		t.Errorf("unexpected last run: %+v", st.LastRun)
	}
}

func TestFailedRunRecorded(t *testing.T) {
	release := make(chan struct{})
	close(release)
	r := New(blockingExec(release, errors.New("page did not render")), testLogger())

	if _, err := r.Trigger(scopeFor("June")); err != nil {
		t.Fatalf("trigger failed: %v", err)
	}
	waitIdle(t, r)

	st := r.Status()
	if st.LastRun == nil || st.LastRun.Status != "failed" {
		t.Fatalf("expected failed record, got %+v", st.LastRun)
	}
	if st.LastRun.Error == "" {
		t.Error("expected error text in the record")
	}
}

func TestShutdownCancelsInFlightRuns(t *testing.T) {
	release := make(chan struct{}) // never closed; only cancellation unblocks
	r := New(blockingExec(release, nil), testLogger())

	if _, err := r.Trigger(scopeFor("June")); err != nil {
		t.Fatalf("trigger failed: %v", err)
	}

	done := make(chan struct{})
	go func() {
		r.Shutdown()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Shutdown did not unblock the run")
	}

	st := r.Status()
	if st.Running {
		t.Error("expected no active runs after shutdown")
	}
	if st.LastRun == nil || !st.LastRun.Partial {
		t.Errorf("expected cancelled run to be recorded partial, got %+v", st.LastRun)
	}
}

func TestActivityServesNewestTwenty(t *testing.T) {
	r := New(func(ctx context.Context, scope event.Scope) (*pipeline.Result, error) {
		return &pipeline.Result{}, nil
	}, testLogger())

	// Each run records two entries (started + finished).
	for i := 0; i < 30; i++ {
		if _, err := r.Trigger(scopeFor(fmt.Sprintf("m%d", i))); err != nil {
			t.Fatalf("trigger %d failed: %v", i, err)
		}
		waitIdle(t, r)
	}

	entries := r.Activity()
	if len(entries) != 20 {
		t.Fatalf("expected 20 served entries, got %d", len(entries))
	}
	// Newest first.
	for i := 1; i < len(entries); i++ {
		if entries[i].Timestamp.After(entries[i-1].Timestamp) {
			t.Fatal("expected entries in newest-first order")
		}
	}
}
