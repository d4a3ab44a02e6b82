// Package runner owns scrape execution: it launches runs in the background,
// enforces one run per scope at a time, and keeps the status and activity
// history the HTTP surface reports.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"forexcal/internal/event"
	"forexcal/internal/logger"
	"forexcal/internal/pipeline"
)

// ErrAlreadyRunning is returned when a scrape for the same scope is active.
var ErrAlreadyRunning = errors.New("scrape already running for this scope")

const (
	activityKeep  = 50
	activityServe = 20
)

// RunFunc executes one scrape for a scope. The runner injects it so tests
// can run without a browser or sinks.
type RunFunc func(ctx context.Context, scope event.Scope) (*pipeline.Result, error)

// ActiveRun describes a scrape currently in flight.
type ActiveRun struct {
	RunID     string    `json:"run_id"`
	Scope     string    `json:"scope"`
	StartedAt time.Time `json:"started_at"`
}

// RunRecord summarizes a finished scrape.
type RunRecord struct {
	RunID       string    `json:"run_id"`
	Scope       string    `json:"scope"`
	Status      string    `json:"status"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	TotalEvents int       `json:"total_events"`
	Partial     bool      `json:"partial"`
	Error       string    `json:"error,omitempty"`
}

// Status is the snapshot served by the status endpoint.
type Status struct {
	Running bool        `json:"is_running"`
	Active  []ActiveRun `json:"active,omitempty"`
	LastRun *RunRecord  `json:"last_run,omitempty"`
}

// Entry is one line of the recent activity log.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

type activeRun struct {
	info   ActiveRun
	cancel context.CancelFunc
}

// Runner tracks in-flight and completed scrapes.
type Runner struct {
	mu       sync.Mutex
	exec     RunFunc
	logger   *logger.Logger
	active   map[string]*activeRun // keyed by scope key
	last     *RunRecord
	activity []Entry
	wg       sync.WaitGroup
}

// New creates a Runner that executes scrapes through exec.
func New(exec RunFunc, log *logger.Logger) *Runner {
	return &Runner{
		exec:   exec,
		logger: log,
		active: make(map[string]*activeRun),
	}
}

// Trigger starts a background scrape for scope and returns its run ID.
// A second trigger for the same scope while one is in flight is refused;
// different scopes may run concurrently.
func (r *Runner) Trigger(scope event.Scope) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := scope.Key()
	if _, busy := r.active[key]; busy {
		return "", ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	run := &activeRun{
		info: ActiveRun{
			RunID:     uuid.NewString(),
			Scope:     key,
			StartedAt: time.Now().UTC(),
		},
		cancel: cancel,
	}
	r.active[key] = run
	r.record(fmt.Sprintf("scrape started for %s", key))

	r.wg.Add(1)
	go r.execute(ctx, scope, run)

	return run.info.RunID, nil
}

func (r *Runner) execute(ctx context.Context, scope event.Scope, run *activeRun) {
	defer r.wg.Done()
	defer run.cancel()

	res, err := r.exec(ctx, scope)

	rec := RunRecord{
		RunID:      run.info.RunID,
		Scope:      run.info.Scope,
		StartedAt:  run.info.StartedAt,
		FinishedAt: time.Now().UTC(),
	}
	switch {
	case err != nil:
		rec.Status = "failed"
		rec.Error = err.Error()
	case res.Failed():
		rec.Status = "sink_failed"
		rec.TotalEvents = res.Session.TotalEvents
		rec.Partial = res.Session.Partial
	default:
		rec.Status = "completed"
		rec.TotalEvents = res.Session.TotalEvents
		rec.Partial = res.Session.Partial
	}

	r.mu.Lock()
	delete(r.active, run.info.Scope)
	r.last = &rec
	r.record(fmt.Sprintf("scrape %s for %s: %d events", rec.Status, rec.Scope, rec.TotalEvents))
	r.mu.Unlock()

	if err != nil {
		r.logger.Error("scrape failed", logger.Fields{"scope": rec.Scope}, err)
		return
	}
	r.logger.Info("scrape finished", logger.Fields{
		"scope":  rec.Scope,
		"status": rec.Status,
		"events": rec.TotalEvents,
	})
}

// Status returns a snapshot of in-flight runs and the last completed one.
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := Status{Running: len(r.active) > 0}
	for _, run := range r.active {
		st.Active = append(st.Active, run.info)
	}
	if r.last != nil {
		rec := *r.last
		st.LastRun = &rec
	}
	return st
}

// Activity returns the most recent activity entries, newest first.
func (r *Runner) Activity() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.activity)
	if n > activityServe {
		n = activityServe
	}
	out := make([]Entry, n)
	for i := 0; i < n; i++ {
		out[i] = r.activity[len(r.activity)-1-i]
	}
	return out
}

// Shutdown cancels every in-flight run and waits for them to settle.
func (r *Runner) Shutdown() {
	r.mu.Lock()
	for _, run := range r.active {
		run.cancel()
	}
	r.mu.Unlock()
	r.wg.Wait()
}

// record appends an activity entry; callers hold r.mu.
func (r *Runner) record(msg string) {
	r.activity = append(r.activity, Entry{Timestamp: time.Now().UTC(), Message: msg})
	if len(r.activity) > activityKeep {
		r.activity = r.activity[len(r.activity)-activityKeep:]
	}
}
