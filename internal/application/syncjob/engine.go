// Package syncjob runs one cancellable, progress-reporting synchronization
// job at a time.
//
// A job advances on two tickers of the same period: a countdown of the
// remaining seconds and a progress counter. They are independent, so either
// may reach its bound first; the job completes when progress reaches 100%.
// At that point both tickers are stopped and the OutcomeGenerator performs
// the actual synchronization. Cancel stops a running job and records a
// synthetic "stopped by user" entry instead.
package syncjob

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eshaffer321/inventory-sync-manager/internal/domain/platform"
	"github.com/eshaffer321/inventory-sync-manager/internal/domain/synclog"
	"github.com/eshaffer321/inventory-sync-manager/internal/infrastructure/clock"
)

// Engine owns the active job, its tickers and its goroutine.
type Engine struct {
	cfg       Config
	generator OutcomeGenerator
	clock     clock.Clock
	logger    *slog.Logger

	// lifecycle serializes Start, Cancel and Shutdown so a cancellation is
	// fully published before the next job can start.
	lifecycle sync.Mutex

	mu     sync.Mutex
	job    *Job
	run    *run
	closed bool

	subMu       sync.RWMutex
	subscribers map[int]Subscriber
	nextSub     int
}

// run is the goroutine handle of a running job.
type run struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// NewEngine creates an idle engine.
func NewEngine(cfg Config, generator OutcomeGenerator, clk clock.Clock, logger *slog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	if generator == nil {
		return nil, fmt.Errorf("outcome generator is required")
	}
	if clk == nil {
		clk = clock.Real{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		cfg:         cfg,
		generator:   generator,
		clock:       clk,
		logger:      logger,
		subscribers: make(map[int]Subscriber),
	}, nil
}

// Subscribe registers fn for progress and terminal events. The returned
// function removes the subscription.
func (e *Engine) Subscribe(fn Subscriber) func() {
	e.subMu.Lock()
	defer e.subMu.Unlock()

	id := e.nextSub
	e.nextSub++
	e.subscribers[id] = fn

	return func() {
		e.subMu.Lock()
		defer e.subMu.Unlock()
		delete(e.subscribers, id)
	}
}

// Start begins a new job. It fails with ErrInvalidOptions for unusable
// options and with ErrJobAlreadyRunning while another job runs. A finished
// job kept for display is replaced.
func (e *Engine) Start(opts Options) (Job, error) {
	return e.StartWith(opts, nil)
}

// StartWith is Start with a hook that runs once the job exists and before
// its goroutine does, so no event of the job can precede onStart. onStart
// must not start or cancel jobs.
func (e *Engine) StartWith(opts Options, onStart func(Job)) (Job, error) {
	if err := opts.Validate(); err != nil {
		return Job{}, err
	}

	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return Job{}, ErrEngineClosed
	}
	if e.job != nil && e.job.Status == StatusRunning {
		id := e.job.ID
		e.mu.Unlock()
		return Job{}, fmt.Errorf("%w: %s", ErrJobAlreadyRunning, id)
	}

	job := &Job{
		ID:               uuid.NewString(),
		Status:           StatusRunning,
		SecondsRemaining: e.cfg.DurationSeconds,
		Options:          opts.clone(),
		StartedAt:        e.clock.Now(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &run{cancel: cancel, done: make(chan struct{})}
	progress := e.clock.NewTicker(e.cfg.TickInterval)
	countdown := e.clock.NewTicker(e.cfg.TickInterval)

	e.job = job
	e.run = r
	snap := job.snapshot()
	e.mu.Unlock()

	if onStart != nil {
		onStart(snap)
	}

	go e.loop(ctx, job, r, progress, countdown)

	e.logger.Info("sync job started",
		"job_id", job.ID,
		"platforms", job.Options.Platforms,
		"sync_type", job.Options.SyncType,
		"product_selection", job.Options.ProductSelection,
	)

	return snap, nil
}

// Cancel stops the running job, records the stop entry and publishes the
// terminal event before returning. It reports false when no job was running.
func (e *Engine) Cancel() bool {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()

	cancelled, _ := e.cancelActive(context.Background())
	return cancelled
}

// Shutdown cancels any running job and refuses further starts. It returns
// ctx's error if the job goroutine does not exit in time.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()

	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	_, err := e.cancelActive(ctx)
	return err
}

// Current returns the active job, or the last finished one. It reports false
// before the first job.
func (e *Engine) Current() (Job, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.job == nil {
		return Job{}, false
	}
	return e.job.snapshot(), true
}

// Running reports whether a job is running.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.job != nil && e.job.Status == StatusRunning
}

func (e *Engine) cancelActive(ctx context.Context) (bool, error) {
	e.mu.Lock()
	job, r := e.job, e.run
	if job == nil || job.Status != StatusRunning {
		e.mu.Unlock()
		return false, nil
	}

	now := e.clock.Now()
	outcome := Outcome{
		FailureCount:             1,
		PerPlatformSuccessCounts: map[platform.ID]int{},
		Entries:                  []synclog.Entry{synclog.Stopped(now)},
		Platforms:                slices.Clone(job.Options.Platforms),
		FinishedAt:               now,
		Cancelled:                true,
	}
	job.Status = StatusCancelled
	job.FinishedAt = &now
	job.Outcome = &outcome
	e.run = nil
	snap := job.snapshot()
	e.mu.Unlock()

	r.cancel()

	var err error
	select {
	case <-r.done:
	case <-ctx.Done():
		err = fmt.Errorf("waiting for job %s to stop: %w", job.ID, ctx.Err())
	}

	e.logger.Info("sync job cancelled",
		"job_id", job.ID,
		"progress", snap.ProgressPercent,
		"seconds_remaining", snap.SecondsRemaining,
	)
	e.publish(TerminalEvent{Job: snap, Outcome: outcome})

	return true, err
}

// loop drives one job until it completes or is cancelled. Only this goroutine
// advances the job's progress and countdown.
func (e *Engine) loop(ctx context.Context, job *Job, r *run, progress, countdown clock.Ticker) {
	defer close(r.done)
	defer r.cancel()
	defer progress.Stop()
	defer countdown.Stop()

	countdownC := countdown.C()
	for {
		select {
		case <-ctx.Done():
			return

		case <-countdownC:
			remaining, ok := e.tickCountdown(job)
			if !ok {
				return
			}
			if remaining == 0 {
				countdown.Stop()
				countdownC = nil
			}

		case <-progress.C():
			event, complete, ok := e.tickProgress(job)
			if !ok {
				return
			}
			e.publish(event)
			if complete {
				progress.Stop()
				countdown.Stop()
				e.finish(ctx, job)
				return
			}
		}
	}
}

func (e *Engine) tickCountdown(job *Job) (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if job.Status != StatusRunning {
		return 0, false
	}
	if job.SecondsRemaining > 0 {
		job.SecondsRemaining--
	}
	return job.SecondsRemaining, true
}

func (e *Engine) tickProgress(job *Job) (ProgressEvent, bool, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if job.Status != StatusRunning {
		return ProgressEvent{}, false, false
	}
	job.ProgressPercent = min(job.ProgressPercent+e.cfg.ProgressStep, 100)

	return ProgressEvent{
		JobID:            job.ID,
		ProgressPercent:  job.ProgressPercent,
		SecondsRemaining: job.SecondsRemaining,
		Status:           job.Status,
	}, job.ProgressPercent >= 100, true
}

// finish runs the generator and completes the job, unless it was cancelled
// while the generator ran.
func (e *Engine) finish(ctx context.Context, job *Job) {
	e.mu.Lock()
	snap := job.snapshot()
	e.mu.Unlock()

	outcome, err := e.generate(ctx, snap)

	e.mu.Lock()
	if job.Status != StatusRunning {
		e.mu.Unlock()
		return
	}
	now := e.clock.Now()
	if err != nil {
		e.logger.Error("sync outcome generation failed", "job_id", job.ID, "error", err)
		outcome = Outcome{
			FailureCount: 1,
			Entries:      []synclog.Entry{synclog.Failed(now, "Sync failed: "+err.Error())},
		}
	}
	outcome = e.reconcile(job, outcome, now)

	job.Status = StatusCompleted
	job.FinishedAt = &now
	job.Outcome = &outcome
	e.run = nil
	snap = job.snapshot()
	e.mu.Unlock()

	e.logger.Info("sync job completed",
		"job_id", job.ID,
		"success", outcome.SuccessCount,
		"failed", outcome.FailureCount,
	)
	e.publish(TerminalEvent{Job: snap, Outcome: outcome})
}

func (e *Engine) generate(ctx context.Context, job Job) (outcome Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("outcome generator panicked: %v", r)
		}
	}()
	return e.generator.Generate(ctx, job)
}

// reconcile makes the counts of an outcome agree with its entries, which are
// what gets recorded, and stamps the job's platforms and finish time.
func (e *Engine) reconcile(job *Job, outcome Outcome, now time.Time) Outcome {
	success, failure := synclog.Tally(outcome.Entries)
	if success != outcome.SuccessCount || failure != outcome.FailureCount {
		e.logger.Warn("outcome counts disagree with entries",
			"job_id", job.ID,
			"reported_success", outcome.SuccessCount,
			"reported_failed", outcome.FailureCount,
			"entries_success", success,
			"entries_failed", failure,
		)
		outcome.SuccessCount = success
		outcome.FailureCount = failure
	}

	if outcome.PerPlatformSuccessCounts == nil {
		outcome.PerPlatformSuccessCounts = make(map[platform.ID]int)
		for _, entry := range outcome.Entries {
			if entry.Status == synclog.StatusSuccess {
				outcome.PerPlatformSuccessCounts[entry.Platform]++
			}
		}
	}

	outcome.Entries = slices.Clone(outcome.Entries)
	outcome.Products = slices.Clone(outcome.Products)
	outcome.Platforms = slices.Clone(job.Options.Platforms)
	outcome.FinishedAt = now
	outcome.Cancelled = false
	return outcome
}

func (e *Engine) publish(event Event) {
	e.subMu.RLock()
	subs := make([]Subscriber, 0, len(e.subscribers))
	for _, fn := range e.subscribers {
		subs = append(subs, fn)
	}
	e.subMu.RUnlock()

	for _, fn := range subs {
		fn(event)
	}
}
