package syncjob

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/eshaffer321/inventory-sync-manager/internal/domain/platform"
	"github.com/eshaffer321/inventory-sync-manager/internal/domain/synclog"
)

var (
	// ErrInvalidOptions is returned by Start for options that cannot run.
	ErrInvalidOptions = errors.New("invalid sync options")

	// ErrJobAlreadyRunning is returned by Start while another job is running.
	// The running job is left untouched.
	ErrJobAlreadyRunning = errors.New("sync job already running")

	// ErrEngineClosed is returned by Start after Shutdown.
	ErrEngineClosed = errors.New("sync engine is shut down")
)

// SyncType selects which product data a job synchronizes.
type SyncType string

const (
	SyncInventory SyncType = "inventory"
	SyncPricing   SyncType = "pricing"
	SyncAll       SyncType = "all"
)

// ProductSelection selects which products a job synchronizes.
type ProductSelection string

const (
	SelectAll      ProductSelection = "all"
	SelectFiltered ProductSelection = "filtered"
	SelectSelected ProductSelection = "selected"
)

// Options configure one job. They are copied on Start and never change while
// the job runs.
type Options struct {
	Platforms        []platform.ID
	SyncType         SyncType
	ProductSelection ProductSelection

	// ProductIDs pins the products of a filtered or selected run. It is
	// resolved by the caller when the job starts.
	ProductIDs []string
}

// Validate reports why the options cannot start a job.
func (o Options) Validate() error {
	if len(o.Platforms) == 0 {
		return fmt.Errorf("%w: at least one platform is required", ErrInvalidOptions)
	}
	for _, p := range o.Platforms {
		if !platform.IsKnown(p) {
			return fmt.Errorf("%w: unknown platform %q", ErrInvalidOptions, p)
		}
	}
	switch o.SyncType {
	case SyncInventory, SyncPricing, SyncAll:
	default:
		return fmt.Errorf("%w: unknown sync type %q", ErrInvalidOptions, o.SyncType)
	}
	switch o.ProductSelection {
	case SelectAll, SelectFiltered, SelectSelected:
	default:
		return fmt.Errorf("%w: unknown product selection %q", ErrInvalidOptions, o.ProductSelection)
	}
	return nil
}

// Targets reports whether the job synchronizes to the platform.
func (o Options) Targets(p platform.ID) bool {
	return slices.Contains(o.Platforms, p)
}

func (o Options) clone() Options {
	o.Platforms = slices.Clone(o.Platforms)
	o.ProductIDs = slices.Clone(o.ProductIDs)
	return o
}

// Status is the lifecycle state of a job.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status ends a job.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Outcome is the result of a finished job. It is produced exactly once per
// job and not modified afterwards.
type Outcome struct {
	SuccessCount             int
	FailureCount             int
	PerPlatformSuccessCounts map[platform.ID]int
	Entries                  []synclog.Entry

	// Products holds the per-product results of a completed job. It is empty
	// for a cancelled job, whose partial results are discarded.
	Products []ProductResult

	// Platforms are the platforms the job targeted.
	Platforms  []platform.ID
	FinishedAt time.Time
	Cancelled  bool
}

// ProductResult is the sync result of one product across the job's platforms.
type ProductResult struct {
	ProductID string
	// Failed is set when any platform rejected the product.
	Failed   bool
	SyncedAt time.Time
}

// Job is a snapshot of one sync run.
type Job struct {
	ID               string
	Status           Status
	ProgressPercent  int
	SecondsRemaining int
	Options          Options
	StartedAt        time.Time
	FinishedAt       *time.Time
	Outcome          *Outcome
}

func (j *Job) snapshot() Job {
	out := *j
	out.Options = j.Options.clone()
	if j.FinishedAt != nil {
		t := *j.FinishedAt
		out.FinishedAt = &t
	}
	if j.Outcome != nil {
		o := *j.Outcome
		out.Outcome = &o
	}
	return out
}

// Event is delivered to subscribers.
type Event interface {
	isEvent()
}

// ProgressEvent is published on every progress tick of a running job.
type ProgressEvent struct {
	JobID            string
	ProgressPercent  int
	SecondsRemaining int
	Status           Status
}

func (ProgressEvent) isEvent() {}

// TerminalEvent is published once when a job completes or is cancelled. No
// event for the job follows it.
type TerminalEvent struct {
	Job     Job
	Outcome Outcome
}

func (TerminalEvent) isEvent() {}

// Subscriber receives engine events on the job goroutine, or on the caller of
// Cancel for the cancellation event. It must not call Cancel or Shutdown.
type Subscriber func(Event)

// OutcomeGenerator performs the synchronization of a job that ran to
// completion and reports what happened. ctx is cancelled if the job is
// cancelled while the generator runs.
type OutcomeGenerator interface {
	Generate(ctx context.Context, job Job) (Outcome, error)
}

// GeneratorFunc adapts a function to OutcomeGenerator.
type GeneratorFunc func(ctx context.Context, job Job) (Outcome, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, job Job) (Outcome, error) {
	return f(ctx, job)
}

// Config holds the pacing of a job.
type Config struct {
	// DurationSeconds is the countdown budget a job starts with.
	DurationSeconds int
	// TickInterval is the period of both the countdown and progress tickers.
	TickInterval time.Duration
	// ProgressStep is the percentage added on each progress tick.
	ProgressStep int
}

// DefaultConfig paces a job at 2% per second over 50 seconds.
func DefaultConfig() Config {
	return Config{
		DurationSeconds: 50,
		TickInterval:    time.Second,
		ProgressStep:    2,
	}
}

// Validate checks the pacing values.
func (c Config) Validate() error {
	if c.DurationSeconds <= 0 {
		return fmt.Errorf("duration must be positive, got %d", c.DurationSeconds)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive, got %s", c.TickInterval)
	}
	if c.ProgressStep < 1 || c.ProgressStep > 100 {
		return fmt.Errorf("progress step must be between 1 and 100, got %d", c.ProgressStep)
	}
	return nil
}
