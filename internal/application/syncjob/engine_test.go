package syncjob

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/inventory-sync-manager/internal/domain/platform"
	"github.com/eshaffer321/inventory-sync-manager/internal/domain/synclog"
	"github.com/eshaffer321/inventory-sync-manager/internal/infrastructure/clock"
)

const waitTimeout = 2 * time.Second

var epoch = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func validOptions() Options {
	return Options{
		Platforms:        []platform.ID{platform.LojaIntegrada, platform.WooCommerce},
		SyncType:         SyncAll,
		ProductSelection: SelectAll,
	}
}

// recorder collects engine events.
type recorder struct {
	mu       sync.Mutex
	events   []Event
	terminal chan TerminalEvent
}

func newRecorder() *recorder {
	return &recorder{terminal: make(chan TerminalEvent, 8)}
}

func (r *recorder) handle(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	if term, ok := ev.(TerminalEvent); ok {
		r.terminal <- term
	}
}

func (r *recorder) snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *recorder) progress() []ProgressEvent {
	var out []ProgressEvent
	for _, ev := range r.snapshot() {
		if p, ok := ev.(ProgressEvent); ok {
			out = append(out, p)
		}
	}
	return out
}

func (r *recorder) terminals() []TerminalEvent {
	var out []TerminalEvent
	for _, ev := range r.snapshot() {
		if term, ok := ev.(TerminalEvent); ok {
			out = append(out, term)
		}
	}
	return out
}

func (r *recorder) waitTerminal(t *testing.T) TerminalEvent {
	t.Helper()
	select {
	case term := <-r.terminal:
		return term
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for terminal event")
		return TerminalEvent{}
	}
}

func successGenerator() GeneratorFunc {
	return func(_ context.Context, job Job) (Outcome, error) {
		var entries []synclog.Entry
		for _, p := range job.Options.Platforms {
			entries = append(entries, synclog.Entry{
				ID:        synclog.NewID(),
				Timestamp: epoch,
				Operation: synclog.OperationAll,
				Platform:  p,
				Status:    synclog.StatusSuccess,
			})
		}
		return Outcome{SuccessCount: len(entries), Entries: entries}, nil
	}
}

type harness struct {
	engine    *Engine
	clock     *clock.Manual
	events    *recorder
	progress  *clock.ManualTicker
	countdown *clock.ManualTicker
}

func newHarness(t *testing.T, cfg Config, gen OutcomeGenerator) *harness {
	t.Helper()
	clk := clock.NewManual(epoch)
	engine, err := NewEngine(cfg, gen, clk, testLogger())
	require.NoError(t, err)

	rec := newRecorder()
	engine.Subscribe(rec.handle)

	t.Cleanup(func() {
		_ = engine.Shutdown(context.Background())
	})
	return &harness{engine: engine, clock: clk, events: rec}
}

// start begins a job and captures its tickers, which the engine creates
// progress first.
func (h *harness) start(t *testing.T, opts Options) Job {
	t.Helper()
	job, err := h.engine.Start(opts)
	require.NoError(t, err)

	var ok bool
	h.progress, ok = h.clock.Ticker(waitTimeout)
	require.True(t, ok, "progress ticker not created")
	h.countdown, ok = h.clock.Ticker(waitTimeout)
	require.True(t, ok, "countdown ticker not created")
	return job
}

func TestNewEngine_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero duration", Config{DurationSeconds: 0, TickInterval: time.Second, ProgressStep: 2}},
		{"zero interval", Config{DurationSeconds: 50, TickInterval: 0, ProgressStep: 2}},
		{"zero step", Config{DurationSeconds: 50, TickInterval: time.Second, ProgressStep: 0}},
		{"step above 100", Config{DurationSeconds: 50, TickInterval: time.Second, ProgressStep: 101}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEngine(tt.cfg, successGenerator(), nil, nil)
			assert.Error(t, err)
		})
	}
}

func TestNewEngine_RequiresGenerator(t *testing.T) {
	_, err := NewEngine(DefaultConfig(), nil, nil, nil)
	assert.Error(t, err)
}

func TestEngine_Start_InvalidOptions(t *testing.T) {
	h := newHarness(t, DefaultConfig(), successGenerator())

	tests := []struct {
		name string
		opts Options
	}{
		{"no platforms", Options{SyncType: SyncAll, ProductSelection: SelectAll}},
		{"unknown platform", Options{Platforms: []platform.ID{"shopify"}, SyncType: SyncAll, ProductSelection: SelectAll}},
		{"aggregate platform", Options{Platforms: []platform.ID{platform.All}, SyncType: SyncAll, ProductSelection: SelectAll}},
		{"unknown sync type", Options{Platforms: []platform.ID{platform.WooCommerce}, SyncType: "stock", ProductSelection: SelectAll}},
		{"unknown selection", Options{Platforms: []platform.ID{platform.WooCommerce}, SyncType: SyncAll, ProductSelection: "some"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.engine.Start(tt.opts)
			assert.ErrorIs(t, err, ErrInvalidOptions)
		})
	}

	_, ok := h.engine.Current()
	assert.False(t, ok)
	assert.Equal(t, 0, h.clock.Active())
}

func TestEngine_Start_InitialState(t *testing.T) {
	h := newHarness(t, DefaultConfig(), successGenerator())

	job := h.start(t, validOptions())

	assert.NotEmpty(t, job.ID)
	assert.Equal(t, StatusRunning, job.Status)
	assert.Equal(t, 0, job.ProgressPercent)
	assert.Equal(t, 50, job.SecondsRemaining)
	assert.Equal(t, epoch, job.StartedAt)
	assert.Nil(t, job.FinishedAt)
	assert.Nil(t, job.Outcome)
	assert.Equal(t, time.Second, h.progress.Interval)
	assert.Equal(t, time.Second, h.countdown.Interval)
	assert.True(t, h.engine.Running())
}

func TestEngine_Start_CopiesOptions(t *testing.T) {
	h := newHarness(t, DefaultConfig(), successGenerator())

	opts := validOptions()
	opts.ProductIDs = []string{"1", "2"}
	h.start(t, opts)

	opts.Platforms[0] = platform.WooCommerce
	opts.ProductIDs[0] = "99"

	current, ok := h.engine.Current()
	require.True(t, ok)
	assert.Equal(t, platform.LojaIntegrada, current.Options.Platforms[0])
	assert.Equal(t, "1", current.Options.ProductIDs[0])
}

func TestEngine_Start_RejectsWhileRunning(t *testing.T) {
	h := newHarness(t, DefaultConfig(), successGenerator())
	first := h.start(t, validOptions())

	_, err := h.engine.Start(validOptions())

	assert.ErrorIs(t, err, ErrJobAlreadyRunning)
	current, ok := h.engine.Current()
	require.True(t, ok)
	assert.Equal(t, first.ID, current.ID)
	assert.Equal(t, 2, h.clock.Active(), "a rejected start must not create tickers")
}

func TestEngine_ProgressTicks(t *testing.T) {
	cfg := Config{DurationSeconds: 10, TickInterval: time.Second, ProgressStep: 30}
	h := newHarness(t, cfg, successGenerator())
	h.start(t, validOptions())

	for i := 0; i < 4; i++ {
		require.True(t, h.progress.Fire(waitTimeout), "tick %d", i)
	}
	term := h.events.waitTerminal(t)

	var percents []int
	for _, p := range h.events.progress() {
		percents = append(percents, p.ProgressPercent)
		assert.Equal(t, term.Job.ID, p.JobID)
		assert.Equal(t, StatusRunning, p.Status)
	}
	assert.Equal(t, []int{30, 60, 90, 100}, percents)
	assert.Equal(t, 100, term.Job.ProgressPercent)
}

func TestEngine_CountdownClampsAtZero(t *testing.T) {
	cfg := Config{DurationSeconds: 2, TickInterval: time.Second, ProgressStep: 2}
	h := newHarness(t, cfg, successGenerator())
	h.start(t, validOptions())

	require.True(t, h.countdown.Fire(waitTimeout))
	require.True(t, h.countdown.Fire(waitTimeout))

	// the countdown ticker stops itself at zero
	assert.False(t, h.countdown.Fire(100*time.Millisecond))
	assert.True(t, h.countdown.Stopped())

	current, _ := h.engine.Current()
	assert.Equal(t, 0, current.SecondsRemaining)
	assert.Equal(t, StatusRunning, current.Status, "running out of time does not end the job")

	require.True(t, h.progress.Fire(waitTimeout))
	require.Eventually(t, func() bool { return len(h.events.progress()) == 1 }, waitTimeout, 5*time.Millisecond)
	progress := h.events.progress()
	assert.Equal(t, 0, progress[0].SecondsRemaining)
	assert.Equal(t, 2, progress[0].ProgressPercent)
}

func TestEngine_CompletesAtFullProgress(t *testing.T) {
	cfg := Config{DurationSeconds: 50, TickInterval: time.Second, ProgressStep: 50}
	h := newHarness(t, cfg, successGenerator())
	job := h.start(t, validOptions())

	require.True(t, h.countdown.Fire(waitTimeout))
	h.clock.Advance(2 * time.Second)
	require.True(t, h.progress.Fire(waitTimeout))
	require.True(t, h.progress.Fire(waitTimeout))

	term := h.events.waitTerminal(t)

	assert.Equal(t, job.ID, term.Job.ID)
	assert.Equal(t, StatusCompleted, term.Job.Status)
	assert.Equal(t, 49, term.Job.SecondsRemaining)
	require.NotNil(t, term.Job.FinishedAt)
	assert.Equal(t, epoch.Add(2*time.Second), *term.Job.FinishedAt)

	assert.False(t, term.Outcome.Cancelled)
	assert.Equal(t, 2, term.Outcome.SuccessCount)
	assert.Equal(t, 0, term.Outcome.FailureCount)
	assert.Len(t, term.Outcome.Entries, 2)
	assert.Equal(t, validOptions().Platforms, term.Outcome.Platforms)
	assert.Equal(t, map[platform.ID]int{platform.LojaIntegrada: 1, platform.WooCommerce: 1}, term.Outcome.PerPlatformSuccessCounts)
	assert.Equal(t, epoch.Add(2*time.Second), term.Outcome.FinishedAt)

	assert.True(t, h.progress.Stopped())
	assert.True(t, h.countdown.Stopped())
	assert.False(t, h.engine.Running())

	current, ok := h.engine.Current()
	require.True(t, ok)
	assert.Equal(t, StatusCompleted, current.Status)
	require.NotNil(t, current.Outcome)
	assert.Equal(t, 2, current.Outcome.SuccessCount)
}

func TestEngine_GeneratorReceivesJob(t *testing.T) {
	cfg := Config{DurationSeconds: 50, TickInterval: time.Second, ProgressStep: 100}
	got := make(chan Job, 1)
	gen := GeneratorFunc(func(_ context.Context, job Job) (Outcome, error) {
		got <- job
		return Outcome{}, nil
	})
	h := newHarness(t, cfg, gen)
	opts := validOptions()
	opts.ProductSelection = SelectSelected
	opts.ProductIDs = []string{"3"}
	started := h.start(t, opts)

	require.True(t, h.progress.Fire(waitTimeout))
	h.events.waitTerminal(t)

	job := <-got
	assert.Equal(t, started.ID, job.ID)
	assert.Equal(t, StatusRunning, job.Status)
	assert.Equal(t, 100, job.ProgressPercent)
	assert.Equal(t, []string{"3"}, job.Options.ProductIDs)
}

func TestEngine_ReleasesJobContextOnCompletion(t *testing.T) {
	cfg := Config{DurationSeconds: 50, TickInterval: time.Second, ProgressStep: 100}
	got := make(chan context.Context, 1)
	gen := GeneratorFunc(func(ctx context.Context, job Job) (Outcome, error) {
		got <- ctx
		return successGenerator()(ctx, job)
	})
	h := newHarness(t, cfg, gen)
	h.start(t, validOptions())

	require.True(t, h.progress.Fire(waitTimeout))
	term := h.events.waitTerminal(t)
	require.Equal(t, StatusCompleted, term.Job.Status)

	ctx := <-got
	require.Eventually(t, func() bool { return ctx.Err() != nil }, waitTimeout, 5*time.Millisecond)
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestEngine_StartWith_HookRunsBeforeTicks(t *testing.T) {
	cfg := Config{DurationSeconds: 50, TickInterval: time.Second, ProgressStep: 100}
	h := newHarness(t, cfg, successGenerator())

	release := make(chan struct{})
	var releaseOnce sync.Once
	unblock := func() { releaseOnce.Do(func() { close(release) }) }
	t.Cleanup(unblock)
	hooked := make(chan Job, 1)
	started := make(chan Job, 1)
	go func() {
		job, err := h.engine.StartWith(validOptions(), func(job Job) {
			hooked <- job
			<-release
		})
		assert.NoError(t, err)
		started <- job
	}()

	var hookJob Job
	select {
	case hookJob = <-hooked:
	case <-time.After(waitTimeout):
		t.Fatal("start hook was not called")
	}
	assert.Equal(t, StatusRunning, hookJob.Status)
	assert.True(t, h.engine.Running())

	var ok bool
	h.progress, ok = h.clock.Ticker(waitTimeout)
	require.True(t, ok)
	h.countdown, ok = h.clock.Ticker(waitTimeout)
	require.True(t, ok)

	// nothing consumes ticks until the hook returns
	assert.False(t, h.progress.Fire(50*time.Millisecond))
	assert.Empty(t, h.events.snapshot())

	unblock()
	job := <-started
	assert.Equal(t, hookJob.ID, job.ID)

	require.True(t, h.progress.Fire(waitTimeout))
	term := h.events.waitTerminal(t)
	assert.Equal(t, job.ID, term.Job.ID)
	assert.Equal(t, StatusCompleted, term.Job.Status)
}

func TestEngine_StartWith_RejectedStartSkipsHook(t *testing.T) {
	h := newHarness(t, DefaultConfig(), successGenerator())
	h.start(t, validOptions())

	called := false
	_, err := h.engine.StartWith(validOptions(), func(Job) { called = true })

	assert.ErrorIs(t, err, ErrJobAlreadyRunning)
	assert.False(t, called)
}

func TestEngine_GeneratorFailure(t *testing.T) {
	tests := []struct {
		name string
		gen  GeneratorFunc
	}{
		{
			name: "error",
			gen: func(context.Context, Job) (Outcome, error) {
				return Outcome{SuccessCount: 5}, errors.New("platform unreachable")
			},
		},
		{
			name: "panic",
			gen: func(context.Context, Job) (Outcome, error) {
				panic("boom")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{DurationSeconds: 50, TickInterval: time.Second, ProgressStep: 100}
			h := newHarness(t, cfg, tt.gen)
			h.start(t, validOptions())

			require.True(t, h.progress.Fire(waitTimeout))
			term := h.events.waitTerminal(t)

			assert.Equal(t, StatusCompleted, term.Job.Status)
			assert.Equal(t, 0, term.Outcome.SuccessCount)
			assert.Equal(t, 1, term.Outcome.FailureCount)
			require.Len(t, term.Outcome.Entries, 1)
			entry := term.Outcome.Entries[0]
			assert.Equal(t, synclog.StatusError, entry.Status)
			assert.Equal(t, "N/A", entry.ProductSKU)
			assert.Equal(t, platform.All, entry.Platform)
			assert.Contains(t, entry.Details, "Sync failed")
			assert.Empty(t, term.Outcome.PerPlatformSuccessCounts)
		})
	}
}

func TestEngine_ReconcilesCountsWithEntries(t *testing.T) {
	cfg := Config{DurationSeconds: 50, TickInterval: time.Second, ProgressStep: 100}
	gen := GeneratorFunc(func(context.Context, Job) (Outcome, error) {
		return Outcome{
			SuccessCount: 10,
			FailureCount: 0,
			Entries: []synclog.Entry{
				{ID: "log-1", Platform: platform.WooCommerce, Status: synclog.StatusSuccess},
				{ID: "log-2", Platform: platform.WooCommerce, Status: synclog.StatusError},
			},
		}, nil
	})
	h := newHarness(t, cfg, gen)
	h.start(t, Options{
		Platforms:        []platform.ID{platform.WooCommerce},
		SyncType:         SyncInventory,
		ProductSelection: SelectAll,
	})

	require.True(t, h.progress.Fire(waitTimeout))
	term := h.events.waitTerminal(t)

	assert.Equal(t, 1, term.Outcome.SuccessCount)
	assert.Equal(t, 1, term.Outcome.FailureCount)
	assert.Equal(t, map[platform.ID]int{platform.WooCommerce: 1}, term.Outcome.PerPlatformSuccessCounts)
}

func TestEngine_Cancel(t *testing.T) {
	cfg := Config{DurationSeconds: 50, TickInterval: time.Second, ProgressStep: 2}
	h := newHarness(t, cfg, successGenerator())
	job := h.start(t, validOptions())

	for i := 0; i < 3; i++ {
		require.True(t, h.progress.Fire(waitTimeout))
	}
	require.True(t, h.countdown.Fire(waitTimeout))
	require.Eventually(t, func() bool {
		current, _ := h.engine.Current()
		return current.SecondsRemaining == 49 && current.ProgressPercent == 6
	}, waitTimeout, time.Millisecond)
	h.clock.Advance(3 * time.Second)

	assert.True(t, h.engine.Cancel())

	// published before Cancel returns
	terms := h.events.terminals()
	require.Len(t, terms, 1)
	term := terms[0]

	assert.Equal(t, job.ID, term.Job.ID)
	assert.Equal(t, StatusCancelled, term.Job.Status)
	assert.Equal(t, 6, term.Job.ProgressPercent)
	assert.Equal(t, 49, term.Job.SecondsRemaining)

	assert.True(t, term.Outcome.Cancelled)
	assert.Equal(t, 0, term.Outcome.SuccessCount)
	assert.Equal(t, 1, term.Outcome.FailureCount)
	require.Len(t, term.Outcome.Entries, 1)
	entry := term.Outcome.Entries[0]
	assert.Equal(t, "N/A", entry.ProductSKU)
	assert.Equal(t, "Sync Process", entry.ProductName)
	assert.Equal(t, platform.All, entry.Platform)
	assert.Equal(t, synclog.OperationAll, entry.Operation)
	assert.Equal(t, synclog.StatusError, entry.Status)
	assert.Equal(t, synclog.StoppedDetails, entry.Details)
	assert.Equal(t, epoch.Add(3*time.Second), entry.Timestamp)

	assert.Equal(t, 0, h.clock.Active(), "both tickers must be stopped")
	assert.False(t, h.progress.Fire(50*time.Millisecond))
	assert.Len(t, h.events.progress(), 3)
	assert.False(t, h.engine.Running())
}

func TestEngine_Cancel_Idle(t *testing.T) {
	h := newHarness(t, DefaultConfig(), successGenerator())

	assert.False(t, h.engine.Cancel())
	assert.Empty(t, h.events.snapshot())
}

func TestEngine_Cancel_AfterCompletion(t *testing.T) {
	cfg := Config{DurationSeconds: 50, TickInterval: time.Second, ProgressStep: 100}
	h := newHarness(t, cfg, successGenerator())
	h.start(t, validOptions())
	require.True(t, h.progress.Fire(waitTimeout))
	h.events.waitTerminal(t)

	assert.False(t, h.engine.Cancel())
	assert.Len(t, h.events.terminals(), 1)

	current, _ := h.engine.Current()
	assert.Equal(t, StatusCompleted, current.Status)
}

func TestEngine_Cancel_DuringGeneration(t *testing.T) {
	cfg := Config{DurationSeconds: 50, TickInterval: time.Second, ProgressStep: 100}
	generating := make(chan struct{})
	gen := GeneratorFunc(func(ctx context.Context, job Job) (Outcome, error) {
		close(generating)
		<-ctx.Done()
		return Outcome{SuccessCount: 1}, ctx.Err()
	})
	h := newHarness(t, cfg, gen)
	h.start(t, validOptions())

	require.True(t, h.progress.Fire(waitTimeout))
	select {
	case <-generating:
	case <-time.After(waitTimeout):
		t.Fatal("generator was not called")
	}

	assert.True(t, h.engine.Cancel())

	terms := h.events.terminals()
	require.Len(t, terms, 1)
	assert.Equal(t, StatusCancelled, terms[0].Job.Status)
	assert.True(t, terms[0].Outcome.Cancelled)

	current, _ := h.engine.Current()
	assert.Equal(t, StatusCancelled, current.Status)
}

func TestEngine_RestartAfterTerminal(t *testing.T) {
	cfg := Config{DurationSeconds: 50, TickInterval: time.Second, ProgressStep: 100}
	h := newHarness(t, cfg, successGenerator())

	first := h.start(t, validOptions())
	require.True(t, h.engine.Cancel())

	second := h.start(t, validOptions())
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 0, second.ProgressPercent)
	assert.Equal(t, 50, second.SecondsRemaining)

	require.True(t, h.progress.Fire(waitTimeout))
	term := h.events.waitTerminal(t)
	// the cancellation was buffered first
	assert.Equal(t, first.ID, term.Job.ID)
	term = h.events.waitTerminal(t)
	assert.Equal(t, second.ID, term.Job.ID)
	assert.Equal(t, StatusCompleted, term.Job.Status)
}

func TestEngine_Shutdown(t *testing.T) {
	h := newHarness(t, DefaultConfig(), successGenerator())
	h.start(t, validOptions())

	require.NoError(t, h.engine.Shutdown(context.Background()))

	terms := h.events.terminals()
	require.Len(t, terms, 1)
	assert.Equal(t, StatusCancelled, terms[0].Job.Status)

	_, err := h.engine.Start(validOptions())
	assert.ErrorIs(t, err, ErrEngineClosed)
}

func TestEngine_Unsubscribe(t *testing.T) {
	h := newHarness(t, DefaultConfig(), successGenerator())
	other := newRecorder()
	unsubscribe := h.engine.Subscribe(other.handle)

	h.start(t, validOptions())
	require.True(t, h.progress.Fire(waitTimeout))
	require.Eventually(t, func() bool { return len(other.progress()) == 1 }, waitTimeout, time.Millisecond)
	unsubscribe()
	require.True(t, h.progress.Fire(waitTimeout))
	require.Eventually(t, func() bool { return len(h.events.progress()) == 2 }, waitTimeout, time.Millisecond)

	assert.Len(t, other.progress(), 1)
}

func TestEngine_RealClock(t *testing.T) {
	cfg := Config{DurationSeconds: 5, TickInterval: 5 * time.Millisecond, ProgressStep: 20}
	engine, err := NewEngine(cfg, successGenerator(), clock.Real{}, testLogger())
	require.NoError(t, err)
	defer engine.Shutdown(context.Background())

	rec := newRecorder()
	engine.Subscribe(rec.handle)

	_, err = engine.Start(validOptions())
	require.NoError(t, err)

	term := rec.waitTerminal(t)
	assert.Equal(t, StatusCompleted, term.Job.Status)
	assert.Equal(t, 2, term.Outcome.SuccessCount)

	count := len(rec.snapshot())
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, rec.snapshot(), count, "no events may follow the terminal event")

	last := 0
	for _, p := range rec.progress() {
		assert.GreaterOrEqual(t, p.ProgressPercent, last)
		last = p.ProgressPercent
	}
	assert.Equal(t, 100, last)
}
