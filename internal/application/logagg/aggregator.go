// Package logagg folds finished sync jobs into the dashboard's running totals
// and its newest-first log history.
package logagg

import (
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/eshaffer321/inventory-sync-manager/internal/application/syncjob"
	"github.com/eshaffer321/inventory-sync-manager/internal/domain/platform"
	"github.com/eshaffer321/inventory-sync-manager/internal/domain/synclog"
)

// Metrics are the dashboard totals. Counts only ever grow.
type Metrics struct {
	SuccessCount      int
	FailureCount      int
	PerPlatformCounts map[platform.ID]int
	LastSyncAt        *time.Time
}

// SuccessRate returns the rounded percentage of successful operations, or 0
// before any operation was recorded.
func (m Metrics) SuccessRate() int {
	total := m.SuccessCount + m.FailureCount
	if total == 0 {
		return 0
	}
	return (m.SuccessCount*100 + total/2) / total
}

// Clone returns a deep copy.
func (m Metrics) Clone() Metrics {
	out := m
	out.PerPlatformCounts = maps.Clone(m.PerPlatformCounts)
	if out.PerPlatformCounts == nil {
		out.PerPlatformCounts = make(map[platform.ID]int)
	}
	if m.LastSyncAt != nil {
		t := *m.LastSyncAt
		out.LastSyncAt = &t
	}
	return out
}

// Apply folds one outcome into the prior totals and log history. The new
// entries are prepended in their outcome order. Neither input is modified.
//
// A platform is credited only if the job targeted it. When the outcome has no
// per-platform breakdown and targeted a single platform, that platform gets
// the whole success count.
//
// A completed job sets LastSyncAt to its finish time. A cancelled job only
// moves it when the stop entry is newer than every existing entry.
func Apply(prior Metrics, priorLogs []synclog.Entry, outcome syncjob.Outcome) (Metrics, []synclog.Entry) {
	next := prior.Clone()
	next.SuccessCount += outcome.SuccessCount
	next.FailureCount += outcome.FailureCount

	for _, p := range outcome.Platforms {
		credit, ok := outcome.PerPlatformSuccessCounts[p]
		if !ok && outcome.PerPlatformSuccessCounts == nil && len(outcome.Platforms) == 1 {
			credit = outcome.SuccessCount
		}
		if credit > 0 {
			next.PerPlatformCounts[p] += credit
		}
	}

	if outcome.Cancelled {
		if at, ok := newestTimestamp(outcome.Entries); ok && newerThanAll(at, priorLogs) {
			next.LastSyncAt = &at
		}
	} else if !outcome.FinishedAt.IsZero() {
		at := outcome.FinishedAt
		next.LastSyncAt = &at
	}

	logs := make([]synclog.Entry, 0, len(outcome.Entries)+len(priorLogs))
	logs = append(logs, outcome.Entries...)
	logs = append(logs, priorLogs...)

	return next, logs
}

func newestTimestamp(entries []synclog.Entry) (time.Time, bool) {
	var newest time.Time
	for _, e := range entries {
		if e.Timestamp.After(newest) {
			newest = e.Timestamp
		}
	}
	return newest, !newest.IsZero()
}

func newerThanAll(at time.Time, entries []synclog.Entry) bool {
	for _, e := range entries {
		if !at.After(e.Timestamp) {
			return false
		}
	}
	return true
}

// Aggregator holds the totals and log history across jobs.
type Aggregator struct {
	mu         sync.RWMutex
	metrics    Metrics
	logs       []synclog.Entry
	maxEntries int
	logger     *slog.Logger
}

// New creates an Aggregator seeded with initial totals and logs, newest
// first. maxEntries caps the retained history; zero keeps everything.
func New(initial Metrics, logs []synclog.Entry, maxEntries int, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Aggregator{
		metrics:    initial.Clone(),
		logs:       slices.Clone(logs),
		maxEntries: maxEntries,
		logger:     logger,
	}
	a.trim()
	return a
}

// Record folds a finished job into the totals and returns the new totals.
func (a *Aggregator) Record(outcome syncjob.Outcome) Metrics {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.metrics, a.logs = Apply(a.metrics, a.logs, outcome)
	a.trim()

	a.logger.Debug("sync outcome recorded",
		"entries", len(outcome.Entries),
		"cancelled", outcome.Cancelled,
		"total_success", a.metrics.SuccessCount,
		"total_failed", a.metrics.FailureCount,
	)
	return a.metrics.Clone()
}

// Metrics returns a copy of the totals.
func (a *Aggregator) Metrics() Metrics {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.metrics.Clone()
}

// Logs returns a copy of the history, newest first.
func (a *Aggregator) Logs() []synclog.Entry {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Clone(a.logs)
}

func (a *Aggregator) trim() {
	if a.maxEntries > 0 && len(a.logs) > a.maxEntries {
		a.logger.Debug("trimming log history", "dropped", len(a.logs)-a.maxEntries)
		a.logs = slices.Clip(a.logs[:a.maxEntries])
	}
}
