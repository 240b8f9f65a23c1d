package scheduler

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vpbank/printer_monitor/models"
	"github.com/vpbank/printer_monitor/pkg/printermonitor/poller"
)

// ─────────────────────────────────────────────────────────────────────────────
// JobSubmitter: interface for dependency injection
// ─────────────────────────────────────────────────────────────────────────────

// JobSubmitter is the subset of poller.WorkerPool consumed by the scheduler.
type JobSubmitter interface {
	Submit(poller.PollJob)
	TrySubmit(poller.PollJob) bool
}

// ─────────────────────────────────────────────────────────────────────────────
// Scheduler
// ─────────────────────────────────────────────────────────────────────────────

// entry tracks the next-fire time for a single device.
type entry struct {
	job      poller.PollJob
	interval time.Duration
	nextRun  time.Time
}

// Scheduler dispatches one PollJob per inventory device into a JobSubmitter
// at the device's PollInterval, or the scheduler default when unset.
type Scheduler struct {
	pool     JobSubmitter
	fallback time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	entries []entry

	done chan struct{}
}

// New creates a Scheduler. The scheduler does NOT start automatically; call
// Start to begin dispatching.
func New(devices []models.KnownDevice, interval time.Duration, pool JobSubmitter, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scheduler{
		pool:     pool,
		fallback: interval,
		logger:   logger,
		done:     make(chan struct{}),
	}
	s.entries = s.buildEntries(devices)
	return s
}

// Start runs the scheduling loop. It blocks until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	defer close(s.done)

	for {
		s.mu.Lock()
		if len(s.entries) == 0 {
			s.mu.Unlock()
			// Nothing to schedule; wait for cancellation or a Reload.
			select {
			case <-ctx.Done():
				return
			case <-time.After(500 * time.Millisecond):
				continue
			}
		}

		sort.Slice(s.entries, func(i, j int) bool {
			return s.entries[i].nextRun.Before(s.entries[j].nextRun)
		})
		next := s.entries[0].nextRun
		s.mu.Unlock()

		delay := time.Until(next)
		if delay < 0 {
			delay = 0
		}
		timer := time.NewTimer(delay)

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		now := time.Now()
		s.mu.Lock()
		for i := range s.entries {
			if s.entries[i].nextRun.After(now) {
				break
			}
			s.fireEntry(&s.entries[i])
			s.entries[i].nextRun = now.Add(s.entries[i].interval)
		}
		s.mu.Unlock()
	}
}

// Stop waits for the scheduling loop to exit. The caller must cancel the
// context passed to Start before calling Stop.
func (s *Scheduler) Stop() {
	<-s.done
}

// Reload atomically replaces the inventory. Every device is polled
// immediately; removed devices stop.
func (s *Scheduler) Reload(devices []models.KnownDevice) {
	newEntries := s.buildEntries(devices)
	s.mu.Lock()
	s.entries = newEntries
	s.mu.Unlock()
	s.logger.Info("scheduler: inventory reloaded", zap.Int("devices", len(newEntries)))
}

// Entries returns the number of active entries.
func (s *Scheduler) Entries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// ─────────────────────────────────────────────────────────────────────────────
// Internal helpers
// ─────────────────────────────────────────────────────────────────────────────

func (s *Scheduler) buildEntries(devices []models.KnownDevice) []entry {
	byLabel := make(map[string]models.KnownDevice, len(devices))
	for _, d := range devices {
		byLabel[d.Label] = d
	}

	now := time.Now()
	jobs := ResolveJobs(devices, s.logger)
	entries := make([]entry, 0, len(jobs))
	for _, job := range jobs {
		entries = append(entries, entry{
			job:      job,
			interval: intervalFor(byLabel[job.Label], s.fallback),
			nextRun:  now, // poll immediately on start / reload
		})
	}
	return entries
}

// fireEntry dispatches the entry's job using TrySubmit (non-blocking).
func (s *Scheduler) fireEntry(e *entry) {
	if !s.pool.TrySubmit(e.job) {
		s.logger.Warn("scheduler: job queue full, dropping poll",
			zap.String("label", e.job.Label),
			zap.String("address", e.job.Address),
		)
		return
	}
	s.logger.Debug("scheduler: fired poll",
		zap.String("label", e.job.Label),
		zap.Duration("interval", e.interval),
	)
}
