package scheduler_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/vpbank/printer_monitor/models"
	"github.com/vpbank/printer_monitor/pkg/printermonitor/poller"
	"github.com/vpbank/printer_monitor/pkg/printermonitor/scheduler"
)

// ─────────────────────────────────────────────────────────────────────────────
// Mock JobSubmitter
// ─────────────────────────────────────────────────────────────────────────────

type mockSubmitter struct {
	mu       sync.Mutex
	jobs     []poller.PollJob
	capacity int // 0 = unlimited
}

func newMockSubmitter(capacity int) *mockSubmitter {
	return &mockSubmitter{capacity: capacity}
}

func (m *mockSubmitter) Submit(job poller.PollJob) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs = append(m.jobs, job)
}

func (m *mockSubmitter) TrySubmit(job poller.PollJob) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.capacity > 0 && len(m.jobs) >= m.capacity {
		return false
	}
	m.jobs = append(m.jobs, job)
	return true
}

func (m *mockSubmitter) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.jobs)
}

func (m *mockSubmitter) countFor(label string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, j := range m.jobs {
		if j.Label == label {
			n++
		}
	}
	return n
}

// ─────────────────────────────────────────────────────────────────────────────
// Test inventory builders
// ─────────────────────────────────────────────────────────────────────────────

func basicInventory() []models.KnownDevice {
	return []models.KnownDevice{
		{Label: "Printer 1", Address: "10.0.0.1", Community: "public", PollInterval: 200 * time.Millisecond},
	}
}

func multiDeviceInventory() []models.KnownDevice {
	return append(basicInventory(), models.KnownDevice{
		Label: "Printer 2", Address: "10.0.0.2", PollInterval: 500 * time.Millisecond,
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// ResolveJobs tests
// ─────────────────────────────────────────────────────────────────────────────

func TestResolveJobs(t *testing.T) {
	jobs := scheduler.ResolveJobs(basicInventory(), nil)

	if len(jobs) != 1 {
		t.Fatalf("got %d jobs, want 1", len(jobs))
	}
	want := poller.PollJob{Label: "Printer 1", Address: "10.0.0.1", Community: "public"}
	if jobs[0] != want {
		t.Errorf("job = %+v, want %+v", jobs[0], want)
	}
}

func TestResolveJobs_SortedByLabel(t *testing.T) {
	devices := []models.KnownDevice{
		{Label: "b", Address: "10.0.0.2"},
		{Label: "a", Address: "10.0.0.1"},
	}
	jobs := scheduler.ResolveJobs(devices, nil)
	if len(jobs) != 2 || jobs[0].Label != "a" || jobs[1].Label != "b" {
		t.Errorf("jobs = %+v", jobs)
	}
}

func TestResolveJobs_SkipsInvalidAndDuplicate(t *testing.T) {
	devices := []models.KnownDevice{
		{Label: "a", Address: "10.0.0.1"},
		{Label: "b", Address: "10.0.0.1:161"},
		{Label: "c", Address: "not a host"},
	}
	jobs := scheduler.ResolveJobs(devices, zaptest.NewLogger(t))
	if len(jobs) != 1 || jobs[0].Label != "a" {
		t.Errorf("jobs = %+v, want only a", jobs)
	}
}

func TestResolveJobs_Empty(t *testing.T) {
	if jobs := scheduler.ResolveJobs(nil, nil); len(jobs) != 0 {
		t.Errorf("got %d jobs for nil inventory", len(jobs))
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Scheduler lifecycle tests
// ─────────────────────────────────────────────────────────────────────────────

func TestSchedulerFiresOnInterval(t *testing.T) {
	sub := newMockSubmitter(0)
	s := scheduler.New(basicInventory(), 0, sub, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go s.Start(ctx)

	time.Sleep(500 * time.Millisecond)
	cancel()
	s.Stop()

	// One immediate firing plus at least one at ~200ms.
	if n := sub.count(); n < 2 {
		t.Errorf("expected at least 2 dispatches in 500ms, got %d", n)
	}
}

func TestSchedulerMultipleIntervals(t *testing.T) {
	sub := newMockSubmitter(0)
	s := scheduler.New(multiDeviceInventory(), 0, sub, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go s.Start(ctx)

	time.Sleep(1100 * time.Millisecond)
	cancel()
	s.Stop()

	fast, slow := sub.countFor("Printer 1"), sub.countFor("Printer 2")
	if fast < 4 {
		t.Errorf("Printer 1: expected ≥4 dispatches, got %d", fast)
	}
	if slow < 2 {
		t.Errorf("Printer 2: expected ≥2 dispatches, got %d", slow)
	}
	if fast <= slow {
		t.Errorf("Printer 1 (%d) should fire more than Printer 2 (%d)", fast, slow)
	}
}

func TestSchedulerDefaultInterval(t *testing.T) {
	devices := []models.KnownDevice{{Label: "no-override", Address: "10.0.0.3"}}
	sub := newMockSubmitter(0)
	s := scheduler.New(devices, 150*time.Millisecond, sub, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go s.Start(ctx)

	time.Sleep(400 * time.Millisecond)
	cancel()
	s.Stop()

	if n := sub.count(); n < 2 {
		t.Errorf("expected the scheduler default to apply, got %d dispatches", n)
	}
}

func TestSchedulerStop(t *testing.T) {
	sub := newMockSubmitter(0)
	s := scheduler.New(basicInventory(), 0, sub, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go s.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop within 2s after context cancel")
	}
}

func TestSchedulerNoop(t *testing.T) {
	sub := newMockSubmitter(0)
	s := scheduler.New(nil, 0, sub, nil)

	if s.Entries() != 0 {
		t.Errorf("expected 0 entries, got %d", s.Entries())
	}

	ctx, cancel := context.WithCancel(context.Background())
	go s.Start(ctx)

	time.Sleep(100 * time.Millisecond)
	cancel()
	s.Stop()

	if sub.count() != 0 {
		t.Errorf("expected 0 dispatches for empty inventory, got %d", sub.count())
	}
}

func TestSchedulerReload(t *testing.T) {
	sub := newMockSubmitter(0)
	s := scheduler.New(basicInventory(), 0, sub, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	go s.Start(ctx)

	time.Sleep(100 * time.Millisecond)
	if sub.count() < 1 {
		t.Fatalf("expected at least 1 dispatch before reload, got %d", sub.count())
	}

	s.Reload(multiDeviceInventory())
	if s.Entries() != 2 {
		t.Errorf("expected 2 entries after reload, got %d", s.Entries())
	}

	time.Sleep(300 * time.Millisecond)
	cancel()
	s.Stop()

	if sub.countFor("Printer 2") < 1 {
		t.Error("device added by Reload was never dispatched")
	}
}

func TestSchedulerReload_RemoveDevice(t *testing.T) {
	s := scheduler.New(multiDeviceInventory(), 0, newMockSubmitter(0), nil)
	if s.Entries() != 2 {
		t.Fatalf("expected 2 entries, got %d", s.Entries())
	}

	s.Reload(basicInventory())
	if s.Entries() != 1 {
		t.Errorf("expected 1 entry after reload, got %d", s.Entries())
	}
}

func TestTrySubmitBackpressure(t *testing.T) {
	sub := newMockSubmitter(1)
	s := scheduler.New(basicInventory(), 0, sub, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go s.Start(ctx)

	time.Sleep(500 * time.Millisecond)
	cancel()
	s.Stop()

	if sub.count() != 1 {
		t.Errorf("expected exactly 1 accepted job (capacity=1), got %d", sub.count())
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Concurrent safety test
// ─────────────────────────────────────────────────────────────────────────────

func TestSchedulerConcurrentReload(t *testing.T) {
	sub := newMockSubmitter(0)
	s := scheduler.New(basicInventory(), 0, sub, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go s.Start(ctx)

	var wg sync.WaitGroup
	var panicCount atomic.Int32
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					panicCount.Add(1)
				}
			}()
			s.Reload(multiDeviceInventory())
		}()
	}
	wg.Wait()

	cancel()
	s.Stop()

	if panicCount.Load() != 0 {
		t.Errorf("concurrent Reload caused %d panics", panicCount.Load())
	}
}
