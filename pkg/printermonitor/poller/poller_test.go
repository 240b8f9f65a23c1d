package poller_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gosnmp/gosnmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/vpbank/printer_monitor/models"
	"github.com/vpbank/printer_monitor/pkg/printermonitor/poller"
)

// ─────────────────────────────────────────────────────────────────────────────
// Mock Poller
// ─────────────────────────────────────────────────────────────────────────────

// mockPoller lets tests control the Poll result.
type mockPoller struct {
	mu     sync.Mutex
	calls  []string
	pollFn func(ctx context.Context, address, community string) (models.DeviceSnapshot, error)
}

func (m *mockPoller) Poll(ctx context.Context, address, community string) (models.DeviceSnapshot, error) {
	m.mu.Lock()
	m.calls = append(m.calls, address)
	m.mu.Unlock()
	if m.pollFn != nil {
		return m.pollFn(ctx, address, community)
	}
	return models.DeviceSnapshot{
		Address:   address,
		Timestamp: time.Now(),
		Reachable: true,
		Status:    models.Status{PrinterStatus: models.Int64(3)},
	}, nil
}

func (m *mockPoller) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func testJob() poller.PollJob {
	return poller.PollJob{Label: "Printer 1", Address: "192.168.1.100", Community: "public"}
}

// ─────────────────────────────────────────────────────────────────────────────
// Version / session tests
// ─────────────────────────────────────────────────────────────────────────────

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in      string
		want    poller.Version
		wantErr bool
	}{
		{"1", poller.V1, false},
		{"v1", poller.V1, false},
		{"2c", poller.V2c, false},
		{"v2c", poller.V2c, false},
		{"3", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := poller.ParseVersion(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, "2c", poller.V2c.String())
	assert.Equal(t, "1", poller.V1.String())
}

func TestNewSession(t *testing.T) {
	g, err := poller.NewSession(context.Background(), poller.Request{
		Target:    "10.0.0.5",
		Version:   poller.V1,
		Community: "zabbix",
		Timeout:   time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, uint16(161), g.Port)
	assert.Equal(t, gosnmp.Version1, g.Version)
	assert.Equal(t, "zabbix", g.Community)
	assert.Equal(t, 0, g.Retries)
	assert.Equal(t, "udp", g.Transport)
}

func TestNewSession_Errors(t *testing.T) {
	_, err := poller.NewSession(context.Background(), poller.Request{Version: poller.V2c})
	assert.Error(t, err, "missing target")

	_, err = poller.NewSession(context.Background(), poller.Request{Target: "10.0.0.5", Version: poller.Version(9)})
	assert.Error(t, err, "unsupported version")
}

func TestIsResponse(t *testing.T) {
	err := &poller.ResponseError{Status: gosnmp.NoSuchName, Index: 1}
	assert.True(t, poller.IsResponse(err))
	assert.True(t, poller.IsResponse(errors.Join(errors.New("wrapped"), err)))
	assert.False(t, poller.IsResponse(errors.New("request timeout")))
	assert.False(t, poller.IsResponse(nil))
}

// TestGoSNMPTransport_Timeout sends a GET to a UDP socket that never answers
// and expects a transport failure within the request timeout.
func TestGoSNMPTransport_Timeout(t *testing.T) {
	conn, err := net.ListenPacket("udp4", "127.0.0.1:0")
	require.NoError(t, err)
	defer conn.Close()
	port := conn.LocalAddr().(*net.UDPAddr).Port

	tr := poller.NewGoSNMPTransport(zaptest.NewLogger(t))
	started := time.Now()
	_, err = tr.Get(context.Background(), poller.Request{
		Target:    "127.0.0.1",
		Port:      uint16(port),
		Version:   poller.V2c,
		Community: "public",
		OIDs:      []string{"1.3.6.1.2.1.1.1.0"},
		Timeout:   100 * time.Millisecond,
	})
	require.Error(t, err)
	assert.False(t, poller.IsResponse(err))
	assert.Less(t, time.Since(started), 2*time.Second)
}

func TestGoSNMPTransport_NoOIDs(t *testing.T) {
	tr := poller.NewGoSNMPTransport(nil)
	pdus, err := tr.Get(context.Background(), poller.Request{Target: "127.0.0.1", Version: poller.V2c})
	assert.NoError(t, err)
	assert.Empty(t, pdus)
}

// ─────────────────────────────────────────────────────────────────────────────
// WorkerPool tests
// ─────────────────────────────────────────────────────────────────────────────

func TestWorkerPool_Dispatch(t *testing.T) {
	mp := &mockPoller{}
	out := make(chan poller.Result, 10)

	wp := poller.NewWorkerPool(4, mp, out, zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wp.Start(ctx)

	for i := 0; i < 5; i++ {
		job := testJob()
		job.Label = fmt.Sprintf("Printer %d", i+1)
		job.Address = fmt.Sprintf("192.168.1.%d", 100+i)
		wp.Submit(job)
	}

	collected := 0
	timeout := time.After(2 * time.Second)
	for collected < 5 {
		select {
		case res := <-out:
			assert.Equal(t, res.Job.Address, res.Snapshot.Address)
			collected++
		case <-timeout:
			t.Fatalf("timed out after receiving %d/5 results", collected)
		}
	}

	cancel()
	wp.Stop()
	assert.Equal(t, 5, mp.callCount())
}

func TestWorkerPool_UnreachableStillEmitted(t *testing.T) {
	mp := &mockPoller{
		pollFn: func(_ context.Context, address, _ string) (models.DeviceSnapshot, error) {
			return models.DeviceSnapshot{Address: address, Timestamp: time.Now()}, nil
		},
	}
	out := make(chan poller.Result, 1)
	wp := poller.NewWorkerPool(1, mp, out, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wp.Start(ctx)

	wp.Submit(testJob())
	select {
	case res := <-out:
		assert.False(t, res.Snapshot.Reachable)
	case <-time.After(2 * time.Second):
		t.Fatal("no result for unreachable device")
	}
	cancel()
	wp.Stop()
}

func TestWorkerPool_ContextCancel(t *testing.T) {
	mp := &mockPoller{
		pollFn: func(ctx context.Context, _, _ string) (models.DeviceSnapshot, error) {
			select {
			case <-time.After(5 * time.Second):
			case <-ctx.Done():
			}
			return models.DeviceSnapshot{}, nil
		},
	}
	out := make(chan poller.Result)

	wp := poller.NewWorkerPool(2, mp, out, nil)
	ctx, cancel := context.WithCancel(context.Background())
	wp.Start(ctx)

	wp.TrySubmit(testJob())
	time.Sleep(20 * time.Millisecond)
	cancel()

	done := make(chan struct{})
	go func() {
		wp.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after context cancel")
	}
}

func TestWorkerPool_TrySubmit_Full(t *testing.T) {
	var started atomic.Int32
	mp := &mockPoller{
		pollFn: func(ctx context.Context, _, _ string) (models.DeviceSnapshot, error) {
			started.Add(1)
			<-ctx.Done()
			return models.DeviceSnapshot{}, ctx.Err()
		},
	}
	out := make(chan poller.Result, 10)

	wp := poller.NewWorkerPool(1, mp, out, nil) // 1 worker, channel cap = 2
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wp.Start(ctx)

	var accepted int
	for i := 0; i < 100; i++ {
		if !wp.TrySubmit(testJob()) {
			break
		}
		accepted++
	}
	assert.Less(t, accepted, 100, "TrySubmit never returned false")
	assert.Greater(t, accepted, 0)

	cancel()
	wp.Stop()
}

func TestWorkerPool_SkipsAddressAlreadyInFlight(t *testing.T) {
	release := make(chan struct{})
	var started atomic.Int32
	mp := &mockPoller{
		pollFn: func(_ context.Context, address, _ string) (models.DeviceSnapshot, error) {
			started.Add(1)
			<-release
			return models.DeviceSnapshot{Address: address}, nil
		},
	}
	out := make(chan poller.Result, 10)
	wp := poller.NewWorkerPool(2, mp, out, zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wp.Start(ctx)

	wp.Submit(testJob())
	require.Eventually(t, func() bool { return started.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, wp.InFlight())

	// The second worker picks this up while the first poll is still blocked.
	wp.Submit(testJob())
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), started.Load(), "duplicate poll must be skipped")

	close(release)
	select {
	case <-out:
	case <-time.After(2 * time.Second):
		t.Fatal("no result for the first poll")
	}
	require.Eventually(t, func() bool { return wp.InFlight() == 0 }, time.Second, 5*time.Millisecond)

	wp.Submit(testJob())
	select {
	case <-out:
	case <-time.After(2 * time.Second):
		t.Fatal("address was not released after the poll finished")
	}
	assert.Equal(t, int32(2), started.Load())

	cancel()
	wp.Stop()
}

func TestWorkerPool_PollError_NotEmitted(t *testing.T) {
	mp := &mockPoller{
		pollFn: func(context.Context, string, string) (models.DeviceSnapshot, error) {
			return models.DeviceSnapshot{}, errors.New("invalid address")
		},
	}
	out := make(chan poller.Result, 10)
	wp := poller.NewWorkerPool(2, mp, out, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wp.Start(ctx)

	wp.Submit(testJob())
	time.Sleep(50 * time.Millisecond)

	select {
	case <-out:
		t.Error("should not have received a result for a rejected poll")
	default:
	}
	cancel()
	wp.Stop()
}
