package app

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gosnmp/gosnmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/vpbank/printer_monitor/internal/snmptest"
	"github.com/vpbank/printer_monitor/pkg/printermonitor/config"
	"github.com/vpbank/printer_monitor/pkg/printermonitor/poller"
)

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func testSettings(t *testing.T) config.Settings {
	t.Helper()
	base := t.TempDir()
	devices := filepath.Join(base, "devices")
	require.NoError(t, os.MkdirAll(devices, 0o755))
	writeYAML(t, filepath.Join(devices, "printers.yml"), `
Printer 1:
  address: 10.0.0.7
  community: public
  poll_interval: 1
Printer 2:
  address: 10.0.0.8
`)

	v := viper.New()
	config.SetDefaults(v)
	v.Set("inventory.devices_dir", devices)
	v.Set("inventory.defaults_dir", filepath.Join(base, "defaults"))
	v.Set("inventory.enums_dir", filepath.Join(base, "enums"))
	v.Set("snmp.timeout", "100ms")
	v.Set("scheduler.interval", "1s")
	v.Set("scheduler.workers", 2)
	v.Set("http.enabled", false)
	s, err := config.Decode(v)
	require.NoError(t, err)
	return s
}

func writeYAML(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func fakeTransport() *snmptest.Fake {
	f := snmptest.New()
	f.AddDevice("10.0.0.7", &snmptest.Device{
		Accept: []snmptest.Credential{{Version: poller.V2c, Community: "public"}},
		Values: map[string]gosnmp.SnmpPDU{
			"1.3.6.1.2.1.1.1.0":        snmptest.Text("HP LaserJet M404"),
			"1.3.6.1.2.1.1.5.0":        snmptest.Text("NPI0A1B2C"),
			"1.3.6.1.2.1.25.3.5.1.1.1": snmptest.Int(3),
		},
	})
	return f
}

// safeBuffer is a bytes.Buffer safe for concurrent writes and reads.
type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *safeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// ─────────────────────────────────────────────────────────────────────────────
// Tests
// ─────────────────────────────────────────────────────────────────────────────

func TestNew_NilLogger(t *testing.T) {
	a := New(Config{}, nil)
	assert.NotNil(t, a.logger)
	assert.NoError(t, a.Stop(), "Stop before Start is a no-op")
}

func TestBuild_InvalidInventory(t *testing.T) {
	s := testSettings(t)
	writeYAML(t, filepath.Join(s.Inventory.DevicesDir, "bad.yml"), "Broken:\n  community: public\n")

	err := New(Config{Settings: s, Transport: fakeTransport()}, nil).Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "address is required")
}

func TestBuild_OneShotSnapshot(t *testing.T) {
	a := New(Config{Settings: testSettings(t), Transport: fakeTransport()}, zaptest.NewLogger(t))
	require.NoError(t, a.Build())

	devices := a.Service().ListKnownDevices()
	require.Len(t, devices, 2)
	assert.Equal(t, time.Second, devices[0].PollInterval)

	snap, err := a.Service().GetSnapshot(context.Background(), "10.0.0.7", "")
	require.NoError(t, err)
	assert.True(t, snap.Reachable)
	assert.Equal(t, "hp", snap.Vendor)
	assert.Equal(t, "idle", snap.Status.PrinterStatusText)
	assert.Equal(t, "NPI0A1B2C", snap.BasicInfo.DeviceName)
}

func TestStartStop_ExportsScheduledSnapshots(t *testing.T) {
	s := testSettings(t)
	s.Export.Enabled = true

	var out safeBuffer
	a := New(Config{
		Settings:     s,
		Transport:    fakeTransport(),
		Registry:     prometheus.NewRegistry(),
		ExportWriter: &out,
	}, zaptest.NewLogger(t))

	require.NoError(t, a.Start(context.Background()))

	// Printer 2 never answers, so its snapshot arrives after one probe window.
	require.Eventually(t, func() bool {
		s := out.String()
		return strings.Contains(s, `"label":"Printer 1"`) && strings.Contains(s, `"label":"Printer 2"`)
	}, 3*time.Second, 20*time.Millisecond)
	require.NoError(t, a.Stop())

	byLabel := map[string]map[string]any{}
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec), line)
		byLabel[rec["label"].(string)] = rec
	}
	require.Contains(t, byLabel, "Printer 1")
	require.Contains(t, byLabel, "Printer 2")
	assert.Equal(t, true, byLabel["Printer 1"]["reachable"])
	assert.Equal(t, "hp", byLabel["Printer 1"]["vendor"])
	assert.Equal(t, false, byLabel["Printer 2"]["reachable"])
	assert.NotContains(t, out.String(), "public")
}

func TestStartStop_SchedulerDisabled(t *testing.T) {
	s := testSettings(t)
	s.Scheduler.Enabled = false
	fake := fakeTransport()

	a := New(Config{Settings: s, Transport: fake}, nil)
	require.NoError(t, a.Start(context.Background()))
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, a.Stop())

	assert.Zero(t, fake.CallCount(), "no polls without the scheduler")
}

func TestStart_HTTPListenFailureSurfaces(t *testing.T) {
	s := testSettings(t)
	s.Scheduler.Enabled = false
	s.HTTP.Enabled = true
	s.HTTP.Listen = "256.0.0.1:bad"

	a := New(Config{Settings: s, Transport: fakeTransport()}, nil)
	require.NoError(t, a.Start(context.Background()))

	select {
	case <-a.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("listen failure did not stop the app")
	}
	assert.Error(t, a.Stop())
}

func TestReload(t *testing.T) {
	s := testSettings(t)
	s.Scheduler.Interval = time.Hour
	a := New(Config{Settings: s, Transport: fakeTransport()}, nil)
	require.NoError(t, a.Start(context.Background()))
	defer a.Stop()

	writeYAML(t, filepath.Join(s.Inventory.DevicesDir, "more.yml"), "Printer 3:\n  address: 10.0.0.9\n")
	require.NoError(t, a.Reload())

	assert.Len(t, a.Service().ListKnownDevices(), 3)
	assert.Equal(t, 3, a.sched.Entries())
}
