package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/vpbank/printer_monitor/models"
	"github.com/vpbank/printer_monitor/pkg/printermonitor/credential"
	"github.com/vpbank/printer_monitor/pkg/printermonitor/service"
)

type recordingPoller struct {
	mu    sync.Mutex
	calls [][2]string
}

func (p *recordingPoller) Poll(_ context.Context, address, community string) (models.DeviceSnapshot, error) {
	if _, err := credential.ParseAddress(address); err != nil {
		return models.DeviceSnapshot{}, err
	}
	p.mu.Lock()
	p.calls = append(p.calls, [2]string{address, community})
	p.mu.Unlock()
	return models.DeviceSnapshot{Address: address, Timestamp: time.Now(), Reachable: true}, nil
}

func (p *recordingPoller) last() [2]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[len(p.calls)-1]
}

func inventory() []models.KnownDevice {
	return []models.KnownDevice{
		{Label: "Printer 2", Address: "192.168.1.101", Community: "zabbix"},
		{Label: "Printer 1", Address: "192.168.1.100", Community: "public"},
		{Label: "Lobby", Address: "lobby-mfp.local"},
	}
}

func TestListKnownDevices_SortedCopy(t *testing.T) {
	svc := service.New(&recordingPoller{}, inventory(), zaptest.NewLogger(t))

	got := svc.ListKnownDevices()
	require.Len(t, got, 3)
	assert.Equal(t, []string{"Lobby", "Printer 1", "Printer 2"}, []string{got[0].Label, got[1].Label, got[2].Label})

	got[0].Label = "mutated"
	assert.Equal(t, "Lobby", svc.ListKnownDevices()[0].Label)
}

func TestLookupDevice(t *testing.T) {
	svc := service.New(&recordingPoller{}, inventory(), nil)

	d, err := svc.LookupDevice("192.168.1.101:161")
	require.NoError(t, err)
	assert.Equal(t, "Printer 2", d.Label)

	_, err = svc.LookupDevice("10.9.9.9")
	assert.ErrorIs(t, err, service.ErrDeviceNotConfigured)

	_, err = svc.LookupDevice("")
	assert.ErrorIs(t, err, credential.ErrInvalidAddress)
}

func TestGetSnapshot_CommunitySelection(t *testing.T) {
	p := &recordingPoller{}
	svc := service.New(p, inventory(), nil)
	ctx := context.Background()

	_, err := svc.GetSnapshot(ctx, "192.168.1.101", "")
	require.NoError(t, err)
	assert.Equal(t, [2]string{"192.168.1.101", "zabbix"}, p.last(), "inventory community is the hint")

	_, err = svc.GetSnapshot(ctx, "192.168.1.101", "site-ro")
	require.NoError(t, err)
	assert.Equal(t, [2]string{"192.168.1.101", "site-ro"}, p.last(), "explicit community wins")

	snap, err := svc.GetSnapshot(ctx, "10.0.0.5", "")
	require.NoError(t, err)
	assert.Equal(t, [2]string{"10.0.0.5", ""}, p.last(), "unknown device has no hint")
	assert.True(t, snap.Reachable)
}

func TestGetSnapshot_InvalidAddress(t *testing.T) {
	svc := service.New(&recordingPoller{}, nil, nil)
	_, err := svc.GetSnapshot(context.Background(), "bad host", "")
	assert.ErrorIs(t, err, credential.ErrInvalidAddress)
}

func TestSetInventory_SkipsInvalidEntries(t *testing.T) {
	svc := service.New(&recordingPoller{}, nil, zaptest.NewLogger(t))
	svc.SetInventory([]models.KnownDevice{
		{Label: "ok", Address: "10.0.0.5"},
		{Label: "broken", Address: "not valid"},
	})
	assert.Len(t, svc.ListKnownDevices(), 2)
	_, err := svc.LookupDevice("10.0.0.5")
	assert.NoError(t, err)
}
