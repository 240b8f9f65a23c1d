// Package service is the caller-facing façade over the snapshot aggregator
// and the static device inventory. The HTTP API and the CLI use it.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/vpbank/printer_monitor/models"
	"github.com/vpbank/printer_monitor/pkg/printermonitor/credential"
	"github.com/vpbank/printer_monitor/pkg/printermonitor/poller"
)

// ErrDeviceNotConfigured is returned by LookupDevice for addresses that are
// not in the inventory.
var ErrDeviceNotConfigured = errors.New("device not configured")

// Service is safe for concurrent use. The inventory can be replaced at
// runtime with SetInventory.
type Service struct {
	poller poller.Poller
	logger *zap.Logger

	mu      sync.RWMutex
	devices []models.KnownDevice
	byAddr  map[string]models.KnownDevice
}

// New returns a Service polling through p with the given inventory.
func New(p poller.Poller, inventory []models.KnownDevice, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{poller: p, logger: logger}
	s.SetInventory(inventory)
	return s
}

// SetInventory replaces the known devices.
func (s *Service) SetInventory(inventory []models.KnownDevice) {
	devices := make([]models.KnownDevice, len(inventory))
	copy(devices, inventory)
	sort.SliceStable(devices, func(i, j int) bool { return devices[i].Label < devices[j].Label })

	byAddr := make(map[string]models.KnownDevice, len(devices))
	for _, d := range devices {
		key, err := addressKey(d.Address)
		if err != nil {
			s.logger.Warn("skipping inventory entry", zap.String("label", d.Label), zap.Error(err))
			continue
		}
		byAddr[key] = d
	}

	s.mu.Lock()
	s.devices = devices
	s.byAddr = byAddr
	s.mu.Unlock()
}

// GetSnapshot polls address. When community is empty, the inventory
// community for the address is used as the preferred candidate; when the
// address is not in the inventory the resolver falls back to its cached or
// known communities.
func (s *Service) GetSnapshot(ctx context.Context, address, community string) (models.DeviceSnapshot, error) {
	if community == "" {
		if d, err := s.LookupDevice(address); err == nil {
			community = d.Community
		}
	}
	snap, err := s.poller.Poll(ctx, address, community)
	if err != nil {
		return models.DeviceSnapshot{}, fmt.Errorf("poll %q: %w", address, err)
	}
	return snap, nil
}

// ListKnownDevices returns the inventory sorted by label.
func (s *Service) ListKnownDevices() []models.KnownDevice {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.KnownDevice, len(s.devices))
	copy(out, s.devices)
	return out
}

// LookupDevice returns the inventory entry for address. Addresses are
// compared in canonical form, so "10.0.0.5" matches "10.0.0.5:161".
func (s *Service) LookupDevice(address string) (models.KnownDevice, error) {
	key, err := addressKey(address)
	if err != nil {
		return models.KnownDevice{}, err
	}
	s.mu.RLock()
	d, ok := s.byAddr[key]
	s.mu.RUnlock()
	if !ok {
		return models.KnownDevice{}, fmt.Errorf("%w: %s", ErrDeviceNotConfigured, address)
	}
	return d, nil
}

func addressKey(address string) (string, error) {
	a, err := credential.ParseAddress(address)
	if err != nil {
		return "", err
	}
	return a.String(), nil
}
