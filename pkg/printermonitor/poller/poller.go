package poller

import (
	"context"

	"github.com/vpbank/printer_monitor/models"
)

// ─────────────────────────────────────────────────────────────────────────────
// PollJob: unit of work
// ─────────────────────────────────────────────────────────────────────────────

// PollJob describes one scheduled snapshot poll of an inventory device.
type PollJob struct {
	// Label is the inventory label of the device.
	Label string

	// Address is the device address, optionally with ":port".
	Address string

	// Community is the known community for the device; empty lets the
	// credential resolver fall back to its cached or known communities.
	Community string
}

// Result pairs a finished job with its snapshot.
type Result struct {
	Job      PollJob
	Snapshot models.DeviceSnapshot
}

// ─────────────────────────────────────────────────────────────────────────────
// Poller interface
// ─────────────────────────────────────────────────────────────────────────────

// Poller produces one snapshot for an address. The snapshot aggregator is
// the production implementation. An error is returned only for malformed
// input; device-side failures are reflected in the snapshot itself.
type Poller interface {
	Poll(ctx context.Context, address, community string) (models.DeviceSnapshot, error)
}
