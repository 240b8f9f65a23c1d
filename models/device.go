// Package models contains the data types shared between the poller, the
// snapshot aggregator, the HTTP API and the exporters.
package models

import "time"

// KnownDevice is one entry of the static device inventory.
type KnownDevice struct {
	// Label is the human name of the device, taken from the inventory key.
	Label string `json:"label"`

	// Address is the host (IP or DNS name), optionally with ":port".
	Address string `json:"address"`

	// Community is the known community string, used as the preferred
	// candidate during credential discovery. Optional.
	Community string `json:"community,omitempty"`

	// PollInterval overrides the scheduler default. Zero means default.
	PollInterval time.Duration `json:"poll_interval,omitempty"`
}
