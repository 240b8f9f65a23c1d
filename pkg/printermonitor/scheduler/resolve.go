// Package scheduler coordinates interval-based snapshot polling of the
// device inventory. It turns inventory entries into PollJob values,
// maintains a per-device timer, and fires jobs into the poller WorkerPool at
// each device's cadence.
package scheduler

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/vpbank/printer_monitor/models"
	"github.com/vpbank/printer_monitor/pkg/printermonitor/credential"
	"github.com/vpbank/printer_monitor/pkg/printermonitor/poller"
)

// DefaultInterval applies to devices without their own PollInterval when the
// scheduler is built with a zero default.
const DefaultInterval = 60 * time.Second

// ResolveJobs returns one PollJob per inventory device, sorted by label.
// Devices with an invalid address are skipped, and devices sharing a
// canonical address are polled once under the first label.
func ResolveJobs(devices []models.KnownDevice, logger *zap.Logger) []poller.PollJob {
	if logger == nil {
		logger = zap.NewNop()
	}

	sorted := make([]models.KnownDevice, len(devices))
	copy(sorted, devices)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Label < sorted[j].Label })

	seen := make(map[string]string, len(sorted))
	jobs := make([]poller.PollJob, 0, len(sorted))
	for _, d := range sorted {
		addr, err := credential.ParseAddress(d.Address)
		if err != nil {
			logger.Warn("scheduler: skipping device", zap.String("label", d.Label), zap.Error(err))
			continue
		}
		if prev, dup := seen[addr.String()]; dup {
			logger.Warn("scheduler: duplicate address",
				zap.String("label", d.Label),
				zap.String("polled_as", prev),
				zap.Stringer("address", addr),
			)
			continue
		}
		seen[addr.String()] = d.Label
		jobs = append(jobs, poller.PollJob{
			Label:     d.Label,
			Address:   d.Address,
			Community: d.Community,
		})
	}
	return jobs
}

// intervalFor picks the device override, then fallback, then DefaultInterval.
func intervalFor(d models.KnownDevice, fallback time.Duration) time.Duration {
	switch {
	case d.PollInterval > 0:
		return d.PollInterval
	case fallback > 0:
		return fallback
	default:
		return DefaultInterval
	}
}
