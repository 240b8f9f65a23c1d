// Package snapshot assembles one models.DeviceSnapshot per poll from the
// base collection, the vendor classification and the vendor collection.
package snapshot

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vpbank/printer_monitor/models"
	"github.com/vpbank/printer_monitor/pkg/printermonitor/collector"
	"github.com/vpbank/printer_monitor/pkg/printermonitor/credential"
	"github.com/vpbank/printer_monitor/pkg/printermonitor/vendor"
	"github.com/vpbank/printer_monitor/snmp/oids"
)

// Collector is the subset of *collector.Collector the aggregator needs.
type Collector interface {
	CollectBase(ctx context.Context, addr credential.Address, hint string) collector.BaseResult
	CollectVendor(ctx context.Context, addr credential.Address, v oids.Vendor, hint string) map[oids.VendorMetric]int64
}

// Option customises an Aggregator.
type Option func(*Aggregator)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(a *Aggregator) { a.logger = l } }

// WithMetrics sets the Prometheus collectors.
func WithMetrics(m *Metrics) Option { return func(a *Aggregator) { a.metrics = m } }

// WithEnums sets the label registry. A nil registry disables labels.
func WithEnums(e *EnumRegistry) Option { return func(a *Aggregator) { a.enums = e } }

// WithClock overrides time.Now for snapshot timestamps.
func WithClock(now func() time.Time) Option { return func(a *Aggregator) { a.now = now } }

// Aggregator is safe for concurrent use; it holds no per-poll state.
type Aggregator struct {
	collector Collector
	enums     *EnumRegistry
	logger    *zap.Logger
	metrics   *Metrics
	now       func() time.Time
}

// New returns an Aggregator using c for all device I/O.
func New(c Collector, opts ...Option) *Aggregator {
	a := &Aggregator{collector: c, enums: DefaultEnums(), now: time.Now}
	for _, o := range opts {
		o(a)
	}
	if a.logger == nil {
		a.logger = zap.NewNop()
	}
	if a.metrics == nil {
		a.metrics = NewMetrics(nil)
	}
	return a
}

// Poll builds a snapshot of address. community is the optional preferred
// community. The only error is credential.ErrInvalidAddress; device-side
// failures produce a sparse snapshot with Reachable=false.
func (a *Aggregator) Poll(ctx context.Context, address, community string) (models.DeviceSnapshot, error) {
	addr, err := credential.ParseAddress(address)
	if err != nil {
		return models.DeviceSnapshot{}, err
	}

	snap := models.DeviceSnapshot{Address: address, Timestamp: a.now()}
	started := time.Now()
	defer func() { a.metrics.PollDuration.Observe(time.Since(started).Seconds()) }()

	base := a.collector.CollectBase(ctx, addr, community)
	if !base.Responded {
		a.metrics.PollsTotal.WithLabelValues("unreachable").Inc()
		a.logger.Debug("device unreachable", zap.String("address", address))
		return snap, nil
	}

	snap.Reachable = true
	snap.SNMPVersion = base.Credential.Version.String()
	snap.Community = base.Credential.Community
	for m, r := range base.Readings {
		if set, ok := fieldSetters[m]; ok {
			set(&snap, r)
		}
	}
	a.applyLabels(&snap)

	if v := vendor.Classify(snap.BasicInfo.DeviceDescription); v != oids.VendorNone {
		snap.Vendor = v.String()
		mergeVendor(&snap, v, a.collector.CollectVendor(ctx, addr, v, community))
	}

	a.metrics.PollsTotal.WithLabelValues("ok").Inc()
	a.metrics.FieldsFilled.Observe(float64(len(base.Readings)))
	a.logger.Debug("snapshot built",
		zap.String("address", address),
		zap.String("vendor", snap.Vendor),
		zap.Int("fields", len(base.Readings)),
		zap.Duration("duration", time.Since(started)),
	)
	return snap, nil
}

func (a *Aggregator) applyLabels(s *models.DeviceSnapshot) {
	if s.Status.PrinterStatus != nil {
		s.Status.PrinterStatusText, _ = a.enums.Label(oids.PrinterStatus, *s.Status.PrinterStatus)
	}
	if s.Errors.ErrorState != nil {
		s.Errors.Flags = a.enums.Flags(oids.ErrorState, *s.Errors.ErrorState)
	}
}

// mergeVendor files each vendor reading under "<vendor>_<metric>": names
// containing "toner" into consumables, names containing "error" into errors.
func mergeVendor(s *models.DeviceSnapshot, v oids.Vendor, values map[oids.VendorMetric]int64) {
	for m, val := range values {
		key := oids.VendorDescriptor{Vendor: v, Metric: m}.Key()
		name := m.String()
		switch {
		case strings.Contains(name, "toner"):
			if s.Consumables.VendorSpecific == nil {
				s.Consumables.VendorSpecific = make(map[string]int64)
			}
			s.Consumables.VendorSpecific[key] = val
		case strings.Contains(name, "error"):
			if s.Errors.VendorSpecific == nil {
				s.Errors.VendorSpecific = make(map[string]int64)
			}
			s.Errors.VendorSpecific[key] = val
		}
	}
}
