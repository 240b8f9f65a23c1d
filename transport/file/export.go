package file

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	fmtjson "github.com/vpbank/printer_monitor/format/json"
	"github.com/vpbank/printer_monitor/pkg/printermonitor/poller"
)

// ─────────────────────────────────────────────────────────────────────────────
// Exporter
// ─────────────────────────────────────────────────────────────────────────────

// Exporter formats every poll result and hands it to a Sink. Records that
// fail to format or send are logged, counted and dropped.
type Exporter struct {
	formatter fmtjson.Formatter
	sink      Sink
	logger    *zap.Logger
	records   *prometheus.CounterVec
}

// NewExporter returns an Exporter. Its counter is registered with reg
// unless reg is nil.
func NewExporter(f fmtjson.Formatter, sink Sink, reg prometheus.Registerer, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	records := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "printermon_export_records_total",
		Help: "Exported snapshot records by result.",
	}, []string{"result"})
	if reg != nil {
		reg.MustRegister(records)
	}
	return &Exporter{formatter: f, sink: sink, logger: logger, records: records}
}

// Run drains results until the channel is closed or ctx is cancelled.
func (e *Exporter) Run(ctx context.Context, results <-chan poller.Result) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case res, ok := <-results:
			if !ok {
				return nil
			}
			e.Export(&res)
		}
	}
}

// Export writes a single result.
func (e *Exporter) Export(res *poller.Result) {
	data, err := e.formatter.Format(res)
	if err != nil {
		e.records.WithLabelValues("format_error").Inc()
		return
	}
	if err := e.sink.Send(data); err != nil {
		e.records.WithLabelValues("send_error").Inc()
		e.logger.Warn("transport/file: dropping record",
			zap.String("label", res.Job.Label),
			zap.Error(err),
		)
		return
	}
	e.records.WithLabelValues("ok").Inc()
}
