// Package json serialises poll results for the snapshot exporter.
//
// Pipeline position:
//
//	poller.WorkerPool → format/json → transport/file
//
// Each result becomes one JSON document: the device snapshot with the
// inventory label added at the top level.
package json

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/vpbank/printer_monitor/models"
	"github.com/vpbank/printer_monitor/pkg/printermonitor/poller"
)

// ─────────────────────────────────────────────────────────────────────────────
// Formatter interface
// ─────────────────────────────────────────────────────────────────────────────

// Formatter serialises a poll result into a byte slice.
type Formatter interface {
	Format(res *poller.Result) ([]byte, error)
}

// Record is the exported document shape.
type Record struct {
	Label string `json:"label,omitempty"`
	models.DeviceSnapshot
}

// ─────────────────────────────────────────────────────────────────────────────
// Configuration
// ─────────────────────────────────────────────────────────────────────────────

// Config controls JSONFormatter behaviour.
type Config struct {
	// PrettyPrint emits indented, human-readable JSON when true.
	PrettyPrint bool

	// Indent is the indent string used when PrettyPrint=true.
	// Defaults to two spaces when empty and PrettyPrint=true.
	Indent string
}

// ─────────────────────────────────────────────────────────────────────────────
// JSONFormatter
// ─────────────────────────────────────────────────────────────────────────────

// JSONFormatter implements Formatter using encoding/json. It is safe for
// concurrent use; all fields are immutable after construction.
type JSONFormatter struct {
	cfg    Config
	logger *zap.Logger
}

// New constructs a JSONFormatter. A nil logger is replaced by a no-op one.
func New(cfg Config, logger *zap.Logger) *JSONFormatter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PrettyPrint && cfg.Indent == "" {
		cfg.Indent = "  "
	}
	return &JSONFormatter{cfg: cfg, logger: logger}
}

// Format serialises res to JSON:
//
//	{
//	  "label": "Printer 1",
//	  "address": "192.168.1.100",
//	  "timestamp": "2026-02-26T10:30:00.123Z",
//	  "reachable": true,
//	  "basic_info": { … },
//	  …
//	}
//
// The community string is never written.
func (f *JSONFormatter) Format(res *poller.Result) ([]byte, error) {
	if res == nil {
		return nil, fmt.Errorf("format/json: result must not be nil")
	}

	rec := Record{Label: res.Job.Label, DeviceSnapshot: res.Snapshot}

	var (
		data []byte
		err  error
	)
	if f.cfg.PrettyPrint {
		data, err = json.MarshalIndent(rec, "", f.cfg.Indent)
	} else {
		data, err = json.Marshal(rec)
	}

	if err != nil {
		f.logger.Error("format/json: marshal failed",
			zap.String("label", rec.Label),
			zap.String("address", rec.Address),
			zap.Error(err),
		)
		return nil, fmt.Errorf("format/json: marshal: %w", err)
	}

	f.logger.Debug("format/json: formatted snapshot",
		zap.String("label", rec.Label),
		zap.Bool("reachable", rec.Reachable),
		zap.Int("bytes", len(data)),
	)
	return data, nil
}
