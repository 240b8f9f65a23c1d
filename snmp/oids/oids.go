// Package oids holds the closed set of printer metrics polled by the monitor
// and the numeric OIDs they map to. The tables follow the System MIB
// (RFC 3418), the Host Resources MIB (RFC 2790) and the Printer MIB
// (RFC 3805), plus a handful of enterprise extensions per vendor.
//
// Metric names are a closed enum rather than free-form strings so that a
// typo fails at compile time instead of silently dropping a field.
package oids

import "fmt"

// ─────────────────────────────────────────────────────────────────────────────
// Syntax
// ─────────────────────────────────────────────────────────────────────────────

// Syntax tells the decoder how to interpret the value returned for a metric.
type Syntax uint8

const (
	// SyntaxText is a DisplayString rendered verbatim.
	SyntaxText Syntax = iota + 1
	// SyntaxInteger is any integer-valued type (Integer, Counter32, Gauge32…).
	SyntaxInteger
	// SyntaxTimeTicks is hundredths of a second since agent start.
	SyntaxTimeTicks
	// SyntaxBitmap is an OCTET STRING bitmask decoded big-endian into an integer.
	SyntaxBitmap
)

// Numeric reports whether values of this syntax land in an integer field.
func (s Syntax) Numeric() bool {
	return s == SyntaxInteger || s == SyntaxBitmap
}

func (s Syntax) String() string {
	switch s {
	case SyntaxText:
		return "DisplayString"
	case SyntaxInteger:
		return "Integer"
	case SyntaxTimeTicks:
		return "TimeTicks"
	case SyntaxBitmap:
		return "Bitmap"
	default:
		return fmt.Sprintf("Syntax(%d)", uint8(s))
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Base metrics
// ─────────────────────────────────────────────────────────────────────────────

// Metric identifies one entry of the base table polled on every device.
type Metric uint8

const (
	DeviceName Metric = iota + 1
	DeviceDescription
	Uptime
	Contact
	Location
	PrinterStatus
	TonerLevel
	MaxTonerLevel
	CompletedJobs
	TotalPagesPrinted
	TrayStatus
	TrayMaxCapacity
	TrayCurrentLevel
	ErrorState
)

// Descriptor binds a Metric to its wire name, OID and syntax.
type Descriptor struct {
	Metric Metric
	Name   string
	OID    string
	Syntax Syntax
}

// base is ordered: DeviceDescription comes first because the collector uses
// it to settle the device credential before fanning out the remaining GETs.
var base = [...]Descriptor{
	{DeviceDescription, "device_description", "1.3.6.1.2.1.1.1.0", SyntaxText},
	{DeviceName, "device_name", "1.3.6.1.2.1.1.5.0", SyntaxText},
	{Uptime, "uptime", "1.3.6.1.2.1.1.3.0", SyntaxTimeTicks},
	{Contact, "contact", "1.3.6.1.2.1.1.4.0", SyntaxText},
	{Location, "location", "1.3.6.1.2.1.1.6.0", SyntaxText},

	// hrPrinterStatus.1
	{PrinterStatus, "printer_status", "1.3.6.1.2.1.25.3.5.1.1.1", SyntaxInteger},

	// prtMarkerSuppliesLevel.1.1 / prtMarkerSuppliesMaxCapacity.1.1
	{TonerLevel, "toner_level", "1.3.6.1.2.1.43.11.1.1.9.1.1", SyntaxInteger},
	{MaxTonerLevel, "max_toner_level", "1.3.6.1.2.1.43.11.1.1.8.1.1", SyntaxInteger},

	// prtMarkerLifeCount.1.1 is the only job/page counter most devices expose,
	// so both counters read it.
	{CompletedJobs, "completed_jobs", "1.3.6.1.2.1.43.10.2.1.4.1.1", SyntaxInteger},
	{TotalPagesPrinted, "total_pages_printed", "1.3.6.1.2.1.43.10.2.1.4.1.1", SyntaxInteger},

	// prtInputCurrentLevel.1 doubles as the tray status indicator
	// (-3 = at least one sheet, -2 = unknown, 0 = empty).
	{TrayStatus, "tray_status", "1.3.6.1.2.1.43.8.2.1.10.1", SyntaxInteger},
	{TrayMaxCapacity, "tray_max_capacity", "1.3.6.1.2.1.43.8.2.1.9.1", SyntaxInteger},
	{TrayCurrentLevel, "tray_current_level", "1.3.6.1.2.1.43.8.2.1.10.1", SyntaxInteger},

	// hrPrinterDetectedErrorState.1
	{ErrorState, "error_state", "1.3.6.1.2.1.25.3.5.1.2.1", SyntaxBitmap},
}

var (
	baseByMetric = make(map[Metric]Descriptor, len(base))
	baseByName   = make(map[string]Metric, len(base))
)

func init() {
	for _, d := range base {
		if _, dup := baseByName[d.Name]; dup {
			panic("oids: duplicate base metric name " + d.Name)
		}
		baseByMetric[d.Metric] = d
		baseByName[d.Name] = d.Metric
	}
}

// Base returns the base table in polling order. The slice is a copy.
func Base() []Descriptor {
	out := make([]Descriptor, len(base))
	copy(out, base[:])
	return out
}

// Lookup returns the descriptor for m.
func Lookup(m Metric) (Descriptor, bool) {
	d, ok := baseByMetric[m]
	return d, ok
}

// ParseMetric maps a wire name such as "toner_level" back to its Metric.
func ParseMetric(name string) (Metric, bool) {
	m, ok := baseByName[name]
	return m, ok
}

func (m Metric) String() string {
	if d, ok := baseByMetric[m]; ok {
		return d.Name
	}
	return fmt.Sprintf("Metric(%d)", uint8(m))
}
