package snapshot

import (
	"github.com/vpbank/printer_monitor/snmp/oids"
)

// ─────────────────────────────────────────────────────────────────────────────
// EnumRegistry: translates raw integer / bitmap readings to text labels
// ─────────────────────────────────────────────────────────────────────────────

// EnumRegistry holds per-metric translation tables. It is read-only after
// construction and safe for concurrent use.
type EnumRegistry struct {
	ints map[oids.Metric]IntEnum
}

// IntEnum maps integer values, or bitmap bit positions, to labels.
type IntEnum struct {
	IsBitmap bool

	// Width is the bitmap size in bits. Bit 0 is the most significant bit,
	// matching SNMP BITS numbering.
	Width uint

	Values map[int64]string
}

// NewEnumRegistry returns a registry holding the given tables.
func NewEnumRegistry(tables map[oids.Metric]IntEnum) *EnumRegistry {
	r := &EnumRegistry{ints: make(map[oids.Metric]IntEnum, len(tables))}
	for m, e := range tables {
		r.ints[m] = e
	}
	return r
}

// DefaultEnums returns a registry holding DefaultEnumTables.
func DefaultEnums() *EnumRegistry {
	return NewEnumRegistry(DefaultEnumTables())
}

// DefaultEnumTables returns the HOST-RESOURCES-MIB printer enumerations.
// The result is a fresh map the caller may extend.
func DefaultEnumTables() map[oids.Metric]IntEnum {
	return map[oids.Metric]IntEnum{
		oids.PrinterStatus: {
			Values: map[int64]string{
				1: "other",
				2: "unknown",
				3: "idle",
				4: "printing",
				5: "warmup",
			},
		},
		oids.ErrorState: {
			IsBitmap: true,
			Width:    16,
			Values: map[int64]string{
				0:  "lowPaper",
				1:  "noPaper",
				2:  "lowToner",
				3:  "noToner",
				4:  "doorOpen",
				5:  "jammed",
				6:  "offline",
				7:  "serviceRequested",
				8:  "inputTrayMissing",
				9:  "outputTrayMissing",
				10: "markerSupplyMissing",
				11: "outputNearFull",
				12: "outputFull",
				13: "inputTrayEmpty",
				14: "overduePreventMaint",
			},
		},
	}
}

// Label returns the text for an integer enumeration value.
func (r *EnumRegistry) Label(m oids.Metric, v int64) (string, bool) {
	if r == nil {
		return "", false
	}
	e, ok := r.ints[m]
	if !ok || e.IsBitmap {
		return "", false
	}
	label, ok := e.Values[v]
	return label, ok
}

// Flags returns the labels of every set bit, in bit order. Bits without a
// label are skipped.
func (r *EnumRegistry) Flags(m oids.Metric, mask int64) []string {
	if r == nil {
		return nil
	}
	e, ok := r.ints[m]
	if !ok || !e.IsBitmap || e.Width == 0 || e.Width > 63 {
		return nil
	}
	var active []string
	for bit := int64(0); bit < int64(e.Width); bit++ {
		if mask&(1<<(int64(e.Width)-1-bit)) == 0 {
			continue
		}
		if label, ok := e.Values[bit]; ok {
			active = append(active, label)
		}
	}
	return active
}
