package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vpbank/printer_monitor/models"
	"github.com/vpbank/printer_monitor/snmp/decoder"
	"github.com/vpbank/printer_monitor/snmp/oids"
)

func TestFieldSetters_CoverEveryBaseMetric(t *testing.T) {
	for _, d := range oids.Base() {
		_, ok := fieldSetters[d.Metric]
		assert.True(t, ok, "no snapshot field for %s", d.Name)
	}
	assert.Len(t, fieldSetters, len(oids.Base()))
}

func TestFieldSetters_EachWritesItsOwnField(t *testing.T) {
	seen := make(map[string]oids.Metric)
	for _, d := range oids.Base() {
		var s models.DeviceSnapshot
		fieldSetters[d.Metric](&s, decoder.Reading{Text: "x", Int: 7})
		got := describe(s)
		if prev, dup := seen[got]; dup {
			t.Errorf("%s and %s write the same field", prev, d.Metric)
		}
		seen[got] = d.Metric
	}
}

// describe renders which field of s is set.
func describe(s models.DeviceSnapshot) string {
	switch {
	case s.BasicInfo.DeviceName != "":
		return "name"
	case s.BasicInfo.DeviceDescription != "":
		return "description"
	case s.BasicInfo.Uptime != "":
		return "uptime"
	case s.BasicInfo.Contact != "":
		return "contact"
	case s.BasicInfo.Location != "":
		return "location"
	case s.Status.PrinterStatus != nil:
		return "status"
	case s.Consumables.TonerLevel != nil:
		return "toner"
	case s.Consumables.MaxTonerLevel != nil:
		return "max_toner"
	case s.Counters.CompletedJobs != nil:
		return "jobs"
	case s.Counters.TotalPagesPrinted != nil:
		return "pages"
	case s.Trays.Status != nil:
		return "tray_status"
	case s.Trays.MaxCapacity != nil:
		return "tray_max"
	case s.Trays.CurrentLevel != nil:
		return "tray_level"
	case s.Errors.ErrorState != nil:
		return "error_state"
	}
	return ""
}

func TestMergeVendor_ByMetricName(t *testing.T) {
	var s models.DeviceSnapshot
	mergeVendor(&s, oids.VendorCanon, map[oids.VendorMetric]int64{
		oids.VendorTonerLevel: 55,
		oids.VendorErrorCode:  4,
	})
	assert.Equal(t, map[string]int64{"canon_toner_level": 55}, s.Consumables.VendorSpecific)
	assert.Equal(t, map[string]int64{"canon_error_code": 4}, s.Errors.VendorSpecific)
}

func TestEnumRegistry(t *testing.T) {
	e := DefaultEnums()

	label, ok := e.Label(oids.PrinterStatus, 4)
	assert.True(t, ok)
	assert.Equal(t, "printing", label)
	_, ok = e.Label(oids.PrinterStatus, 42)
	assert.False(t, ok)

	// 0x0200: bit 6 (offline). 0x1000 | 0x8000: bits 3 and 0.
	assert.Equal(t, []string{"offline"}, e.Flags(oids.ErrorState, 0x0200))
	assert.Equal(t, []string{"lowPaper", "noToner"}, e.Flags(oids.ErrorState, 0x9000))
	assert.Empty(t, e.Flags(oids.ErrorState, 0))
	assert.Nil(t, e.Flags(oids.PrinterStatus, 1))

	var none *EnumRegistry
	assert.Nil(t, none.Flags(oids.ErrorState, 0x0200))
}
