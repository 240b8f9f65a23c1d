package models

import "time"

// DeviceSnapshot is the result of one poll of one printer. It is built once
// by the snapshot aggregator and never modified afterwards.
//
// Numeric fields are pointers: nil means the value could not be retrieved
// from this device, which is different from a reported zero.
type DeviceSnapshot struct {
	// Address is the polled device address as given by the caller.
	Address string `json:"address"`

	// Timestamp is when the poll started.
	Timestamp time.Time `json:"timestamp"`

	// Reachable is true when at least one request was answered by the device.
	Reachable bool `json:"reachable"`

	// SNMPVersion and Community record the credential the device accepted.
	// Both are empty when the device was unreachable.
	SNMPVersion string `json:"snmp_version,omitempty"`
	Community   string `json:"-"`

	// Vendor is the classified vendor tag; empty when none matched.
	Vendor string `json:"vendor,omitempty"`

	BasicInfo   BasicInfo   `json:"basic_info"`
	Status      Status      `json:"status"`
	Consumables Consumables `json:"consumables"`
	Counters    Counters    `json:"counters"`
	Trays       Trays       `json:"trays"`
	Errors      Errors      `json:"errors"`
}

// BasicInfo holds the MIB-II system group identity fields.
type BasicInfo struct {
	DeviceName        string `json:"device_name,omitempty"`
	DeviceDescription string `json:"device_description,omitempty"`
	Uptime            string `json:"uptime,omitempty"`
	Contact           string `json:"contact,omitempty"`
	Location          string `json:"location,omitempty"`
}

// Status holds hrPrinterStatus.
type Status struct {
	PrinterStatus     *int64 `json:"printer_status,omitempty"`
	PrinterStatusText string `json:"printer_status_text,omitempty"`
}

// Consumables holds marker supply levels. VendorSpecific is keyed
// "<vendor>_<metric>".
type Consumables struct {
	TonerLevel     *int64           `json:"toner_level,omitempty"`
	MaxTonerLevel  *int64           `json:"max_toner_level,omitempty"`
	VendorSpecific map[string]int64 `json:"vendor_specific,omitempty"`
}

// Counters holds job and page counters.
type Counters struct {
	CompletedJobs     *int64 `json:"completed_jobs,omitempty"`
	TotalPagesPrinted *int64 `json:"total_pages_printed,omitempty"`
}

// Trays holds the first input tray of the Printer-MIB input table.
type Trays struct {
	Status       *int64 `json:"status,omitempty"`
	MaxCapacity  *int64 `json:"max_capacity,omitempty"`
	CurrentLevel *int64 `json:"current_level,omitempty"`
}

// Errors holds hrPrinterDetectedErrorState and vendor error codes.
// VendorSpecific is keyed "<vendor>_<metric>".
type Errors struct {
	ErrorState *int64 `json:"error_state,omitempty"`

	// Flags names the conditions set in ErrorState, e.g. "noToner".
	Flags []string `json:"flags,omitempty"`

	VendorSpecific map[string]int64 `json:"vendor_specific,omitempty"`
}

// Int64 returns a pointer to v. It is used when filling optional fields.
func Int64(v int64) *int64 {
	return &v
}
