package oids

import (
	"fmt"
	"strings"
)

// Vendor is the closed set of manufacturers with enterprise OID extensions.
type Vendor uint8

const (
	VendorNone Vendor = iota
	VendorHP
	VendorBrother
	VendorXerox
	VendorCanon
	VendorOKI
)

var vendorTags = [...]string{
	VendorNone:    "",
	VendorHP:      "hp",
	VendorBrother: "brother",
	VendorXerox:   "xerox",
	VendorCanon:   "canon",
	VendorOKI:     "oki",
}

// Vendors lists every vendor that has a table, in declaration order.
func Vendors() []Vendor {
	return []Vendor{VendorHP, VendorBrother, VendorXerox, VendorCanon, VendorOKI}
}

// String returns the lower-case vendor tag used as output key prefix.
// VendorNone renders as the empty string.
func (v Vendor) String() string {
	if int(v) < len(vendorTags) {
		return vendorTags[v]
	}
	return fmt.Sprintf("vendor(%d)", uint8(v))
}

// ParseVendor maps a tag such as "brother" to its Vendor.
func ParseVendor(tag string) (Vendor, bool) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	for _, v := range Vendors() {
		if vendorTags[v] == tag {
			return v, true
		}
	}
	return VendorNone, false
}

// ─────────────────────────────────────────────────────────────────────────────
// Vendor metrics
// ─────────────────────────────────────────────────────────────────────────────

// VendorMetric identifies a vendor-specific reading. Vendor metrics are
// always integers and are namespaced by vendor tag on output.
type VendorMetric uint8

const (
	VendorTonerLevel VendorMetric = iota + 1
	VendorErrorCode
)

var vendorMetricNames = [...]string{
	VendorTonerLevel: "toner_level",
	VendorErrorCode:  "error_code",
}

func (m VendorMetric) String() string {
	if m > 0 && int(m) < len(vendorMetricNames) {
		return vendorMetricNames[m]
	}
	return fmt.Sprintf("VendorMetric(%d)", uint8(m))
}

// VendorDescriptor binds a vendor metric to its enterprise OID.
type VendorDescriptor struct {
	Vendor Vendor
	Metric VendorMetric
	OID    string
}

// Key returns the output key "<vendor>_<metric>", e.g. "brother_toner_level".
func (d VendorDescriptor) Key() string {
	return d.Vendor.String() + "_" + d.Metric.String()
}

var vendorTables = map[Vendor][]VendorDescriptor{
	VendorHP: {
		{VendorHP, VendorTonerLevel, "1.3.6.1.2.1.43.11.1.1.9.1.1"},
		// prtAlertCode.1
		{VendorHP, VendorErrorCode, "1.3.6.1.2.1.43.18.1.1.8.1"},
	},
	VendorBrother: {
		{VendorBrother, VendorTonerLevel, "1.3.6.1.4.1.2435.2.3.9.4.2.1.5.5.1"},
		{VendorBrother, VendorErrorCode, "1.3.6.1.4.1.2435.2.3.9.4.2.1.5.1.17"},
	},
	VendorXerox: {
		{VendorXerox, VendorTonerLevel, "1.3.6.1.4.1.253.8.53.13.2.1.6.1.20.34"},
		{VendorXerox, VendorErrorCode, "1.3.6.1.4.1.253.8.53.13.2.1.5.1.1"},
	},
	VendorCanon: {
		{VendorCanon, VendorTonerLevel, "1.3.6.1.4.1.1602.1.11.1.3.1.4.130"},
		{VendorCanon, VendorErrorCode, "1.3.6.1.4.1.1602.1.3.2.1.4.0"},
	},
	VendorOKI: {
		{VendorOKI, VendorTonerLevel, "1.3.6.1.4.1.2001.1.1.1.1.11.1.1.9.1.1"},
		{VendorOKI, VendorErrorCode, "1.3.6.1.4.1.2001.1.1.1.1.11.2.1.1.1"},
	},
}

// VendorTable returns the extension OIDs for v, or nil for VendorNone and
// unknown vendors. The slice is a copy.
func VendorTable(v Vendor) []VendorDescriptor {
	t := vendorTables[v]
	if len(t) == 0 {
		return nil
	}
	out := make([]VendorDescriptor, len(t))
	copy(out, t)
	return out
}
