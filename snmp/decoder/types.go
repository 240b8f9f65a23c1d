// Package decoder turns raw gosnmp variable bindings into the typed values
// stored on a device snapshot. Parsing is lenient by contract: a value that
// cannot be interpreted for its declared syntax is reported as absent
// (ok == false), never as an error.
package decoder

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gosnmp/gosnmp"
)

// ─────────────────────────────────────────────────────────────────────────────
// SNMP PDU Type → String
// ─────────────────────────────────────────────────────────────────────────────

// PDUTypeString returns the human-readable name for a gosnmp Asn1BER type tag.
func PDUTypeString(t gosnmp.Asn1BER) string {
	switch t {
	case gosnmp.Integer:
		return "Integer"
	case gosnmp.BitString:
		return "BitString"
	case gosnmp.OctetString:
		return "OctetString"
	case gosnmp.Null:
		return "Null"
	case gosnmp.ObjectIdentifier:
		return "ObjectIdentifier"
	case gosnmp.ObjectDescription:
		return "ObjectDescription"
	case gosnmp.IPAddress:
		return "IpAddress"
	case gosnmp.Counter32:
		return "Counter32"
	case gosnmp.Gauge32:
		return "Gauge32"
	case gosnmp.TimeTicks:
		return "TimeTicks"
	case gosnmp.Opaque:
		return "Opaque"
	case gosnmp.Counter64:
		return "Counter64"
	case gosnmp.Uinteger32:
		return "Unsigned32"
	case gosnmp.NoSuchObject:
		return "NoSuchObject"
	case gosnmp.NoSuchInstance:
		return "NoSuchInstance"
	case gosnmp.EndOfMibView:
		return "EndOfMibView"
	default:
		return fmt.Sprintf("Unknown(0x%02X)", uint8(t))
	}
}

// IsErrorType returns true when the PDU type signals an SNMP retrieval error
// rather than an actual value.
func IsErrorType(t gosnmp.Asn1BER) bool {
	return t == gosnmp.NoSuchObject || t == gosnmp.NoSuchInstance || t == gosnmp.EndOfMibView || t == gosnmp.Null
}

// HasValue reports whether pdu carries a usable, non-empty value.
func HasValue(pdu gosnmp.SnmpPDU) bool {
	if IsErrorType(pdu.Type) || pdu.Value == nil {
		return false
	}
	switch v := pdu.Value.(type) {
	case []byte:
		return len(v) > 0
	case string:
		return v != ""
	}
	return true
}

// ─────────────────────────────────────────────────────────────────────────────
// Low-level conversion helpers
// ─────────────────────────────────────────────────────────────────────────────

// toInt64 converts the raw gosnmp value to int64. Strings and byte slices
// are accepted when they hold a decimal integer, matching devices that
// report counters as DisplayString.
func toInt64(v interface{}) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint:
		if uint64(x) > math.MaxInt64 {
			return 0, false
		}
		return int64(x), true
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		if x > math.MaxInt64 {
			return 0, false
		}
		return int64(x), true
	case string:
		return parseDecimal(x)
	case []byte:
		return parseDecimal(string(x))
	default:
		return 0, false
	}
}

func parseDecimal(s string) (int64, bool) {
	s = strings.TrimSpace(strings.TrimRight(s, "\x00"))
	if s == "" {
		return 0, false
	}
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return i, true
}

// toUint64 converts the raw gosnmp value to uint64.
func toUint64(v interface{}) (uint64, bool) {
	switch x := v.(type) {
	case uint:
		return uint64(x), true
	case uint32:
		return uint64(x), true
	case uint64:
		return x, true
	default:
		i, ok := toInt64(v)
		if !ok || i < 0 {
			return 0, false
		}
		return uint64(i), true
	}
}

// toDisplayString converts an OctetString byte slice to a UTF-8 string, stripping
// any trailing null bytes that devices sometimes append.
func toDisplayString(v interface{}) string {
	switch x := v.(type) {
	case string:
		return strings.TrimRight(x, "\x00")
	case []byte:
		return strings.TrimRight(string(x), "\x00")
	default:
		return fmt.Sprintf("%v", v)
	}
}

// toBitmap decodes an OCTET STRING bitmask (as used by
// hrPrinterDetectedErrorState) big-endian into an integer. The MIB defines
// the field as two octets; single-octet encodings are right-padded so bit
// positions stay the same. Integer-typed values pass through unchanged.
func toBitmap(v interface{}) (int64, bool) {
	var b []byte
	switch x := v.(type) {
	case []byte:
		b = x
	case string:
		b = []byte(x)
	default:
		return toInt64(v)
	}
	if len(b) == 0 || len(b) > 8 {
		return 0, false
	}
	var out uint64
	for _, octet := range b {
		out = out<<8 | uint64(octet)
	}
	if len(b) == 1 {
		out <<= 8
	}
	if out > math.MaxInt64 {
		return 0, false
	}
	return int64(out), true
}
