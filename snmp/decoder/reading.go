package decoder

import (
	"time"

	"github.com/gosnmp/gosnmp"

	"github.com/vpbank/printer_monitor/snmp/oids"
)

// Reading is one decoded metric value. Exactly one of Text / Int is
// meaningful, selected by Syntax.Numeric().
type Reading struct {
	// OID is the numeric OID of the varbind, without leading dot.
	OID string

	// Syntax is the declared syntax the value was decoded with.
	Syntax oids.Syntax

	// SNMPType is the PDU type as returned by the device, e.g. "Counter32".
	SNMPType string

	// Text holds DisplayString and rendered TimeTicks values.
	Text string

	// Int holds Integer and Bitmap values.
	Int int64
}

// Decode interprets pdu according to syntax. ok is false when the PDU carries
// no value or the value cannot be represented in the declared syntax.
func Decode(pdu gosnmp.SnmpPDU, syntax oids.Syntax) (Reading, bool) {
	r := Reading{
		OID:      normaliseOID(pdu.Name),
		Syntax:   syntax,
		SNMPType: PDUTypeString(pdu.Type),
	}
	if !HasValue(pdu) {
		return r, false
	}

	switch syntax {
	case oids.SyntaxText:
		r.Text = toDisplayString(pdu.Value)
		return r, r.Text != ""
	case oids.SyntaxTimeTicks:
		d, ok := ParseTimeTicks(pdu.Value)
		if !ok {
			return r, false
		}
		r.Text = d.String()
		return r, true
	case oids.SyntaxInteger:
		i, ok := ParseInt(pdu.Value)
		r.Int = i
		return r, ok
	case oids.SyntaxBitmap:
		i, ok := toBitmap(pdu.Value)
		r.Int = i
		return r, ok
	default:
		return r, false
	}
}

// ParseInt is the lenient integer parse applied to numeric fields: any
// integer type, or a string holding a decimal integer. Anything else is
// absent.
func ParseInt(v interface{}) (int64, bool) {
	return toInt64(v)
}

// ParseTimeTicks converts a TimeTicks value (hundredths of a second) to a
// duration.
func ParseTimeTicks(v interface{}) (time.Duration, bool) {
	ticks, ok := toUint64(v)
	if !ok {
		return 0, false
	}
	return time.Duration(ticks) * 10 * time.Millisecond, true
}

func normaliseOID(oid string) string {
	if len(oid) > 0 && oid[0] == '.' {
		return oid[1:]
	}
	return oid
}
