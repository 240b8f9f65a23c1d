// Package poller implements the SNMP side of the monitor: a Transport that
// performs one independent GET per call over a fresh gosnmp session, and the
// worker pool that executes scheduled device polls.
package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gosnmp/gosnmp"
	"go.uber.org/zap"
)

// ─────────────────────────────────────────────────────────────────────────────
// Protocol version
// ─────────────────────────────────────────────────────────────────────────────

// Version is an SNMP protocol version supported by the monitor.
type Version uint8

const (
	V1 Version = iota + 1
	V2c
)

// String returns "1" or "2c".
func (v Version) String() string {
	switch v {
	case V1:
		return "1"
	case V2c:
		return "2c"
	default:
		return fmt.Sprintf("Version(%d)", uint8(v))
	}
}

// ParseVersion accepts "1", "v1", "2c" and "v2c".
func ParseVersion(s string) (Version, error) {
	switch s {
	case "1", "v1":
		return V1, nil
	case "2c", "v2c":
		return V2c, nil
	default:
		return 0, fmt.Errorf("unsupported SNMP version %q", s)
	}
}

func (v Version) gosnmp() (gosnmp.SnmpVersion, error) {
	switch v {
	case V1:
		return gosnmp.Version1, nil
	case V2c:
		return gosnmp.Version2c, nil
	default:
		return 0, fmt.Errorf("unsupported SNMP version %s", v)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Request / Transport
// ─────────────────────────────────────────────────────────────────────────────

// Request is a single SNMP GET.
type Request struct {
	Target    string
	Port      uint16
	Version   Version
	Community string
	OIDs      []string
	Timeout   time.Duration
}

// Transport performs one blocking SNMP GET. Implementations must not keep
// connection state between calls.
type Transport interface {
	Get(ctx context.Context, req Request) ([]gosnmp.SnmpPDU, error)
}

// ResponseError reports that the device answered with a non-zero
// error-status. The device received and authenticated the request.
type ResponseError struct {
	Status gosnmp.SNMPError
	Index  uint8
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("snmp error-status %v at index %d", e.Status, e.Index)
}

// IsResponse reports whether err proves the device answered the request,
// as opposed to a timeout or network failure.
func IsResponse(err error) bool {
	var re *ResponseError
	return errors.As(err, &re)
}

// ─────────────────────────────────────────────────────────────────────────────
// Session factory: Request → *gosnmp.GoSNMP
// ─────────────────────────────────────────────────────────────────────────────

// NewSession builds (but does not connect) a gosnmp session for req.
// Retries are disabled: a failed attempt is reported to the caller, which
// decides whether to try another credential.
func NewSession(ctx context.Context, req Request) (*gosnmp.GoSNMP, error) {
	if req.Target == "" {
		return nil, errors.New("target required")
	}
	version, err := req.Version.gosnmp()
	if err != nil {
		return nil, err
	}
	port := req.Port
	if port == 0 {
		port = 161
	}
	return &gosnmp.GoSNMP{
		Context:   ctx,
		Target:    req.Target,
		Port:      port,
		Transport: "udp",
		Community: req.Community,
		Version:   version,
		Timeout:   req.Timeout,
		Retries:   0,
		MaxOids:   60,
	}, nil
}

// GoSNMPTransport is the production Transport. Every Get opens its own UDP
// socket and closes it before returning, whatever the outcome.
type GoSNMPTransport struct {
	logger *zap.Logger
}

// NewGoSNMPTransport returns a Transport backed by gosnmp.
func NewGoSNMPTransport(logger *zap.Logger) *GoSNMPTransport {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GoSNMPTransport{logger: logger}
}

// Get implements Transport.
func (t *GoSNMPTransport) Get(ctx context.Context, req Request) ([]gosnmp.SnmpPDU, error) {
	if len(req.OIDs) == 0 {
		return nil, nil
	}
	g, err := NewSession(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := g.Connect(); err != nil {
		return nil, fmt.Errorf("snmp connect %s:%d: %w", g.Target, g.Port, err)
	}
	defer func() {
		if g.Conn != nil {
			_ = g.Conn.Close()
		}
	}()

	started := time.Now()
	pkt, err := g.Get(req.OIDs)
	if err != nil {
		return nil, fmt.Errorf("snmp get %s v%s: %w", g.Target, req.Version, err)
	}
	if pkt.Error != gosnmp.NoError {
		return pkt.Variables, &ResponseError{Status: pkt.Error, Index: pkt.ErrorIndex}
	}

	t.logger.Debug("snmp get completed",
		zap.String("target", g.Target),
		zap.Stringer("version", req.Version),
		zap.Int("pdu_count", len(pkt.Variables)),
		zap.Duration("duration", time.Since(started)),
	)
	return pkt.Variables, nil
}
