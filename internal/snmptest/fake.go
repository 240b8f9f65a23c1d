// Package snmptest provides an in-memory poller.Transport for tests. A Fake
// models a set of devices, each answering only to the (version, community)
// pairs it accepts, exactly like a real agent that silently drops requests
// carrying a wrong community.
package snmptest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gosnmp/gosnmp"

	"github.com/vpbank/printer_monitor/pkg/printermonitor/poller"
)

// ErrTimeout is returned for requests the fake device does not answer.
var ErrTimeout = errors.New("snmptest: request timeout")

// Credential is a (version, community) pair accepted by a fake device.
type Credential struct {
	Version   poller.Version
	Community string
}

// Device is one simulated SNMP agent.
type Device struct {
	// Accept lists the credentials the agent answers to.
	Accept []Credential

	// Values maps OID (no leading dot) to the value returned for it. OIDs
	// not listed come back as NoSuchObject.
	Values map[string]gosnmp.SnmpPDU

	// Latency delays every answered request.
	Latency time.Duration

	// Down makes the device drop every request.
	Down bool
}

// Call records one Get issued against the fake.
type Call struct {
	Target    string
	Version   poller.Version
	Community string
	OIDs      []string
}

// Fake is a concurrency-safe poller.Transport.
type Fake struct {
	mu      sync.Mutex
	devices map[string]*Device
	calls   []Call
}

// New returns an empty Fake.
func New() *Fake {
	return &Fake{devices: make(map[string]*Device)}
}

// AddDevice registers d under target (host without port).
func (f *Fake) AddDevice(target string, d *Device) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.devices[target] = d
}

// SetDown toggles whether target answers at all.
func (f *Fake) SetDown(target string, down bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d, ok := f.devices[target]; ok {
		d.Down = down
	}
}

// SetAccept replaces the credentials target answers to.
func (f *Fake) SetAccept(target string, accept ...Credential) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d, ok := f.devices[target]; ok {
		d.Accept = accept
	}
}

// Calls returns a copy of every recorded call.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallCount returns the number of Get calls made so far.
func (f *Fake) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// Reset forgets recorded calls.
func (f *Fake) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

// Get implements poller.Transport. Unanswered requests block until the
// request timeout or ctx expires, whichever comes first.
func (f *Fake) Get(ctx context.Context, req poller.Request) ([]gosnmp.SnmpPDU, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{
		Target:    req.Target,
		Version:   req.Version,
		Community: req.Community,
		OIDs:      append([]string(nil), req.OIDs...),
	})
	d, ok := f.devices[req.Target]
	var (
		answer  bool
		latency time.Duration
		values  map[string]gosnmp.SnmpPDU
	)
	if ok && !d.Down {
		latency = d.Latency
		values = d.Values
		for _, c := range d.Accept {
			if c.Version == req.Version && c.Community == req.Community {
				answer = true
				break
			}
		}
	}
	f.mu.Unlock()

	if !answer {
		return nil, wait(ctx, req.Timeout)
	}
	if latency > 0 {
		if req.Timeout > 0 && latency >= req.Timeout {
			return nil, wait(ctx, req.Timeout)
		}
		select {
		case <-time.After(latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	pdus := make([]gosnmp.SnmpPDU, 0, len(req.OIDs))
	for _, oid := range req.OIDs {
		if pdu, ok := values[oid]; ok {
			pdu.Name = "." + oid
			pdus = append(pdus, pdu)
			continue
		}
		pdus = append(pdus, gosnmp.SnmpPDU{Name: "." + oid, Type: gosnmp.NoSuchObject})
	}
	return pdus, nil
}

func wait(ctx context.Context, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = time.Second
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-t.C:
		return ErrTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Text is a convenience constructor for an OctetString PDU.
func Text(s string) gosnmp.SnmpPDU {
	return gosnmp.SnmpPDU{Type: gosnmp.OctetString, Value: []byte(s)}
}

// Int is a convenience constructor for an Integer PDU.
func Int(i int) gosnmp.SnmpPDU {
	return gosnmp.SnmpPDU{Type: gosnmp.Integer, Value: i}
}

// Counter is a convenience constructor for a Counter32 PDU.
func Counter(u uint) gosnmp.SnmpPDU {
	return gosnmp.SnmpPDU{Type: gosnmp.Counter32, Value: u}
}

// Ticks is a convenience constructor for a TimeTicks PDU.
func Ticks(u uint32) gosnmp.SnmpPDU {
	return gosnmp.SnmpPDU{Type: gosnmp.TimeTicks, Value: u}
}
