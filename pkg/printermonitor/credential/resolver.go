// Package credential discovers, caches and invalidates the SNMP
// (version, community) pair each device accepts.
//
// A Resolver answers one OID at a time. With a cached credential it issues a
// single GET. Without one, or after the cached one stops working, it races
// every candidate concurrently and caches the first that returns a value, so
// discovery latency is one probe window regardless of candidate count.
package credential

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gosnmp/gosnmp"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/vpbank/printer_monitor/pkg/printermonitor/poller"
	"github.com/vpbank/printer_monitor/snmp/decoder"
)

var (
	// ErrNotReachable means no candidate answered within the probe window.
	// Nothing is cached for the address.
	ErrNotReachable = errors.New("device not reachable with any known credential")

	// ErrNoValue means the device answered but carried no value for the OID
	// (noSuchObject, error-status, empty).
	ErrNoValue = errors.New("device returned no value for OID")
)

// DefaultCommunities are tried after the caller's preferred community.
var DefaultCommunities = []string{"public", "zabbix"}

// Config tunes a Resolver.
type Config struct {
	// Communities are the known communities tried after the preferred one.
	Communities []string

	// Timeout is the full request budget. Each probe, cached or racing, is
	// bounded by Timeout/2.
	Timeout time.Duration
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		Communities: append([]string(nil), DefaultCommunities...),
		Timeout:     2 * time.Second,
	}
}

// Resolution is the outcome of Resolve. With ErrNoValue only Credential is
// set, naming the candidate that answered.
type Resolution struct {
	Credential Resolved
	PDU        gosnmp.SnmpPDU
	CacheHit   bool
}

// Option customises a Resolver.
type Option func(*Resolver)

// WithStore replaces the default in-memory store.
func WithStore(s Store) Option { return func(r *Resolver) { r.store = s } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(r *Resolver) { r.logger = l } }

// WithMetrics sets the Prometheus collectors.
func WithMetrics(m *Metrics) Option { return func(r *Resolver) { r.metrics = m } }

// WithClock overrides time.Now for ResolvedAt stamps.
func WithClock(now func() time.Time) Option { return func(r *Resolver) { r.now = now } }

// Resolver is safe for concurrent use.
type Resolver struct {
	transport poller.Transport
	cfg       Config
	store     Store
	logger    *zap.Logger
	metrics   *Metrics
	now       func() time.Time
	group     singleflight.Group
}

// NewResolver returns a Resolver issuing requests through transport.
func NewResolver(transport poller.Transport, cfg Config, opts ...Option) *Resolver {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.Communities == nil {
		cfg.Communities = append([]string(nil), DefaultCommunities...)
	}
	r := &Resolver{transport: transport, cfg: cfg, now: time.Now}
	for _, o := range opts {
		o(r)
	}
	if r.store == nil {
		r.store = NewMemoryStore()
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	if r.metrics == nil {
		r.metrics = NewMetrics(nil)
	}
	return r
}

// Store exposes the credential cache.
func (r *Resolver) Store() Store { return r.store }

// Cached returns the credential currently cached for addr.
func (r *Resolver) Cached(addr Address) (Resolved, bool) {
	return r.store.Load(addr.String())
}

// ProbeTimeout is the per-probe budget.
func (r *Resolver) ProbeTimeout() time.Duration { return r.cfg.Timeout / 2 }

// Resolve fetches oid from addr, discovering the credential if needed.
//
// Errors: ErrNoValue when the device answered without a value for oid,
// ErrNotReachable when no candidate answered at all, or the context error
// when ctx ends first.
func (r *Resolver) Resolve(ctx context.Context, addr Address, preferred, oid string) (Resolution, error) {
	key := addr.String()

	if cached, ok := r.store.Load(key); ok {
		if res, done, err := r.useCached(ctx, addr, cached, oid); done {
			return res, err
		}
		// A concurrent discovery may have replaced the failed entry.
		if fresh, ok := r.store.Load(key); ok && fresh != cached {
			if res, done, err := r.useCached(ctx, addr, fresh, oid); done {
				return res, err
			}
		}
	}
	return r.discover(ctx, addr, preferred, oid)
}

// useCached probes c once. done is false when the probe failed in transport;
// c has then been evicted unless a newer credential replaced it.
func (r *Resolver) useCached(ctx context.Context, addr Address, c Resolved, oid string) (Resolution, bool, error) {
	pdu, err := r.probe(ctx, addr, c.Candidate, oid)
	switch {
	case err == nil:
		r.metrics.CacheHits.Inc()
		return Resolution{Credential: c, PDU: pdu, CacheHit: true}, true, nil
	case errors.Is(err, ErrNoValue):
		return Resolution{Credential: c, CacheHit: true}, true, ErrNoValue
	case ctx.Err() != nil:
		return Resolution{}, true, ctx.Err()
	}

	key := addr.String()
	if r.store.CompareAndDelete(key, c) {
		r.metrics.Evictions.Inc()
		r.logger.Info("cached credential failed, rediscovering",
			zap.String("address", key),
			zap.Stringer("credential", c.Candidate),
			zap.Error(err),
		)
	}
	return Resolution{}, false, nil
}

// Forget drops the cached credential for addr.
func (r *Resolver) Forget(addr Address) {
	r.store.Delete(addr.String())
}

// ─────────────────────────────────────────────────────────────────────────────
// Discovery
// ─────────────────────────────────────────────────────────────────────────────

// raceOutcome carries the raced OID on every path. On ErrNoValue, won is
// the first candidate that answered; it is not cached.
type raceOutcome struct {
	won Resolved
	pdu gosnmp.SnmpPDU
	oid string
}

func (o raceOutcome) resolution(err error) (Resolution, error) {
	switch {
	case err == nil:
		return Resolution{Credential: o.won, PDU: o.pdu}, nil
	case errors.Is(err, ErrNoValue):
		return Resolution{Credential: o.won}, err
	default:
		return Resolution{}, err
	}
}

type probeResult struct {
	cand Candidate
	pdu  gosnmp.SnmpPDU
	err  error
}

// discover joins or starts a race. Races are keyed by address and preferred
// community since the candidate list depends on both. A caller that joined
// a race run for a different OID does not inherit its outcome: it reuses the
// credential the race cached, or races its own OID.
func (r *Resolver) discover(ctx context.Context, addr Address, preferred, oid string) (Resolution, error) {
	sfKey := addr.String() + "|" + preferred
	ch := r.group.DoChan(sfKey, func() (interface{}, error) {
		return r.race(context.WithoutCancel(ctx), addr, preferred, oid)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return Resolution{}, ctx.Err()
	}

	out, _ := res.Val.(raceOutcome)
	if res.Shared && out.oid != oid {
		r.metrics.SharedRaceJoin.Inc()
		return r.resolveAlone(ctx, addr, preferred, oid)
	}
	return out.resolution(res.Err)
}

// resolveAlone resolves oid without joining other callers.
func (r *Resolver) resolveAlone(ctx context.Context, addr Address, preferred, oid string) (Resolution, error) {
	if cached, ok := r.store.Load(addr.String()); ok {
		if res, done, err := r.useCached(ctx, addr, cached, oid); done {
			return res, err
		}
	}
	out, err := r.race(ctx, addr, preferred, oid)
	if ctx.Err() != nil {
		return Resolution{}, ctx.Err()
	}
	return out.resolution(err)
}

// race probes every candidate concurrently. The first probe to return a
// value wins and is cached; remaining probes are cancelled and their results
// land in the buffered channel unread. When candidates answered but none
// carried a value, the race ends with ErrNoValue and caches nothing.
func (r *Resolver) race(ctx context.Context, addr Address, preferred, oid string) (raceOutcome, error) {
	key := addr.String()
	cands := Candidates(preferred, r.cfg.Communities)
	started := time.Now()
	defer func() { r.metrics.RaceDuration.Observe(time.Since(started).Seconds()) }()

	ctx, cancel := context.WithTimeout(ctx, r.ProbeTimeout())
	defer cancel()

	var answered *Candidate
	results := make(chan probeResult, len(cands))
	for _, c := range cands {
		go func(c Candidate) {
			pdu, err := r.probe(ctx, addr, c, oid)
			results <- probeResult{cand: c, pdu: pdu, err: err}
		}(c)
	}

	for pending := len(cands); pending > 0; pending-- {
		var res probeResult
		select {
		case res = <-results:
		case <-ctx.Done():
			return r.noWinner(key, oid, len(cands), answered)
		}
		if res.err != nil {
			if answered == nil && errors.Is(res.err, ErrNoValue) {
				c := res.cand
				answered = &c
			}
			r.logger.Debug("candidate failed",
				zap.String("address", key),
				zap.Stringer("credential", res.cand),
				zap.Error(res.err),
			)
			continue
		}
		won := Resolved{Candidate: res.cand, ResolvedAt: r.now()}
		r.store.Store(key, won)
		r.metrics.Races.WithLabelValues("won").Inc()
		r.logger.Info("credential discovered",
			zap.String("address", key),
			zap.Stringer("credential", res.cand),
			zap.Int("candidates", len(cands)),
			zap.Duration("duration", time.Since(started)),
		)
		return raceOutcome{won: won, pdu: res.pdu, oid: oid}, nil
	}

	return r.noWinner(key, oid, len(cands), answered)
}

func (r *Resolver) noWinner(key, oid string, candidates int, answered *Candidate) (raceOutcome, error) {
	if answered != nil {
		r.metrics.Races.WithLabelValues("no_value").Inc()
		r.logger.Debug("device answered without a value",
			zap.String("address", key),
			zap.String("oid", oid),
			zap.Stringer("credential", *answered),
		)
		return raceOutcome{won: Resolved{Candidate: *answered, ResolvedAt: r.now()}, oid: oid}, ErrNoValue
	}
	r.metrics.Races.WithLabelValues("unreachable").Inc()
	r.logger.Debug("no candidate answered",
		zap.String("address", key),
		zap.Int("candidates", candidates),
	)
	return raceOutcome{oid: oid}, ErrNotReachable
}

// ─────────────────────────────────────────────────────────────────────────────
// Probe
// ─────────────────────────────────────────────────────────────────────────────

// probe issues one GET bounded by ProbeTimeout. A device that answered
// without a usable value yields ErrNoValue; any other error is a transport
// failure.
func (r *Resolver) probe(ctx context.Context, addr Address, c Candidate, oid string) (gosnmp.SnmpPDU, error) {
	timeout := r.ProbeTimeout()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pdus, err := r.transport.Get(ctx, poller.Request{
		Target:    addr.Host,
		Port:      addr.Port,
		Version:   c.Version,
		Community: c.Community,
		OIDs:      []string{oid},
		Timeout:   timeout,
	})
	if err != nil {
		if poller.IsResponse(err) {
			r.metrics.ProbesTotal.WithLabelValues(c.Version.String(), "no_value").Inc()
			return gosnmp.SnmpPDU{}, fmt.Errorf("%w: %v", ErrNoValue, err)
		}
		r.metrics.ProbesTotal.WithLabelValues(c.Version.String(), "failed").Inc()
		return gosnmp.SnmpPDU{}, err
	}
	for _, pdu := range pdus {
		if decoder.HasValue(pdu) {
			r.metrics.ProbesTotal.WithLabelValues(c.Version.String(), "ok").Inc()
			return pdu, nil
		}
	}
	r.metrics.ProbesTotal.WithLabelValues(c.Version.String(), "no_value").Inc()
	return gosnmp.SnmpPDU{}, ErrNoValue
}
