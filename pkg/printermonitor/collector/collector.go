// Package collector fetches the base and vendor OID tables from a device
// through the credential resolver and decodes the answers.
//
// Every OID is fetched independently: a failed or unparsable fetch leaves
// the metric out of the result and never fails the collection as a whole.
package collector

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vpbank/printer_monitor/pkg/printermonitor/credential"
	"github.com/vpbank/printer_monitor/snmp/decoder"
	"github.com/vpbank/printer_monitor/snmp/oids"
)

// Resolver is the subset of *credential.Resolver the collector needs.
type Resolver interface {
	Resolve(ctx context.Context, addr credential.Address, preferred, oid string) (credential.Resolution, error)
}

// BaseResult is the outcome of CollectBase.
type BaseResult struct {
	// Readings holds exactly the metrics that were answered and decoded.
	Readings map[oids.Metric]decoder.Reading

	// Credential is the credential that served the first answered request.
	// Zero when Responded is false.
	Credential credential.Resolved

	// Responded is true when the device answered at least one request,
	// with or without a value.
	Responded bool
}

// Collector is safe for concurrent use.
type Collector struct {
	resolver    Resolver
	parallelism int
	logger      *zap.Logger
}

// New returns a Collector. parallelism bounds concurrent fetches per
// collection; values below 1 mean sequential.
func New(resolver Resolver, parallelism int, logger *zap.Logger) *Collector {
	if parallelism < 1 {
		parallelism = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{resolver: resolver, parallelism: parallelism, logger: logger}
}

// fetched is one answered request.
type fetched struct {
	res         credential.Resolution
	hasValue    bool
	responded   bool
	unreachable bool
}

func (c *Collector) fetch(ctx context.Context, addr credential.Address, hint, oid string) fetched {
	res, err := c.resolver.Resolve(ctx, addr, hint, oid)
	switch {
	case err == nil:
		return fetched{res: res, hasValue: true, responded: true}
	case errors.Is(err, credential.ErrNoValue):
		return fetched{res: res, responded: true}
	default:
		c.logger.Debug("fetch failed",
			zap.String("address", addr.String()),
			zap.String("oid", oid),
			zap.Error(err),
		)
		return fetched{unreachable: errors.Is(err, credential.ErrNotReachable)}
	}
}

// CollectBase fetches every base descriptor. The identity OID is fetched
// first so that credential discovery, if needed, runs once before the
// remaining OIDs fan out. A device that answers no candidate for the
// identity OID is not asked for the rest.
func (c *Collector) CollectBase(ctx context.Context, addr credential.Address, hint string) BaseResult {
	descs := oids.Base()
	out := BaseResult{Readings: make(map[oids.Metric]decoder.Reading, len(descs))}
	var mu sync.Mutex

	record := func(d oids.Descriptor, f fetched) {
		mu.Lock()
		defer mu.Unlock()
		if f.responded && !out.Responded {
			out.Responded = true
			out.Credential = f.res.Credential
		}
		if !f.hasValue {
			return
		}
		if r, ok := decoder.Decode(f.res.PDU, d.Syntax); ok {
			out.Readings[d.Metric] = r
		}
	}

	first := c.fetch(ctx, addr, hint, descs[0].OID)
	record(descs[0], first)
	if first.unreachable {
		return out
	}

	var g errgroup.Group
	g.SetLimit(c.parallelism)
	for _, d := range descs[1:] {
		g.Go(func() error {
			record(d, c.fetch(ctx, addr, hint, d.OID))
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// CollectVendor fetches the extension table of v. Values are parsed as
// integers; unanswered or non-numeric metrics are absent.
func (c *Collector) CollectVendor(ctx context.Context, addr credential.Address, v oids.Vendor, hint string) map[oids.VendorMetric]int64 {
	table := oids.VendorTable(v)
	out := make(map[oids.VendorMetric]int64, len(table))
	if len(table) == 0 {
		return out
	}
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(c.parallelism)
	for _, d := range table {
		g.Go(func() error {
			f := c.fetch(ctx, addr, hint, d.OID)
			if !f.hasValue {
				return nil
			}
			i, ok := decoder.ParseInt(f.res.PDU.Value)
			if !ok {
				return nil
			}
			mu.Lock()
			out[d.Metric] = i
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}
