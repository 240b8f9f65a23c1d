// Package app wires the printer monitor together and manages its lifecycle.
//
// Request path:
//
//	HTTP API → Service → Aggregator → Collector → Resolver → SNMP transport
//
// Scheduled path (parallel, sharing the same Aggregator and credential cache):
//
//	Scheduler → WorkerPool → [results] → Exporter → rotating JSON file
package app

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	jsonformat "github.com/vpbank/printer_monitor/format/json"
	"github.com/vpbank/printer_monitor/pkg/printermonitor/api"
	"github.com/vpbank/printer_monitor/pkg/printermonitor/collector"
	"github.com/vpbank/printer_monitor/pkg/printermonitor/config"
	"github.com/vpbank/printer_monitor/pkg/printermonitor/credential"
	"github.com/vpbank/printer_monitor/pkg/printermonitor/poller"
	"github.com/vpbank/printer_monitor/pkg/printermonitor/scheduler"
	"github.com/vpbank/printer_monitor/pkg/printermonitor/service"
	"github.com/vpbank/printer_monitor/producer/snapshot"
	filetransport "github.com/vpbank/printer_monitor/transport/file"
)

// ─────────────────────────────────────────────────────────────────────────────
// Configuration
// ─────────────────────────────────────────────────────────────────────────────

// Config holds everything App needs beyond the decoded settings.
type Config struct {
	Settings config.Settings

	// Transport performs SNMP GETs. nil uses gosnmp over UDP.
	Transport poller.Transport

	// Registry receives every collector and backs /metrics. nil creates a
	// fresh registry with the Go runtime and process collectors.
	Registry *prometheus.Registry

	// ExportWriter replaces the rotating export file when set.
	ExportWriter io.Writer
}

// ─────────────────────────────────────────────────────────────────────────────
// App
// ─────────────────────────────────────────────────────────────────────────────

// App owns every long-lived component. Build it with New and Build, run it
// with Start, and stop it with Stop.
type App struct {
	cfg    Config
	logger *zap.Logger

	// Built components.
	registry   *prometheus.Registry
	resolver   *credential.Resolver
	aggregator *snapshot.Aggregator
	svc        *service.Service
	inventory  *config.Inventory

	// Running components.
	workerPool *poller.WorkerPool
	sched      *scheduler.Scheduler
	exporter   *filetransport.Exporter
	sink       filetransport.Sink
	httpServer *api.Server
	results    chan poller.Result

	mu     sync.Mutex
	cancel context.CancelFunc
	group  *errgroup.Group
	done   <-chan struct{}
}

// New constructs an App. It does not load or start anything.
func New(cfg Config, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{cfg: cfg, logger: logger}
}

// Build loads the inventory and constructs the polling stack. It is called
// by Start and may be called on its own for one-shot use.
func (a *App) Build() error {
	if a.svc != nil {
		return nil
	}
	s := a.cfg.Settings

	inv, err := config.Load(s.Inventory.Paths(), a.logger)
	if err != nil {
		return fmt.Errorf("app: load inventory: %w", err)
	}
	a.inventory = inv
	a.logger.Info("app: inventory loaded", zap.Int("devices", len(inv.Devices)))

	a.registry = a.cfg.Registry
	if a.registry == nil {
		a.registry = prometheus.NewRegistry()
		a.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	transport := a.cfg.Transport
	if transport == nil {
		transport = poller.NewGoSNMPTransport(a.logger)
	}

	communities := s.SNMP.Communities
	if inv.Defaults.Community != "" {
		communities = append([]string{inv.Defaults.Community}, communities...)
	}
	a.resolver = credential.NewResolver(transport,
		credential.Config{Communities: communities, Timeout: s.SNMP.Timeout},
		credential.WithLogger(a.logger),
		credential.WithMetrics(credential.NewMetrics(a.registry)),
	)

	a.aggregator = snapshot.New(
		collector.New(a.resolver, s.SNMP.Parallelism, a.logger),
		snapshot.WithLogger(a.logger),
		snapshot.WithMetrics(snapshot.NewMetrics(a.registry)),
		snapshot.WithEnums(inv.Enums),
	)
	a.svc = service.New(a.aggregator, inv.Devices, a.logger)
	return nil
}

// Service returns the caller-facing service. Build must have succeeded.
func (a *App) Service() *service.Service { return a.svc }

// Registry returns the metrics registry. Build must have succeeded.
func (a *App) Registry() *prometheus.Registry { return a.registry }

// Start builds the App if needed and launches the scheduler, worker pool,
// exporter and HTTP server according to the settings.
func (a *App) Start(ctx context.Context) error {
	if err := a.Build(); err != nil {
		return err
	}
	s := a.cfg.Settings

	if s.Export.Enabled {
		if err := a.openSink(s.Export); err != nil {
			return err
		}
		a.exporter = filetransport.NewExporter(
			jsonformat.New(jsonformat.Config{PrettyPrint: s.Export.Pretty}, a.logger),
			a.sink, a.registry, a.logger,
		)
	}

	runCtx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(runCtx)

	if s.Scheduler.Enabled {
		a.results = make(chan poller.Result, s.Scheduler.BufferSize)
		a.workerPool = poller.NewWorkerPool(s.Scheduler.Workers, a.aggregator, a.results, a.logger)
		a.sched = scheduler.New(a.inventory.Devices, s.Scheduler.Interval, a.workerPool, a.logger)

		a.workerPool.Start(gctx)
		g.Go(func() error {
			a.sched.Start(gctx)
			return nil
		})
		// The result consumer outlives gctx so that Stop can drain it.
		g.Go(func() error {
			if a.exporter == nil {
				for range a.results {
				}
				return nil
			}
			return a.exporter.Run(context.WithoutCancel(gctx), a.results)
		})
		a.logger.Info("app: scheduler started",
			zap.Int("entries", a.sched.Entries()),
			zap.Int("workers", s.Scheduler.Workers),
			zap.Bool("export", s.Export.Enabled),
		)
	}

	if s.HTTP.Enabled {
		a.httpServer = api.New(api.Config{
			Listen:    s.HTTP.Listen,
			RateLimit: s.HTTP.RateLimit,
			RateBurst: s.HTTP.RateBurst,
		}, a.svc, a.registry, a.registry, a.logger)
		g.Go(func() error { return a.httpServer.Run(gctx) })
	}

	a.mu.Lock()
	a.cancel, a.group, a.done = cancel, g, gctx.Done()
	a.mu.Unlock()
	return nil
}

// Done is closed when the App starts shutting down, either because the
// parent context ended or because a component failed.
func (a *App) Done() <-chan struct{} {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.done
}

// Stop performs a graceful shutdown and returns the first component error.
//
// Shutdown order:
//  1. Cancel the run context (scheduler, workers and HTTP server stop).
//  2. Wait for the scheduler loop, then drain the worker pool.
//  3. Close the results channel so the exporter writes what is buffered.
//  4. Wait for every goroutine, then close the export sink.
func (a *App) Stop() error {
	a.mu.Lock()
	cancel, g := a.cancel, a.group
	a.mu.Unlock()
	if cancel == nil {
		return nil
	}

	a.logger.Info("app: shutting down")
	cancel()

	if a.sched != nil {
		a.sched.Stop()
	}
	if a.workerPool != nil {
		a.workerPool.Stop()
	}
	if a.results != nil {
		close(a.results)
	}

	err := g.Wait()

	if a.sink != nil {
		if cerr := a.sink.Close(); cerr != nil {
			a.logger.Error("app: export sink close error", zap.Error(cerr))
		}
	}
	a.logger.Info("app: shutdown complete")
	return err
}

// Reload re-reads the inventory. New devices are polled immediately and
// removed devices stop. Credential settings and enum tables are fixed at
// Build.
func (a *App) Reload() error {
	a.logger.Info("app: reloading inventory")
	inv, err := config.Load(a.cfg.Settings.Inventory.Paths(), a.logger)
	if err != nil {
		return fmt.Errorf("app: reload inventory: %w", err)
	}
	a.svc.SetInventory(inv.Devices)
	if a.sched != nil {
		a.sched.Reload(inv.Devices)
	}
	a.inventory = inv
	a.logger.Info("app: inventory reloaded", zap.Int("devices", len(inv.Devices)))
	return nil
}

func (a *App) openSink(s config.ExportSettings) error {
	if a.cfg.ExportWriter != nil {
		a.sink = filetransport.New(filetransport.Config{Writer: a.cfg.ExportWriter}, a.logger)
		return nil
	}
	rf, err := filetransport.NewRotatingFile(filetransport.RotateConfig{
		FilePath:   s.Path,
		MaxBytes:   s.MaxBytes,
		MaxBackups: s.MaxBackups,
	}, a.logger)
	if err != nil {
		return fmt.Errorf("app: open export file: %w", err)
	}
	a.sink = filetransport.New(filetransport.Config{Writer: rf, OwnsWriter: true}, a.logger)
	return nil
}
