// Command printermonitor polls network printers over SNMP and serves their
// snapshots over HTTP.
//
// Configuration is read from printer_monitor.yaml (or --config), then
// PRINTERMON_* environment variables, then flags. Flags named after a
// configuration key override that key, e.g. --http.listen=:9100.
//
// Usage:
//
//	printermonitor [flags]
//	printermonitor --once 192.168.1.100 [--community public]
//
// SIGHUP reloads the device inventory. SIGINT and SIGTERM shut down.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/vpbank/printer_monitor/models"
	"github.com/vpbank/printer_monitor/pkg/printermonitor/app"
	"github.com/vpbank/printer_monitor/pkg/printermonitor/config"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "printermonitor: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	// ── Flags ────────────────────────────────────────────────────────────
	flags := pflag.NewFlagSet("printermonitor", pflag.ContinueOnError)
	configPath := flags.String("config", "", "Path to the configuration file")
	once := flags.String("once", "", "Poll one address, print its snapshot and exit")
	community := flags.String("community", "", "Preferred community for --once")

	flags.String("logging.level", "info", "Log level: debug, info, warn, error")
	flags.String("logging.format", "json", "Log format: json, console")
	flags.String("inventory.devices_dir", "/etc/printer_monitor/devices", "Device inventory directory")
	flags.Duration("snmp.timeout", 2*time.Second, "Per-request SNMP timeout")
	flags.Bool("scheduler.enabled", true, "Poll the inventory on a schedule")
	flags.Bool("export.enabled", false, "Append scheduled snapshots to the export file")
	flags.String("export.path", "printer_snapshots.json", "Export file path")
	flags.Bool("http.enabled", true, "Serve the HTTP API")
	flags.String("http.listen", ":8080", "HTTP listen address")

	if err := flags.Parse(args); err != nil {
		return err
	}

	// ── Configuration ────────────────────────────────────────────────────
	v, err := config.NewViper(*configPath, flags)
	if err != nil {
		return err
	}
	logger, err := config.NewLogger(v)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	settings, err := config.Decode(v)
	if err != nil {
		return err
	}

	if *once != "" {
		return runOnce(settings, logger, *once, *community, os.Stdout)
	}

	// ── Start ────────────────────────────────────────────────────────────
	application := app.New(app.Config{Settings: settings}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Start(ctx); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	logger.Info("printermonitor: running",
		zap.Bool("scheduler", settings.Scheduler.Enabled),
		zap.Bool("http", settings.HTTP.Enabled),
		zap.String("listen", settings.HTTP.Listen),
	)

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

wait:
	for {
		select {
		case <-hup:
			if err := application.Reload(); err != nil {
				logger.Error("printermonitor: reload failed, keeping current inventory", zap.Error(err))
			}
		case <-ctx.Done():
			logger.Info("printermonitor: received shutdown signal")
			break wait
		case <-application.Done():
			logger.Warn("printermonitor: component stopped unexpectedly")
			break wait
		}
	}

	return application.Stop()
}

// runOnce polls a single address without starting the scheduler or server.
func runOnce(settings config.Settings, logger *zap.Logger, address, community string, out io.Writer) error {
	settings.Scheduler.Enabled = false
	settings.HTTP.Enabled = false
	settings.Export.Enabled = false

	application := app.New(app.Config{Settings: settings}, logger)
	if err := application.Build(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	snap, err := application.Service().GetSnapshot(ctx, address, community)
	if err != nil {
		return err
	}
	renderSnapshot(out, snap)
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Table output
// ─────────────────────────────────────────────────────────────────────────────

func renderSnapshot(out io.Writer, snap models.DeviceSnapshot) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Field", "Value"})
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.AppendBulk(snapshotRows(snap))
	table.Render()
}

func snapshotRows(snap models.DeviceSnapshot) [][]string {
	rows := [][]string{
		{"address", snap.Address},
		{"timestamp", snap.Timestamp.Format("2006-01-02 15:04:05 MST")},
		{"reachable", strconv.FormatBool(snap.Reachable)},
	}
	add := func(name, value string) {
		if value != "" {
			rows = append(rows, []string{name, value})
		}
	}
	addInt := func(name string, v *int64) {
		if v != nil {
			rows = append(rows, []string{name, strconv.FormatInt(*v, 10)})
		}
	}

	add("snmp_version", snap.SNMPVersion)
	add("vendor", snap.Vendor)
	add("device_name", snap.BasicInfo.DeviceName)
	add("device_description", snap.BasicInfo.DeviceDescription)
	add("uptime", snap.BasicInfo.Uptime)
	add("contact", snap.BasicInfo.Contact)
	add("location", snap.BasicInfo.Location)

	if snap.Status.PrinterStatus != nil {
		status := strconv.FormatInt(*snap.Status.PrinterStatus, 10)
		if snap.Status.PrinterStatusText != "" {
			status = snap.Status.PrinterStatusText + " (" + status + ")"
		}
		add("printer_status", status)
	}

	addInt("toner_level", snap.Consumables.TonerLevel)
	addInt("max_toner_level", snap.Consumables.MaxTonerLevel)
	addInt("completed_jobs", snap.Counters.CompletedJobs)
	addInt("total_pages_printed", snap.Counters.TotalPagesPrinted)
	addInt("tray_status", snap.Trays.Status)
	addInt("tray_max_capacity", snap.Trays.MaxCapacity)
	addInt("tray_current_level", snap.Trays.CurrentLevel)
	addInt("error_state", snap.Errors.ErrorState)
	add("error_flags", strings.Join(snap.Errors.Flags, ", "))

	rows = append(rows, vendorRows(snap.Consumables.VendorSpecific)...)
	rows = append(rows, vendorRows(snap.Errors.VendorSpecific)...)
	return rows
}

func vendorRows(m map[string]int64) [][]string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{k, strconv.FormatInt(m[k], 10)})
	}
	return rows
}
