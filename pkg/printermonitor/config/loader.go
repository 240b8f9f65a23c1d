// Package config loads the monitor's settings and its static device
// inventory.
//
// Settings come from viper (file, PRINTERMON_* environment, flags). The
// inventory is read from three YAML directory trees whose locations are
// themselves settings:
//
//	inventory.devices_dir   → label → {address, community, poll_interval}
//	inventory.defaults_dir  → default: {community, poll_interval}
//	inventory.enums_dir     → metric name → {value: label}
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/vpbank/printer_monitor/models"
	"github.com/vpbank/printer_monitor/pkg/printermonitor/credential"
	"github.com/vpbank/printer_monitor/producer/snapshot"
	"github.com/vpbank/printer_monitor/snmp/oids"
)

// ─────────────────────────────────────────────────────────────────────────────
// Paths
// ─────────────────────────────────────────────────────────────────────────────

// Paths holds the directory locations for every inventory tree.
type Paths struct {
	Devices  string
	Defaults string
	Enums    string
}

// ─────────────────────────────────────────────────────────────────────────────
// Inventory
// ─────────────────────────────────────────────────────────────────────────────

// Inventory is the fully parsed representation of all inventory trees.
type Inventory struct {
	// Devices is sorted by label.
	Devices []models.KnownDevice

	Defaults DeviceDefaults

	// Enums is the label registry: built-in tables overlaid with the enums
	// directory.
	Enums *snapshot.EnumRegistry
}

// Load reads all inventory directories and returns the resolved Inventory.
// Errors from individual entries are accumulated and returned together so
// that operators see all problems at once. Missing directories are skipped.
func Load(paths Paths, logger *zap.Logger) (*Inventory, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var errs []error

	defaults, err := loadDeviceDefaults(paths.Defaults, logger)
	if err != nil {
		errs = append(errs, err)
	}

	devices, err := loadDevices(paths.Devices, defaults, logger)
	if err != nil {
		errs = append(errs, err)
	}

	enums, err := loadEnums(paths.Enums, logger)
	if err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("config: %d error(s): %w", len(errs), errors.Join(errs...))
	}
	return &Inventory{Devices: devices, Defaults: defaults, Enums: enums}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Device defaults
// ─────────────────────────────────────────────────────────────────────────────

func loadDeviceDefaults(dir string, logger *zap.Logger) (DeviceDefaults, error) {
	var merged DeviceDefaults
	files, err := yamlFiles(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return merged, nil
		}
		return merged, fmt.Errorf("list defaults dir %q: %w", dir, err)
	}

	for _, path := range files {
		var raw rawDefaults
		if err := decodeFile(path, &raw); err != nil {
			logger.Warn("config: skip malformed defaults file", zap.String("file", path), zap.Error(err))
			continue
		}
		merged = mergeDefaults(merged, raw.Default)
		logger.Debug("config: loaded device defaults", zap.String("file", path))
	}
	return merged, nil
}

// mergeDefaults fills zero fields in dst with values from src.
func mergeDefaults(dst DeviceDefaults, src rawDeviceEntry) DeviceDefaults {
	if dst.Community == "" && src.Community != "" {
		dst.Community = src.Community
	}
	if dst.PollInterval == 0 && src.PollInterval != 0 {
		dst.PollInterval = src.PollInterval
	}
	return dst
}

// ─────────────────────────────────────────────────────────────────────────────
// Devices
// ─────────────────────────────────────────────────────────────────────────────

func loadDevices(dir string, defaults DeviceDefaults, logger *zap.Logger) ([]models.KnownDevice, error) {
	files, err := yamlFiles(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list devices dir %q: %w", dir, err)
	}

	var (
		devices []models.KnownDevice
		errs    []error
		byLabel = make(map[string]string)
		byAddr  = make(map[string]string)
	)
	for _, path := range files {
		var raw map[string]rawDeviceEntry
		if err := decodeFile(path, &raw); err != nil {
			logger.Warn("config: skip malformed device file", zap.String("file", path), zap.Error(err))
			continue
		}
		for label, entry := range raw {
			d, err := resolveDevice(label, entry, defaults)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", path, err))
				continue
			}
			if prev, dup := byLabel[label]; dup {
				errs = append(errs, fmt.Errorf("%s: device %q already defined in %s", path, label, prev))
				continue
			}
			key, _ := credential.ParseAddress(d.Address)
			if prev, dup := byAddr[key.String()]; dup {
				errs = append(errs, fmt.Errorf("%s: device %q has the same address as %q", path, label, prev))
				continue
			}
			byLabel[label] = path
			byAddr[key.String()] = label
			devices = append(devices, d)
		}
		logger.Debug("config: loaded device file", zap.String("file", path), zap.Int("count", len(raw)))
	}

	sort.Slice(devices, func(i, j int) bool { return devices[i].Label < devices[j].Label })
	return devices, errors.Join(errs...)
}

// resolveDevice validates a raw entry and merges it with defaults.
func resolveDevice(label string, e rawDeviceEntry, d DeviceDefaults) (models.KnownDevice, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return models.KnownDevice{}, errors.New("device with empty label")
	}

	address := strings.TrimSpace(e.Address)
	if address == "" {
		address = strings.TrimSpace(e.IP)
	}
	if address == "" {
		return models.KnownDevice{}, fmt.Errorf("device %q: address is required", label)
	}
	if _, err := credential.ParseAddress(address); err != nil {
		return models.KnownDevice{}, fmt.Errorf("device %q: %w", label, err)
	}

	community := e.Community
	if community == "" {
		community = d.Community
	}

	interval := e.PollInterval
	if interval == 0 {
		interval = d.PollInterval
	}
	if interval < 0 {
		return models.KnownDevice{}, fmt.Errorf("device %q: negative poll_interval", label)
	}

	return models.KnownDevice{
		Label:        label,
		Address:      address,
		Community:    community,
		PollInterval: time.Duration(interval) * time.Second,
	}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Enum definitions
// ─────────────────────────────────────────────────────────────────────────────

// loadEnums overlays the built-in label tables with YAML files mapping
// metric name → {integer value or bit position → label}. Whether a table is
// a bitmap follows the metric's declared syntax.
func loadEnums(dir string, logger *zap.Logger) (*snapshot.EnumRegistry, error) {
	tables := snapshot.DefaultEnumTables()
	files, err := yamlFiles(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return snapshot.NewEnumRegistry(tables), nil
		}
		return nil, fmt.Errorf("list enums dir %q: %w", dir, err)
	}

	var errs []error
	for _, path := range files {
		var raw map[string]map[int64]string
		if err := decodeFile(path, &raw); err != nil {
			logger.Warn("config: skip malformed enum file", zap.String("file", path), zap.Error(err))
			continue
		}
		for name, values := range raw {
			m, ok := oids.ParseMetric(name)
			if !ok {
				errs = append(errs, fmt.Errorf("%s: unknown metric %q", path, name))
				continue
			}
			desc, _ := oids.Lookup(m)
			e := snapshot.IntEnum{Values: values}
			if desc.Syntax == oids.SyntaxBitmap {
				e.IsBitmap, e.Width = true, 16
			}
			tables[m] = e
		}
		logger.Debug("config: loaded enum file", zap.String("file", path), zap.Int("count", len(raw)))
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return snapshot.NewEnumRegistry(tables), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// File helpers
// ─────────────────────────────────────────────────────────────────────────────

// yamlFiles returns every .yml / .yaml file under dir, recursively.
func yamlFiles(dir string) ([]string, error) {
	if dir == "" {
		return nil, fs.ErrNotExist
	}
	var paths []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(p))
		if ext == ".yml" || ext == ".yaml" {
			paths = append(paths, p)
		}
		return nil
	})
	sort.Strings(paths)
	return paths, err
}

// decodeFile opens path and unmarshals the YAML content into out.
func decodeFile(path string, out interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(false)
	return dec.Decode(out)
}
