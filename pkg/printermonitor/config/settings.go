package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Settings is the decoded runtime configuration.
type Settings struct {
	Logging   LoggingSettings   `mapstructure:"logging"`
	Inventory InventorySettings `mapstructure:"inventory"`
	SNMP      SNMPSettings      `mapstructure:"snmp"`
	Scheduler SchedulerSettings `mapstructure:"scheduler"`
	Export    ExportSettings    `mapstructure:"export"`
	HTTP      HTTPSettings      `mapstructure:"http"`
}

type LoggingSettings struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type InventorySettings struct {
	DevicesDir  string `mapstructure:"devices_dir"`
	DefaultsDir string `mapstructure:"defaults_dir"`
	EnumsDir    string `mapstructure:"enums_dir"`
}

// Paths returns the directory set consumed by Load.
func (s InventorySettings) Paths() Paths {
	return Paths{Devices: s.DevicesDir, Defaults: s.DefaultsDir, Enums: s.EnumsDir}
}

type SNMPSettings struct {
	// Timeout is the per-request budget. Credential probes get half of it.
	Timeout     time.Duration `mapstructure:"timeout"`
	Communities []string      `mapstructure:"communities"`
	Parallelism int           `mapstructure:"parallelism"`
}

type SchedulerSettings struct {
	Enabled    bool          `mapstructure:"enabled"`
	Interval   time.Duration `mapstructure:"interval"`
	Workers    int           `mapstructure:"workers"`
	BufferSize int           `mapstructure:"buffer_size"`
}

type ExportSettings struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path"`
	Pretty     bool   `mapstructure:"pretty"`
	MaxBytes   int64  `mapstructure:"max_bytes"`
	MaxBackups int    `mapstructure:"max_backups"`
}

type HTTPSettings struct {
	Enabled   bool    `mapstructure:"enabled"`
	Listen    string  `mapstructure:"listen"`
	RateLimit float64 `mapstructure:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("inventory.devices_dir", "/etc/printer_monitor/devices")
	v.SetDefault("inventory.defaults_dir", "/etc/printer_monitor/defaults")
	v.SetDefault("inventory.enums_dir", "/etc/printer_monitor/enums")

	v.SetDefault("snmp.timeout", "2s")
	v.SetDefault("snmp.communities", []string{"public", "zabbix"})
	v.SetDefault("snmp.parallelism", 4)

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.interval", "60s")
	v.SetDefault("scheduler.workers", 8)
	v.SetDefault("scheduler.buffer_size", 64)

	v.SetDefault("export.enabled", false)
	v.SetDefault("export.path", "printer_snapshots.json")
	v.SetDefault("export.pretty", false)
	v.SetDefault("export.max_bytes", 0)
	v.SetDefault("export.max_backups", 5)

	v.SetDefault("http.enabled", true)
	v.SetDefault("http.listen", ":8080")
	v.SetDefault("http.rate_limit", 10)
	v.SetDefault("http.rate_burst", 20)
}

// NewViper reads configuration from file, environment and flags.
// Environment keys use the PRINTERMON_ prefix with dots replaced by
// underscores: PRINTERMON_SNMP_TIMEOUT=3s. Flags are bound by name, so a
// flag registered as "http.listen" overrides that key.
func NewViper(configPath string, flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("printer_monitor")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/printer_monitor")
	}

	v.SetEnvPrefix("PRINTERMON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("binding flags: %w", err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}
	return v, nil
}

// Decode unmarshals v into Settings and validates the result.
func Decode(v *viper.Viper) (Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decoding settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate reports every invalid field at once.
func (s Settings) Validate() error {
	var errs []error
	if s.SNMP.Timeout <= 0 {
		errs = append(errs, errors.New("snmp.timeout must be positive"))
	}
	if len(s.SNMP.Communities) == 0 {
		errs = append(errs, errors.New("snmp.communities must not be empty"))
	}
	if s.SNMP.Parallelism < 1 {
		errs = append(errs, errors.New("snmp.parallelism must be at least 1"))
	}
	if s.Scheduler.Enabled {
		if s.Scheduler.Interval <= 0 {
			errs = append(errs, errors.New("scheduler.interval must be positive"))
		}
		if s.Scheduler.Workers < 1 {
			errs = append(errs, errors.New("scheduler.workers must be at least 1"))
		}
	}
	if s.Export.Enabled && s.Export.Path == "" {
		errs = append(errs, errors.New("export.path is required when export is enabled"))
	}
	if s.Export.MaxBytes < 0 {
		errs = append(errs, errors.New("export.max_bytes must not be negative"))
	}
	if s.HTTP.Enabled {
		if s.HTTP.Listen == "" {
			errs = append(errs, errors.New("http.listen is required when http is enabled"))
		}
		if s.HTTP.RateLimit < 0 || s.HTTP.RateBurst < 0 {
			errs = append(errs, errors.New("http.rate_limit and http.rate_burst must not be negative"))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %d error(s): %w", len(errs), errors.Join(errs...))
	}
	return nil
}
