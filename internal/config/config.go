// Package config loads wifictl settings from a YAML file, ESPWIFI_*
// environment variables and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment overrides, e.g. ESPWIFI_NETWORK_SSID.
const EnvPrefix = "ESPWIFI"

// Config is the complete wifictl configuration.
type Config struct {
	Device  DeviceConfig  `mapstructure:"device" yaml:"device"`
	Network NetworkConfig `mapstructure:"network" yaml:"network"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// DeviceConfig describes the coprocessor wiring.
type DeviceConfig struct {
	Simulate            bool          `mapstructure:"simulate" yaml:"simulate"`
	SPIPort             string        `mapstructure:"spiPort" yaml:"spiPort"`
	SelectPin           string        `mapstructure:"selectPin" yaml:"selectPin"`
	ResetPin            string        `mapstructure:"resetPin" yaml:"resetPin"`
	ReadyPin            string        `mapstructure:"readyPin" yaml:"readyPin"`
	BootPin             string        `mapstructure:"bootPin" yaml:"bootPin"`
	BusSpeedHz          int64         `mapstructure:"busSpeedHz" yaml:"busSpeedHz"`
	ReadyTimeout        time.Duration `mapstructure:"readyTimeout" yaml:"readyTimeout"`
	MaxScan             int           `mapstructure:"maxScan" yaml:"maxScan"`
	ReadyActiveLow      bool          `mapstructure:"readyActiveLow" yaml:"readyActiveLow"`
	ConnectTimeoutTicks int           `mapstructure:"connectTimeoutTicks" yaml:"connectTimeoutTicks"`
}

// NetworkConfig describes the network to join and the retry policy.
type NetworkConfig struct {
	SSID          string        `mapstructure:"ssid" yaml:"ssid"`
	Passphrase    string        `mapstructure:"passphrase" yaml:"passphrase"`
	TickInterval  time.Duration `mapstructure:"tickInterval" yaml:"tickInterval"`
	RetryInterval time.Duration `mapstructure:"retryInterval" yaml:"retryInterval"`
	MaxAttempts   int           `mapstructure:"maxAttempts" yaml:"maxAttempts"`
}

// LoggingConfig selects the log sink.
type LoggingConfig struct {
	Level  string     `mapstructure:"level" yaml:"level"`
	Format string     `mapstructure:"format" yaml:"format"`
	File   FileConfig `mapstructure:"file" yaml:"file"`
}

// FileConfig enables rotated file logging when Filename is set.
type FileConfig struct {
	Filename   string `mapstructure:"filename" yaml:"filename"`
	MaxSizeMB  int    `mapstructure:"maxSize" yaml:"maxSize"`
	MaxBackups int    `mapstructure:"maxBackups" yaml:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAge" yaml:"maxAge"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enable bool   `mapstructure:"enable" yaml:"enable"`
	Addr   string `mapstructure:"addr" yaml:"addr"`
	Path   string `mapstructure:"path" yaml:"path"`
}

// flagKeys maps command-line flags to configuration keys.
var flagKeys = map[string]string{
	"simulate":      "device.simulate",
	"spi-port":      "device.spiPort",
	"select-pin":    "device.selectPin",
	"reset-pin":     "device.resetPin",
	"ready-pin":     "device.readyPin",
	"boot-pin":      "device.bootPin",
	"bus-speed":     "device.busSpeedHz",
	"ready-timeout": "device.readyTimeout",
	"ssid":          "network.ssid",
	"passphrase":    "network.passphrase",
	"max-attempts":  "network.maxAttempts",
	"log-level":     "logging.level",
	"log-format":    "logging.format",
	"log-file":      "logging.file.filename",
	"metrics-addr":  "metrics.addr",
}

// RegisterFlags adds the configuration flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a YAML configuration file")
	fs.Bool("simulate", false, "drive a simulated coprocessor instead of real hardware")
	fs.String("spi-port", "", "SPI port name (default: first available)")
	fs.String("select-pin", "", "chip-select GPIO name")
	fs.String("reset-pin", "", "reset GPIO name")
	fs.String("ready-pin", "", "ready/handshake GPIO name")
	fs.String("boot-pin", "", "boot strap GPIO name (optional)")
	fs.Int64("bus-speed", 0, "SPI clock in Hz")
	fs.Duration("ready-timeout", 0, "bound on each ready-line wait")
	fs.String("ssid", "", "network to join")
	fs.String("passphrase", "", "WPA passphrase; empty joins an open network")
	fs.Int("max-attempts", 0, "connect attempts before giving up (0 = unlimited)")
	fs.String("log-level", "", "log level: debug, info, warn, error")
	fs.String("log-format", "", "log format: json or console")
	fs.String("log-file", "", "write logs to this file with rotation")
	fs.String("metrics-addr", "", "serve Prometheus metrics on this address")
}

// Load reads the configuration. path may be empty; when fs is non-nil, flags
// that were set on the command line override file and environment values.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		if path == "" {
			path, _ = fs.GetString("config")
		}

		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("config: bind flag %s: %w", name, err)
				}
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("device.simulate", false)
	v.SetDefault("device.spiPort", "")
	v.SetDefault("device.selectPin", "")
	v.SetDefault("device.resetPin", "")
	v.SetDefault("device.readyPin", "")
	v.SetDefault("device.bootPin", "")
	v.SetDefault("device.busSpeedHz", 8_000_000)
	v.SetDefault("device.readyTimeout", "100ms")
	v.SetDefault("device.maxScan", 5000)
	v.SetDefault("device.readyActiveLow", false)
	v.SetDefault("device.connectTimeoutTicks", 40)

	v.SetDefault("network.ssid", "")
	v.SetDefault("network.passphrase", "")
	v.SetDefault("network.tickInterval", "250ms")
	v.SetDefault("network.retryInterval", "5s")
	v.SetDefault("network.maxAttempts", 0)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file.filename", "")
	v.SetDefault("logging.file.maxSize", 10)
	v.SetDefault("logging.file.maxBackups", 3)
	v.SetDefault("logging.file.maxAge", 7)
	v.SetDefault("logging.file.compress", false)

	v.SetDefault("metrics.enable", false)
	v.SetDefault("metrics.addr", "")
	v.SetDefault("metrics.path", "/metrics")
}

// Validate checks settings that the driver options do not cover.
func (c *Config) Validate() error {
	var errs []error

	if !c.Device.Simulate && (c.Device.SelectPin == "" || c.Device.ResetPin == "" || c.Device.ReadyPin == "") {
		errs = append(errs, errors.New("config: device.selectPin, device.resetPin and device.readyPin are required"))
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("config: unknown logging.format %q", c.Logging.Format))
	}

	if c.Network.TickInterval <= 0 {
		errs = append(errs, errors.New("config: network.tickInterval must be positive"))
	}

	if c.Network.RetryInterval <= 0 {
		errs = append(errs, errors.New("config: network.retryInterval must be positive"))
	}

	if c.Network.MaxAttempts < 0 {
		errs = append(errs, errors.New("config: network.maxAttempts must not be negative"))
	}

	if c.Metrics.Addr != "" {
		c.Metrics.Enable = true
	}

	return errors.Join(errs...)
}

// Dump writes the configuration as YAML with the passphrase masked.
func (c *Config) Dump(w io.Writer) error {
	masked := *c
	if masked.Network.Passphrase != "" {
		masked.Network.Passphrase = "********"
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&masked); err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}

	return enc.Close()
}
