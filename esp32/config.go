package esp32

import (
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/go-espwifi/bus"
	"github.com/arloliu/go-espwifi/link"
	"github.com/arloliu/go-espwifi/logger"
	"github.com/arloliu/go-espwifi/nina"
)

// Default driver settings.
const (
	DefaultBusSpeedHz          = 8_000_000
	DefaultReadyTimeout        = nina.DefaultReadyTimeout
	DefaultMaxScan             = nina.DefaultMaxScan
	DefaultConnectTimeoutTicks = link.DefaultConnectTimeoutTicks
	DefaultResetPulse          = bus.DefaultResetPulse
	DefaultResetSettle         = bus.DefaultResetSettle
	DefaultPollInterval        = bus.DefaultPollInterval
)

// Range limits for driver settings.
const (
	MinBusSpeedHz = 1_000
	MaxBusSpeedHz = 40_000_000

	MinReadyTimeout = nina.MinReadyTimeout
	MaxReadyTimeout = nina.MaxReadyTimeout

	MaxScanLimit = nina.MaxScanLimit
)

// DriverConfig holds the construction-time settings of a Driver.
type DriverConfig struct {
	// GPIO line names, resolved by the hardware binding.
	selectPin string
	resetPin  string
	readyPin  string
	bootPin   string

	// spiPort is the SPI port name; empty selects the first available port.
	spiPort    string
	busSpeedHz int64

	readyTimeout        time.Duration
	maxScan             int
	connectTimeoutTicks int

	resetPulse     time.Duration
	resetSettle    time.Duration
	pollInterval   time.Duration
	readyActiveLow bool

	logger logger.Logger
}

// NewDriverConfig creates a driver configuration for the given chip-select,
// reset and ready lines.
//
// opts are functional options applied in order; see With* functions.
func NewDriverConfig(selectPin, resetPin, readyPin string, opts ...ConfigOption) (*DriverConfig, error) {
	cfg := &DriverConfig{
		busSpeedHz:          DefaultBusSpeedHz,
		readyTimeout:        DefaultReadyTimeout,
		maxScan:             DefaultMaxScan,
		connectTimeoutTicks: DefaultConnectTimeoutTicks,
		resetPulse:          DefaultResetPulse,
		resetSettle:         DefaultResetSettle,
		pollInterval:        DefaultPollInterval,
		logger:              logger.GetLogger(),
	}

	if selectPin == "" || resetPin == "" || readyPin == "" {
		return nil, errors.New("esp32: select, reset and ready pins are required")
	}
	cfg.selectPin, cfg.resetPin, cfg.readyPin = selectPin, resetPin, readyPin

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// --- Getters ---

// SelectPin returns the chip-select line name.
func (cfg *DriverConfig) SelectPin() string { return cfg.selectPin }

// ResetPin returns the reset line name.
func (cfg *DriverConfig) ResetPin() string { return cfg.resetPin }

// ReadyPin returns the ready line name.
func (cfg *DriverConfig) ReadyPin() string { return cfg.readyPin }

// BootPin returns the boot strap line name, or "" when not wired.
func (cfg *DriverConfig) BootPin() string { return cfg.bootPin }

// SPIPort returns the SPI port name.
func (cfg *DriverConfig) SPIPort() string { return cfg.spiPort }

// BusSpeedHz returns the SPI clock frequency.
func (cfg *DriverConfig) BusSpeedHz() int64 { return cfg.busSpeedHz }

// ReadyTimeout returns the bound on each ready-line wait.
func (cfg *DriverConfig) ReadyTimeout() time.Duration { return cfg.readyTimeout }

// MaxScan returns how many filler bytes are read while waiting for a reply.
func (cfg *DriverConfig) MaxScan() int { return cfg.maxScan }

// ConnectTimeoutTicks returns the Connecting budget in ticks.
func (cfg *DriverConfig) ConnectTimeoutTicks() int { return cfg.connectTimeoutTicks }

// ResetTiming returns the reset pulse width and settle time.
func (cfg *DriverConfig) ResetTiming() (pulse, settle time.Duration) {
	return cfg.resetPulse, cfg.resetSettle
}

// ReadyActiveLow reports whether a low ready line means ready.
func (cfg *DriverConfig) ReadyActiveLow() bool { return cfg.readyActiveLow }

// GetLogger returns the configured logger.
func (cfg *DriverConfig) GetLogger() logger.Logger { return cfg.logger }

func (cfg *DriverConfig) periphConfig() bus.PeriphConfig {
	return bus.PeriphConfig{
		SPIPort:   cfg.spiPort,
		SelectPin: cfg.selectPin,
		ResetPin:  cfg.resetPin,
		ReadyPin:  cfg.readyPin,
		BootPin:   cfg.bootPin,
		SpeedHz:   cfg.busSpeedHz,
	}
}

// --- ConfigOption ---

// ConfigOption is a functional option for configuring a DriverConfig.
type ConfigOption interface {
	apply(*DriverConfig) error
}

type configOptFunc func(*DriverConfig) error

func (f configOptFunc) apply(cfg *DriverConfig) error { return f(cfg) }

// WithSPIPort sets the SPI port name, e.g. "/dev/spidev0.0" or "SPI0.0".
func WithSPIPort(name string) ConfigOption {
	return configOptFunc(func(cfg *DriverConfig) error {
		cfg.spiPort = name
		return nil
	})
}

// WithBootPin wires the coprocessor boot strap line, held high through reset.
func WithBootPin(name string) ConfigOption {
	return configOptFunc(func(cfg *DriverConfig) error {
		cfg.bootPin = name
		return nil
	})
}

// WithBusSpeed sets the SPI clock frequency in Hz.
func WithBusSpeed(hz int64) ConfigOption {
	return configOptFunc(func(cfg *DriverConfig) error {
		if hz < MinBusSpeedHz || hz > MaxBusSpeedHz {
			return fmt.Errorf("esp32: bus speed %d Hz out of range [%d, %d]", hz, MinBusSpeedHz, MaxBusSpeedHz)
		}
		cfg.busSpeedHz = hz

		return nil
	})
}

// WithReadyTimeout sets the bound on each ready-line wait.
func WithReadyTimeout(d time.Duration) ConfigOption {
	return configOptFunc(func(cfg *DriverConfig) error {
		if d < MinReadyTimeout || d > MaxReadyTimeout {
			return fmt.Errorf("esp32: ready timeout %v out of range [%v, %v]", d, MinReadyTimeout, MaxReadyTimeout)
		}
		cfg.readyTimeout = d

		return nil
	})
}

// WithMaxScan sets how many filler bytes are read while waiting for the start
// of a reply before it is treated as missing.
func WithMaxScan(n int) ConfigOption {
	return configOptFunc(func(cfg *DriverConfig) error {
		if n < 1 || n > MaxScanLimit {
			return fmt.Errorf("esp32: max scan %d out of range [1, %d]", n, MaxScanLimit)
		}
		cfg.maxScan = n

		return nil
	})
}

// WithConnectTimeoutTicks sets how many ticks association may take.
func WithConnectTimeoutTicks(n int) ConfigOption {
	return configOptFunc(func(cfg *DriverConfig) error {
		if n < 1 {
			return fmt.Errorf("esp32: connect timeout ticks %d must be at least 1", n)
		}
		cfg.connectTimeoutTicks = n

		return nil
	})
}

// WithResetTiming sets the reset pulse width and the settle time after reset.
func WithResetTiming(pulse, settle time.Duration) ConfigOption {
	return configOptFunc(func(cfg *DriverConfig) error {
		if pulse <= 0 || settle < 0 {
			return fmt.Errorf("esp32: invalid reset timing pulse=%v settle=%v", pulse, settle)
		}
		cfg.resetPulse, cfg.resetSettle = pulse, settle

		return nil
	})
}

// WithPollInterval sets the sleep between ready-line samples.
func WithPollInterval(d time.Duration) ConfigOption {
	return configOptFunc(func(cfg *DriverConfig) error {
		if d < 0 || d > bus.MaxPollInterval {
			return fmt.Errorf("esp32: poll interval %v out of range [0, %v]", d, bus.MaxPollInterval)
		}
		cfg.pollInterval = d

		return nil
	})
}

// WithReadyActiveLow treats a low ready line as ready.
func WithReadyActiveLow(activeLow bool) ConfigOption {
	return configOptFunc(func(cfg *DriverConfig) error {
		cfg.readyActiveLow = activeLow
		return nil
	})
}

// WithLogger sets the logger shared by all driver layers. A nil logger
// disables logging.
func WithLogger(l logger.Logger) ConfigOption {
	return configOptFunc(func(cfg *DriverConfig) error {
		cfg.logger = logger.OrNop(l)
		return nil
	})
}
