package bus

import (
	"errors"
	"fmt"
	"io"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// PeriphConfig names the Linux SPI port and GPIO lines used by OpenPeriph.
//
// Pin names are resolved through periph.io's gpioreg, e.g. "GPIO8" or "7".
type PeriphConfig struct {
	// SPIPort is the spireg port name; empty selects the first available port.
	SPIPort   string
	SelectPin string
	ResetPin  string
	ReadyPin  string
	// BootPin is optional.
	BootPin string
	// SpeedHz is the SPI clock frequency.
	SpeedHz int64
}

// OpenPeriph initializes periph.io host drivers and returns Hardware bound to
// the configured SPI port and GPIO lines, plus a Closer for the SPI port.
//
// The SPI port runs in mode 0 with 8-bit words. Chip-select is a GPIO so it
// can be held across the exchanges of one transaction.
//
// The command set spoken over this binding assumes coprocessor firmware that
// accepts StartConnect (0x10) with a one-byte security mode; see nina.CmdStartConnect.
func OpenPeriph(cfg PeriphConfig) (Hardware, io.Closer, error) {
	if cfg.SpeedHz <= 0 {
		return Hardware{}, nil, fmt.Errorf("bus: invalid SPI speed %d", cfg.SpeedHz)
	}

	if _, err := host.Init(); err != nil {
		return Hardware{}, nil, fmt.Errorf("bus: init host drivers: %w", err)
	}

	sel, err := outputPin(cfg.SelectPin, gpio.High)
	if err != nil {
		return Hardware{}, nil, err
	}

	reset, err := outputPin(cfg.ResetPin, gpio.High)
	if err != nil {
		return Hardware{}, nil, err
	}

	ready, err := inputPin(cfg.ReadyPin)
	if err != nil {
		return Hardware{}, nil, err
	}

	hw := Hardware{Select: sel, Reset: reset, Ready: ready}

	if cfg.BootPin != "" {
		boot, err := outputPin(cfg.BootPin, gpio.High)
		if err != nil {
			return Hardware{}, nil, err
		}
		hw.Boot = boot
	}

	port, err := spireg.Open(cfg.SPIPort)
	if err != nil {
		return Hardware{}, nil, fmt.Errorf("bus: open SPI port %q: %w", cfg.SPIPort, err)
	}

	conn, err := port.Connect(physic.Frequency(cfg.SpeedHz)*physic.Hertz, spi.Mode0, 8)
	if err != nil {
		_ = port.Close()
		return Hardware{}, nil, fmt.Errorf("bus: connect SPI port %q: %w", cfg.SPIPort, err)
	}

	hw.SPI = conn

	return hw, port, nil
}

type periphOut struct {
	pin gpio.PinIO
}

func (p periphOut) Set(high bool) error {
	return p.pin.Out(gpio.Level(high))
}

type periphIn struct {
	pin gpio.PinIO
}

func (p periphIn) Get() bool {
	return bool(p.pin.Read())
}

func lookupPin(name string) (gpio.PinIO, error) {
	if name == "" {
		return nil, errors.New("bus: pin name is empty")
	}

	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("bus: unknown pin %q", name)
	}

	return pin, nil
}

func outputPin(name string, initial gpio.Level) (OutputPin, error) {
	pin, err := lookupPin(name)
	if err != nil {
		return nil, err
	}

	if err := pin.Out(initial); err != nil {
		return nil, fmt.Errorf("bus: configure output %s: %w", name, err)
	}

	return periphOut{pin: pin}, nil
}

func inputPin(name string) (InputPin, error) {
	pin, err := lookupPin(name)
	if err != nil {
		return nil, err
	}

	if err := pin.In(gpio.PullDown, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("bus: configure input %s: %w", name, err)
	}

	return periphIn{pin: pin}, nil
}
