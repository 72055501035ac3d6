// Command wifictl drives an ESP32 WiFi coprocessor on a Linux SPI bus.
//
// Usage:
//
//	wifictl [flags] [command]
//
// Commands:
//
//	connect          join --ssid and report the assigned address (default)
//	status           print the coprocessor link status
//	scan             list visible networks
//	info             print firmware version and MAC address
//	led R G B        set the coprocessor RGB LED duty cycles (0-255)
//	config           print the effective configuration
//
// Settings come from --config (YAML), ESPWIFI_* environment variables and
// flags, in increasing precedence. --simulate runs every command against an
// in-process simulated coprocessor.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/arloliu/go-espwifi/esp32"
	"github.com/arloliu/go-espwifi/internal/config"
	"github.com/arloliu/go-espwifi/internal/espsim"
	"github.com/arloliu/go-espwifi/link"
	"github.com/arloliu/go-espwifi/logger"
	"github.com/arloliu/go-espwifi/nina"
	"github.com/spf13/pflag"
)

// GPIOs of the coprocessor RGB LED on Pimoroni Pico Wireless style boards.
const (
	ledRedPin   = 25
	ledGreenPin = 26
	ledBluePin  = 27
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "wifictl:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := pflag.NewFlagSet("wifictl", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	config.RegisterFlags(fs)
	stay := fs.Bool("stay", false, "keep supervising the link after connecting")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load("", fs)
	if err != nil {
		return err
	}

	command := "connect"
	if fs.NArg() > 0 {
		command = fs.Arg(0)
	}

	if command == "config" {
		return cfg.Dump(stdout)
	}

	log, closeLog, err := newLogger(cfg.Logging, stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	drv, err := openDriver(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := drv.Close(); err != nil {
			log.Warn("close driver", "error", err)
		}
	}()

	if err := drv.Init(); err != nil {
		return err
	}

	if cfg.Metrics.Enable {
		stopMetrics, err := serveMetrics(cfg.Metrics, drv, log)
		if err != nil {
			return err
		}
		defer stopMetrics()
	}

	switch command {
	case "connect":
		return connect(ctx, cfg, drv, *stay, stdout, log)
	case "status":
		return status(drv, stdout)
	case "scan":
		return scan(drv, stdout)
	case "info":
		return info(drv, stdout)
	case "led":
		return led(drv, fs.Args()[1:])
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func openDriver(cfg *config.Config, log logger.Logger) (*esp32.Driver, error) {
	dev := cfg.Device

	opts := []esp32.ConfigOption{
		esp32.WithLogger(log),
		esp32.WithBusSpeed(dev.BusSpeedHz),
		esp32.WithReadyTimeout(dev.ReadyTimeout),
		esp32.WithMaxScan(dev.MaxScan),
		esp32.WithConnectTimeoutTicks(dev.ConnectTimeoutTicks),
		esp32.WithReadyActiveLow(dev.ReadyActiveLow),
	}
	if dev.SPIPort != "" {
		opts = append(opts, esp32.WithSPIPort(dev.SPIPort))
	}
	if dev.BootPin != "" {
		opts = append(opts, esp32.WithBootPin(dev.BootPin))
	}

	if !dev.Simulate {
		dcfg, err := esp32.NewDriverConfig(dev.SelectPin, dev.ResetPin, dev.ReadyPin, opts...)
		if err != nil {
			return nil, err
		}

		return esp32.Open(dcfg)
	}

	opts = append(opts, esp32.WithResetTiming(time.Millisecond, 10*time.Millisecond))
	dcfg, err := esp32.NewDriverConfig("SIM_CS", "SIM_RESET", "SIM_READY", opts...)
	if err != nil {
		return nil, err
	}

	sim := espsim.New()
	sim.SetReadyActiveLow(dev.ReadyActiveLow)
	networks := []espsim.Network{
		{SSID: "espwifi-sim", RSSI: -48, Encryption: byte(nina.EncryptionCCMP), Channel: 6},
		{SSID: "guest", RSSI: -77, Encryption: byte(nina.EncryptionNone), Channel: 11},
	}
	if ssid := cfg.Network.SSID; ssid != "" && ssid != "espwifi-sim" && ssid != "guest" {
		networks = append(networks, espsim.Network{SSID: ssid, RSSI: -60, Encryption: byte(nina.EncryptionCCMP), Channel: 1})
	}
	sim.SetNetworks(networks...)
	log.Info("using simulated coprocessor")

	return esp32.New(sim.Hardware(), dcfg)
}

func connect(ctx context.Context, cfg *config.Config, drv *esp32.Driver, stay bool, out io.Writer, log logger.Logger) error {
	ssid := cfg.Network.SSID
	if ssid == "" {
		return errors.New("connect: --ssid is required")
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	drv.Link().AddHandler(func(prev, next link.State) {
		log.Info("link state changed", "prevState", prev, "newState", next)
		if next == link.Connected && !stay {
			cancel()
		}
	})

	err := drv.Supervise(runCtx, ssid, cfg.Network.Passphrase,
		link.WithTickInterval(cfg.Network.TickInterval),
		link.WithRetryInterval(cfg.Network.RetryInterval),
		link.WithMaxAttempts(cfg.Network.MaxAttempts),
	)

	if drv.State() == link.Connected {
		addr, aerr := drv.AssignedAddress()
		if aerr != nil {
			return aerr
		}
		fmt.Fprintf(out, "connected to %s, address %s\n", ssid, addr)
	}

	if errors.Is(err, context.Canceled) && ctx.Err() == nil {
		return nil
	}

	return err
}

func status(drv *esp32.Driver, out io.Writer) error {
	st, err := drv.Client().PollLinkStatus()
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "status: %s\n", st)

	return nil
}

func scan(drv *esp32.Driver, out io.Writer) error {
	c := drv.Client()

	ssids, err := c.ScanNetworks()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SSID\tRSSI\tENCRYPTION\tCHANNEL")

	for i, ssid := range ssids {
		idx := uint8(i) //nolint:gosec // at most 16 parameters per reply

		rssi, err := c.NetworkRSSI(idx)
		if err != nil {
			return err
		}

		enc, err := c.NetworkEncryption(idx)
		if err != nil {
			return err
		}

		ch, err := c.NetworkChannel(idx)
		if err != nil {
			return err
		}

		fmt.Fprintf(tw, "%s\t%d\t%s\t%d\n", ssid, rssi, enc, ch)
	}

	return tw.Flush()
}

func info(drv *esp32.Driver, out io.Writer) error {
	mac, err := drv.Client().MACAddress()
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "firmware: %s\nmac: %s\n", drv.Firmware(), mac)

	return nil
}

func led(drv *esp32.Driver, args []string) error {
	if len(args) != 3 {
		return errors.New("led: want R G B values")
	}

	pins := []uint8{ledRedPin, ledGreenPin, ledBluePin}
	c := drv.Client()

	for i, arg := range args {
		v, err := strconv.ParseUint(arg, 10, 8)
		if err != nil {
			return fmt.Errorf("led: %q is not a value in 0-255", arg)
		}

		if err := c.PinMode(pins[i], nina.PinOutput); err != nil {
			return err
		}

		// the LED is common-anode, so full brightness is duty 0
		if err := c.AnalogWrite(pins[i], 255-uint8(v)); err != nil {
			return err
		}
	}

	return nil
}
