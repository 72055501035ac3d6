package esp32

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/netip"

	"github.com/arloliu/go-espwifi/bus"
	"github.com/arloliu/go-espwifi/link"
	"github.com/arloliu/go-espwifi/logger"
	"github.com/arloliu/go-espwifi/nina"
)

// ErrNotInitialized indicates Init has not completed successfully.
var ErrNotInitialized = errors.New("esp32: driver not initialized")

// Driver assembles the bus transport, command client and connection state
// machine for one coprocessor.
type Driver struct {
	cfg       *DriverConfig
	logger    logger.Logger
	transport *bus.Transport
	client    *nina.Client
	link      *link.StateMachine
	closer    io.Closer
	firmware  string
}

// New creates a Driver on hw.
func New(hw bus.Hardware, cfg *DriverConfig) (*Driver, error) {
	if cfg == nil {
		return nil, errors.New("esp32: config is nil")
	}

	l := cfg.GetLogger().With("component", "esp32")

	tr, err := bus.New(hw,
		bus.WithLogger(l),
		bus.WithPollInterval(cfg.pollInterval),
		bus.WithResetTiming(cfg.resetPulse, cfg.resetSettle),
		bus.WithReadyActiveLow(cfg.readyActiveLow),
	)
	if err != nil {
		return nil, err
	}

	client, err := nina.NewClient(tr,
		nina.WithLogger(l),
		nina.WithReadyTimeout(cfg.readyTimeout),
		nina.WithMaxScan(cfg.maxScan),
	)
	if err != nil {
		return nil, err
	}

	sm, err := link.NewStateMachine(client,
		link.WithLogger(l),
		link.WithConnectTimeoutTicks(cfg.connectTimeoutTicks),
	)
	if err != nil {
		return nil, err
	}

	return &Driver{
		cfg:       cfg,
		logger:    l,
		transport: tr,
		client:    client,
		link:      sm,
	}, nil
}

// Open creates a Driver on the Linux SPI port and GPIO lines named in cfg.
func Open(cfg *DriverConfig) (*Driver, error) {
	if cfg == nil {
		return nil, errors.New("esp32: config is nil")
	}

	hw, closer, err := bus.OpenPeriph(cfg.periphConfig())
	if err != nil {
		return nil, err
	}

	d, err := New(hw, cfg)
	if err != nil {
		_ = closer.Close()
		return nil, err
	}
	d.closer = closer

	return d, nil
}

// Init resets the coprocessor and reads its firmware version.
func (d *Driver) Init() error {
	if err := d.transport.ResetPeripheral(); err != nil {
		return fmt.Errorf("esp32: reset: %w", err)
	}

	d.link.Reset()

	fw, err := d.client.GetFirmwareVersion()
	if err != nil {
		return fmt.Errorf("esp32: read firmware version: %w", err)
	}

	if fw == "" {
		return errors.New("esp32: coprocessor reported an empty firmware version")
	}

	d.firmware = fw
	d.logger.Info("coprocessor ready", "firmware", fw)

	return nil
}

// Firmware returns the version read by Init.
func (d *Driver) Firmware() string { return d.firmware }

// Config returns the driver configuration.
func (d *Driver) Config() *DriverConfig { return d.cfg }

// Transport returns the bus transport.
func (d *Driver) Transport() *bus.Transport { return d.transport }

// Client returns the command client. It shares the bus with the state
// machine; do not use it concurrently with Tick.
func (d *Driver) Client() *nina.Client { return d.client }

// Link returns the connection state machine.
func (d *Driver) Link() *link.StateMachine { return d.link }

// Begin starts association with a network.
func (d *Driver) Begin(ssid, passphrase string) error {
	if d.firmware == "" {
		return ErrNotInitialized
	}

	return d.link.Begin(ssid, passphrase)
}

// Tick advances the connection state machine by one step.
func (d *Driver) Tick() link.State {
	return d.link.Tick()
}

// State returns the connection state.
func (d *Driver) State() link.State {
	return d.link.State()
}

// AssignedAddress returns the station address while connected.
func (d *Driver) AssignedAddress() (netip.Addr, error) {
	return d.link.AssignedAddress()
}

// Supervise connects to ssid and keeps the link up until ctx is done or the
// attempt budget in opts is spent.
func (d *Driver) Supervise(ctx context.Context, ssid, passphrase string, opts ...link.SupervisorOption) error {
	if d.firmware == "" {
		return ErrNotInitialized
	}

	opts = append([]link.SupervisorOption{link.WithSupervisorLogger(d.logger)}, opts...)

	s, err := link.NewSupervisor(d.link, ssid, passphrase, opts...)
	if err != nil {
		return err
	}

	return s.Run(ctx)
}

// Close resets the state machine, releases the bus and closes the hardware
// binding opened by Open.
func (d *Driver) Close() error {
	d.link.Reset()

	err := d.transport.ReleaseSelect()
	if d.closer != nil {
		err = errors.Join(err, d.closer.Close())
	}

	return err
}
