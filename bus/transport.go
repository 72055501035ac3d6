package bus

import (
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/arloliu/go-espwifi/logger"
)

// DummyByte is clocked out while the host only wants to receive.
const DummyByte byte = 0xFF

var (
	// ErrBusFault indicates the hardware reported a transfer or pin failure.
	// The bus may be wedged; callers should not retry automatically.
	ErrBusFault = errors.New("bus: hardware fault")
	// ErrNotSelected indicates an exchange was attempted outside a selection.
	ErrNotSelected = errors.New("bus: chip-select not asserted")
	// ErrBusy indicates a selection was requested while one is already active.
	ErrBusy = errors.New("bus: transaction already in progress")
	// ErrInvalidHardware indicates a required line is not wired.
	ErrInvalidHardware = errors.New("bus: invalid hardware")
)

// Transport drives the SPI bus and sideband lines to the coprocessor.
//
// This type is NOT goroutine-safe. Its owner must ensure that only one
// transaction is active at a time; the bus is half-duplex at the protocol level.
type Transport struct {
	hw     Hardware
	logger logger.Logger

	pollInterval   time.Duration
	resetPulse     time.Duration
	resetSettle    time.Duration
	readyActiveLow bool

	selected bool
	metrics  Metrics
}

// New creates a Transport over hw and drives chip-select to its released state.
func New(hw Hardware, opts ...Option) (*Transport, error) {
	switch {
	case hw.SPI == nil:
		return nil, fmt.Errorf("%w: SPI is nil", ErrInvalidHardware)
	case hw.Select == nil:
		return nil, fmt.Errorf("%w: select pin is nil", ErrInvalidHardware)
	case hw.Reset == nil:
		return nil, fmt.Errorf("%w: reset pin is nil", ErrInvalidHardware)
	case hw.Ready == nil:
		return nil, fmt.Errorf("%w: ready pin is nil", ErrInvalidHardware)
	}

	t := &Transport{
		hw:           hw,
		logger:       logger.NewNop(),
		pollInterval: DefaultPollInterval,
		resetPulse:   DefaultResetPulse,
		resetSettle:  DefaultResetSettle,
	}

	for _, opt := range opts {
		if err := opt.apply(t); err != nil {
			return nil, err
		}
	}

	if err := hw.Select.Set(true); err != nil {
		return nil, fmt.Errorf("%w: release select: %w", ErrBusFault, err)
	}

	return t, nil
}

// Metrics returns the transport counters.
func (t *Transport) Metrics() *Metrics {
	return &t.metrics
}

// Selected reports whether chip-select is currently asserted.
func (t *Transport) Selected() bool {
	return t.selected
}

// AssertSelect drives chip-select low.
func (t *Transport) AssertSelect() error {
	if t.selected {
		return ErrBusy
	}

	if err := t.hw.Select.Set(false); err != nil {
		t.metrics.incBusFaultCount()
		return fmt.Errorf("%w: assert select: %w", ErrBusFault, err)
	}

	t.selected = true
	t.metrics.incSelectCount()

	return nil
}

// ReleaseSelect drives chip-select high. It is a no-op when not selected.
//
// The transport considers itself released even when the pin write fails, so a
// failed release is never retried by a later ReleaseSelect.
func (t *Transport) ReleaseSelect() error {
	if !t.selected {
		return nil
	}

	t.selected = false
	t.metrics.incReleaseCount()

	if err := t.hw.Select.Set(true); err != nil {
		t.metrics.incBusFaultCount()
		return fmt.Errorf("%w: release select: %w", ErrBusFault, err)
	}

	return nil
}

// Transaction asserts chip-select, runs fn and releases chip-select exactly
// once, whether fn returns normally, fails or panics.
//
// An error from fn takes precedence over an error releasing the select line.
func (t *Transport) Transaction(fn func() error) (err error) {
	if err := t.AssertSelect(); err != nil {
		return err
	}

	defer func() {
		if rerr := t.ReleaseSelect(); rerr != nil && err == nil {
			err = rerr
		}
	}()

	return fn()
}

// Exchange clocks out and returns len(out) bytes full-duplex.
func (t *Transport) Exchange(out []byte) ([]byte, error) {
	if !t.selected {
		return nil, ErrNotSelected
	}

	in := make([]byte, len(out))
	if len(out) == 0 {
		return in, nil
	}

	if err := t.hw.SPI.Tx(out, in); err != nil {
		t.metrics.incBusFaultCount()
		t.logger.Debug("bus: transfer failed", "len", len(out), "error", err)

		return nil, fmt.Errorf("%w: %w", ErrBusFault, err)
	}

	t.metrics.addExchange(len(out))

	return in, nil
}

// ReadBytes clocks out n dummy bytes and returns the n bytes received.
func (t *Transport) ReadBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("bus: negative read length %d", n)
	}

	out := make([]byte, n)
	for i := range out {
		out[i] = DummyByte
	}

	return t.Exchange(out)
}

// WaitReady polls the ready line until it is asserted or timeout elapses.
//
// It returns false on timeout; a timeout is an expected outcome, not a fault.
// The line is always sampled at least once.
func (t *Transport) WaitReady(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)

	for {
		if t.ready() {
			return true
		}

		if !time.Now().Before(deadline) {
			t.metrics.incReadyTimeoutCount()
			t.logger.Debug("bus: timeout waiting for ready line", "timeout", timeout)

			return false
		}

		if t.pollInterval > 0 {
			time.Sleep(t.pollInterval)
		} else {
			runtime.Gosched()
		}
	}
}

func (t *Transport) ready() bool {
	return t.hw.Ready.Get() != t.readyActiveLow
}

// ResetPeripheral runs the coprocessor reset sequence: boot strap high (when
// wired), select released, reset low for the pulse width, reset high, then
// waits the settle time.
//
// Any selection in progress is abandoned.
func (t *Transport) ResetPeripheral() error {
	t.logger.Debug("bus: resetting coprocessor", "pulse", t.resetPulse, "settle", t.resetSettle)

	if t.hw.Boot != nil {
		if err := t.hw.Boot.Set(true); err != nil {
			return t.pinFault("boot strap", err)
		}
	}

	if t.selected {
		t.selected = false
		t.metrics.incReleaseCount()
	}

	if err := t.hw.Select.Set(true); err != nil {
		return t.pinFault("release select", err)
	}

	if err := t.hw.Reset.Set(false); err != nil {
		return t.pinFault("assert reset", err)
	}

	time.Sleep(t.resetPulse)

	if err := t.hw.Reset.Set(true); err != nil {
		return t.pinFault("release reset", err)
	}

	time.Sleep(t.resetSettle)
	t.metrics.incResetCount()

	return nil
}

func (t *Transport) pinFault(stage string, err error) error {
	t.metrics.incBusFaultCount()
	return fmt.Errorf("%w: %s: %w", ErrBusFault, stage, err)
}
