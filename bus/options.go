package bus

import (
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/go-espwifi/logger"
)

// Default timings for the coprocessor reset sequence and ready polling.
const (
	DefaultResetPulse   = 10 * time.Millisecond
	DefaultResetSettle  = 750 * time.Millisecond
	DefaultPollInterval = 20 * time.Microsecond

	MaxPollInterval = 10 * time.Millisecond
)

// Option is a functional option for configuring a Transport.
type Option interface {
	apply(*Transport) error
}

type optFunc func(*Transport) error

func (f optFunc) apply(t *Transport) error { return f(t) }

// WithLogger sets the logger for the transport. A nil logger disables logging.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(t *Transport) error {
		t.logger = logger.OrNop(l)
		return nil
	})
}

// WithPollInterval sets the sleep between ready-line samples.
// Zero yields the processor between samples instead of sleeping.
func WithPollInterval(d time.Duration) Option {
	return optFunc(func(t *Transport) error {
		if d < 0 || d > MaxPollInterval {
			return fmt.Errorf("bus: poll interval %v out of range [0, %v]", d, MaxPollInterval)
		}
		t.pollInterval = d

		return nil
	})
}

// WithResetTiming sets the reset pulse width and the settle time after reset.
func WithResetTiming(pulse, settle time.Duration) Option {
	return optFunc(func(t *Transport) error {
		if pulse <= 0 {
			return errors.New("bus: reset pulse must be positive")
		}
		if settle < 0 {
			return errors.New("bus: reset settle must not be negative")
		}
		t.resetPulse = pulse
		t.resetSettle = settle

		return nil
	})
}

// WithReadyActiveLow treats a low ready line as asserted.
func WithReadyActiveLow(activeLow bool) Option {
	return optFunc(func(t *Transport) error {
		t.readyActiveLow = activeLow
		return nil
	})
}
