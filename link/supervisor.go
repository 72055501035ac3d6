package link

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/go-espwifi/logger"
	"golang.org/x/time/rate"
)

// Supervisor defaults.
const (
	DefaultTickInterval  = 250 * time.Millisecond
	DefaultRetryInterval = 5 * time.Second
)

// ErrAttemptsExhausted is returned by Supervisor.Run when the attempt budget is spent.
var ErrAttemptsExhausted = errors.New("link: connect attempts exhausted")

// SupervisorOption configures a Supervisor.
type SupervisorOption interface {
	apply(*Supervisor) error
}

type supOptFunc func(*Supervisor) error

func (f supOptFunc) apply(s *Supervisor) error { return f(s) }

// WithMaxAttempts sets the Begin attempt budget. Zero means unlimited.
func WithMaxAttempts(n int) SupervisorOption {
	return supOptFunc(func(s *Supervisor) error {
		if n < 0 {
			return fmt.Errorf("link: max attempts %d must not be negative", n)
		}
		s.maxAttempts = n

		return nil
	})
}

// WithTickInterval sets the interval between Tick calls.
func WithTickInterval(d time.Duration) SupervisorOption {
	return supOptFunc(func(s *Supervisor) error {
		if d <= 0 {
			return fmt.Errorf("link: tick interval %v must be positive", d)
		}
		s.tickInterval = d

		return nil
	})
}

// WithRetryInterval sets the minimum spacing between Begin attempts.
func WithRetryInterval(d time.Duration) SupervisorOption {
	return supOptFunc(func(s *Supervisor) error {
		if d <= 0 {
			return fmt.Errorf("link: retry interval %v must be positive", d)
		}
		s.limiter = rate.NewLimiter(rate.Every(d), 1)

		return nil
	})
}

// WithSupervisorLogger sets the supervisor logger. A nil logger disables logging.
func WithSupervisorLogger(l logger.Logger) SupervisorOption {
	return supOptFunc(func(s *Supervisor) error {
		s.logger = logger.OrNop(l)
		return nil
	})
}

// Supervisor drives a StateMachine from a single goroutine: it calls Begin,
// ticks at a fixed interval, and calls Begin again after ConnectFailed until
// the attempt budget is spent.
//
// While a Supervisor runs it owns the machine; a Reset from elsewhere is
// treated like a failure and triggers a new attempt.
type Supervisor struct {
	sm         *StateMachine
	ssid       string
	passphrase string
	logger     logger.Logger

	maxAttempts  int
	tickInterval time.Duration
	limiter      *rate.Limiter

	attempts int
	lastErr  error
}

// NewSupervisor creates a Supervisor that connects sm to ssid.
func NewSupervisor(sm *StateMachine, ssid, passphrase string, opts ...SupervisorOption) (*Supervisor, error) {
	if sm == nil {
		return nil, errors.New("link: state machine is nil")
	}

	s := &Supervisor{
		sm:           sm,
		ssid:         ssid,
		passphrase:   passphrase,
		logger:       logger.NewNop(),
		tickInterval: DefaultTickInterval,
		limiter:      rate.NewLimiter(rate.Every(DefaultRetryInterval), 1),
	}

	for _, opt := range opts {
		if err := opt.apply(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Attempts returns the number of Begin attempts made, successful or not.
func (s *Supervisor) Attempts() int {
	return s.attempts
}

// Run supervises the link until ctx is done or the attempt budget is spent.
//
// It returns ctx.Err() on cancellation, or an error wrapping
// ErrAttemptsExhausted and the last failure.
func (s *Supervisor) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		switch s.sm.State() {
		case Idle, ConnectFailed:
			if err := s.attempt(ctx); err != nil {
				return err
			}
		default:
			s.sm.Tick()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Supervisor) attempt(ctx context.Context) error {
	if s.maxAttempts > 0 && s.attempts >= s.maxAttempts {
		if _, failErr := s.sm.Failure(); failErr != nil {
			s.lastErr = failErr
		}

		if s.lastErr == nil {
			return fmt.Errorf("%w after %d attempts", ErrAttemptsExhausted, s.attempts)
		}

		return fmt.Errorf("%w after %d attempts: %w", ErrAttemptsExhausted, s.attempts, s.lastErr)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	s.attempts++
	s.logger.Debug("link: connect attempt", "ssid", s.ssid, "attempt", s.attempts)

	if err := s.sm.Begin(s.ssid, s.passphrase); err != nil {
		s.lastErr = err
	}

	return nil
}
