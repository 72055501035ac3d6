package link

import (
	"fmt"

	"github.com/arloliu/go-espwifi/logger"
)

// DefaultConnectTimeoutTicks is the default Connecting budget in ticks.
const DefaultConnectTimeoutTicks = 40

// Option is a functional option for configuring a StateMachine.
type Option interface {
	apply(*StateMachine) error
}

type optFunc func(*StateMachine) error

func (f optFunc) apply(sm *StateMachine) error { return f(sm) }

// WithConnectTimeoutTicks sets how many polls Connecting may take before
// failing with ReasonTimeout. n must be at least 1.
func WithConnectTimeoutTicks(n int) Option {
	return optFunc(func(sm *StateMachine) error {
		if n < 1 {
			return fmt.Errorf("link: connect timeout ticks %d must be at least 1", n)
		}
		sm.connectTimeoutTicks = n

		return nil
	})
}

// WithLogger sets the logger. A nil logger disables logging.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(sm *StateMachine) error {
		sm.logger = logger.OrNop(l)
		return nil
	})
}

// WithHandler adds state change handlers.
func WithHandler(handlers ...StateChangeHandler) Option {
	return optFunc(func(sm *StateMachine) error {
		sm.handlers = append(sm.handlers, handlers...)
		return nil
	})
}
