package nina

import (
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/go-espwifi/bus"
	"github.com/arloliu/go-espwifi/frame"
	"github.com/arloliu/go-espwifi/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

const (
	// DefaultReadyTimeout bounds each wait for the ready line.
	DefaultReadyTimeout = 100 * time.Millisecond
	// DefaultMaxScan bounds the filler bytes clocked in while looking for a reply.
	// Slow firmware can emit thousands of filler bytes before the start marker.
	DefaultMaxScan = 5000

	MinReadyTimeout = time.Millisecond
	MaxReadyTimeout = 10 * time.Second
	MaxScanLimit    = 1 << 16
)

// Option is a functional option for configuring a Client.
type Option interface {
	apply(*Client) error
}

type optFunc func(*Client) error

func (f optFunc) apply(c *Client) error { return f(c) }

// WithLogger sets the logger for the client. A nil logger disables logging.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(c *Client) error {
		c.logger = logger.OrNop(l)
		return nil
	})
}

// WithReadyTimeout bounds each wait for the ready line.
func WithReadyTimeout(d time.Duration) Option {
	return optFunc(func(c *Client) error {
		if d < MinReadyTimeout || d > MaxReadyTimeout {
			return fmt.Errorf("nina: ready timeout %v out of range [%v, %v]", d, MinReadyTimeout, MaxReadyTimeout)
		}
		c.readyTimeout = d

		return nil
	})
}

// WithMaxScan bounds the filler bytes clocked in while looking for a reply.
func WithMaxScan(n int) Option {
	return optFunc(func(c *Client) error {
		if n < 1 || n > MaxScanLimit {
			return fmt.Errorf("nina: max scan %d out of range [1, %d]", n, MaxScanLimit)
		}
		c.maxScan = n

		return nil
	})
}

// Client issues commands to the coprocessor.
//
// Client exclusively owns its bus.Transport and, like it, is NOT
// goroutine-safe. Stats may be read concurrently.
type Client struct {
	bus          *bus.Transport
	logger       logger.Logger
	readyTimeout time.Duration
	maxScan      int
	stats        *xsync.MapOf[Command, *commandStats]
}

// NewClient creates a Client that owns tr.
func NewClient(tr *bus.Transport, opts ...Option) (*Client, error) {
	if tr == nil {
		return nil, errors.New("nina: transport is nil")
	}

	c := &Client{
		bus:          tr,
		logger:       logger.NewNop(),
		readyTimeout: DefaultReadyTimeout,
		maxScan:      DefaultMaxScan,
		stats:        xsync.NewMapOf[Command, *commandStats](),
	}

	for _, opt := range opts {
		if err := opt.apply(c); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Transport returns the bus transport owned by the client.
func (c *Client) Transport() *bus.Transport {
	return c.bus
}

// call runs one request/reply transaction and decodes the reply against shape.
func (c *Client) call(cmd Command, shape frame.Shape, args ...frame.Arg) (*frame.Reply, error) {
	req, err := frame.Encode(byte(cmd), args...)
	if err != nil {
		return nil, err
	}

	start := time.Now()

	var raw []byte
	err = c.bus.Transaction(func() error {
		if !c.bus.WaitReady(c.readyTimeout) {
			return timeoutErr(cmd, StageRequest)
		}

		if _, err := c.bus.Exchange(req); err != nil {
			return err
		}

		if !c.bus.WaitReady(c.readyTimeout) {
			return timeoutErr(cmd, StageReply)
		}

		collected, err := frame.Collect(c.bus, byte(cmd), c.maxScan)
		raw = collected

		return err
	})

	var reply *frame.Reply
	if err == nil {
		reply, err = frame.Decode(raw, byte(cmd), shape)
	}

	c.record(cmd, time.Since(start), err)

	if err != nil {
		c.logger.Debug("nina: command failed", "command", cmd, "error", err)
		return nil, err
	}

	return reply, nil
}

// callStatus runs a command whose reply is a single status byte.
func (c *Client) callStatus(cmd Command, args ...frame.Arg) error {
	reply, err := c.call(cmd, frame.Expect(1), args...)
	if err != nil {
		return err
	}

	code, err := reply.Uint8(0)
	if err != nil {
		return err
	}

	if code != 1 {
		return &StatusError{Command: cmd, Code: code}
	}

	return nil
}
