package link

import (
	"errors"
	"fmt"
	"net/netip"
	"sync"
	"sync/atomic"

	"github.com/arloliu/go-espwifi/logger"
	"github.com/arloliu/go-espwifi/nina"
)

// State is a connection state.
type State uint32

const (
	// Idle indicates no association has been requested.
	Idle State = iota
	// Connecting indicates association is in progress on the coprocessor.
	Connecting
	// Connected indicates the coprocessor is associated.
	Connected
	// ConnectFailed indicates the last association attempt failed; see Failure.
	ConnectFailed
	// Disconnected indicates an established link was lost.
	Disconnected
)

// String returns string representation of the state.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case ConnectFailed:
		return "connect-failed"
	case Disconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Reason explains a ConnectFailed state.
type Reason uint8

const (
	ReasonNone Reason = iota
	// ReasonRejected indicates the coprocessor reported the network unavailable or refused.
	ReasonRejected
	// ReasonTimeout indicates no association result within the tick budget.
	ReasonTimeout
	// ReasonCommandError indicates a command to the coprocessor failed.
	ReasonCommandError
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonRejected:
		return "rejected"
	case ReasonTimeout:
		return "timeout"
	case ReasonCommandError:
		return "command-error"
	default:
		return "unknown"
	}
}

var (
	// ErrInvalidTransition indicates an operation not allowed in the current state.
	ErrInvalidTransition = errors.New("link: invalid state transition")
	// ErrRejected is the failure error for ReasonRejected.
	ErrRejected = errors.New("link: association rejected")
	// ErrConnectTimeout is the failure error for ReasonTimeout.
	ErrConnectTimeout = errors.New("link: association timed out")
)

// Protocol is the subset of the coprocessor command set the machine drives.
// *nina.Client implements it.
type Protocol interface {
	SetNetworkCredentials(ssid, passphrase string) error
	StartConnect(mode nina.SecurityMode) error
	PollLinkStatus() (nina.ConnStatus, error)
	GetAssignedAddress() (netip.Addr, error)
}

// StateChangeHandler is invoked synchronously after every state change, outside
// the machine's lock.
type StateChangeHandler func(prev State, next State)

// StateMachine tracks association with one network.
//
// Its methods are safe for concurrent use; bus commands are serialized.
type StateMachine struct {
	mu       sync.Mutex
	state    atomic.Uint32
	proto    Protocol
	logger   logger.Logger
	handlers []StateChangeHandler

	connectTimeoutTicks int

	ticks      int
	attempts   int
	ssid       string
	passphrase string
	hasCreds   bool
	reason     Reason
	failErr    error
	pollErr    error
}

// NewStateMachine creates a StateMachine in the Idle state.
func NewStateMachine(proto Protocol, opts ...Option) (*StateMachine, error) {
	if proto == nil {
		return nil, errors.New("link: protocol is nil")
	}

	sm := &StateMachine{
		proto:               proto,
		logger:              logger.NewNop(),
		connectTimeoutTicks: DefaultConnectTimeoutTicks,
	}

	for _, opt := range opts {
		if err := opt.apply(sm); err != nil {
			return nil, err
		}
	}

	sm.state.Store(uint32(Idle))

	return sm, nil
}

// State returns the current state.
func (sm *StateMachine) State() State {
	return State(sm.state.Load())
}

// AddHandler adds handlers invoked on state changes.
func (sm *StateMachine) AddHandler(handlers ...StateChangeHandler) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.handlers = append(sm.handlers, handlers...)
}

// Failure returns the reason and error of the last ConnectFailed transition.
func (sm *StateMachine) Failure() (Reason, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	return sm.reason, sm.failErr
}

// LastPollError returns the last status poll error seen while Connected, or nil.
func (sm *StateMachine) LastPollError() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	return sm.pollErr
}

// Ticks returns the number of polls issued in the current Connecting phase.
func (sm *StateMachine) Ticks() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	return sm.ticks
}

// Attempts returns the number of successful Begin calls since creation.
func (sm *StateMachine) Attempts() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	return sm.attempts
}

// SSID returns the stored network name, or "" when none is stored.
func (sm *StateMachine) SSID() string {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	return sm.ssid
}

// Begin sends the credentials and starts association.
//
// Begin is allowed from Idle, ConnectFailed and Disconnected. On success the
// machine moves to Connecting and keeps the credentials for automatic
// reconnection. On failure the state, credentials and failure reason are left
// as they were and the command error is returned.
func (sm *StateMachine) Begin(ssid, passphrase string) error {
	sm.mu.Lock()

	cur := sm.State()
	switch cur {
	case Idle, ConnectFailed, Disconnected:
	default:
		sm.mu.Unlock()
		return fmt.Errorf("%w: begin from %s", ErrInvalidTransition, cur)
	}

	if err := sm.startLocked(ssid, passphrase); err != nil {
		sm.mu.Unlock()
		sm.logger.Warn("link: begin failed", "ssid", ssid, "error", err)

		return err
	}

	sm.ssid, sm.passphrase, sm.hasCreds = ssid, passphrase, true
	sm.attempts++
	sm.enterConnectingLocked()
	handlers := sm.handlers
	sm.mu.Unlock()

	sm.notify(handlers, cur, Connecting)

	return nil
}

// Tick advances the machine by one step and returns the resulting state.
//
// Connecting and Connected issue one status poll per tick. Disconnected
// re-issues the connect procedure with the stored credentials. Idle and
// ConnectFailed do nothing.
func (sm *StateMachine) Tick() State {
	sm.mu.Lock()

	prev := sm.State()
	var next State

	switch prev {
	case Connecting:
		next = sm.tickConnectingLocked()
	case Connected:
		next = sm.tickConnectedLocked()
	case Disconnected:
		next = sm.tickDisconnectedLocked()
	default:
		next = prev
	}

	handlers := sm.handlers
	sm.mu.Unlock()

	if next != prev {
		sm.notify(handlers, prev, next)
	}

	return next
}

// Reset returns the machine to Idle from any state and clears the stored
// credentials and failure reason. It issues no bus commands.
func (sm *StateMachine) Reset() {
	sm.mu.Lock()

	prev := sm.State()
	sm.ssid, sm.passphrase, sm.hasCreds = "", "", false
	sm.ticks = 0
	sm.reason, sm.failErr, sm.pollErr = ReasonNone, nil, nil
	sm.state.Store(uint32(Idle))
	handlers := sm.handlers
	sm.mu.Unlock()

	if prev != Idle {
		sm.logger.Debug("link: reset", "from", prev)
		sm.notify(handlers, prev, Idle)
	}
}

// AssignedAddress returns the station address. It fails with nina.ErrNotReady
// unless the machine is Connected.
func (sm *StateMachine) AssignedAddress() (netip.Addr, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if st := sm.State(); st != Connected {
		return netip.Addr{}, fmt.Errorf("%w: link is %s", nina.ErrNotReady, st)
	}

	return sm.proto.GetAssignedAddress()
}

func (sm *StateMachine) startLocked(ssid, passphrase string) error {
	if err := sm.proto.SetNetworkCredentials(ssid, passphrase); err != nil {
		return err
	}

	mode := nina.WpaPsk
	if passphrase == "" {
		mode = nina.OpenNetwork
	}

	return sm.proto.StartConnect(mode)
}

func (sm *StateMachine) enterConnectingLocked() {
	sm.ticks = 0
	sm.reason, sm.failErr, sm.pollErr = ReasonNone, nil, nil
	sm.state.Store(uint32(Connecting))
}

func (sm *StateMachine) failLocked(reason Reason, err error) State {
	sm.reason, sm.failErr = reason, err
	sm.state.Store(uint32(ConnectFailed))
	sm.logger.Warn("link: connect failed", "ssid", sm.ssid, "reason", reason, "ticks", sm.ticks, "error", err)

	return ConnectFailed
}

func (sm *StateMachine) tickConnectingLocked() State {
	sm.ticks++

	status, err := sm.proto.PollLinkStatus()
	if err != nil {
		return sm.failLocked(ReasonCommandError, err)
	}

	switch status {
	case nina.StatusConnected:
		sm.state.Store(uint32(Connected))
		sm.logger.Info("link: established", "ssid", sm.ssid, "ticks", sm.ticks)

		return Connected
	case nina.StatusConnectFailed, nina.StatusNoSSIDAvail:
		return sm.failLocked(ReasonRejected, fmt.Errorf("%w: coprocessor reported %s", ErrRejected, status))
	}

	if sm.ticks >= sm.connectTimeoutTicks {
		return sm.failLocked(ReasonTimeout, fmt.Errorf("%w after %d ticks", ErrConnectTimeout, sm.ticks))
	}

	return Connecting
}

func (sm *StateMachine) tickConnectedLocked() State {
	status, err := sm.proto.PollLinkStatus()
	if err != nil {
		sm.pollErr = err
		sm.logger.Debug("link: status poll failed", "error", err)

		return Connected
	}

	sm.pollErr = nil
	if status == nina.StatusConnected {
		return Connected
	}

	sm.state.Store(uint32(Disconnected))
	sm.logger.Info("link: lost", "ssid", sm.ssid, "status", status)

	return Disconnected
}

func (sm *StateMachine) tickDisconnectedLocked() State {
	if !sm.hasCreds {
		return sm.failLocked(ReasonCommandError, errors.New("link: no stored credentials"))
	}

	if err := sm.startLocked(sm.ssid, sm.passphrase); err != nil {
		return sm.failLocked(ReasonCommandError, err)
	}

	sm.logger.Debug("link: reconnecting", "ssid", sm.ssid)
	sm.enterConnectingLocked()

	return Connecting
}

func (sm *StateMachine) notify(handlers []StateChangeHandler, prev, next State) {
	for _, h := range handlers {
		h(prev, next)
	}
}
