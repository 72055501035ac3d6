package nina

import (
	"errors"
	"fmt"
)

var (
	// ErrPeripheralTimeout indicates the ready line was not asserted in time.
	// The call may be retried.
	ErrPeripheralTimeout = errors.New("nina: timeout waiting for coprocessor")
	// ErrNotReady indicates the operation is not valid in the current link state.
	ErrNotReady = errors.New("nina: not ready")
	// ErrUnexpectedStatus indicates a status value outside the known set.
	ErrUnexpectedStatus = errors.New("nina: unexpected status value")
	// ErrCommandFailed indicates the coprocessor acknowledged a command with a failure code.
	ErrCommandFailed = errors.New("nina: command failed")
	// ErrInvalidArgument indicates an argument the firmware cannot accept.
	ErrInvalidArgument = errors.New("nina: invalid argument")
)

// Transaction stages reported with ErrPeripheralTimeout.
const (
	StageRequest = "request"
	StageReply   = "reply"
)

// StatusError is returned when a status-only reply carries a code other than 1.
type StatusError struct {
	Command Command
	Code    uint8
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("nina: %s returned status %d", e.Command, e.Code)
}

func (e *StatusError) Unwrap() error {
	return ErrCommandFailed
}

func timeoutErr(cmd Command, stage string) error {
	return fmt.Errorf("%w: %s: no ready before %s", ErrPeripheralTimeout, cmd, stage)
}
