package frame

import (
	"errors"
	"fmt"
)

// Category errors. Every *EncodeError matches ErrEncode and every *DecodeError
// matches ErrDecode under errors.Is, in addition to its specific kind.
var (
	ErrEncode = errors.New("frame: encode error")
	ErrDecode = errors.New("frame: decode error")
)

// Encode error kinds.
var (
	ErrArgumentTooLarge = errors.New("frame: argument too large")
	ErrTooManyArguments = errors.New("frame: too many arguments")
	ErrFrameTooLarge    = errors.New("frame: frame exceeds maximum transfer size")
)

// Decode error kinds.
var (
	ErrBadMarker       = errors.New("frame: bad marker")
	ErrLengthMismatch  = errors.New("frame: length mismatch")
	ErrTruncatedFrame  = errors.New("frame: truncated frame")
	ErrErrorReply      = errors.New("frame: coprocessor returned error marker")
	ErrUnexpectedReply = errors.New("frame: unexpected reply command")
)

// EncodeError reports a request that cannot be put on the wire.
type EncodeError struct {
	// Kind is one of ErrArgumentTooLarge, ErrTooManyArguments or ErrFrameTooLarge.
	Kind    error
	Command byte
	// Index is the offending argument position, or -1 when the frame as a whole is at fault.
	Index  int
	Name   string
	Detail string
}

func (e *EncodeError) Error() string {
	if e.Index >= 0 {
		arg := fmt.Sprintf("#%d", e.Index)
		if e.Name != "" {
			arg = e.Name
		}

		return fmt.Sprintf("%v: command 0x%02X argument %s: %s", e.Kind, e.Command, arg, e.Detail)
	}

	return fmt.Sprintf("%v: command 0x%02X: %s", e.Kind, e.Command, e.Detail)
}

func (e *EncodeError) Unwrap() []error {
	return []error{ErrEncode, e.Kind}
}

// DecodeError reports a reply that failed validation.
type DecodeError struct {
	// Kind is one of the decode error kinds.
	Kind    error
	Command byte
	// Offset is the position in the raw reply where validation failed.
	Offset int
	Detail string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%v: command 0x%02X at offset %d: %s", e.Kind, e.Command, e.Offset, e.Detail)
}

func (e *DecodeError) Unwrap() []error {
	return []error{ErrDecode, e.Kind}
}

func decodeErr(kind error, cmd byte, offset int, format string, args ...any) *DecodeError {
	return &DecodeError{Kind: kind, Command: cmd, Offset: offset, Detail: fmt.Sprintf(format, args...)}
}

// Reply accessor errors.
var (
	ErrParamIndex = errors.New("frame: parameter index out of range")
	ErrParamSize  = errors.New("frame: parameter has unexpected size")
)
