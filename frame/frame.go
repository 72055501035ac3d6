package frame

import "fmt"

// Frame markers and control bytes.
const (
	// StartMarker opens every request and reply frame.
	StartMarker byte = 0xE0
	// EndMarker closes every request and reply frame.
	EndMarker byte = 0xEE
	// ErrorMarker is sent by the coprocessor in place of a reply when it rejects a request.
	ErrorMarker byte = 0xEF
	// PadByte fills requests up to the alignment boundary and is clocked out while reading.
	PadByte byte = 0xFF
	// ReplyFlag is set on the command code echoed in a reply.
	ReplyFlag byte = 1 << 7
)

// Frame size limits.
const (
	// Alignment is the transfer granularity of the coprocessor's SPI slave.
	Alignment = 4
	// MaxParams is the maximum number of parameters in a single frame.
	MaxParams = 16
	// MaxParamLen is the largest length a 1-byte length prefix can declare.
	MaxParamLen = 255
	// MaxFrameSize is the largest single SPI transaction the coprocessor accepts.
	MaxFrameSize = 4096
	// headerSize covers start marker, command and parameter count.
	headerSize = 3
)

// Arg is one request parameter together with its maximum declared width.
type Arg struct {
	Value []byte
	// MaxLen is the widest value this argument may carry. Zero means MaxParamLen.
	MaxLen int
	// Name identifies the argument in errors.
	Name string
}

// Bytes returns a byte-string argument bounded to maxLen bytes.
func Bytes(name string, v []byte, maxLen int) Arg {
	return Arg{Name: name, Value: v, MaxLen: maxLen}
}

// String returns a string argument bounded to maxLen bytes.
func String(name string, v string, maxLen int) Arg {
	return Arg{Name: name, Value: []byte(v), MaxLen: maxLen}
}

// Uint8 returns a single-byte argument.
func Uint8(name string, v uint8) Arg {
	return Arg{Name: name, Value: []byte{v}, MaxLen: 1}
}

func (a Arg) limit() int {
	if a.MaxLen <= 0 || a.MaxLen > MaxParamLen {
		return MaxParamLen
	}

	return a.MaxLen
}

// Frame is a decoded-shape view of a request: a command code plus its parameters.
type Frame struct {
	Command byte
	Args    []Arg
}

// Len returns the unpadded encoded length of f.
func (f *Frame) Len() int {
	n := headerSize + 1 // header + end marker
	for _, a := range f.Args {
		n += 1 + len(a.Value)
	}

	return n
}

// PaddedLen returns the encoded length of f including alignment padding.
func (f *Frame) PaddedLen() int {
	return padded(f.Len())
}

func padded(n int) int {
	return (n + Alignment - 1) &^ (Alignment - 1)
}

// Validate checks f against the protocol limits without encoding it.
func (f *Frame) Validate() error {
	if len(f.Args) > MaxParams {
		return &EncodeError{
			Kind:    ErrTooManyArguments,
			Command: f.Command,
			Index:   -1,
			Detail:  fmt.Sprintf("got %d, max %d", len(f.Args), MaxParams),
		}
	}

	for i, a := range f.Args {
		if len(a.Value) > a.limit() {
			return &EncodeError{
				Kind:    ErrArgumentTooLarge,
				Command: f.Command,
				Index:   i,
				Name:    a.Name,
				Detail:  fmt.Sprintf("got %d bytes, max %d", len(a.Value), a.limit()),
			}
		}
	}

	if size := f.PaddedLen(); size > MaxFrameSize {
		return &EncodeError{
			Kind:    ErrFrameTooLarge,
			Command: f.Command,
			Index:   -1,
			Detail:  fmt.Sprintf("got %d bytes, max %d", size, MaxFrameSize),
		}
	}

	return nil
}

// Pack serializes f to its padded wire format:
//
//	[START][CMD &^ 0x80][NPARAM]([LEN][DATA...])*[END][0xFF...]
func (f *Frame) Pack() ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	buf := make([]byte, 0, f.PaddedLen())
	buf = append(buf, StartMarker, f.Command&^ReplyFlag, byte(len(f.Args)))
	for _, a := range f.Args {
		buf = append(buf, byte(len(a.Value)))
		buf = append(buf, a.Value...)
	}
	buf = append(buf, EndMarker)

	for len(buf)%Alignment != 0 {
		buf = append(buf, PadByte)
	}

	return buf, nil
}

// Encode serializes a request for cmd with the given arguments.
func Encode(cmd byte, args ...Arg) ([]byte, error) {
	f := Frame{Command: cmd, Args: args}
	return f.Pack()
}
