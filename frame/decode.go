package frame

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"net/netip"
)

// ByteSource yields bytes clocked in from the bus.
type ByteSource interface {
	// ReadBytes returns exactly n bytes or an error.
	ReadBytes(n int) ([]byte, error)
}

// Shape is the reply layout a caller expects for a command.
//
// The wire format has no type tags, so the caller must state the expected
// parameter count and widths before decoding.
type Shape struct {
	// Sizes holds the expected width of each parameter; 0 accepts any width.
	Sizes []int
	// Variable disables the parameter count check.
	Variable bool
}

// Expect returns a Shape of len(sizes) parameters with the given widths.
func Expect(sizes ...int) Shape {
	return Shape{Sizes: sizes}
}

// AnyShape accepts any parameter count and widths.
var AnyShape = Shape{Variable: true}

// Reply is a validated reply frame.
type Reply struct {
	// Command is the request command code the reply answers (reply flag cleared).
	Command byte
	Params  [][]byte
}

// Len returns the number of parameters.
func (r *Reply) Len() int { return len(r.Params) }

// Bytes returns a copy of parameter i.
func (r *Reply) Bytes(i int) ([]byte, error) {
	p, err := r.param(i, 0)
	if err != nil {
		return nil, err
	}

	return bytes.Clone(p), nil
}

// String returns parameter i as a string.
func (r *Reply) String(i int) (string, error) {
	p, err := r.param(i, 0)
	if err != nil {
		return "", err
	}

	return string(p), nil
}

// Uint8 returns single-byte parameter i.
func (r *Reply) Uint8(i int) (uint8, error) {
	p, err := r.param(i, 1)
	if err != nil {
		return 0, err
	}

	return p[0], nil
}

// Uint16LE returns 2-byte little-endian parameter i.
func (r *Reply) Uint16LE(i int) (uint16, error) {
	p, err := r.param(i, 2)
	if err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint16(p), nil
}

// Int32LE returns 4-byte little-endian signed parameter i.
func (r *Reply) Int32LE(i int) (int32, error) {
	p, err := r.param(i, 4)
	if err != nil {
		return 0, err
	}

	return int32(binary.LittleEndian.Uint32(p)), nil //nolint:gosec // two's complement reinterpretation
}

// IPv4 returns 4-byte parameter i as an address.
func (r *Reply) IPv4(i int) (netip.Addr, error) {
	p, err := r.param(i, 4)
	if err != nil {
		return netip.Addr{}, err
	}

	return netip.AddrFrom4([4]byte(p)), nil
}

func (r *Reply) param(i, size int) ([]byte, error) {
	if i < 0 || i >= len(r.Params) {
		return nil, fmt.Errorf("%w: %d of %d", ErrParamIndex, i, len(r.Params))
	}

	p := r.Params[i]
	if size > 0 && len(p) != size {
		return nil, fmt.Errorf("%w: parameter %d is %d bytes, want %d", ErrParamSize, i, len(p), size)
	}

	return p, nil
}

// Collect reads one raw reply frame from src.
//
// It clocks in up to maxScan filler bytes while waiting for the start or
// error marker, then follows the frame's own count and length fields up to and
// including the byte in the end-marker position. Collect does not validate the
// frame beyond what it needs to know how many bytes to read; pass the result to
// Decode.
func Collect(src ByteSource, cmd byte, maxScan int) ([]byte, error) {
	var first byte
	found := false

	for i := 0; i < maxScan; i++ {
		b, err := readOne(src)
		if err != nil {
			return nil, err
		}

		if b == PadByte {
			continue
		}

		first = b
		found = true

		break
	}

	if !found {
		return nil, decodeErr(ErrBadMarker, cmd, 0, "no start marker within %d bytes", maxScan)
	}

	raw := make([]byte, 0, 32)
	raw = append(raw, first)
	if first != StartMarker {
		// Error marker or garbage; Decode classifies it.
		return raw, nil
	}

	hdr, err := src.ReadBytes(2)
	if err != nil {
		return nil, err
	}
	raw = append(raw, hdr...)

	nparam := int(hdr[1])
	if nparam > MaxParams {
		return raw, nil
	}

	for i := 0; i < nparam; i++ {
		l, err := readOne(src)
		if err != nil {
			return nil, err
		}
		raw = append(raw, l)

		if len(raw)+int(l)+1 > MaxFrameSize {
			return nil, decodeErr(ErrLengthMismatch, cmd, len(raw), "reply exceeds %d bytes", MaxFrameSize)
		}

		if l > 0 {
			data, err := src.ReadBytes(int(l))
			if err != nil {
				return nil, err
			}
			raw = append(raw, data...)
		}
	}

	end, err := readOne(src)
	if err != nil {
		return nil, err
	}

	return append(raw, end), nil
}

func readOne(src ByteSource) (byte, error) {
	b, err := src.ReadBytes(1)
	if err != nil {
		return 0, err
	}

	return b[0], nil
}

// Decode validates raw as the reply to cmd and returns its parameters.
//
// Leading 0xFF filler is skipped. Bytes after the end marker are accepted as
// padding when they fall within the 4-byte alignment of the frame or are 0xFF.
// Markers and declared lengths are checked before the reply is matched against
// shape. On error the returned Reply is always nil.
func Decode(raw []byte, cmd byte, shape Shape) (*Reply, error) {
	cmd &^= ReplyFlag

	start := 0
	for start < len(raw) && raw[start] == PadByte {
		start++
	}

	if start >= len(raw) {
		return nil, decodeErr(ErrTruncatedFrame, cmd, start, "no reply bytes")
	}

	switch raw[start] {
	case StartMarker:
	case ErrorMarker:
		return nil, decodeErr(ErrErrorReply, cmd, start, "request rejected")
	default:
		return nil, decodeErr(ErrBadMarker, cmd, start, "got 0x%02X, want start marker 0x%02X", raw[start], StartMarker)
	}

	pos := start + 1
	if pos+2 > len(raw) {
		return nil, decodeErr(ErrTruncatedFrame, cmd, len(raw), "header needs %d bytes, have %d", headerSize, len(raw)-start)
	}

	if echo := raw[pos]; echo != cmd|ReplyFlag {
		return nil, decodeErr(ErrUnexpectedReply, cmd, pos, "got 0x%02X, want 0x%02X", echo, cmd|ReplyFlag)
	}

	nparam := int(raw[pos+1])
	if nparam > MaxParams {
		return nil, decodeErr(ErrLengthMismatch, cmd, pos+1, "declares %d parameters, max %d", nparam, MaxParams)
	}
	pos += 2

	params := make([][]byte, 0, nparam)
	for i := 0; i < nparam; i++ {
		if pos >= len(raw) {
			return nil, decodeErr(ErrTruncatedFrame, cmd, pos, "missing length of parameter %d", i)
		}

		l := int(raw[pos])
		pos++

		if pos+l > len(raw) {
			return nil, decodeErr(ErrTruncatedFrame, cmd, pos, "parameter %d declares %d bytes, have %d", i, l, len(raw)-pos)
		}

		params = append(params, bytes.Clone(raw[pos:pos+l]))
		pos += l
	}

	if pos >= len(raw) {
		return nil, decodeErr(ErrTruncatedFrame, cmd, pos, "missing end marker")
	}

	if raw[pos] != EndMarker {
		if idx := bytes.IndexByte(raw[pos:], EndMarker); idx >= 0 {
			return nil, decodeErr(ErrLengthMismatch, cmd, pos,
				"end marker at offset %d, declared lengths put it at %d", pos+idx, pos)
		}

		return nil, decodeErr(ErrBadMarker, cmd, pos, "got 0x%02X, want end marker 0x%02X", raw[pos], EndMarker)
	}
	pos++

	aligned := start + padded(pos-start)
	for i := pos; i < len(raw); i++ {
		if i >= aligned && raw[i] != PadByte {
			return nil, decodeErr(ErrLengthMismatch, cmd, i, "unexpected byte 0x%02X after end marker", raw[i])
		}
	}

	if err := shape.check(cmd, params); err != nil {
		return nil, err
	}

	return &Reply{Command: cmd, Params: params}, nil
}

func (s Shape) check(cmd byte, params [][]byte) error {
	if !s.Variable && len(params) != len(s.Sizes) {
		return decodeErr(ErrLengthMismatch, cmd, 0, "got %d parameters, want %d", len(params), len(s.Sizes))
	}

	for i, size := range s.Sizes {
		if i >= len(params) {
			break
		}

		if size > 0 && len(params[i]) != size {
			return decodeErr(ErrLengthMismatch, cmd, 0, "parameter %d is %d bytes, want %d", i, len(params[i]), size)
		}
	}

	return nil
}
