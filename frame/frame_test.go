package frame

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode_NoParams(t *testing.T) {
	buf, err := Encode(0x20)
	require.NoError(t, err)

	// START, CMD, NPARAM, END -> exactly one aligned word.
	assert.Equal(t, []byte{StartMarker, 0x20, 0x00, EndMarker}, buf)
}

func TestEncode_Params(t *testing.T) {
	buf, err := Encode(0x11,
		String("ssid", "home-net", 32),
		String("passphrase", "secret123", 64),
	)
	require.NoError(t, err)

	want := []byte{StartMarker, 0x11, 0x02, 8}
	want = append(want, "home-net"...)
	want = append(want, 9)
	want = append(want, "secret123"...)
	want = append(want, EndMarker)
	for len(want)%Alignment != 0 {
		want = append(want, PadByte)
	}

	assert.Equal(t, want, buf)
	assert.Zero(t, len(buf)%Alignment, "request must be padded to the alignment boundary")
}

func TestEncode_ClearsReplyFlag(t *testing.T) {
	buf, err := Encode(0x37 | ReplyFlag)
	require.NoError(t, err)
	assert.Equal(t, byte(0x37), buf[1])
}

func TestEncode_Padding(t *testing.T) {
	for n := 0; n < 8; n++ {
		buf, err := Encode(0x52, Bytes("data", bytes.Repeat([]byte{0xAA}, n), 0))
		require.NoError(t, err)

		f := Frame{Command: 0x52, Args: []Arg{Bytes("data", make([]byte, n), 0)}}
		assert.Len(t, buf, f.PaddedLen())
		assert.Zero(t, len(buf)%Alignment)
		assert.Equal(t, EndMarker, buf[f.Len()-1])
		for _, b := range buf[f.Len():] {
			assert.Equal(t, PadByte, b)
		}
	}
}

func TestEncode_ArgumentTooLarge(t *testing.T) {
	ssid := bytes.Repeat([]byte{'a'}, 33)

	buf, err := Encode(0x11, Bytes("ssid", ssid, 32), String("passphrase", "x", 64))
	require.Error(t, err)
	assert.Nil(t, buf)
	assert.ErrorIs(t, err, ErrArgumentTooLarge)
	assert.ErrorIs(t, err, ErrEncode)

	var encErr *EncodeError
	require.True(t, errors.As(err, &encErr))
	assert.Equal(t, 0, encErr.Index)
	assert.Equal(t, "ssid", encErr.Name)
	assert.Contains(t, err.Error(), "ssid")
}

func TestEncode_ArgumentOverWireLimit(t *testing.T) {
	_, err := Encode(0x52, Bytes("data", make([]byte, MaxParamLen+1), 0))
	assert.ErrorIs(t, err, ErrArgumentTooLarge)

	_, err = Encode(0x52, Bytes("data", make([]byte, MaxParamLen), 0))
	assert.NoError(t, err)
}

func TestEncode_TooManyArguments(t *testing.T) {
	args := make([]Arg, MaxParams+1)
	for i := range args {
		args[i] = Uint8("p", byte(i))
	}

	_, err := Encode(0x10, args...)
	assert.ErrorIs(t, err, ErrTooManyArguments)
	assert.ErrorIs(t, err, ErrEncode)

	_, err = Encode(0x10, args[:MaxParams]...)
	assert.NoError(t, err)
}

func TestFrame_Validate_TooLarge(t *testing.T) {
	args := make([]Arg, MaxParams)
	for i := range args {
		args[i] = Bytes("blob", make([]byte, MaxParamLen), 0)
	}

	f := Frame{Command: 0x44, Args: args}
	// 16 * 256 + 4 > MaxFrameSize
	err := f.Validate()
	assert.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestFrame_Len(t *testing.T) {
	f := Frame{Command: 0x11, Args: []Arg{String("a", "abc", 0), Uint8("b", 1)}}
	assert.Equal(t, 3+4+2+1, f.Len())
	assert.Equal(t, 12, f.PaddedLen())
}
