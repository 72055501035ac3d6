package bus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_InvalidHardware(t *testing.T) {
	pin := &fakePin{}
	spi := &fakeSPI{}

	tests := []struct {
		name string
		hw   Hardware
	}{
		{"no spi", Hardware{Select: pin, Reset: pin, Ready: pin}},
		{"no select", Hardware{SPI: spi, Reset: pin, Ready: pin}},
		{"no reset", Hardware{SPI: spi, Select: pin, Ready: pin}},
		{"no ready", Hardware{SPI: spi, Select: pin, Reset: pin}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.hw)
			require.ErrorIs(t, err, ErrInvalidHardware)
		})
	}
}

func TestNew_ReleasesSelect(t *testing.T) {
	rig := newTestRig(t)

	assert.Equal(t, []bool{true}, rig.sel.Writes())
	assert.False(t, rig.tr.Selected())
}

func TestNew_InvalidOptions(t *testing.T) {
	pin := &fakePin{}
	hw := Hardware{SPI: &fakeSPI{}, Select: pin, Reset: pin, Ready: pin}

	_, err := New(hw, WithPollInterval(-1))
	require.Error(t, err)

	_, err = New(hw, WithPollInterval(MaxPollInterval+1))
	require.Error(t, err)

	_, err = New(hw, WithResetTiming(0, time.Millisecond))
	require.Error(t, err)

	_, err = New(hw, WithResetTiming(time.Millisecond, -1))
	require.Error(t, err)
}

func TestSelect_AssertRelease(t *testing.T) {
	rig := newTestRig(t)

	require.NoError(t, rig.tr.AssertSelect())
	assert.True(t, rig.tr.Selected())
	require.ErrorIs(t, rig.tr.AssertSelect(), ErrBusy)

	require.NoError(t, rig.tr.ReleaseSelect())
	require.NoError(t, rig.tr.ReleaseSelect())
	assert.False(t, rig.tr.Selected())

	// initial release, assert, one release
	assert.Equal(t, []bool{true, false, true}, rig.sel.Writes())
	assert.Equal(t, uint64(1), rig.tr.Metrics().SelectCount.Load())
	assert.Equal(t, uint64(1), rig.tr.Metrics().ReleaseCount.Load())
}

func TestSelect_ReleaseFaultNotRepeated(t *testing.T) {
	rig := newTestRig(t)

	require.NoError(t, rig.tr.AssertSelect())
	rig.sel.err = errInjected

	err := rig.tr.ReleaseSelect()
	require.ErrorIs(t, err, ErrBusFault)
	require.ErrorIs(t, err, errInjected)
	assert.False(t, rig.tr.Selected())

	require.NoError(t, rig.tr.ReleaseSelect())
	assert.Equal(t, uint64(1), rig.tr.Metrics().ReleaseCount.Load())
}

func TestTransaction_ReleasesOnce(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		rig := newTestRig(t)

		err := rig.tr.Transaction(func() error {
			assert.True(t, rig.tr.Selected())
			_, err := rig.tr.Exchange([]byte{1, 2, 3})
			return err
		})
		require.NoError(t, err)
		assert.Equal(t, []bool{true, false, true}, rig.sel.Writes())
	})

	t.Run("error", func(t *testing.T) {
		rig := newTestRig(t)

		err := rig.tr.Transaction(func() error { return errInjected })
		require.ErrorIs(t, err, errInjected)
		assert.Equal(t, []bool{true, false, true}, rig.sel.Writes())
		assert.False(t, rig.tr.Selected())
	})

	t.Run("panic", func(t *testing.T) {
		rig := newTestRig(t)

		assert.Panics(t, func() {
			_ = rig.tr.Transaction(func() error { panic("boom") })
		})
		assert.Equal(t, []bool{true, false, true}, rig.sel.Writes())
		assert.False(t, rig.tr.Selected())
	})

	t.Run("fn releases early", func(t *testing.T) {
		rig := newTestRig(t)

		err := rig.tr.Transaction(func() error {
			return rig.tr.ReleaseSelect()
		})
		require.NoError(t, err)
		assert.Equal(t, []bool{true, false, true}, rig.sel.Writes())
		assert.Equal(t, uint64(1), rig.tr.Metrics().ReleaseCount.Load())
	})
}

func TestTransaction_AssertFault(t *testing.T) {
	rig := newTestRig(t)
	rig.sel.err = errInjected

	called := false
	err := rig.tr.Transaction(func() error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, ErrBusFault)
	assert.False(t, called)
	assert.False(t, rig.tr.Selected())
}

func TestExchange(t *testing.T) {
	rig := newTestRig(t)

	_, err := rig.tr.Exchange([]byte{1})
	require.ErrorIs(t, err, ErrNotSelected)

	require.NoError(t, rig.tr.AssertSelect())
	defer func() { _ = rig.tr.ReleaseSelect() }()

	in, err := rig.tr.Exchange([]byte{0x10, 0x20})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x11, 0x21}, in)

	in, err = rig.tr.Exchange(nil)
	require.NoError(t, err)
	assert.Empty(t, in)

	m := rig.tr.Metrics()
	assert.Equal(t, uint64(1), m.ExchangeCount.Load())
	assert.Equal(t, uint64(2), m.BytesOut.Load())
	assert.Equal(t, uint64(2), m.BytesIn.Load())
}

func TestExchange_BusFault(t *testing.T) {
	rig := newTestRig(t)
	rig.spi.err = errInjected

	err := rig.tr.Transaction(func() error {
		_, err := rig.tr.Exchange([]byte{1})
		return err
	})
	require.ErrorIs(t, err, ErrBusFault)
	require.ErrorIs(t, err, errInjected)
	assert.False(t, rig.tr.Selected())
	assert.Equal(t, uint64(1), rig.tr.Metrics().BusFaultCount.Load())
}

func TestReadBytes_ClocksDummy(t *testing.T) {
	rig := newTestRig(t)

	require.NoError(t, rig.tr.AssertSelect())
	in, err := rig.tr.ReadBytes(3)
	require.NoError(t, err)

	assert.Equal(t, []byte{DummyByte, DummyByte, DummyByte}, rig.spi.sent[0])
	assert.Equal(t, []byte{0, 0, 0}, in) // 0xFF + 1 wraps

	_, err = rig.tr.ReadBytes(-1)
	require.Error(t, err)
}

func TestWaitReady_Asserted(t *testing.T) {
	rig := newTestRig(t)
	rig.ready.level = true

	assert.True(t, rig.tr.WaitReady(0))
	assert.True(t, rig.tr.WaitReady(10*time.Millisecond))
	assert.Equal(t, uint64(0), rig.tr.Metrics().ReadyTimeoutCount.Load())
}

func TestWaitReady_Timeout(t *testing.T) {
	rig := newTestRig(t)

	start := time.Now()
	ok := rig.tr.WaitReady(50 * time.Millisecond)
	elapsed := time.Since(start)

	assert.False(t, ok)
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
	assert.Less(t, elapsed, time.Second)
	assert.Equal(t, uint64(1), rig.tr.Metrics().ReadyTimeoutCount.Load())
}

func TestWaitReady_BecomesReady(t *testing.T) {
	rig := newTestRig(t)

	go func() {
		time.Sleep(5 * time.Millisecond)
		_ = rig.ready.Set(true)
	}()

	assert.True(t, rig.tr.WaitReady(time.Second))
}

func TestWaitReady_ActiveLow(t *testing.T) {
	rig := newTestRig(t, WithReadyActiveLow(true), WithPollInterval(0))

	assert.True(t, rig.tr.WaitReady(time.Millisecond))

	rig.ready.level = true
	assert.False(t, rig.tr.WaitReady(time.Millisecond))
}

func TestResetPeripheral(t *testing.T) {
	rig := newTestRig(t)
	require.NoError(t, rig.tr.AssertSelect())

	require.NoError(t, rig.tr.ResetPeripheral())

	assert.Equal(t, []bool{true}, rig.boot.Writes())
	assert.Equal(t, []bool{false, true}, rig.reset.Writes())
	assert.Equal(t, []bool{true, false, true}, rig.sel.Writes())
	assert.False(t, rig.tr.Selected())
	assert.Equal(t, uint64(1), rig.tr.Metrics().ResetCount.Load())
	assert.Equal(t, uint64(1), rig.tr.Metrics().ReleaseCount.Load())
}

func TestResetPeripheral_Fault(t *testing.T) {
	rig := newTestRig(t)
	rig.reset.err = errInjected

	err := rig.tr.ResetPeripheral()
	require.ErrorIs(t, err, ErrBusFault)
	assert.Equal(t, uint64(0), rig.tr.Metrics().ResetCount.Load())
}
