package bus

import (
	"sync/atomic"
)

// Metrics contains atomic counters for a Transport.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type Metrics struct {
	// SelectCount indicates the number of times chip-select was asserted.
	SelectCount atomic.Uint64
	// ReleaseCount indicates the number of times chip-select was released.
	ReleaseCount atomic.Uint64
	// ExchangeCount indicates the number of full-duplex exchanges.
	ExchangeCount atomic.Uint64
	// BytesOut indicates the number of bytes clocked out.
	BytesOut atomic.Uint64
	// BytesIn indicates the number of bytes clocked in.
	BytesIn atomic.Uint64
	// ReadyTimeoutCount indicates the number of ready-line waits that timed out.
	ReadyTimeoutCount atomic.Uint64
	// BusFaultCount indicates the number of hardware transfer or pin failures.
	BusFaultCount atomic.Uint64
	// ResetCount indicates the number of coprocessor resets.
	ResetCount atomic.Uint64
}

func (m *Metrics) incSelectCount() {
	m.SelectCount.Add(1)
}

func (m *Metrics) incReleaseCount() {
	m.ReleaseCount.Add(1)
}

func (m *Metrics) addExchange(n int) {
	m.ExchangeCount.Add(1)
	m.BytesOut.Add(uint64(n)) //nolint:gosec // n is a slice length
	m.BytesIn.Add(uint64(n))  //nolint:gosec // n is a slice length
}

func (m *Metrics) incReadyTimeoutCount() {
	m.ReadyTimeoutCount.Add(1)
}

func (m *Metrics) incBusFaultCount() {
	m.BusFaultCount.Add(1)
}

func (m *Metrics) incResetCount() {
	m.ResetCount.Add(1)
}
