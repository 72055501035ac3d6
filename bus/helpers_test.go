package bus

import (
	"errors"
	"sync"
	"testing"
	"time"
)

var errInjected = errors.New("injected fault")

// fakePin records every level written and serves a settable input level.
type fakePin struct {
	mu     sync.Mutex
	level  bool
	writes []bool
	err    error
}

func (p *fakePin) Set(high bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}
	p.level = high
	p.writes = append(p.writes, high)

	return nil
}

func (p *fakePin) Get() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.level
}

func (p *fakePin) Writes() []bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]bool(nil), p.writes...)
}

// fakeSPI echoes each written byte back incremented by one.
type fakeSPI struct {
	sent [][]byte
	err  error
}

func (s *fakeSPI) Tx(w, r []byte) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, append([]byte(nil), w...))
	for i := range w {
		r[i] = w[i] + 1
	}

	return nil
}

type testRig struct {
	spi   *fakeSPI
	sel   *fakePin
	reset *fakePin
	ready *fakePin
	boot  *fakePin
	tr    *Transport
}

func newTestRig(t *testing.T, opts ...Option) *testRig {
	t.Helper()

	rig := &testRig{
		spi:   &fakeSPI{},
		sel:   &fakePin{},
		reset: &fakePin{},
		ready: &fakePin{},
		boot:  &fakePin{},
	}

	defaults := []Option{
		WithPollInterval(100 * time.Microsecond),
		WithResetTiming(time.Millisecond, time.Millisecond),
	}

	tr, err := New(Hardware{
		SPI:    rig.spi,
		Select: rig.sel,
		Reset:  rig.reset,
		Ready:  rig.ready,
		Boot:   rig.boot,
	}, append(defaults, opts...)...)
	if err != nil {
		t.Fatalf("newTestRig: %v", err)
	}
	rig.tr = tr

	return rig
}
