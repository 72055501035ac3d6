package nina

import (
	"testing"
	"time"

	"github.com/arloliu/go-espwifi/bus"
	"github.com/arloliu/go-espwifi/internal/espsim"
)

// newTestClient creates a Client wired to a fresh simulator with short timeouts.
func newTestClient(t *testing.T, opts ...Option) (*Client, *espsim.Sim) {
	t.Helper()

	sim := espsim.New()

	tr, err := bus.New(sim.Hardware(),
		bus.WithPollInterval(50*time.Microsecond),
		bus.WithResetTiming(time.Millisecond, time.Millisecond),
	)
	if err != nil {
		t.Fatalf("newTestClient: %v", err)
	}

	defaults := []Option{WithReadyTimeout(5 * time.Millisecond)}

	c, err := NewClient(tr, append(defaults, opts...)...)
	if err != nil {
		t.Fatalf("newTestClient: %v", err)
	}

	return c, sim
}

// assertReleasedOnce checks the simulator saw exactly one select/release pair.
func assertReleasedOnce(t *testing.T, sim *espsim.Sim, c *Client) {
	t.Helper()

	if sim.Selects() != 1 || sim.Releases() != 1 || sim.Selected() {
		t.Errorf("select discipline: selects=%d releases=%d selected=%v",
			sim.Selects(), sim.Releases(), sim.Selected())
	}

	if c.Transport().Selected() {
		t.Error("transport still selected")
	}
}
