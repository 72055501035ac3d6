package nina

import (
	"errors"
	"sync/atomic"
	"time"
)

// Stats is a snapshot of per-command counters.
type Stats struct {
	Calls       uint64
	Failures    uint64
	Timeouts    uint64
	LastLatency time.Duration
}

type commandStats struct {
	calls       atomic.Uint64
	failures    atomic.Uint64
	timeouts    atomic.Uint64
	lastLatency atomic.Int64
}

func (s *commandStats) snapshot() Stats {
	return Stats{
		Calls:       s.calls.Load(),
		Failures:    s.failures.Load(),
		Timeouts:    s.timeouts.Load(),
		LastLatency: time.Duration(s.lastLatency.Load()),
	}
}

func (c *Client) record(cmd Command, latency time.Duration, err error) {
	st, _ := c.stats.LoadOrCompute(cmd, func() *commandStats { return &commandStats{} })

	st.calls.Add(1)
	st.lastLatency.Store(int64(latency))

	if err != nil {
		st.failures.Add(1)
		if errors.Is(err, ErrPeripheralTimeout) {
			st.timeouts.Add(1)
		}
	}
}

// Stats returns a snapshot of the counters of every command issued so far.
// It is safe to call concurrently with other Client methods.
func (c *Client) Stats() map[Command]Stats {
	out := make(map[Command]Stats, c.stats.Size())
	c.stats.Range(func(cmd Command, st *commandStats) bool {
		out[cmd] = st.snapshot()
		return true
	})

	return out
}
