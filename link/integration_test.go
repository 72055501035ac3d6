package link

import (
	"net/netip"
	"testing"
	"time"

	"github.com/arloliu/go-espwifi/bus"
	"github.com/arloliu/go-espwifi/internal/espsim"
	"github.com/arloliu/go-espwifi/nina"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSimMachine(t *testing.T, opts ...Option) (*StateMachine, *espsim.Sim) {
	t.Helper()

	sim := espsim.New()
	tr, err := bus.New(sim.Hardware(), bus.WithPollInterval(0))
	require.NoError(t, err)

	client, err := nina.NewClient(tr, nina.WithReadyTimeout(5*time.Millisecond))
	require.NoError(t, err)

	sm, err := NewStateMachine(client, opts...)
	require.NoError(t, err)

	return sm, sim
}

func TestStateMachine_Simulated(t *testing.T) {
	sm, sim := newSimMachine(t)
	sim.AssociateAfter(3, espsim.StatusConnected)
	sim.SetAddress(netip.MustParseAddr("192.168.1.42"))

	require.NoError(t, sm.Begin("home", "secret"))

	states := []State{sm.Tick(), sm.Tick(), sm.Tick()}
	assert.Equal(t, []State{Connecting, Connecting, Connected}, states)

	addr, err := sm.AssignedAddress()
	require.NoError(t, err)
	assert.Equal(t, netip.MustParseAddr("192.168.1.42"), addr)

	ssid, pass := sim.Credentials()
	assert.Equal(t, "home", ssid)
	assert.Equal(t, "secret", pass)
	assert.False(t, sim.Selected())
	assert.Equal(t, sim.Selects(), sim.Releases())
}

func TestStateMachine_SimulatedTimeout(t *testing.T) {
	sm, sim := newSimMachine(t, WithConnectTimeoutTicks(20))
	sim.AssociateAfter(0, espsim.StatusConnected)

	require.NoError(t, sm.Begin("home", "secret"))
	for i := 1; i < 20; i++ {
		require.Equal(t, Connecting, sm.Tick())
	}
	assert.Equal(t, ConnectFailed, sm.Tick())

	reason, _ := sm.Failure()
	assert.Equal(t, ReasonTimeout, reason)
}

func TestStateMachine_SimulatedLinkDrop(t *testing.T) {
	sm, sim := newSimMachine(t)

	require.NoError(t, sm.Begin("home", "secret"))
	require.Equal(t, Connected, sm.Tick())

	sim.DropLink()
	require.Equal(t, Disconnected, sm.Tick())
	require.Equal(t, Connecting, sm.Tick())
	assert.Equal(t, Connected, sm.Tick())
}

func TestStateMachine_SimulatedAccessPointStatus(t *testing.T) {
	sm, sim := newSimMachine(t)

	require.NoError(t, sm.Begin("home", "secret"))
	require.Equal(t, Connected, sm.Tick())

	sim.ScriptStatus(espsim.StatusAPListening)
	assert.Equal(t, Disconnected, sm.Tick())
	require.NoError(t, sm.LastPollError())
}

func TestStateMachine_SimulatedPeripheralTimeout(t *testing.T) {
	sm, sim := newSimMachine(t)

	require.NoError(t, sm.Begin("home", "secret"))
	sim.SetReadyStuck(true)

	assert.Equal(t, ConnectFailed, sm.Tick())
	reason, err := sm.Failure()
	assert.Equal(t, ReasonCommandError, reason)
	require.ErrorIs(t, err, nina.ErrPeripheralTimeout)
	assert.False(t, sim.Selected())
}
