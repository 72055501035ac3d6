package link

import (
	"net/netip"
	"sync"
	"testing"

	"github.com/arloliu/go-espwifi/nina"
	"github.com/stretchr/testify/mock"
)

type mockProtocol struct {
	mock.Mock
}

var _ Protocol = (*mockProtocol)(nil)

func (m *mockProtocol) SetNetworkCredentials(ssid, passphrase string) error {
	args := m.Called(ssid, passphrase)
	return args.Error(0)
}

func (m *mockProtocol) StartConnect(mode nina.SecurityMode) error {
	args := m.Called(mode)
	return args.Error(0)
}

func (m *mockProtocol) PollLinkStatus() (nina.ConnStatus, error) {
	args := m.Called()
	return args.Get(0).(nina.ConnStatus), args.Error(1)
}

func (m *mockProtocol) GetAssignedAddress() (netip.Addr, error) {
	args := m.Called()
	return args.Get(0).(netip.Addr), args.Error(1)
}

// expectBegin registers a successful credentials + connect sequence.
func (m *mockProtocol) expectBegin(ssid, passphrase string, mode nina.SecurityMode) {
	m.On("SetNetworkCredentials", ssid, passphrase).Return(nil).Once()
	m.On("StartConnect", mode).Return(nil).Once()
}

type transition struct {
	prev, next State
}

// recorder collects state transitions reported to a handler.
type recorder struct {
	mu    sync.Mutex
	trans []transition
}

func (r *recorder) handle(prev, next State) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.trans = append(r.trans, transition{prev, next})
}

func (r *recorder) transitions() []transition {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]transition(nil), r.trans...)
}

func newTestMachine(t *testing.T, proto Protocol, opts ...Option) (*StateMachine, *recorder) {
	t.Helper()

	rec := &recorder{}
	sm, err := NewStateMachine(proto, append([]Option{WithHandler(rec.handle)}, opts...)...)
	if err != nil {
		t.Fatalf("newTestMachine: %v", err)
	}

	return sm, rec
}
