// Package espsim simulates the WiFi coprocessor end of the SPI link.
//
// A Sim implements the SPI and GPIO seams of bus.Hardware. It parses request
// frames clocked in while chip-select is asserted, answers them the way the
// coprocessor firmware does, and exposes hooks to inject faults, stall the
// ready line, corrupt replies and script association outcomes.
package espsim

import (
	"encoding/binary"
	"errors"
	"net/netip"
	"sync"

	"github.com/arloliu/go-espwifi/bus"
	"github.com/arloliu/go-espwifi/frame"
)

// Command codes understood by the simulator.
const (
	CmdStartConnect  byte = 0x10
	CmdSetPassphrase byte = 0x11
	CmdGetConnStatus byte = 0x20
	CmdGetIPAddr     byte = 0x21
	CmdGetMACAddr    byte = 0x22
	CmdGetCurrSSID   byte = 0x23
	CmdGetCurrRSSI   byte = 0x25
	CmdScanNetworks  byte = 0x27
	CmdDisconnect    byte = 0x30
	CmdGetIdxRSSI    byte = 0x32
	CmdGetIdxEnct    byte = 0x33
	CmdGetFwVersion  byte = 0x37
	CmdGetIdxChannel byte = 0x3D
	CmdSetPinMode    byte = 0x50
	CmdDigitalWrite  byte = 0x51
	CmdAnalogWrite   byte = 0x52
)

// Link status codes reported by CmdGetConnStatus.
const (
	StatusIdle           byte = 0
	StatusNoSSIDAvail    byte = 1
	StatusScanCompleted  byte = 2
	StatusConnected      byte = 3
	StatusConnectFailed  byte = 4
	StatusConnectionLost byte = 5
	StatusDisconnected   byte = 6
	StatusAPListening    byte = 7
	StatusAPConnected    byte = 8
	StatusAPFailed       byte = 9
	StatusNoModule       byte = 255
)

// DefaultFirmware is the version string reported by a new Sim.
const DefaultFirmware = "1.7.4"

// Network is an access point visible to the simulated radio.
type Network struct {
	SSID       string
	RSSI       int32
	Encryption byte
	Channel    byte
}

// Request is a request frame received by the simulator.
type Request struct {
	Command byte
	Params  [][]byte
}

// Sim is a simulated coprocessor. It is safe for concurrent use.
type Sim struct {
	mu sync.Mutex

	// bus state
	selected bool
	rx       []byte
	answered bool
	tx       []byte

	// counters
	selects  int
	releases int
	resets   int
	requests []Request

	// fault injection
	txErr      error
	readyStuck bool
	stallReply bool
	activeLow  bool
	rejected   map[byte]bool
	acks       map[byte]byte
	mutate     func([]byte) []byte
	filler     int

	// radio state
	firmware       string
	mac            [6]byte
	networks       []Network
	ssid           string
	passphrase     string
	status         byte
	connecting     bool
	polls          int
	associateAfter int
	outcome        byte
	script         []byte
	addr           netip.Addr
	mask           netip.Addr
	gateway        netip.Addr
	pins           map[byte]byte
}

// New returns a Sim that associates with any network on the first status poll
// and is assigned 192.168.1.42/24.
func New() *Sim {
	return &Sim{
		rejected:       make(map[byte]bool),
		acks:           make(map[byte]byte),
		filler:         2,
		firmware:       DefaultFirmware,
		mac:            [6]byte{0x24, 0x0a, 0xc4, 0x12, 0x34, 0x56},
		status:         StatusIdle,
		associateAfter: 1,
		outcome:        StatusConnected,
		addr:           netip.AddrFrom4([4]byte{192, 168, 1, 42}),
		mask:           netip.AddrFrom4([4]byte{255, 255, 255, 0}),
		gateway:        netip.AddrFrom4([4]byte{192, 168, 1, 1}),
		pins:           make(map[byte]byte),
	}
}

// Hardware returns bus.Hardware wired to the simulator.
func (s *Sim) Hardware() bus.Hardware {
	return bus.Hardware{
		SPI:    spiPort{s},
		Select: selectPin{s},
		Reset:  resetPin{s},
		Ready:  readyPin{s},
		Boot:   bootPin{},
	}
}

type spiPort struct{ s *Sim }

func (p spiPort) Tx(w, r []byte) error { return p.s.transfer(w, r) }

type selectPin struct{ s *Sim }

func (p selectPin) Set(high bool) error {
	p.s.setSelect(!high)
	return nil
}

type resetPin struct{ s *Sim }

func (p resetPin) Set(high bool) error {
	if !high {
		p.s.reset()
	}

	return nil
}

type readyPin struct{ s *Sim }

func (p readyPin) Get() bool { return p.s.readyLevel() }

type bootPin struct{}

func (bootPin) Set(bool) error { return nil }

var errNotSPI = errors.New("espsim: mismatched transfer buffers")

func (s *Sim) transfer(w, r []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.txErr != nil {
		return s.txErr
	}

	if len(w) != len(r) {
		return errNotSPI
	}

	for i := range w {
		r[i] = frame.PadByte
		if !s.selected {
			continue
		}

		if len(s.tx) > 0 {
			r[i] = s.tx[0]
			s.tx = s.tx[1:]
		}

		if !s.answered {
			s.rx = append(s.rx, w[i])
		}
	}

	if s.selected && !s.answered {
		s.tryAnswer()
	}

	return nil
}

func (s *Sim) setSelect(selected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if selected == s.selected {
		return
	}

	s.selected = selected
	if selected {
		s.selects++
	} else {
		s.releases++
	}

	// a new selection starts a new transaction
	s.rx = s.rx[:0]
	s.tx = nil
	s.answered = false
}

func (s *Sim) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.resets++
	s.rx = s.rx[:0]
	s.tx = nil
	s.answered = false
	s.ssid = ""
	s.passphrase = ""
	s.status = StatusIdle
	s.connecting = false
	s.polls = 0
}

func (s *Sim) readyLevel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	asserted := !s.readyStuck && !(s.stallReply && s.answered)

	return asserted != s.activeLow
}

// tryAnswer parses s.rx and arms the reply once a full request has arrived.
func (s *Sim) tryAnswer() {
	if len(s.rx) == 0 {
		return
	}

	if s.rx[0] != frame.StartMarker {
		s.arm([]byte{frame.ErrorMarker})
		return
	}

	req, ok, bad := parseRequest(s.rx)
	if bad {
		s.arm([]byte{frame.ErrorMarker})
		return
	}
	if !ok {
		return
	}

	s.requests = append(s.requests, req)

	if s.rejected[req.Command] {
		s.arm([]byte{frame.ErrorMarker})
		return
	}

	params, known := s.handle(req)
	if !known {
		s.arm([]byte{frame.ErrorMarker})
		return
	}

	s.arm(buildReply(req.Command, params))
}

func (s *Sim) arm(reply []byte) {
	s.answered = true
	if s.mutate != nil {
		reply = s.mutate(append([]byte(nil), reply...))
	}

	out := make([]byte, 0, s.filler+len(reply))
	for i := 0; i < s.filler; i++ {
		out = append(out, frame.PadByte)
	}
	s.tx = append(out, reply...)
}

// parseRequest reports ok when b holds a complete request frame, and bad when
// b can never become one.
func parseRequest(b []byte) (req Request, ok bool, bad bool) {
	if len(b) < 3 {
		return req, false, false
	}

	req.Command = b[1]
	nparam := int(b[2])
	if nparam > frame.MaxParams {
		return req, false, true
	}

	pos := 3
	for i := 0; i < nparam; i++ {
		if pos >= len(b) {
			return req, false, false
		}
		l := int(b[pos])
		pos++
		if pos+l > len(b) {
			return req, false, false
		}
		req.Params = append(req.Params, append([]byte(nil), b[pos:pos+l]...))
		pos += l
	}

	if pos >= len(b) {
		return req, false, false
	}

	if b[pos] != frame.EndMarker {
		return req, false, true
	}

	return req, true, false
}

func buildReply(cmd byte, params [][]byte) []byte {
	out := []byte{frame.StartMarker, cmd | frame.ReplyFlag, byte(len(params))}
	for _, p := range params {
		out = append(out, byte(len(p)))
		out = append(out, p...)
	}
	out = append(out, frame.EndMarker)

	for len(out)%frame.Alignment != 0 {
		out = append(out, frame.PadByte)
	}

	return out
}

func (s *Sim) ack(cmd byte) [][]byte {
	code, ok := s.acks[cmd]
	if !ok {
		code = 1
	}

	return [][]byte{{code}}
}

func (s *Sim) acked(cmd byte) bool {
	code, ok := s.acks[cmd]
	return !ok || code == 1
}

func int32LE(v int32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(v)) //nolint:gosec // two's complement on the wire

	return b
}

func (s *Sim) handle(req Request) ([][]byte, bool) {
	switch req.Command {
	case CmdGetFwVersion:
		return [][]byte{[]byte(s.firmware)}, true

	case CmdSetPassphrase:
		if len(req.Params) != 2 {
			return nil, false
		}
		if s.acked(req.Command) {
			s.ssid = string(req.Params[0])
			s.passphrase = string(req.Params[1])
			s.connecting = false
			s.status = StatusIdle
		}

		return s.ack(req.Command), true

	case CmdStartConnect:
		if len(req.Params) != 1 {
			return nil, false
		}
		if s.ssid == "" {
			return [][]byte{{0}}, true
		}
		if s.acked(req.Command) {
			s.connecting = true
			s.polls = 0
			s.status = StatusIdle
		}

		return s.ack(req.Command), true

	case CmdGetConnStatus:
		return [][]byte{{s.pollStatus()}}, true

	case CmdGetIPAddr:
		ip := netip.IPv4Unspecified()
		if s.status == StatusConnected {
			ip = s.addr
		}
		a, m, g := ip.As4(), s.mask.As4(), s.gateway.As4()

		return [][]byte{a[:], m[:], g[:]}, true

	case CmdGetMACAddr:
		return [][]byte{s.mac[:]}, true

	case CmdGetCurrSSID:
		if s.status != StatusConnected {
			return [][]byte{{}}, true
		}

		return [][]byte{[]byte(s.ssid)}, true

	case CmdGetCurrRSSI:
		if n, ok := s.network(s.ssid); ok && s.status == StatusConnected {
			return [][]byte{int32LE(n.RSSI)}, true
		}

		return [][]byte{int32LE(0)}, true

	case CmdScanNetworks:
		params := make([][]byte, 0, len(s.networks))
		for _, n := range s.networks {
			params = append(params, []byte(n.SSID))
		}

		return params, true

	case CmdGetIdxRSSI, CmdGetIdxEnct, CmdGetIdxChannel:
		if len(req.Params) != 1 || len(req.Params[0]) != 1 {
			return nil, false
		}
		idx := int(req.Params[0][0])
		if idx >= len(s.networks) {
			return nil, false
		}
		n := s.networks[idx]

		switch req.Command {
		case CmdGetIdxRSSI:
			return [][]byte{int32LE(n.RSSI)}, true
		case CmdGetIdxEnct:
			return [][]byte{{n.Encryption}}, true
		default:
			return [][]byte{{n.Channel}}, true
		}

	case CmdDisconnect:
		s.connecting = false
		s.status = StatusDisconnected

		return s.ack(req.Command), true

	case CmdSetPinMode, CmdDigitalWrite, CmdAnalogWrite:
		if len(req.Params) != 2 || len(req.Params[0]) != 1 || len(req.Params[1]) != 1 {
			return nil, false
		}
		if req.Command != CmdSetPinMode {
			s.pins[req.Params[0][0]] = req.Params[1][0]
		}

		return s.ack(req.Command), true
	}

	return nil, false
}

func (s *Sim) pollStatus() byte {
	if len(s.script) > 0 {
		s.status = s.script[0]
		if len(s.script) > 1 {
			s.script = s.script[1:]
		}

		return s.status
	}

	if s.connecting {
		s.polls++
		if s.associateAfter > 0 && s.polls >= s.associateAfter {
			s.connecting = false
			s.status = s.outcome
			if len(s.networks) > 0 {
				if _, ok := s.network(s.ssid); !ok {
					s.status = StatusNoSSIDAvail
				}
			}
		}
	}

	return s.status
}

func (s *Sim) network(ssid string) (Network, bool) {
	for _, n := range s.networks {
		if n.SSID == ssid {
			return n, true
		}
	}

	return Network{}, false
}
