package espsim

import (
	"net/netip"
)

// SetFirmware sets the reported firmware version.
func (s *Sim) SetFirmware(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.firmware = v
}

// SetNetworks sets the access points returned by a scan. When non-empty, only
// these SSIDs can be associated with.
func (s *Sim) SetNetworks(networks ...Network) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.networks = append([]Network(nil), networks...)
}

// AssociateAfter makes association complete on the n-th status poll after a
// connect request, reporting outcome. n <= 0 never completes.
func (s *Sim) AssociateAfter(n int, outcome byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.associateAfter = n
	s.outcome = outcome
}

// ScriptStatus makes subsequent status polls report statuses in order; the
// last one repeats.
func (s *Sim) ScriptStatus(statuses ...byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.script = append([]byte(nil), statuses...)
}

// SetAddress sets the address assigned on association.
func (s *Sim) SetAddress(addr netip.Addr) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.addr = addr
}

// DropLink simulates loss of the association.
func (s *Sim) DropLink() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.script = nil
	s.connecting = false
	s.status = StatusConnectionLost
}

// RejectCommand makes the simulator answer cmd with the error marker.
func (s *Sim) RejectCommand(cmd byte, reject bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rejected[cmd] = reject
}

// SetAck sets the status byte returned by status-only replies to cmd.
func (s *Sim) SetAck(cmd byte, code byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.acks[cmd] = code
}

// FailTransfers makes every SPI transfer fail with err; nil clears the fault.
func (s *Sim) FailTransfers(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.txErr = err
}

// SetReadyStuck holds the ready line deasserted.
func (s *Sim) SetReadyStuck(stuck bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.readyStuck = stuck
}

// StallReply deasserts the ready line once a request has been received, so the
// reply never becomes available.
func (s *Sim) StallReply(stall bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stallReply = stall
}

// SetReadyActiveLow drives the ready line low when asserted.
func (s *Sim) SetReadyActiveLow(activeLow bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.activeLow = activeLow
}

// MutateReply installs fn to rewrite every armed reply; nil removes it.
func (s *Sim) MutateReply(fn func([]byte) []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mutate = fn
}

// SetFiller sets the number of 0xFF bytes clocked out before each reply.
func (s *Sim) SetFiller(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.filler = n
}

// Selects returns the number of chip-select assertions seen.
func (s *Sim) Selects() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.selects
}

// Releases returns the number of chip-select releases seen.
func (s *Sim) Releases() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.releases
}

// Selected reports whether chip-select is currently asserted.
func (s *Sim) Selected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.selected
}

// Resets returns the number of reset pulses seen.
func (s *Sim) Resets() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.resets
}

// Requests returns the requests received so far.
func (s *Sim) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]Request(nil), s.requests...)
}

// Credentials returns the SSID and passphrase last stored.
func (s *Sim) Credentials() (ssid, passphrase string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.ssid, s.passphrase
}

// Pin returns the last value written to a coprocessor GPIO.
func (s *Sim) Pin(pin byte) (byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.pins[pin]

	return v, ok
}
