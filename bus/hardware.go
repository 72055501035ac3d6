package bus

// SPI performs full-duplex transfers. len(w) must equal len(r).
//
// periph.io's spi.Conn satisfies this interface directly.
type SPI interface {
	Tx(w, r []byte) error
}

// OutputPin is a GPIO line driven by the host.
type OutputPin interface {
	Set(high bool) error
}

// InputPin is a GPIO line sampled by the host.
type InputPin interface {
	Get() bool
}

// Hardware groups the lines wired between host and coprocessor.
type Hardware struct {
	SPI SPI
	// Select is the chip-select line, active low.
	Select OutputPin
	// Reset is the coprocessor reset line, active low.
	Reset OutputPin
	// Ready is the handshake line asserted by the coprocessor.
	Ready InputPin
	// Boot is the optional boot-mode strap (ESP32 GPIO0). It is held high
	// through reset so the coprocessor boots its firmware instead of the ROM loader.
	Boot OutputPin
}
