// Package bus implements the host side of the physical link to the WiFi
// coprocessor: a 4-wire SPI bus (clock, host-out, host-in, chip-select) plus a
// reset line and a ready/handshake line driven by the coprocessor.
//
// The package talks to hardware only through the small [SPI], [OutputPin] and
// [InputPin] interfaces, so the same [Transport] runs on periph.io hosts (see
// [OpenPeriph]), on microcontroller HALs, or against a simulator in tests.
//
// # Bus discipline
//
// Chip-select is driven by the transport, not by the SPI peripheral, so it can
// stay asserted across the several exchanges of one request/reply transaction.
// [Transport.Transaction] brackets a transaction and releases the select line
// exactly once on every exit path, including errors and panics.
//
// # Timing
//
// [Transport.WaitReady] is a bounded poll of the ready line; a timeout is an
// expected outcome and is reported as false rather than as an error. No
// operation in this package blocks without a bound.
package bus
