// Package nina implements the command protocol spoken by NINA-style ESP32
// WiFi coprocessor firmware over the SPI link.
//
// Every Client method performs exactly one request/reply transaction on the
// bus: assert select, wait for the ready line, clock out the encoded request,
// wait for the ready line again, clock in the reply, release select, decode.
// A ready-line timeout at either wait fails the call with ErrPeripheralTimeout
// and the select line is still released.
//
// Requests whose arguments exceed their declared widths fail with a
// frame.EncodeError before anything is written to the bus.
package nina
