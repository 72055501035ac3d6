// Package frame implements the wire framing used on the SPI link between the
// host and the WiFi coprocessor.
//
// A frame on the wire is:
//
//	[START 0xE0][CMD][NPARAM]([LEN][DATA...])*[END 0xEE][PAD 0xFF...]
//
// Requests carry the command code with the reply flag (bit 7) cleared and are
// padded with 0xFF to a 4-byte boundary. Replies echo the command code with the
// reply flag set, or consist of the single error marker 0xEF when the
// coprocessor rejects a request.
//
// Encoding rejects malformed requests locally, since the coprocessor firmware
// silently drops them. Decoding validates markers and declared lengths before
// any payload is interpreted; corruption and truncation surface as
// [DecodeError] values and never as panics.
package frame
