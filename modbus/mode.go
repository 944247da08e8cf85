package modbus

// TCPMode documents the wire-framing choice used when a Client or
// Server rides over a tcp:// session instead of serial:// (spec.md §9
// "Open questions / suspicious behavior to preserve without guessing":
// the reference implementation frames the RTU PDU, CRC included,
// directly inside the TCP byte stream rather than using the standard
// Modbus MBAP header). Deliberately preserved rather than "fixed":
// RTUFraming is what original_source/src/modbus/tcp actually does.
type TCPMode int

const (
	// RTUFraming keeps the classical address/function/payload/CRC PDU
	// unchanged over TCP — the only mode this package implements.
	RTUFraming TCPMode = iota
	// MBAPFraming would wrap the PDU in a 7-byte MBAP header and drop
	// the CRC trailer, per the standard Modbus/TCP spec. Reserved: no
	// vendor device in this codebase's original source speaks it.
	MBAPFraming
)
