// Package protocol defines the wire-level constants and the connection
// handshake for the hubbub binary protocol.
//
// A connection opens with a fixed 12-byte preamble answered by a fixed
// 8-byte acknowledgement. After a successful handshake the connection
// carries framed transactions; the frame layer lives in the frame
// subpackage and the parameter block codec in the param subpackage.
package protocol
