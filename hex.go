package modbus

import (
	"encoding/hex"
)

// dumpHex renders data as lowercase hex pairs with no separator, as
// required by the ASCII framing codec (the wire format is case
// insensitive on decode, but an emitter must pick one case).
func dumpHex(data []byte) (out string) {
	out = hex.EncodeToString(data)
	return
}

// parseHex decodes a hex string into bytes. Both cases are accepted
// for hex digits, since the wire format is case insensitive on decode.
// An odd-length input or a non-hex digit is an error.
func parseHex(in []byte) (out []byte, err error) {
	out = make([]byte, hex.DecodedLen(len(in)))
	_, err = hex.Decode(out, in)
	if err != nil {
		out = nil
	}

	return
}
