package modbus

// crc computes a running CRC-16/Modbus value: polynomial 0xa001
// (reflected 0x8005), initial value 0xffff, no final XOR.
type crc struct {
	crc uint16
}

// init (re)starts the CRC computation at its initial value.
func (c *crc) init() {
	c.crc = 0xffff

	return
}

// add folds len(data) bytes into the running CRC.
func (c *crc) add(data []byte) {
	for _, b := range data {
		c.crc ^= uint16(b)

		for i := 0; i < 8; i++ {
			if c.crc&0x0001 != 0 {
				c.crc = (c.crc >> 1) ^ 0xa001
			} else {
				c.crc = c.crc >> 1
			}
		}
	}

	return
}

// value returns the current CRC as 2 bytes, low byte first, as required
// on the wire by RTU framing.
func (c *crc) value() (out []byte) {
	out = []byte{byte(c.crc & 0xff), byte(c.crc >> 8)}
	return
}

// isEqual reports whether the current CRC matches the given low/high
// byte pair read off the wire.
func (c *crc) isEqual(lo byte, hi byte) (ok bool) {
	ok = byte(c.crc&0xff) == lo && byte(c.crc>>8) == hi
	return
}
