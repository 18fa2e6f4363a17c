package modbus

import (
	"testing"
)

func TestCrc(t *testing.T) {
	var c crc

	// well-known vector: 01 03 00 00 00 0a -> CRC 0xcdc5 (lo, hi: 0xc5, 0xcd)
	c.init()
	c.add([]byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x0a})

	if !c.isEqual(0xc5, 0xcd) {
		v := c.value()
		t.Errorf("expected {0xc5, 0xcd}, got {0x%02x, 0x%02x}", v[0], v[1])
	}

	return
}

func TestCrcEmpty(t *testing.T) {
	var c crc

	c.init()
	c.add(nil)

	if !c.isEqual(0xff, 0xff) {
		t.Errorf("expected the initial value to survive an empty add")
	}

	return
}
