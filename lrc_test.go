package modbus

import (
	"testing"
)

func TestLrc(t *testing.T) {
	var l lrc

	// 01 03 00 00 00 0a sums to 0x0e; two's complement is 0xf2.
	l.init()
	l.add([]byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x0a})

	if l.value() != 0xf2 {
		t.Errorf("expected 0xf2, got 0x%02x", l.value())
	}

	if !l.isEqual(0xf2) {
		t.Errorf("expected isEqual(0xf2) to hold")
	}

	return
}

func TestLrcWraps(t *testing.T) {
	var l lrc

	l.init()
	l.add([]byte{0xff, 0xff})

	if l.value() != 0x02 {
		t.Errorf("expected 0x02, got 0x%02x", l.value())
	}

	return
}
