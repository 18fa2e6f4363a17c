package modbus

import (
	"testing"
)

func TestFixedSize(t *testing.T) {
	f := fixedSize(4)

	if result, size := f([]byte{0x01, 0x02}); result != NeedMoreData || size != 4 {
		t.Errorf("expected (NeedMoreData, 4), got (%v, %v)", result, size)
	}

	if result, _ := f([]byte{0x01, 0x02, 0x03, 0x04}); result != SizeOk {
		t.Errorf("expected SizeOk, got %v", result)
	}

	if result, _ := f([]byte{0x01, 0x02, 0x03, 0x04, 0x05}); result != Failed {
		t.Errorf("expected Failed, got %v", result)
	}

	return
}

func TestLengthByteAt(t *testing.T) {
	f := lengthByteAt(0)

	if result, _ := f(nil); result != NeedMoreData {
		t.Errorf("expected NeedMoreData on an empty slice, got %v", result)
	}

	if result, size := f([]byte{0x02}); result != NeedMoreData || size != 3 {
		t.Errorf("expected (NeedMoreData, 3), got (%v, %v)", result, size)
	}

	if result, _ := f([]byte{0x02, 0xaa, 0xbb}); result != SizeOk {
		t.Errorf("expected SizeOk, got %v", result)
	}

	if result, _ := f([]byte{0x02, 0xaa, 0xbb, 0xcc}); result != Failed {
		t.Errorf("expected Failed, got %v", result)
	}

	return
}

func TestDataCheckerForReadBits(t *testing.T) {
	dc := dataCheckerForReadBits()

	if result, size := dc.CalcRequestSize([]byte{0, 0, 0, 0}); result != SizeOk || size != 4 {
		t.Errorf("unexpected request size check: (%v, %v)", result, size)
	}

	if result, _ := dc.CalcResponseSize([]byte{0x01, 0xff}); result != SizeOk {
		t.Errorf("expected SizeOk, got %v", result)
	}

	return
}
