package modbus

import (
	"bytes"
	"testing"
)

func TestSingleBitAccessMarshalReadRequest(t *testing.T) {
	a := NewSingleBitAccess(0x0010, 8)

	out := a.MarshalReadRequest()
	if !bytes.Equal(out, []byte{0x00, 0x10, 0x00, 0x08}) {
		t.Errorf("unexpected request bytes: %x", out)
	}

	return
}

func TestSingleBitAccessMarshalMultipleWrite(t *testing.T) {
	a := NewSingleBitAccess(0x0000, 10)
	a.SetValueAt(0, On)
	a.SetValueAt(1, Off)
	a.SetValueAt(9, On)

	req := a.MarshalMultipleWriteRequest()
	// start(2) + quantity(2) + byteCount(1) + ceil(10/8)=2 packed bytes
	if len(req) != 7 {
		t.Fatalf("expected a 7-byte request, got %v (%x)", len(req), req)
	}
	if req[4] != 2 {
		t.Errorf("expected byte count 2, got %v", req[4])
	}
	if req[5]&0x01 == 0 || req[5]&0x02 != 0 {
		t.Errorf("unexpected packed byte 0: %08b", req[5])
	}
	if req[6]&0x02 == 0 {
		t.Errorf("expected bit 9 set in packed byte 1: %08b", req[6])
	}

	return
}

func TestSingleBitAccessUnmarshalReadResponse(t *testing.T) {
	a := NewSingleBitAccess(0x0000, 3)

	if err := a.UnmarshalReadResponse([]byte{0x01, 0x05}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if a.Value(0) != On || a.Value(1) != Off || a.Value(2) != On {
		t.Errorf("unexpected values: %v", a.Values())
	}

	return
}

func TestSingleBitAccessUnmarshalReadResponseShort(t *testing.T) {
	a := NewSingleBitAccess(0x0000, 3)

	if err := a.UnmarshalReadResponse(nil); err != ErrProtocolError {
		t.Errorf("expected ErrProtocolError, got %v", err)
	}

	return
}

func TestSixteenBitAccessMarshalSingleWrite(t *testing.T) {
	a := NewSixteenBitAccess(0x0020, 1)
	a.SetValue(0x1234)

	out := a.MarshalSingleWriteRequest()
	if !bytes.Equal(out, []byte{0x00, 0x20, 0x12, 0x34}) {
		t.Errorf("unexpected request bytes: %x", out)
	}

	return
}

func TestSixteenBitAccessMarshalSingleWriteLittleEndian(t *testing.T) {
	a := NewSixteenBitAccess(0x0020, 1)
	a.SetEndianness(LittleEndian)
	a.SetValue(0x1234)

	out := a.MarshalSingleWriteRequest()
	if !bytes.Equal(out, []byte{0x00, 0x20, 0x34, 0x12}) {
		t.Errorf("expected a byte-swapped value, got %x", out)
	}

	return
}

func TestSixteenBitAccessUnmarshalReadResponse(t *testing.T) {
	a := NewSixteenBitAccess(0x0000, 2)

	if err := a.UnmarshalReadResponse([]byte{0x04, 0x00, 0x0a, 0x00, 0x0b}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	v0, ok0 := a.Value(0)
	v1, ok1 := a.Value(1)
	if !ok0 || !ok1 || v0.ToUint16() != 10 || v1.ToUint16() != 11 {
		t.Errorf("unexpected values: %v %v", v0, v1)
	}

	return
}

func TestSixteenBitAccessReadWriteRequest(t *testing.T) {
	a := NewSixteenBitAccess(0x0000, 2)
	a.SetWriteRange(0x0010, 1)
	a.SetValueAt(0x0010, 0xabcd)

	out := a.MarshalReadWriteRequest()
	expected := []byte{0x00, 0x00, 0x00, 0x02, 0x00, 0x10, 0x00, 0x01, 0x02, 0xab, 0xcd}
	if !bytes.Equal(out, expected) {
		t.Errorf("expected %x, got %x", expected, out)
	}

	return
}
