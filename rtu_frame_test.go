package modbus

import (
	"bytes"
	"testing"
)

func TestRtuFrameMarshal(t *testing.T) {
	codec := &rtuCodec{}
	f := codec.newFrame(adu{
		serverAddress: 0x11,
		pdu:           pdu{functionCode: FcReadHoldingRegisters, data: []byte{0x00, 0x00, 0x00, 0x0a}},
	})

	out := f.Marshal()
	if out[0] != 0x11 || out[1] != byte(FcReadHoldingRegisters) {
		t.Fatalf("unexpected header: %x", out[:2])
	}
	if len(out) != f.MarshalSize() {
		t.Errorf("Marshal length %v does not match MarshalSize %v", len(out), f.MarshalSize())
	}

	var c crc
	c.init()
	c.add(out[:len(out)-2])
	if !c.isEqual(out[len(out)-2], out[len(out)-1]) {
		t.Errorf("trailing CRC does not validate")
	}

	return
}

func TestRtuFrameUnmarshalRoundTrip(t *testing.T) {
	codec := &rtuCodec{}
	checker := dataCheckerForReadRegisters()

	f := codec.newFrame(adu{serverAddress: 0x11, pdu: pdu{functionCode: FcReadHoldingRegisters}})

	resp := codec.newFrame(adu{
		serverAddress: 0x11,
		pdu:           pdu{functionCode: FcReadHoldingRegisters, data: []byte{0x02, 0x12, 0x34}},
	})
	wire := resp.Marshal()

	result, out, stray, err := f.Unmarshal(wire, checker)
	if result != SizeOk || stray || err != nil {
		t.Fatalf("expected (SizeOk, false, nil), got (%v, %v, %v)", result, stray, err)
	}
	if out.serverAddress != 0x11 || !bytes.Equal(out.pdu.data, []byte{0x02, 0x12, 0x34}) {
		t.Errorf("unexpected decode: %+v", out)
	}

	return
}

func TestRtuFrameUnmarshalShort(t *testing.T) {
	codec := &rtuCodec{}
	f := codec.newFrame(adu{serverAddress: 0x11, pdu: pdu{functionCode: FcReadHoldingRegisters}})

	result, _, _, _ := f.Unmarshal([]byte{0x11}, dataCheckerForReadRegisters())
	if result != NeedMoreData {
		t.Errorf("expected NeedMoreData, got %v", result)
	}

	return
}

func TestRtuFrameUnmarshalBadCrc(t *testing.T) {
	codec := &rtuCodec{}
	checker := dataCheckerForReadRegisters()

	f := codec.newFrame(adu{serverAddress: 0x11, pdu: pdu{functionCode: FcReadHoldingRegisters}})

	resp := codec.newFrame(adu{
		serverAddress: 0x11,
		pdu:           pdu{functionCode: FcReadHoldingRegisters, data: []byte{0x02, 0x12, 0x34}},
	})
	wire := resp.Marshal()
	wire[len(wire)-1] ^= 0xff

	result, _, _, err := f.Unmarshal(wire, checker)
	if result != Failed || err != ErrStorageParityError {
		t.Errorf("expected (Failed, ErrStorageParityError), got (%v, %v)", result, err)
	}

	return
}

func TestRtuFrameUnmarshalException(t *testing.T) {
	codec := &rtuCodec{}
	checker := dataCheckerForReadRegisters()

	f := codec.newFrame(adu{serverAddress: 0x11, pdu: pdu{functionCode: FcReadHoldingRegisters}})

	resp := codec.newFrame(adu{
		serverAddress: 0x11,
		pdu:           pdu{functionCode: FcReadHoldingRegisters.withException(), data: []byte{byte(exIllegalDataAddress)}},
	})
	wire := resp.Marshal()

	result, out, _, err := f.Unmarshal(wire, checker)
	if result != SizeOk || err != ErrIllegalDataAddress {
		t.Fatalf("expected (SizeOk, ErrIllegalDataAddress), got (%v, %v)", result, err)
	}
	if out.pdu.functionCode != FcReadHoldingRegisters.withException() {
		t.Errorf("expected the exception function code to survive decoding")
	}

	return
}
