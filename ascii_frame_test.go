package modbus

import (
	"bytes"
	"strings"
	"testing"
)

func TestAsciiFrameMarshal(t *testing.T) {
	codec := &asciiCodec{}
	f := codec.newFrame(adu{
		serverAddress: 0x11,
		pdu:           pdu{functionCode: FcReadHoldingRegisters, data: []byte{0x00, 0x00, 0x00, 0x0a}},
	})

	out := string(f.Marshal())
	if !strings.HasPrefix(out, ":") || !strings.HasSuffix(out, "\r\n") {
		t.Fatalf("expected a ':'-prefixed, CRLF-terminated frame, got %q", out)
	}
	if len(out) != f.MarshalSize() {
		t.Errorf("Marshal length %v does not match MarshalSize %v", len(out), f.MarshalSize())
	}

	return
}

func TestAsciiFrameUnmarshalRoundTrip(t *testing.T) {
	codec := &asciiCodec{}
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
	if !bytes.Equal(out.pdu.data, []byte{0x02, 0x12, 0x34}) {
		t.Errorf("unexpected decode: %+v", out)
	}

	return
}

func TestAsciiFrameUnmarshalNeedsTerminator(t *testing.T) {
	codec := &asciiCodec{}
	f := codec.newFrame(adu{serverAddress: 0x11, pdu: pdu{functionCode: FcReadHoldingRegisters}})

	result, _, _, _ := f.Unmarshal([]byte(":1103"), dataCheckerForReadRegisters())
	if result != NeedMoreData {
		t.Errorf("expected NeedMoreData, got %v", result)
	}

	return
}

func TestAsciiFrameUnmarshalMissingColon(t *testing.T) {
	codec := &asciiCodec{}
	f := codec.newFrame(adu{serverAddress: 0x11, pdu: pdu{functionCode: FcReadHoldingRegisters}})

	result, _, _, err := f.Unmarshal([]byte("1103\r\n"), dataCheckerForReadRegisters())
	if result != Failed || err != ErrProtocolError {
		t.Errorf("expected (Failed, ErrProtocolError), got (%v, %v)", result, err)
	}

	return
}

func TestAsciiFrameUnmarshalBadLrc(t *testing.T) {
	codec := &asciiCodec{}
	checker := dataCheckerForReadRegisters()

	f := codec.newFrame(adu{serverAddress: 0x11, pdu: pdu{functionCode: FcReadHoldingRegisters}})

	resp := codec.newFrame(adu{
		serverAddress: 0x11,
		pdu:           pdu{functionCode: FcReadHoldingRegisters, data: []byte{0x02, 0x12, 0x34}},
	})
	wire := resp.Marshal()
	// corrupt the LRC byte (the two hex characters right before "\r\n")
	// with a value guaranteed to remain valid hex but wrong.
	lrcHi := wire[len(wire)-4]
	if lrcHi == '0' {
		wire[len(wire)-4] = '1'
	} else {
		wire[len(wire)-4] = '0'
	}

	result, _, _, err := f.Unmarshal(wire, checker)
	if result != Failed || err != ErrStorageParityError {
		t.Errorf("expected (Failed, ErrStorageParityError), got (%v, %v)", result, err)
	}

	return
}
