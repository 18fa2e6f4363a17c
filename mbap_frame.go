package modbus

import (
	"encoding/binary"
)

// mbapCodec tracks the monotonically increasing transaction id used
// by the MBAP header across every request sent by one Client.
type mbapCodec struct {
	nextTransactionID uint16
}

func (c *mbapCodec) newFrame(a adu) Frame {
	id := c.nextTransactionID
	c.nextTransactionID++

	return &mbapFrame{adu: a, transactionID: id}
}

type mbapFrame struct {
	adu           adu
	transactionID uint16
}

func (f *mbapFrame) MarshalSize() (size int) {
	size = 6 + 1 + 1 + len(f.adu.pdu.data)
	return
}

func (f *mbapFrame) Marshal() (out []byte) {
	length := 2 + len(f.adu.pdu.data)

	out = make([]byte, 0, 6+1+1+len(f.adu.pdu.data))
	out = append(out, uint16ToBytes(BigEndian, f.transactionID)...)
	out = append(out, uint16ToBytes(BigEndian, 0)...)
	out = append(out, uint16ToBytes(BigEndian, uint16(length))...)
	out = append(out, byte(f.adu.serverAddress))
	out = append(out, byte(f.adu.pdu.functionCode))
	out = append(out, f.adu.pdu.data...)

	return
}

// Unmarshal relies on the self-describing length field rather than the
// DataChecker to know how many bytes to wait for; the checker is still
// consulted as a consistency check on the decoded payload. A
// transaction id mismatch is reported as stray: the frame is complete
// and well-formed, but belongs to some other, already-abandoned
// exchange.
func (f *mbapFrame) Unmarshal(buf []byte, checker DataChecker) (result CheckResult, out adu, stray bool, err error) {
	if len(buf) < 7 {
		result = NeedMoreData
		return
	}

	transactionID := binary.BigEndian.Uint16(buf[0:2])
	protocolID := binary.BigEndian.Uint16(buf[2:4])
	length := binary.BigEndian.Uint16(buf[4:6])

	if length < 2 {
		result = Failed
		err = ErrProtocolError
		return
	}

	total := 6 + int(length)
	if len(buf) < total {
		result = NeedMoreData
		return
	}

	if protocolID != 0 {
		result = Failed
		err = ErrUnknownProtocolId
		return
	}

	unitID := buf[6]
	fc := FunctionCode(buf[7])
	data := buf[8:total]

	var sizeFunc SizeFunc
	if fc.isException() {
		sizeFunc = exceptionDataChecker
	} else {
		sizeFunc = checker.CalcResponseSize
	}

	if sizeResult, _ := sizeFunc(data); sizeResult != SizeOk {
		result = Failed
		err = ErrProtocolError
		return
	}

	if transactionID != f.transactionID {
		result = SizeOk
		stray = true
		return
	}

	out = adu{
		serverAddress: ServerAddress(unitID),
		pdu: pdu{
			functionCode: fc,
			data:         append([]byte(nil), data...),
		},
	}
	result = SizeOk

	if fc.isException() {
		err = mapExceptionCodeToError(data[0])
	}

	return
}
