package modbus

import (
	"bytes"
)

// asciiCodec is the stateless ASCII frame codec: ':' ∥ hex(ADU ∥ LRC)
// ∥ CR LF.
type asciiCodec struct{}

func (c *asciiCodec) newFrame(a adu) Frame {
	return &asciiFrame{adu: a}
}

type asciiFrame struct {
	adu adu
}

func (f *asciiFrame) body() (out []byte) {
	out = append(out, byte(f.adu.serverAddress))
	out = append(out, byte(f.adu.pdu.functionCode))
	out = append(out, f.adu.pdu.data...)

	return
}

func (f *asciiFrame) MarshalSize() (size int) {
	size = 1 + 2*(len(f.body())+1) + 2
	return
}

func (f *asciiFrame) Marshal() (out []byte) {
	var l lrc
	var body []byte

	body = f.body()
	l.init()
	l.add(body)
	body = append(body, l.value())

	out = append(out, ':')
	out = append(out, []byte(dumpHex(body))...)
	out = append(out, '\r', '\n')

	return
}

// Unmarshal waits for a leading ':' and a terminating "\r\n", then
// hex-decodes everything between them and validates it the same way
// the RTU codec validates a frame, substituting a one-byte trailing
// LRC for the RTU codec's two-byte CRC.
func (f *asciiFrame) Unmarshal(buf []byte, checker DataChecker) (result CheckResult, out adu, stray bool, err error) {
	if len(buf) < 1 {
		result = NeedMoreData
		return
	}

	if buf[0] != ':' {
		result = Failed
		err = ErrProtocolError
		return
	}

	term := bytes.Index(buf[1:], []byte("\r\n"))
	if term < 0 {
		result = NeedMoreData
		return
	}

	raw, hexErr := parseHex(buf[1 : 1+term])
	if hexErr != nil || len(raw) < 3 {
		result = Failed
		err = ErrProtocolError
		return
	}

	fc := FunctionCode(raw[1])
	dataLen := len(raw) - 2 - 1
	if dataLen < 0 {
		result = Failed
		err = ErrProtocolError
		return
	}
	data := raw[2 : 2+dataLen]

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

	var l lrc
	l.init()
	l.add(raw[:2+dataLen])
	if !l.isEqual(raw[2+dataLen]) {
		result = Failed
		err = ErrStorageParityError
		return
	}

	out = adu{
		serverAddress: ServerAddress(raw[0]),
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
