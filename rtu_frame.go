package modbus

// rtuCodec is the stateless RTU frame codec: server_address(1) ∥ PDU ∥
// CRC_LOW ∥ CRC_HIGH, with inter-frame silence carrying no information
// of its own (the session engine enforces that separately).
type rtuCodec struct{}

func (c *rtuCodec) newFrame(a adu) Frame {
	return &rtuFrame{adu: a}
}

type rtuFrame struct {
	adu adu
}

func (f *rtuFrame) MarshalSize() (size int) {
	size = 1 + 1 + len(f.adu.pdu.data) + 2
	return
}

func (f *rtuFrame) Marshal() (out []byte) {
	var c crc

	out = append(out, byte(f.adu.serverAddress))
	out = append(out, byte(f.adu.pdu.functionCode))
	out = append(out, f.adu.pdu.data...)

	c.init()
	c.add(out)
	out = append(out, c.value()...)

	return
}

// Unmarshal reads a header (server address, function code), consults
// checker (or, for an exception response, a fixed one-data-byte
// checker) for the data portion length, then validates the trailing
// CRC. An incomplete frame returns NeedMoreData. A structurally broken
// frame (a data portion the checker rejects, or a CRC mismatch)
// returns Failed with out left unpopulated. A well-formed exception
// response returns SizeOk with out populated and err set to the
// mapped Error, so callers can still apply the server-address check
// before treating it as a failure.
func (f *rtuFrame) Unmarshal(buf []byte, checker DataChecker) (result CheckResult, out adu, stray bool, err error) {
	if len(buf) < 2 {
		result = NeedMoreData
		return
	}

	fc := FunctionCode(buf[1])

	var sizeFunc SizeFunc
	if fc.isException() {
		sizeFunc = exceptionDataChecker
	} else {
		sizeFunc = checker.CalcResponseSize
	}

	dataResult, dataLen := sizeFunc(buf[2:])
	if dataResult == Failed && len(buf)-2 > dataLen {
		// the bytes past the data portion are the trailing CRC: judge
		// the data portion on its own
		dataResult, dataLen = sizeFunc(buf[2 : 2+dataLen])
	}
	switch dataResult {
	case NeedMoreData:
		result = NeedMoreData
		return
	case Failed:
		result = Failed
		err = ErrProtocolError
		return
	}

	total := 2 + dataLen + 2
	if len(buf) < total {
		result = NeedMoreData
		return
	}

	var c crc
	c.init()
	c.add(buf[:2+dataLen])
	if !c.isEqual(buf[2+dataLen], buf[2+dataLen+1]) {
		result = Failed
		err = ErrStorageParityError
		return
	}

	data := make([]byte, dataLen)
	copy(data, buf[2:2+dataLen])

	out = adu{
		serverAddress: ServerAddress(buf[0]),
		pdu: pdu{
			functionCode: fc,
			data:         data,
		},
	}
	result = SizeOk

	if fc.isException() {
		err = mapExceptionCodeToError(data[0])
	}

	return
}
