package modbus

// pendingOp is the typed continuation carried by a queued request. It
// replaces an opaque "user data" slot with one concrete type per
// function-code family, so that decoding a response and dispatching
// the matching Handlers callback is an exhaustive switch rather than a
// runtime type assertion.
type pendingOp interface {
	functionCode() FunctionCode
	dataChecker() DataChecker
	// finish is invoked by the run loop once a response PDU has been
	// matched (opErr == nil, data holds the non-exception data bytes)
	// or the request has failed for any reason, an exception response
	// included (opErr != nil, data is nil). It decodes into the op's access object and invokes the
	// matching Handlers field.
	finish(c *Client, data []byte, opErr error)
}

type readBitsOp struct {
	fc     FunctionCode
	access *SingleBitAccess
}

func (o *readBitsOp) functionCode() FunctionCode { return o.fc }

func (o *readBitsOp) dataChecker() DataChecker { return dataCheckerForReadBits() }

func (o *readBitsOp) finish(c *Client, data []byte, opErr error) {
	if opErr == nil {
		opErr = o.access.UnmarshalReadResponse(data)
	}

	if c.handlers.OnReadSingleBitsFinished != nil {
		c.handlers.OnReadSingleBitsFinished(c, o.access, opErr)
	}

	return
}

type writeSingleCoilOp struct {
	access *SingleBitAccess
}

func (o *writeSingleCoilOp) functionCode() FunctionCode { return FcWriteSingleCoil }

func (o *writeSingleCoilOp) dataChecker() DataChecker { return dataCheckerForWriteSingleBit() }

func (o *writeSingleCoilOp) finish(c *Client, data []byte, opErr error) {
	if c.handlers.OnWriteSingleCoilFinished != nil {
		c.handlers.OnWriteSingleCoilFinished(c, o.access, opErr)
	}

	return
}

type writeMultipleCoilsOp struct {
	access *SingleBitAccess
}

func (o *writeMultipleCoilsOp) functionCode() FunctionCode { return FcWriteMultipleCoils }

func (o *writeMultipleCoilsOp) dataChecker() DataChecker {
	byteCount := (int(o.access.Quantity()) + 7) / 8
	return dataCheckerForWriteMultipleBits(byteCount)
}

func (o *writeMultipleCoilsOp) finish(c *Client, data []byte, opErr error) {
	if c.handlers.OnWriteMultipleCoilsFinished != nil {
		c.handlers.OnWriteMultipleCoilsFinished(c, o.access, opErr)
	}

	return
}

type readRegistersOp struct {
	fc     FunctionCode
	access *SixteenBitAccess
}

func (o *readRegistersOp) functionCode() FunctionCode { return o.fc }

func (o *readRegistersOp) dataChecker() DataChecker { return dataCheckerForReadRegisters() }

func (o *readRegistersOp) finish(c *Client, data []byte, opErr error) {
	if opErr == nil {
		opErr = o.access.UnmarshalReadResponse(data)
	}

	if c.handlers.OnReadRegistersFinished != nil {
		c.handlers.OnReadRegistersFinished(c, o.access, opErr)
	}

	return
}

type writeSingleRegisterOp struct {
	access *SixteenBitAccess
}

func (o *writeSingleRegisterOp) functionCode() FunctionCode { return FcWriteSingleRegister }

func (o *writeSingleRegisterOp) dataChecker() DataChecker { return dataCheckerForWriteSingleRegister() }

func (o *writeSingleRegisterOp) finish(c *Client, data []byte, opErr error) {
	if c.handlers.OnWriteSingleRegisterFinished != nil {
		c.handlers.OnWriteSingleRegisterFinished(c, o.access, opErr)
	}

	return
}

type writeMultipleRegistersOp struct {
	access *SixteenBitAccess
}

func (o *writeMultipleRegistersOp) functionCode() FunctionCode { return FcWriteMultipleRegisters }

func (o *writeMultipleRegistersOp) dataChecker() DataChecker {
	return dataCheckerForWriteMultipleRegisters(2 * int(o.access.Quantity()))
}

func (o *writeMultipleRegistersOp) finish(c *Client, data []byte, opErr error) {
	if c.handlers.OnWriteMultipleRegistersFinished != nil {
		c.handlers.OnWriteMultipleRegistersFinished(c, o.access, opErr)
	}

	return
}

type readWriteRegistersOp struct {
	access *SixteenBitAccess
}

func (o *readWriteRegistersOp) functionCode() FunctionCode { return FcReadWriteMultipleRegisters }

func (o *readWriteRegistersOp) dataChecker() DataChecker {
	return dataCheckerForReadWriteRegisters(2 * int(o.access.writeQuantity))
}

func (o *readWriteRegistersOp) finish(c *Client, data []byte, opErr error) {
	if opErr == nil {
		opErr = o.access.UnmarshalReadResponse(data)
	}

	if c.handlers.OnReadWriteMultipleRegistersFinished != nil {
		c.handlers.OnReadWriteMultipleRegistersFinished(c, o.access, opErr)
	}

	return
}

// Handlers bundles the optional event callbacks a Client invokes from
// its run loop goroutine. Every field is optional; a nil field is
// simply not called. Callbacks run synchronously on the run loop, the
// same way slot bodies run synchronously on the original's single Qt
// thread, so a callback that blocks stalls the whole engine.
type Handlers struct {
	OnOpened          func(c *Client)
	OnClosed          func(c *Client)
	OnError           func(c *Client, err error)
	OnRequestFinished func(c *Client, req *Request, resp *Response)

	OnReadSingleBitsFinished             func(c *Client, access *SingleBitAccess, err error)
	OnWriteSingleCoilFinished            func(c *Client, access *SingleBitAccess, err error)
	OnWriteMultipleCoilsFinished         func(c *Client, access *SingleBitAccess, err error)
	OnReadRegistersFinished              func(c *Client, access *SixteenBitAccess, err error)
	OnWriteSingleRegisterFinished        func(c *Client, access *SixteenBitAccess, err error)
	OnWriteMultipleRegistersFinished     func(c *Client, access *SixteenBitAccess, err error)
	OnReadWriteMultipleRegistersFinished func(c *Client, access *SixteenBitAccess, err error)
}
