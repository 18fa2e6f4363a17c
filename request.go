package modbus

// Request is a queued unit of work: a target server address, the
// function code and data to send, the DataChecker that tells the
// framing codec how to recognise a complete response, and the typed
// continuation (pendingOp) that decodes that response once it
// arrives. RetryTimes overrides the client's configured default for
// this request alone when non-negative; -1 means "use the client
// default".
type Request struct {
	ServerAddress ServerAddress
	FunctionCode  FunctionCode
	Data          []byte

	checker DataChecker
	op      pendingOp

	// done, when set by a synchronous convenience wrapper, receives the
	// Response exactly once, regardless of whether the request ever ran
	// (a transport failure unblocks it too, just without firing
	// Handlers).
	done chan *Response

	RetryTimes int
}

// Response is what a Request completes with: the echoed PDU (nil on
// error) and the terminal Error, if any.
type Response struct {
	ServerAddress ServerAddress
	FunctionCode  FunctionCode
	Data          []byte

	Error error
}

// newRequest builds a Request wrapping op, deriving the DataChecker
// from it so callers never have to wire the two by hand.
func newRequest(serverAddress ServerAddress, data []byte, op pendingOp) (req *Request) {
	req = &Request{
		ServerAddress: serverAddress,
		FunctionCode:  op.functionCode(),
		Data:          data,
		checker:       op.dataChecker(),
		op:            op,
		RetryTimes:    -1,
	}

	return
}

// NewRequest builds a Request for (*Client).SendRequest, the primitive
// the convenience wrappers above are themselves built on. checker tells
// the framing codec how to recognise a complete response (see
// FixedSizeChecker/LengthByteChecker); a Request built this way carries
// no typed continuation, so its completion is only ever observed
// through Handlers.OnRequestFinished, never one of the
// On<FunctionCode>Finished fields.
func NewRequest(serverAddress ServerAddress, functionCode FunctionCode, data []byte, checker DataChecker) (req *Request) {
	req = &Request{
		ServerAddress: serverAddress,
		FunctionCode:  functionCode,
		Data:          data,
		checker:       checker,
		RetryTimes:    -1,
	}

	return
}

// FixedSizeChecker builds a DataChecker for a response whose data
// portion is always exactly n bytes.
func FixedSizeChecker(n int) (checker DataChecker) {
	checker = DataChecker{CalcRequestSize: fixedSize(n), CalcResponseSize: fixedSize(n)}
	return
}

// LengthByteChecker builds a DataChecker for a response whose data
// portion starts with k bytes of fixed header followed by a one-byte
// count at index k, followed by that many payload bytes.
func LengthByteChecker(k int) (checker DataChecker) {
	checker = DataChecker{CalcRequestSize: lengthByteAt(k), CalcResponseSize: lengthByteAt(k)}
	return
}
