package modbus

// TransferMode selects which framing codec a Client uses on the wire.
type TransferMode uint

const (
	Rtu TransferMode = iota
	Ascii
	Mbap
)

func (m TransferMode) String() (s string) {
	switch m {
	case Rtu:
		s = "RTU"
	case Ascii:
		s = "ASCII"
	case Mbap:
		s = "MBAP"
	default:
		s = "unknown"
	}

	return
}

// Frame marshals one request ADU to the wire and incrementally
// unmarshals the matching response ADU from it. A Frame is created
// fresh for each outstanding request by a frameCodec, so it may carry
// per-request state (an MBAP transaction id, for instance) alongside
// the pure wire-format logic.
type Frame interface {
	Marshal() []byte
	MarshalSize() int
	// Unmarshal consumes buf (everything read so far for this
	// request) and reports NeedMoreData, SizeOk (with out populated),
	// or Failed (with err set to the reason, typically
	// ErrStorageParityError for a checksum mismatch). stray reports a
	// fully-framed message that must nonetheless be discarded without
	// completing the request (MBAP transaction id mismatch); the
	// caller's response is to clear its receive buffer and keep
	// waiting, exactly as it does for a mismatched server address.
	Unmarshal(buf []byte, checker DataChecker) (result CheckResult, out adu, stray bool, err error)
}

// frameCodec builds a Frame for a given outgoing request ADU. Holding
// the codec as a value (one implementation per TransferMode) is the
// realization of the "tagged variant over a small capability set"
// option from the design notes, in place of an inheritance hierarchy.
type frameCodec interface {
	newFrame(a adu) Frame
}

// newFrameCodec returns the codec for mode. Callers outside this
// package never construct one directly; Client.SetTransferMode is the
// entry point.
func newFrameCodec(mode TransferMode) (codec frameCodec) {
	switch mode {
	case Ascii:
		codec = &asciiCodec{}
	case Mbap:
		codec = &mbapCodec{}
	default:
		codec = &rtuCodec{}
	}

	return
}
