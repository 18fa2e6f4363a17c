package modbus

import (
	"fmt"
)

// FunctionCode identifies the Modbus operation carried by a PDU.
type FunctionCode uint8

// ServerAddress identifies the target of a request (or the source of a
// response). 0 is the broadcast address; 1-247 is the legal unicast
// range; 248-255 are reserved but accepted.
type ServerAddress uint8

// Address is a 16-bit Modbus register/coil address.
type Address uint16

// Quantity is the number of consecutive coils/registers covered by a
// request.
type Quantity uint16

// pdu is the wire-independent part of an ADU: function code + data.
type pdu struct {
	functionCode	FunctionCode
	data		[]byte
}

const (
	// BroadcastAddress is the special server address that receives a
	// request but never sends a response back.
	BroadcastAddress ServerAddress = 0

	// function codes
	FcReadCoils                  FunctionCode = 0x01
	FcReadDiscreteInputs         FunctionCode = 0x02
	FcReadHoldingRegisters       FunctionCode = 0x03
	FcReadInputRegisters         FunctionCode = 0x04
	FcWriteSingleCoil            FunctionCode = 0x05
	FcWriteSingleRegister        FunctionCode = 0x06
	FcWriteMultipleCoils         FunctionCode = 0x0f
	FcWriteMultipleRegisters     FunctionCode = 0x10
	FcReadWriteMultipleRegisters FunctionCode = 0x17

	// exceptionBit is set on the function code of an exception response.
	exceptionBit FunctionCode = 0x80

	// exception codes (single data byte of an exception PDU)
	exIllegalFunction              uint8 = 0x01
	exIllegalDataAddress           uint8 = 0x02
	exIllegalDataValue             uint8 = 0x03
	exSlaveDeviceFailure           uint8 = 0x04
	exAcknowledge                  uint8 = 0x05
	exSlaveDeviceBusy              uint8 = 0x06
	exNegativeAcknowledge          uint8 = 0x07
	exMemoryParityError            uint8 = 0x08
	exGatewayPathUnavailable       uint8 = 0x0a
	exGatewayTargetFailedToRespond uint8 = 0x0b

	// errors
	ErrConfigurationError            Error = "configuration error"
	ErrTimeout                       Error = "request timed out"
	ErrStorageParityError            Error = "storage parity error"
	ErrIllegalFunction               Error = "illegal function"
	ErrIllegalDataAddress            Error = "illegal data address"
	ErrIllegalDataValue              Error = "illegal data value"
	ErrSlaveDeviceFailure            Error = "slave device failure"
	ErrAcknowledge                   Error = "request acknowledged"
	ErrSlaveDeviceBusy               Error = "slave device busy"
	ErrNegativeAcknowledge           Error = "negative acknowledge"
	ErrMemoryParityError             Error = "memory parity error"
	ErrGatewayPathUnavailable        Error = "gateway path unavailable"
	ErrGatewayTargetFailedToRespond  Error = "gateway target device failed to respond"
	ErrShortFrame                    Error = "short frame"
	ErrProtocolError                 Error = "protocol error"
	ErrBadUnitId                     Error = "bad unit id"
	ErrBadTransactionId              Error = "bad transaction id"
	ErrUnknownProtocolId             Error = "unknown protocol identifier"
	ErrUnexpectedParameters          Error = "unexpected parameters"
	ErrClientClosed                  Error = "client is closed"
)

// Error is a Modbus-level or session-level error, represented as a plain
// string so values can be compared with == the way the rest of this
// package (and its tests) do.
type Error string

// Error implements the error interface.
func (me Error) Error() (s string) {
	s = string(me)
	return
}

// isException reports whether fc carries the exception bit (0x80).
func (fc FunctionCode) isException() bool {
	return fc&exceptionBit != 0
}

// withException returns fc with the exception bit set.
func (fc FunctionCode) withException() FunctionCode {
	return fc | exceptionBit
}

// withoutException returns fc with the exception bit cleared.
func (fc FunctionCode) withoutException() FunctionCode {
	return fc &^ exceptionBit
}

// mapExceptionCodeToError turns a modbus exception code into a higher level Error object.
func mapExceptionCodeToError(exceptionCode uint8) (err error) {
	switch exceptionCode {
	case exIllegalFunction:             err = ErrIllegalFunction
	case exIllegalDataAddress:          err = ErrIllegalDataAddress
	case exIllegalDataValue:            err = ErrIllegalDataValue
	case exSlaveDeviceFailure:          err = ErrSlaveDeviceFailure
	case exAcknowledge:                 err = ErrAcknowledge
	case exSlaveDeviceBusy:             err = ErrSlaveDeviceBusy
	case exNegativeAcknowledge:         err = ErrNegativeAcknowledge
	case exMemoryParityError:           err = ErrMemoryParityError
	case exGatewayPathUnavailable:      err = ErrGatewayPathUnavailable
	case exGatewayTargetFailedToRespond: err = ErrGatewayTargetFailedToRespond
	default:
		err = fmt.Errorf("unknown exception code (0x%02x)", exceptionCode)
	}

	return
}

// mapErrorToExceptionCode turns an Error object into a modbus exception code.
// Used by tests that need to synthesize exception PDUs from a given error.
func mapErrorToExceptionCode(err error) (exceptionCode uint8) {
	switch err {
	case ErrIllegalFunction:             exceptionCode = exIllegalFunction
	case ErrIllegalDataAddress:          exceptionCode = exIllegalDataAddress
	case ErrIllegalDataValue:            exceptionCode = exIllegalDataValue
	case ErrSlaveDeviceFailure:          exceptionCode = exSlaveDeviceFailure
	case ErrAcknowledge:                 exceptionCode = exAcknowledge
	case ErrSlaveDeviceBusy:             exceptionCode = exSlaveDeviceBusy
	case ErrNegativeAcknowledge:         exceptionCode = exNegativeAcknowledge
	case ErrMemoryParityError:           exceptionCode = exMemoryParityError
	case ErrGatewayPathUnavailable:      exceptionCode = exGatewayPathUnavailable
	case ErrGatewayTargetFailedToRespond: exceptionCode = exGatewayTargetFailedToRespond
	default:
		exceptionCode = exSlaveDeviceFailure
	}

	return
}
