package modbus

import (
	"time"

	"go.bug.st/serial"
)

// SerialConfig describes the physical link for RTU or ASCII transfer
// mode. StopBits/Parity follow go.bug.st/serial's own enums so callers
// configuring a client can use that package's constants directly.
type SerialConfig struct {
	Device   string
	Speed    int
	DataBits int
	Parity   serial.Parity
	StopBits serial.StopBits
}

// newSerialTransport builds the Transport the Client drives for a
// serial-backed link, wrapping the go.bug.st/serial port in the same
// deadline-masking Read idiom used throughout this package's blocking
// transports, adapted to feed a pollingTransport's background reader
// instead of io.ReadFull.
func newSerialTransport(conf SerialConfig) (t Transport) {
	t = newPollingTransport(&serialPortWrapper{conf: conf})
	return
}

// serialPortWrapper wraps a serial.Port to satisfy rawIO, adding
// Read() deadline/timeout support the go.bug.st/serial API does not
// offer directly.
type serialPortWrapper struct {
	conf     SerialConfig
	port     serial.Port
	deadline time.Time
}

func (spw *serialPortWrapper) Open() (err error) {
	spw.port, err = serial.Open(spw.conf.Device, &serial.Mode{
		BaudRate: spw.conf.Speed,
		DataBits: spw.conf.DataBits,
		Parity:   spw.conf.Parity,
		StopBits: spw.conf.StopBits,
	})

	return
}

func (spw *serialPortWrapper) Close() (err error) {
	err = spw.port.Close()
	return
}

// Read returns promptly with no data if the port's receive buffer is
// empty by the configured deadline: go.bug.st/serial itself reports a
// read timeout as (0, nil) rather than an error, so pollingTransport.pump
// already loops a quiet line safely with no masking needed here; any
// error returned is a genuine link failure and is passed through.
func (spw *serialPortWrapper) Read(rxbuf []byte) (cnt int, err error) {
	spw.port.SetReadTimeout(time.Until(spw.deadline))

	cnt, err = spw.port.Read(rxbuf)

	return
}

func (spw *serialPortWrapper) Write(txbuf []byte) (cnt int, err error) {
	cnt, err = spw.port.Write(txbuf)
	return
}

func (spw *serialPortWrapper) SetDeadline(deadline time.Time) (err error) {
	spw.deadline = deadline
	return
}
