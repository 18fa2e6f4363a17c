package modbus

import (
	"net"
	"time"
)

// TCPConfig describes the remote endpoint for MBAP transfer mode.
type TCPConfig struct {
	Address     string // host:port
	DialTimeout time.Duration
}

// newTCPTransport builds the Transport the Client drives for an
// MBAP-backed link, dialing lazily on Open so construction never
// blocks.
func newTCPTransport(conf TCPConfig) (t Transport) {
	t = newPollingTransport(&socketWrapper{conf: conf})
	return
}

// socketWrapper wraps a net.Conn, dialed on Open, to satisfy rawIO.
type socketWrapper struct {
	conf     TCPConfig
	socket   net.Conn
	deadline time.Time
}

func (sw *socketWrapper) Open() (err error) {
	dialTimeout := sw.conf.DialTimeout
	if dialTimeout == 0 {
		dialTimeout = 5 * time.Second
	}

	sw.socket, err = net.DialTimeout("tcp", sw.conf.Address, dialTimeout)

	return
}

func (sw *socketWrapper) Close() (err error) {
	err = sw.socket.Close()
	return
}

// Read masks the net.Conn deadline timeout (a quiet line), returning
// no data and no error, so pollingTransport.pump can poll it safely;
// any other error is a genuine link failure and is passed through.
func (sw *socketWrapper) Read(rxbuf []byte) (cnt int, err error) {
	sw.socket.SetReadDeadline(sw.deadline)

	cnt, err = sw.socket.Read(rxbuf)
	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		err = nil
	}

	return
}

func (sw *socketWrapper) Write(txbuf []byte) (cnt int, err error) {
	cnt, err = sw.socket.Write(txbuf)
	return
}

func (sw *socketWrapper) SetDeadline(deadline time.Time) (err error) {
	sw.deadline = deadline
	return
}
