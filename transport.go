package modbus

import (
	"time"
)

// rawIO is the small blocking capability a concrete link (serial port,
// TCP socket) exposes: deadline-bounded reads/writes, masking a
// short-poll timeout from Read so a caller can loop it safely.
type rawIO interface {
	Open() error
	Close() error
	Read(buf []byte) (int, error)
	Write(buf []byte) (int, error)
	SetDeadline(deadline time.Time) error
}

// TransportEvents bundles the callbacks a Transport invokes as it
// observes the link. Every callback may run on a goroutine other than
// the one that created the Transport; implementations must only ever
// send a value over a channel from inside one, never touch shared
// state directly.
type TransportEvents struct {
	Opened func()
	Closed func()
	// ConnectionLost fires when a previously Opened link drops; the
	// transport will attempt to reopen itself with its configured
	// retry budget. Error fires when there is no more retrying to do
	// (a fatal open failure, or an error while already Closed/Closing).
	ConnectionLost func(err error)
	BytesWritten   func(n int)
	ReadyRead      func()
	Error          func(err error)
}

// Transport is the I/O capability the session engine drives: open,
// close, write, drain what has arrived, and discard what is buffered,
// observed through TransportEvents rather than return values (so the
// engine's single run-loop goroutine can stay non-blocking).
type Transport interface {
	Open() error
	Close() error
	Write(data []byte) error
	ReadAll() ([]byte, error)
	Clear() error
	SetEvents(events TransportEvents)
}

// pollPeriod is how often a pollingTransport's background reader
// checks the link for new bytes. Kept short because go.bug.st/serial
// and net.Conn reads, masked behind SetDeadline, already return
// promptly; this just bounds how quickly a ready_read event follows
// bytes actually landing on the wire.
const pollPeriod = 10 * time.Millisecond

// pollingTransport implements Transport on top of a rawIO by running
// one background goroutine that loops short deadline-bounded reads,
// masking the link's own short timeout so the caller can loop it
// safely, buffering what arrives and signalling ReadyRead. Writes are
// issued synchronously from the caller's goroutine, since the
// underlying link's Write already blocks until the whole buffer is
// accepted.
type pollingTransport struct {
	link   rawIO
	events TransportEvents

	stopPump chan struct{}
	pumpDone chan struct{}

	mu  chan struct{} // 1-buffered, acts as a non-reentrant lock over buf
	buf []byte
}

func newPollingTransport(link rawIO) (t *pollingTransport) {
	t = &pollingTransport{
		link: link,
		mu:   make(chan struct{}, 1),
	}
	t.mu <- struct{}{}

	return
}

func (t *pollingTransport) lock()   { <-t.mu }
func (t *pollingTransport) unlock() { t.mu <- struct{}{} }

func (t *pollingTransport) SetEvents(events TransportEvents) {
	t.events = events
	return
}

func (t *pollingTransport) Open() (err error) {
	err = t.link.Open()
	if err != nil {
		return
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	t.stopPump = stop
	t.pumpDone = done
	go t.pump(stop, done)

	if t.events.Opened != nil {
		t.events.Opened()
	}

	return
}

func (t *pollingTransport) Close() (err error) {
	if t.stopPump != nil {
		close(t.stopPump)
		<-t.pumpDone
		t.stopPump = nil
	}

	err = t.link.Close()

	if t.events.Closed != nil {
		t.events.Closed()
	}

	return
}

func (t *pollingTransport) Write(data []byte) (err error) {
	var written int

	for written < len(data) {
		var n int

		t.link.SetDeadline(time.Now().Add(time.Second))
		n, err = t.link.Write(data[written:])
		written += n
		if err != nil {
			if t.events.Error != nil {
				t.events.Error(err)
			}
			return
		}
	}

	if t.events.BytesWritten != nil {
		t.events.BytesWritten(written)
	}

	return
}

func (t *pollingTransport) ReadAll() (data []byte, err error) {
	t.lock()
	data = t.buf
	t.buf = nil
	t.unlock()

	return
}

func (t *pollingTransport) Clear() (err error) {
	t.lock()
	t.buf = nil
	t.unlock()

	return
}

// pump takes its stop/done channels as parameters, captured once at
// spawn time in Open, rather than reading t.stopPump/t.pumpDone: a
// reconnect triggered synchronously from t.events.Error below (via
// reconnectableTransport.onInnerError) would otherwise reassign those
// fields out from under this still-unwinding goroutine, and its
// deferred close(done) would close the new pump's done channel
// instead of its own.
func (t *pollingTransport) pump(stop chan struct{}, done chan struct{}) {
	defer close(done)

	rxbuf := make([]byte, 512)

	for {
		select {
		case <-stop:
			return
		default:
		}

		t.link.SetDeadline(time.Now().Add(pollPeriod))
		n, err := t.link.Read(rxbuf)
		if n > 0 {
			t.lock()
			t.buf = append(t.buf, rxbuf[:n]...)
			t.unlock()

			if t.events.ReadyRead != nil {
				t.events.ReadyRead()
			}
		}

		if err != nil {
			if t.events.Error != nil {
				t.events.Error(err)
			}
			return
		}
	}
}
