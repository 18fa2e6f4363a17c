package modbus

import (
	"time"
)

// connState is the reconnectable transport's own state, independent of
// (and tracked alongside) the session engine's SessionState.
type connState uint

const (
	connClosed connState = iota
	connOpening
	connOpened
	connClosing
)

// reconnectableTransport decorates a Transport with bounded open
// retries and forced-close tracking: the engine only ever calls
// Open/Close/Write/ReadAll/Clear on this wrapper and never touches the
// underlying link directly.
type reconnectableTransport struct {
	inner Transport
	sched scheduler

	state       connState
	forceClose  bool
	retriesLeft int

	openRetryTimes int
	reopenDelay    time.Duration

	events      TransportEvents
	cancelRetry cancelFunc
}

func newReconnectableTransport(inner Transport, sched scheduler) (t *reconnectableTransport) {
	t = &reconnectableTransport{
		inner:          inner,
		sched:          sched,
		state:          connClosed,
		openRetryTimes: 0,
		reopenDelay:    1 * time.Second,
	}

	return
}

// SetOpenRetryTimes configures the retry budget used both for the
// initial Open and for reconnect attempts after a lost connection.
// times == 0 means a single attempt, no retries; negative values are
// clamped to 0.
func (t *reconnectableTransport) SetOpenRetryTimes(times int, delay time.Duration) {
	if times < 0 {
		times = 0
	}

	t.openRetryTimes = times
	t.reopenDelay = delay

	return
}

func (t *reconnectableTransport) SetEvents(events TransportEvents) {
	t.events = events

	t.inner.SetEvents(TransportEvents{
		Opened:       t.onInnerOpened,
		Closed:       t.onInnerClosed,
		BytesWritten: events.BytesWritten,
		ReadyRead:    events.ReadyRead,
		Error:        t.onInnerError,
	})

	return
}

func (t *reconnectableTransport) Open() (err error) {
	t.forceClose = false
	t.retriesLeft = t.openRetryTimes
	t.state = connOpening

	err = t.inner.Open()
	if err != nil {
		retrying := t.onOpenFailure(err)
		if retrying {
			err = nil
		}
	}

	return
}

// attemptOpen is used for every retry after the first, asynchronous,
// attempt; its result only ever reaches events.Error/events.Opened,
// never a synchronous caller.
func (t *reconnectableTransport) attemptOpen() {
	err := t.inner.Open()
	if err != nil {
		t.onOpenFailure(err)
	}

	return
}

// onOpenFailure schedules a retry if the budget allows it, reporting
// whether it did so. When it did not (budget exhausted), it fires
// events.Error itself.
func (t *reconnectableTransport) onOpenFailure(cause error) (retrying bool) {
	if t.retriesLeft <= 0 {
		t.state = connClosed
		if t.events.Error != nil {
			t.events.Error(cause)
		}
		return
	}

	t.retriesLeft--
	retrying = true
	t.cancelRetry = t.sched.after(t.reopenDelay, func() {
		t.attemptOpen()
	})

	return
}

func (t *reconnectableTransport) onInnerOpened() {
	t.state = connOpened

	if t.events.Opened != nil {
		t.events.Opened()
	}

	return
}

func (t *reconnectableTransport) Close() (err error) {
	t.forceClose = true
	t.state = connClosing

	if t.cancelRetry != nil {
		t.cancelRetry()
		t.cancelRetry = nil
	}

	err = t.inner.Close()

	return
}

func (t *reconnectableTransport) onInnerClosed() {
	t.state = connClosed

	if t.events.Closed != nil {
		t.events.Closed()
	}

	return
}

// onInnerError distinguishes a deliberate close (forceClose, no
// reconnect attempted) from an unexpected drop while Opened (reconnect
// with the configured budget) from a failure while still Opening
// (handled by attemptOpen's own retry accounting).
func (t *reconnectableTransport) onInnerError(cause error) {
	if t.forceClose {
		return
	}

	switch t.state {
	case connOpened:
		t.state = connClosed
		if t.events.ConnectionLost != nil {
			t.events.ConnectionLost(cause)
		}

		t.retriesLeft = t.openRetryTimes
		t.state = connOpening
		// Scheduled rather than called directly: cause can reach here
		// synchronously from inside the failing transport's own pump
		// goroutine, which hasn't unwound yet. Calling attemptOpen (and
		// thus inner.Open) from that call stack would race the nested
		// Open against the pump's own teardown.
		t.cancelRetry = t.sched.after(t.reopenDelay, func() {
			t.attemptOpen()
		})

	case connOpening:
		t.onOpenFailure(cause)

	default:
		if t.events.Error != nil {
			t.events.Error(cause)
		}
	}

	return
}

func (t *reconnectableTransport) Write(data []byte) (err error) {
	err = t.inner.Write(data)
	return
}

func (t *reconnectableTransport) ReadAll() (data []byte, err error) {
	data, err = t.inner.ReadAll()
	return
}

func (t *reconnectableTransport) Clear() (err error) {
	err = t.inner.Clear()
	return
}
