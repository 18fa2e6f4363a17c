package modbus

import (
	"sync"
)

// fakeTransport is an in-process stand-in for a real link, letting
// client_test.go drive the session engine deterministically: writes
// land in Written for the test to inspect, and the test pushes
// simulated responses in through push(), which raises ReadyRead the
// same way a pollingTransport's background pump would.
type fakeTransport struct {
	mu sync.Mutex

	openErr  error
	writeErr error

	opened  bool
	Written [][]byte
	inbox   []byte

	events TransportEvents
}

func (ft *fakeTransport) SetEvents(events TransportEvents) {
	ft.mu.Lock()
	ft.events = events
	ft.mu.Unlock()

	return
}

func (ft *fakeTransport) Open() (err error) {
	ft.mu.Lock()
	err = ft.openErr
	if err == nil {
		ft.opened = true
	}
	events := ft.events
	ft.mu.Unlock()

	if err == nil && events.Opened != nil {
		events.Opened()
	}

	return
}

func (ft *fakeTransport) Close() (err error) {
	ft.mu.Lock()
	ft.opened = false
	events := ft.events
	ft.mu.Unlock()

	if events.Closed != nil {
		events.Closed()
	}

	return
}

func (ft *fakeTransport) Write(data []byte) (err error) {
	ft.mu.Lock()
	err = ft.writeErr
	if err == nil {
		ft.Written = append(ft.Written, append([]byte(nil), data...))
	}
	events := ft.events
	ft.mu.Unlock()

	if err != nil && events.Error != nil {
		events.Error(err)
	}

	return
}

func (ft *fakeTransport) ReadAll() (data []byte, err error) {
	ft.mu.Lock()
	data = ft.inbox
	ft.inbox = nil
	ft.mu.Unlock()

	return
}

func (ft *fakeTransport) Clear() (err error) {
	ft.mu.Lock()
	ft.inbox = nil
	ft.mu.Unlock()

	return
}

// push simulates bytes arriving on the wire, the way a pollingTransport
// would report them after its next poll.
func (ft *fakeTransport) push(data []byte) {
	ft.mu.Lock()
	ft.inbox = append(ft.inbox, data...)
	events := ft.events
	ft.mu.Unlock()

	if events.ReadyRead != nil {
		events.ReadyRead()
	}

	return
}

// lastWritten returns the most recently written frame, or nil.
func (ft *fakeTransport) lastWritten() (out []byte) {
	ft.mu.Lock()
	if len(ft.Written) > 0 {
		out = ft.Written[len(ft.Written)-1]
	}
	ft.mu.Unlock()

	return
}

func (ft *fakeTransport) writeCount() (n int) {
	ft.mu.Lock()
	n = len(ft.Written)
	ft.mu.Unlock()

	return
}
