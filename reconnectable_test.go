package modbus

import (
	"testing"
)

func TestReconnectableOpenSucceeds(t *testing.T) {
	ft := &fakeTransport{}
	sched := &fakeScheduler{}
	rt := newReconnectableTransport(ft, sched)

	var opened bool
	rt.SetEvents(TransportEvents{Opened: func() { opened = true }})

	if err := rt.Open(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !opened {
		t.Errorf("expected the Opened event to fire")
	}

	return
}

func TestReconnectableOpenFailsWithNoRetryBudget(t *testing.T) {
	ft := &fakeTransport{openErr: ErrConfigurationError}
	sched := &fakeScheduler{}
	rt := newReconnectableTransport(ft, sched)

	err := rt.Open()
	if err != ErrConfigurationError {
		t.Errorf("expected ErrConfigurationError to propagate synchronously, got %v", err)
	}
	if sched.count() != 0 {
		t.Errorf("expected no retry to be scheduled with a zero retry budget")
	}

	return
}

func TestReconnectableOpenRetriesThenSucceeds(t *testing.T) {
	ft := &fakeTransport{openErr: ErrConfigurationError}
	sched := &fakeScheduler{}
	rt := newReconnectableTransport(ft, sched)
	rt.SetOpenRetryTimes(2, 0)

	var openedCount, errCount int
	rt.SetEvents(TransportEvents{
		Opened: func() { openedCount++ },
		Error:  func(err error) { errCount++ },
	})

	err := rt.Open()
	if err != nil {
		t.Fatalf("expected the first failure to be swallowed while a retry is scheduled, got %v", err)
	}
	if sched.count() != 1 {
		t.Fatalf("expected one retry to be scheduled, got %v", sched.count())
	}

	ft.mu.Lock()
	ft.openErr = nil
	ft.mu.Unlock()

	sched.fireAll()

	if openedCount != 1 {
		t.Errorf("expected the retry to succeed and fire Opened once, got %v", openedCount)
	}
	if errCount != 0 {
		t.Errorf("expected no Error event once the retry succeeded, got %v", errCount)
	}

	return
}

func TestReconnectableOpenExhaustsRetries(t *testing.T) {
	ft := &fakeTransport{openErr: ErrConfigurationError}
	sched := &fakeScheduler{}
	rt := newReconnectableTransport(ft, sched)
	rt.SetOpenRetryTimes(1, 0)

	var errCount int
	rt.SetEvents(TransportEvents{Error: func(err error) { errCount++ }})

	if err := rt.Open(); err != nil {
		t.Fatalf("expected the first failure to be swallowed, got %v", err)
	}

	sched.fireAll()

	if errCount != 1 {
		t.Errorf("expected Error to fire exactly once after the retry budget is exhausted, got %v", errCount)
	}

	return
}

func TestReconnectableConnectionLostReconnects(t *testing.T) {
	ft := &fakeTransport{}
	sched := &fakeScheduler{}
	rt := newReconnectableTransport(ft, sched)

	var lost, reopened bool
	rt.SetEvents(TransportEvents{
		Opened:         func() { reopened = true },
		ConnectionLost: func(err error) { lost = true },
	})

	if err := rt.Open(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reopened = false

	ft.mu.Lock()
	events := ft.events
	ft.mu.Unlock()
	events.Error(ErrProtocolError)

	if !lost {
		t.Errorf("expected ConnectionLost to fire on an unexpected drop")
	}
	if reopened {
		t.Errorf("expected the reconnect to be scheduled, not attempted synchronously from inside the error callback")
	}
	if sched.count() != 1 {
		t.Fatalf("expected one reconnect attempt to be scheduled, got %v", sched.count())
	}

	sched.fireAll()

	if !reopened {
		t.Errorf("expected the scheduled reconnect attempt to succeed and fire Opened again")
	}

	return
}

func TestReconnectableForceCloseSuppressesReconnect(t *testing.T) {
	ft := &fakeTransport{}
	sched := &fakeScheduler{}
	rt := newReconnectableTransport(ft, sched)

	var lost bool
	rt.SetEvents(TransportEvents{ConnectionLost: func(err error) { lost = true }})

	if err := rt.Open(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := rt.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ft.mu.Lock()
	events := ft.events
	ft.mu.Unlock()
	events.Error(ErrProtocolError)

	if lost {
		t.Errorf("expected a deliberate close to suppress reconnect handling entirely")
	}

	return
}
