package modbus

import (
	"time"
)

// cancelFunc stops a scheduled callback; calling it after the callback
// has already fired is a harmless no-op.
type cancelFunc func()

// scheduler is the timer capability the run loop depends on: schedule
// a one-shot delayed callback, which the returned cancelFunc stops. A
// fake implementation lets the reconnectable transport's retry tests
// fire scheduled callbacks on demand; Client always uses
// realScheduler, so the client tests run on real timers.
type scheduler interface {
	after(d time.Duration, fn func()) cancelFunc
}

// realScheduler wraps time.AfterFunc. fn always runs on its own
// goroutine (per the standard library's guarantee), so every fn passed
// in by the run loop must do nothing but send a value back over a
// channel the run loop selects on; it must never touch run-loop state
// directly.
type realScheduler struct{}

func (realScheduler) after(d time.Duration, fn func()) cancelFunc {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}
