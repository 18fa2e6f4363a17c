package modbus

import (
	"sync"
	"time"
)

// fakeScheduler lets a test fire a scheduled callback on demand instead
// of waiting out a real delay, for deterministic coverage of retry and
// timeout logic.
type fakeScheduler struct {
	mu      sync.Mutex
	pending []func()
}

func (fs *fakeScheduler) after(d time.Duration, fn func()) cancelFunc {
	fs.mu.Lock()
	idx := len(fs.pending)
	fs.pending = append(fs.pending, fn)
	fs.mu.Unlock()

	return func() {
		fs.mu.Lock()
		fs.pending[idx] = nil
		fs.mu.Unlock()
	}
}

// fireAll invokes every still-pending callback, in scheduling order,
// clearing the queue first so callbacks that schedule further delays
// don't get invoked in the same pass.
func (fs *fakeScheduler) fireAll() {
	fs.mu.Lock()
	pending := fs.pending
	fs.pending = nil
	fs.mu.Unlock()

	for _, fn := range pending {
		if fn != nil {
			fn()
		}
	}

	return
}

func (fs *fakeScheduler) count() (n int) {
	fs.mu.Lock()
	for _, fn := range fs.pending {
		if fn != nil {
			n++
		}
	}
	fs.mu.Unlock()

	return
}
