package scan

import (
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/reelscan/reelscan/internal/common"
)

// Dispatcher launches panic-protected background tasks, optionally after a
// delay. Scheduled tasks are in-memory only; if the process dies before a
// task runs, the watchdog repairs the scan state from storage.
type Dispatcher struct {
	logger arbor.ILogger

	mu      sync.Mutex
	quit    chan struct{}
	stopped bool
}

func NewDispatcher(logger arbor.ILogger) *Dispatcher {
	return &Dispatcher{
		logger: logger,
		quit:   make(chan struct{}),
	}
}

// Schedule runs fn in a recovered goroutine after delay. Tasks scheduled
// after Stop, or still waiting when Stop is called, are discarded.
func (d *Dispatcher) Schedule(name string, delay time.Duration, fn func()) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	quit := d.quit
	d.mu.Unlock()

	common.SafeGo(d.logger, name, func() {
		if delay > 0 {
			timer := time.NewTimer(delay)
			defer timer.Stop()
			select {
			case <-quit:
				return
			case <-timer.C:
			}
		} else {
			select {
			case <-quit:
				return
			default:
			}
		}
		fn()
	})
}

// Stop discards all pending delayed tasks. Already-running tasks finish.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.stopped = true
	close(d.quit)
}
