package scheduler

import (
	"sync"
	"time"
)

// Interval runs a function periodically between Start and Stop.
type Interval struct {
	mu     sync.Mutex
	period time.Duration
	fn     func()
	done   chan struct{}
	wg     sync.WaitGroup
}

var _ Scheduler = (*Interval)(nil)

// NewInterval creates a stopped interval.
func NewInterval(period time.Duration, fn func()) *Interval {
	return &Interval{period: period, fn: fn}
}

// Start begins ticking. Starting a running interval does nothing.
func (i *Interval) Start() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.done != nil {
		return
	}

	done := make(chan struct{})
	i.done = done
	i.wg.Add(1)
	go func() {
		defer i.wg.Done()
		ticker := time.NewTicker(i.period)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				i.fn()
			}
		}
	}()
}

// Running reports whether the interval is ticking.
func (i *Interval) Running() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.done != nil
}

// Stop implements Scheduler. It does not wait for an in-flight tick.
func (i *Interval) Stop() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.done == nil {
		return
	}
	close(i.done)
	i.done = nil
}

// Wait blocks until the ticking goroutine of a stopped interval has exited.
func (i *Interval) Wait() {
	i.wg.Wait()
}
