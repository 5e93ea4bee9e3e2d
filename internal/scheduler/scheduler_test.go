package scheduler

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebouncer_CoalescesToLastCall(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	var mu sync.Mutex
	var calls []int
	for i := 1; i <= 5; i++ {
		i := i
		d.Trigger(func() {
			mu.Lock()
			defer mu.Unlock()
			calls = append(calls, i)
		})
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(calls) == 1
	}, time.Second, 5*time.Millisecond)

	// Give a stale timer the chance to misfire.
	time.Sleep(60 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{5}, calls)
	assert.False(t, d.Pending())
}

func TestDebouncer_CancelAndStop(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	var fired atomic.Int32

	d.Trigger(func() { fired.Add(1) })
	assert.True(t, d.Pending())
	d.Cancel()
	assert.False(t, d.Pending())

	d.Stop()
	d.Trigger(func() { fired.Add(1) })

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
}

func TestInterval_StartStop(t *testing.T) {
	var ticks atomic.Int32
	i := NewInterval(5*time.Millisecond, func() { ticks.Add(1) })

	assert.False(t, i.Running())
	i.Start()
	i.Start() // idempotent
	assert.True(t, i.Running())

	require.Eventually(t, func() bool { return ticks.Load() >= 3 }, time.Second, time.Millisecond)

	i.Stop()
	i.Stop() // idempotent
	i.Wait()
	assert.False(t, i.Running())

	after := ticks.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, ticks.Load())
}
