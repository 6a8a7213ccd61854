package schedule

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskKeepsOnlyLatestCall(t *testing.T) {
	var task Task
	var first, second atomic.Int32

	task.Schedule(20*time.Millisecond, func() { first.Add(1) })
	task.Schedule(20*time.Millisecond, func() { second.Add(1) })
	assert.True(t, task.Pending())

	require.Eventually(t, func() bool { return second.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, int32(0), first.Load())
	assert.Equal(t, int32(1), second.Load())
	assert.False(t, task.Pending())
}

func TestTaskCancelIsIdempotent(t *testing.T) {
	var task Task
	var fired atomic.Bool

	task.Schedule(20*time.Millisecond, func() { fired.Store(true) })
	assert.True(t, task.Cancel())
	assert.False(t, task.Cancel())

	time.Sleep(50 * time.Millisecond)
	assert.False(t, fired.Load())
}

func TestDebouncerDeliversLastValue(t *testing.T) {
	var mu sync.Mutex
	var got []string
	d := NewDebouncer(30*time.Millisecond, func(v string) {
		mu.Lock()
		got = append(got, v)
		mu.Unlock()
	})

	d.Call("1")
	d.Call("1.")
	d.Call("1.5")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	assert.Equal(t, []string{"1.5"}, got)
	mu.Unlock()
}

func TestDebouncerFlushAndCancel(t *testing.T) {
	var calls atomic.Int32
	var last atomic.Value
	d := NewDebouncer(time.Hour, func(v int) {
		calls.Add(1)
		last.Store(v)
	})

	d.Call(7)
	d.Flush()
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 7, last.Load())

	d.Flush()
	assert.Equal(t, int32(1), calls.Load(), "nothing pending after flush")

	d.Call(8)
	d.Cancel()
	d.Flush()
	assert.Equal(t, int32(1), calls.Load())
}
