package timer

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestTaskTicks(t *testing.T) {
	var count int32
	task := New(5*time.Millisecond, func() {
		atomic.AddInt32(&count, 1)
	})
	task.Start()
	time.Sleep(50 * time.Millisecond)
	task.Cancel()

	if atomic.LoadInt32(&count) < 2 {
		t.Errorf("count = %d, want at least 2 ticks in 50ms at 5ms period", count)
	}
}

func TestTaskCancelIsIdempotent(t *testing.T) {
	task := New(time.Millisecond, func() {})
	task.Start()
	task.Cancel()
	task.Cancel() // must not panic or block
}

func TestTaskCancelConcurrent(t *testing.T) {
	task := New(time.Millisecond, func() {})
	task.Start()

	done := make(chan struct{})
	for i := 0; i < 4; i++ {
		go func() {
			task.Cancel()
			done <- struct{}{}
		}()
	}
	for i := 0; i < 4; i++ {
		<-done
	}
}

func TestTaskRestartAfterCancel(t *testing.T) {
	var count int32
	task := New(5*time.Millisecond, func() {
		atomic.AddInt32(&count, 1)
	})
	task.Start()
	time.Sleep(20 * time.Millisecond)
	task.Cancel()
	first := atomic.LoadInt32(&count)

	task.Start()
	time.Sleep(20 * time.Millisecond)
	task.Cancel()
	second := atomic.LoadInt32(&count)

	if second <= first {
		t.Errorf("count did not increase after restart: first=%d second=%d", first, second)
	}
}
