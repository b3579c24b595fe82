package eventloop

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestScheduleNowaitRunsInOrder(t *testing.T) {
	l := New(16, nil)
	l.Start()
	defer l.Stop()

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	wg.Add(10)
	for i := 0; i < 10; i++ {
		i := i
		l.ScheduleNowait(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			wg.Done()
		})
	}
	wg.Wait()
	for i, v := range order {
		if v != i {
			t.Fatalf("order[%d] = %d, want %d (single submitter order must be preserved)", i, v, i)
		}
	}
}

func TestScheduleWaitBlocksUntilDone(t *testing.T) {
	l := New(16, nil)
	l.Start()
	defer l.Stop()

	var n int64
	l.ScheduleWait(func() {
		atomic.StoreInt64(&n, 42)
	})
	if atomic.LoadInt64(&n) != 42 {
		t.Fatalf("n = %d, want 42", n)
	}
}

func TestScheduleWaitReentrantShortCircuits(t *testing.T) {
	l := New(16, nil)
	l.Start()
	defer l.Stop()

	done := make(chan struct{})
	l.ScheduleNowait(func() {
		// called from within a task already on l's own goroutine: must
		// run synchronously rather than deadlock waiting on itself.
		l.ScheduleWait(func() {})
		close(done)
	})
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("reentrant ScheduleWait deadlocked")
	}
}

func TestTaskPanicDoesNotKillLoop(t *testing.T) {
	l := New(16, nil)
	l.Start()
	defer l.Stop()

	l.ScheduleNowait(func() { panic("boom") })

	var ran int64
	l.ScheduleWait(func() { atomic.StoreInt64(&ran, 1) })
	if atomic.LoadInt64(&ran) != 1 {
		t.Fatal("loop did not continue running tasks after a panic")
	}
}

func TestStopDrainsBeforeExit(t *testing.T) {
	l := New(16, nil)
	l.Start()

	var n int64
	for i := 0; i < 5; i++ {
		l.ScheduleNowait(func() { atomic.AddInt64(&n, 1) })
	}
	l.Stop()
	if atomic.LoadInt64(&n) != 5 {
		t.Fatalf("n = %d, want 5 (Stop must drain queued tasks)", n)
	}
}
