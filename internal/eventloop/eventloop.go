/*
Copyright (C) 2026  The kvshard Authors

    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU General Public License as published by
    the Free Software Foundation, either version 3 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU General Public License
    along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package eventloop implements a single-threaded, cooperative task loop
// fed by a fixed-capacity multi-producer single-consumer ring. A loop owns
// a fixed set of dictionaries exclusively; nothing outside its own
// goroutine ever touches the state a task closure mutates, so tasks never
// need locks of their own. All tasks run to completion with no
// suspension: I/O or cross-shard work is submitted as further tasks,
// never awaited inline.
package eventloop

import (
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/jtolds/gls"

	"github.com/kvshard/kvshard/internal/logging"
)

// Task is one unit of work a Loop executes on its own goroutine.
type Task func()

// glsKey tags the goroutine-local value ScheduleWait checks to recognize
// a call made synchronously from within a task already running on this
// loop's own goroutine, rather than from an outside caller.
type glsKey struct{}

// DefaultCapacity is the ring size New uses when given a capacity below 1,
// chosen so a burst of pipelined requests across every connection routed
// to one shard cannot overrun the queue under ordinary load. It is not a
// minimum: a smaller positive capacity is used as given, rounded up to a
// power of two.
const DefaultCapacity = 16 * 1024 * 1024

// Loop is one shard's single-threaded task runner: a bounded ring buffer
// with spin-locking producers and one consumer goroutine that drains it.
type Loop struct {
	buf      []Task
	mask     uint64
	head     uint64 // next slot a producer may claim
	tail     uint64 // next slot the consumer will read
	pushLock sync.Mutex
	wake     chan struct{}
	stop     chan struct{}
	stopped  chan struct{}
	log      *logging.Logger
	mgr      *gls.ContextManager
	key      glsKey
}

// New returns a Loop with a ring sized to at least capacity, rounded up to
// the next power of two. It does not start running until Start is called.
func New(capacity int, log *logging.Logger) *Loop {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	size := nextPowerOfTwo(uint64(capacity))
	return &Loop{
		buf:     make([]Task, size),
		mask:    size - 1,
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
		log:     log,
		mgr:     gls.NewContextManager(),
	}
}

// Start launches the loop's consumer goroutine. Call once.
func (l *Loop) Start() {
	go l.run()
}

// Stop signals the loop to drain its current queue and exit, then blocks
// until it has. Safe to call once from outside the loop's own goroutine.
func (l *Loop) Stop() {
	close(l.stop)
	<-l.stopped
}

// ScheduleNowait enqueues task and returns immediately once the ring has
// accepted it, without waiting for it to run. The producer spins (via the
// push lock) rather than failing, since a bounded queue with a spin-wait
// is the loop's only back-pressure mechanism.
func (l *Loop) ScheduleNowait(t Task) {
	l.push(t)
	l.signal()
}

// ScheduleWait enqueues task and blocks the caller until it has run. If
// called from the loop's own goroutine (a task scheduling more work on
// itself), it short-circuits to a direct call instead of deadlocking on a
// queue only this same goroutine can drain.
func (l *Loop) ScheduleWait(t Task) {
	if l.onOwnGoroutine() {
		t()
		return
	}
	done := make(chan struct{})
	l.ScheduleNowait(func() {
		t()
		close(done)
	})
	<-done
}

func (l *Loop) onOwnGoroutine() bool {
	_, ok := l.mgr.GetValue(l.key)
	return ok
}

func (l *Loop) push(t Task) {
	l.pushLock.Lock()
	for l.head-l.tail >= uint64(len(l.buf)) {
		l.pushLock.Unlock()
		// ring full: spin until the consumer frees a slot
		l.pushLock.Lock()
	}
	idx := l.head & l.mask
	l.buf[idx] = t
	l.head++
	l.pushLock.Unlock()
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Loop) run() {
	defer close(l.stopped)
	for {
		ran := l.drain()
		if !ran {
			select {
			case <-l.wake:
			case <-l.stop:
				l.drain()
				return
			}
		}
		select {
		case <-l.stop:
			l.drain()
			return
		default:
		}
	}
}

// drain executes every task currently queued, returning whether it ran at
// least one.
func (l *Loop) drain() bool {
	ran := false
	for {
		l.pushLock.Lock()
		if l.tail == l.head {
			l.pushLock.Unlock()
			break
		}
		idx := l.tail & l.mask
		t := l.buf[idx]
		l.buf[idx] = nil
		l.tail++
		l.pushLock.Unlock()
		l.runTask(t)
		ran = true
	}
	return ran
}

func (l *Loop) runTask(t Task) {
	l.mgr.SetValues(gls.Values{l.key: true}, func() {
		defer func() {
			if r := recover(); r != nil {
				if l.log != nil {
					l.log.Errorf("task panic: %v\n%s", r, debug.Stack())
				}
			}
		}()
		t()
	})
}

// Depth reports the number of tasks currently queued, for diagnostics.
func (l *Loop) Depth() uint64 {
	return atomic.LoadUint64(&l.head) - atomic.LoadUint64(&l.tail)
}

func nextPowerOfTwo(n uint64) uint64 {
	if n == 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}
