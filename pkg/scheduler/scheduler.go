// Package scheduler turns a traffic profile into workflow iterations.
//
// Sanity and multi modes run a fixed number of iterations. Load mode compiles
// its ramp stages into a timeline of virtual-user start/stop events and feeds
// them through a DelayQueue, so a VU comes alive exactly when its stage says so.
package scheduler

import (
	"sync"
	"time"

	svcerror "food-order-loadtest/pkg/error"
)

// DelayQueue releases entries on Out once their ReadyAt has passed.
type DelayQueue[T any] struct {
	mu     sync.Mutex
	heap   Heap[T]
	byID   map[string]*Entry[T]
	seq    uint64
	Out    chan Entry[T]
	wakeUp chan struct{}
	closed bool
}

// NewQueue starts the release loop. popBuf sizes Out; a buffer at least as
// large as the number of entries guarantees the loop never blocks on a slow
// reader.
func NewQueue[T any](popBuf int) *DelayQueue[T] {
	dq := &DelayQueue[T]{
		byID:   make(map[string]*Entry[T]),
		Out:    make(chan Entry[T], popBuf),
		wakeUp: make(chan struct{}, 1),
	}
	go dq.loop()
	return dq
}

func (dq *DelayQueue[T]) Push(item Entry[T]) error {
	dq.mu.Lock()
	defer dq.mu.Unlock()

	if dq.closed {
		return svcerror.New(
			svcerror.ErrInternalError,
			svcerror.WithOp("Scheduler.Push"),
			svcerror.WithMsg("delay queue is closed"),
			svcerror.WithTime(time.Now().UTC()),
		)
	}

	if old := dq.byID[item.ID]; old != nil {
		dq.heap.Remove(old.Index)
		delete(dq.byID, item.ID)
	}

	dq.seq++
	item.Seq = dq.seq
	dq.heap.Push(&item)
	dq.byID[item.ID] = &item

	dq.notify()
	return nil
}

func (dq *DelayQueue[T]) Remove(id string) bool {
	dq.mu.Lock()
	defer dq.mu.Unlock()

	item := dq.byID[id]
	if item == nil {
		return false
	}
	dq.heap.Remove(item.Index)
	delete(dq.byID, item.ID)

	dq.notify()
	return true
}

func (dq *DelayQueue[T]) Len() int {
	dq.mu.Lock()
	defer dq.mu.Unlock()
	return dq.heap.Len()
}

// Close stops accepting entries. Out is closed after the pending ones drain.
func (dq *DelayQueue[T]) Close() {
	dq.mu.Lock()
	dq.closed = true
	dq.mu.Unlock()
	dq.notify()
}

// Stop discards pending entries and closes Out as soon as possible.
func (dq *DelayQueue[T]) Stop() {
	dq.mu.Lock()
	dq.closed = true
	dq.heap = Heap[T]{}
	dq.byID = make(map[string]*Entry[T])
	dq.mu.Unlock()
	dq.notify()
}

func (dq *DelayQueue[T]) notify() {
	select {
	case dq.wakeUp <- struct{}{}:
	default:
	}
}

func (dq *DelayQueue[T]) loop() {
	var timer *time.Timer

	for {
		empty, closed, next := dq.state()

		if closed && empty {
			close(dq.Out)
			return
		}

		if empty {
			<-dq.wakeUp
			continue
		}

		delay := time.Until(next)
		if delay <= 0 {
			dq.popReady()
			continue
		}

		timer = resetTimer(timer, delay)

		select {
		case <-timer.C:
		case <-dq.wakeUp:
			stopTimer(timer)
		}
	}
}

func (dq *DelayQueue[T]) state() (empty, closed bool, next time.Time) {
	dq.mu.Lock()
	defer dq.mu.Unlock()
	empty = dq.heap.Len() == 0
	closed = dq.closed
	if !empty {
		next = dq.heap.Peek().ReadyAt
	}
	return
}

func (dq *DelayQueue[T]) popReady() {
	now := time.Now()
	for {
		dq.mu.Lock()
		head := dq.heap.Peek()
		if head == nil || head.ReadyAt.After(now) {
			dq.mu.Unlock()
			return
		}
		item := dq.heap.Pop()
		delete(dq.byID, item.ID)
		dq.mu.Unlock()

		dq.Out <- *item
	}
}

func resetTimer(timer *time.Timer, delay time.Duration) *time.Timer {
	if timer == nil {
		return time.NewTimer(delay)
	}
	stopTimer(timer)
	timer.Reset(delay)
	return timer
}

func stopTimer(timer *time.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
}
