package scheduler

import (
	"time"
)

type Entry[T any] struct {
	ID      string
	Index   int // heap position, -1 once popped
	Seq     uint64
	Value   T
	ReadyAt time.Time
}

// Heap is a min-heap on ReadyAt. Entries due at the same instant come out in
// push order, which keeps a compiled timeline's stop/start ordering intact.
type Heap[T any] struct {
	Entries []*Entry[T]
}

func (h Heap[T]) Peek() *Entry[T] {
	if h.Len() == 0 {
		return nil
	}
	return h.Entries[0]
}

func (h Heap[T]) Len() int { return len(h.Entries) }

func (h Heap[T]) Less(i, j int) bool {
	a, b := h.Entries[i], h.Entries[j]
	if a.ReadyAt.Equal(b.ReadyAt) {
		return a.Seq < b.Seq
	}
	return a.ReadyAt.Before(b.ReadyAt)
}

func (h Heap[T]) Swap(i, j int) {
	h.Entries[i], h.Entries[j] = h.Entries[j], h.Entries[i]
	h.Entries[i].Index = i
	h.Entries[j].Index = j
}

func (h *Heap[T]) Push(item *Entry[T]) {
	item.Index = len(h.Entries)
	h.Entries = append(h.Entries, item)
	h.shiftUp(item.Index)
}

// Pop removes the earliest entry.
func (h *Heap[T]) Pop() *Entry[T] {
	return h.Remove(0)
}

func (h *Heap[T]) Remove(index int) *Entry[T] {
	n := h.Len()
	if index < 0 || index >= n {
		return nil
	}

	h.Swap(index, n-1)
	removed := h.Entries[n-1]
	h.Entries[n-1] = nil
	h.Entries = h.Entries[:n-1]
	removed.Index = -1
	if index < len(h.Entries) {
		h.fix(index)
	}
	return removed
}

func (h *Heap[T]) fix(index int) {
	if !h.shiftDown(index) {
		h.shiftUp(index)
	}
}

func (h *Heap[T]) shiftUp(index int) {
	for index > 0 {
		p := (index - 1) / 2
		if !h.Less(index, p) {
			return
		}
		h.Swap(index, p)
		index = p
	}
}

func (h *Heap[T]) shiftDown(index int) bool {
	moved := false
	n := h.Len()

	for {
		left := 2*index + 1
		if left >= n {
			break
		}
		smallest := left
		if right := left + 1; right < n && h.Less(right, left) {
			smallest = right
		}
		if !h.Less(smallest, index) {
			break
		}
		h.Swap(index, smallest)
		index = smallest
		moved = true
	}

	return moved
}
