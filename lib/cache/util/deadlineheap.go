package util

import "container/heap"

// deadlineItem is one entry of the heap: an identifier with a deadline.
type deadlineItem struct {
	ID       string
	Deadline int64 // unix nanoseconds
	index    int   // maintained by the heap package
}

// DeadlineHeap is a min-heap of string identifiers ordered by deadline with
// O(1) key lookup. The membership monitor uses it to find Dead peer records
// whose retention period has elapsed without scanning the whole registry.
//
// Thread-safety: not thread-safe, callers must synchronize externally
// (the monitor only touches it from its ticker goroutine).
type DeadlineHeap struct {
	items []*deadlineItem
	byID  map[string]*deadlineItem
}

// NewDeadlineHeap creates an empty deadline heap.
func NewDeadlineHeap() *DeadlineHeap {
	return &DeadlineHeap{
		byID: make(map[string]*deadlineItem),
	}
}

// Len returns the number of entries (part of heap.Interface).
func (h *DeadlineHeap) Len() int { return len(h.items) }

// Less orders by soonest deadline first (part of heap.Interface).
func (h *DeadlineHeap) Less(i, j int) bool {
	return h.items[i].Deadline < h.items[j].Deadline
}

// Swap exchanges two entries (part of heap.Interface).
func (h *DeadlineHeap) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.items[i].index = i
	h.items[j].index = j
}

// Push appends an entry (part of heap.Interface).
func (h *DeadlineHeap) Push(x interface{}) {
	it := x.(*deadlineItem)
	it.index = len(h.items)
	h.items = append(h.items, it)
	h.byID[it.ID] = it
}

// Pop removes the last entry (part of heap.Interface).
func (h *DeadlineHeap) Pop() interface{} {
	old := h.items
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	h.items = old[:n-1]
	delete(h.byID, it.ID)
	return it
}

// Add inserts an entry or updates the deadline of an existing one.
func (h *DeadlineHeap) Add(id string, deadline int64) {
	if it, ok := h.byID[id]; ok {
		it.Deadline = deadline
		heap.Fix(h, it.index)
		return
	}
	heap.Push(h, &deadlineItem{ID: id, Deadline: deadline})
}

// Remove removes an entry by its identifier.
// It returns false if the identifier is unknown.
func (h *DeadlineHeap) Remove(id string) bool {
	it, ok := h.byID[id]
	if !ok {
		return false
	}
	heap.Remove(h, it.index)
	return true
}

// PopDue removes and returns the identifier with the soonest deadline if that
// deadline is <= now. The boolean is false when nothing is due.
func (h *DeadlineHeap) PopDue(now int64) (string, bool) {
	if len(h.items) == 0 || h.items[0].Deadline > now {
		return "", false
	}
	it := heap.Pop(h).(*deadlineItem)
	return it.ID, true
}

// Contains reports whether an identifier is scheduled.
func (h *DeadlineHeap) Contains(id string) bool {
	_, ok := h.byID[id]
	return ok
}
