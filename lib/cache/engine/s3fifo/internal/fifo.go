package internal

import "github.com/hivecache/hivecache/lib/cache"

// FIFO is an intrusive doubly-linked queue over nodes. Entries enter at the
// tail and leave at the head; Remove unlinks from any position. All
// operations are O(1). Byte accounting follows node sizes so a shard can
// check its bounds without scanning.
//
// Thread-safety: not thread-safe, the owning shard's mutex must be held.
type FIFO struct {
	// ID is stamped onto every node pushed into this queue
	ID cache.Queue

	head  *Node
	tail  *Node
	count int
	bytes int64
}

// PushTail appends a node and marks it as a member of this queue.
func (q *FIFO) PushTail(n *Node) {
	n.prev = q.tail
	n.next = nil
	if q.tail != nil {
		q.tail.next = n
	} else {
		q.head = n
	}
	q.tail = n

	n.Queue = q.ID
	q.count++
	q.bytes += n.Size
}

// PopHead detaches and returns the oldest node, or nil if the queue is empty.
func (q *FIFO) PopHead() *Node {
	n := q.head
	if n == nil {
		return nil
	}
	q.unlink(n)
	return n
}

// Remove unlinks a node from any position in the queue.
func (q *FIFO) Remove(n *Node) {
	q.unlink(n)
}

func (q *FIFO) unlink(n *Node) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		q.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		q.tail = n.prev
	}
	n.prev = nil
	n.next = nil

	n.Queue = cache.QueueNone
	q.count--
	q.bytes -= n.Size
}

// AdjustBytes accounts for an in-place size change of a member node.
func (q *FIFO) AdjustBytes(delta int64) {
	q.bytes += delta
}

// Head returns the oldest node without detaching it.
func (q *FIFO) Head() *Node { return q.head }

// Len returns the number of queued nodes.
func (q *FIFO) Len() int { return q.count }

// Bytes returns the accounted bytes of all queued nodes.
func (q *FIFO) Bytes() int64 { return q.bytes }
