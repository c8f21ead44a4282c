package util

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// node is a single element of the queue's linked list.
type node[T any] struct {
	value *T
	next  atomic.Pointer[node[T]]
}

// MPSC is a lock-free multi-producer single-consumer queue. Producers append
// with atomic CAS operations, a dedicated consumer goroutine forwards items to
// the Recv channel. It backs each peer's replication outbox: any number of
// mutation goroutines may Push concurrently while one sender goroutine drains.
//
// The queue is unbounded; callers that need a bound must stop pushing
// themselves (the broadcaster stops pushing to peers that are not Alive).
// There is no strict FIFO guarantee across concurrent producers.
type MPSC[T any] struct {
	head     atomic.Pointer[node[T]]
	tail     atomic.Pointer[node[T]]
	out      chan *T
	consumer sync.WaitGroup
	closed   atomic.Bool

	mu   sync.Mutex
	cond *sync.Cond
}

// NewMPSC creates a new queue and starts its consumer goroutine.
func NewMPSC[T any]() *MPSC[T] {
	sentinel := &node[T]{}

	q := &MPSC[T]{
		out: make(chan *T),
	}
	q.cond = sync.NewCond(&q.mu)
	q.head.Store(sentinel)
	q.tail.Store(sentinel)

	q.consumer.Add(1)
	go q.consume()

	return q
}

// Push adds an item to the queue. It returns false if the queue is closed or
// the value is nil.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (q *MPSC[T]) Push(value *T) bool {
	if value == nil || q.closed.Load() {
		return false
	}

	newNode := &node[T]{value: value}

	var backoff uint8
	for {
		tailNode := q.tail.Load()
		next := tailNode.next.Load()

		if next == nil {
			if tailNode.next.CompareAndSwap(nil, newNode) {
				// The tail CAS may fail if another producer helped out,
				// the tail still converges.
				q.tail.CompareAndSwap(tailNode, newNode)
				q.cond.Signal()
				return true
			}
		} else {
			// help a producer that appended but has not moved the tail yet
			q.tail.CompareAndSwap(tailNode, next)
		}

		// exponential backoff under contention, spin first, then yield
		if backoff < 10 {
			backoff++
			for i := 0; i < 1<<backoff; i++ {
				runtime.Gosched()
			}
		}
		runtime.Gosched()
	}
}

// consume moves items from the linked list to the output channel.
func (q *MPSC[T]) consume() {
	defer q.consumer.Done()
	defer close(q.out)

	for {
		hasItems := false

		for {
			head := q.head.Load()
			next := head.next.Load()
			if next == nil {
				break
			}

			hasItems = true
			value := next.value

			// advance head so the old node can be collected
			q.head.Store(next)
			q.out <- value
			next.value = nil
		}

		if !hasItems && q.closed.Load() {
			return
		}

		if !hasItems {
			q.mu.Lock()
			head := q.head.Load()
			if head.next.Load() == nil && !q.closed.Load() {
				q.cond.Wait()
			}
			q.mu.Unlock()
		}
	}
}

// Recv returns the receive-only channel the consumer drains from.
// The channel is closed after Close once all remaining items were delivered.
func (q *MPSC[T]) Recv() <-chan *T {
	return q.out
}

// Close closes the queue for writes. Items already queued are still delivered.
func (q *MPSC[T]) Close() {
	q.closed.Store(true)
	q.cond.Signal()
}

// IsClosed reports whether the queue has been closed.
func (q *MPSC[T]) IsClosed() bool {
	return q.closed.Load()
}
