package util

import (
	"sync"
	"testing"
	"time"
)

// TestBasicOperations tests basic push and consume functionality
func TestBasicOperations(t *testing.T) {
	q := NewMPSC[int]()
	defer q.Close()

	// Push 10 items
	for i := 0; i < 10; i++ {
		if !q.Push(&i) {
			t.Fatalf("Failed to push item %d", i)
		}
	}

	// Consume 10 items
	for i := 0; i < 10; i++ {
		select {
		case val := <-q.Recv():
			if *val != i {
				t.Errorf("Expected %d, got %v", i, *val)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("Timeout waiting for item %d", i)
		}
	}

	// Make sure queue is empty
	select {
	case val := <-q.Recv():
		t.Errorf("Queue should be empty, but got %v", val)
	case <-time.After(10 * time.Millisecond):
		// Expected timeout, queue is empty
	}
}

// TestConcurrentProducers verifies the queue works correctly with multiple producers
func TestConcurrentProducers(t *testing.T) {
	q := NewMPSC[int]()
	defer q.Close()

	const numProducers = 10
	const itemsPerProducer = 1000
	totalItems := numProducers * itemsPerProducer

	received := make(map[int]bool)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for len(received) < totalItems {
			select {
			case val := <-q.Recv():
				if val == nil {
					t.Errorf("Received nil item")
					return
				}
				if received[*val] {
					t.Errorf("Duplicate item received: %d", *val)
				}
				received[*val] = true
			case <-time.After(5 * time.Second):
				t.Errorf("Timeout, received only %d of %d items", len(received), totalItems)
				return
			}
		}
	}()

	// each producer pushes a disjoint range of values
	var wg sync.WaitGroup
	for p := 0; p < numProducers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < itemsPerProducer; i++ {
				v := p*itemsPerProducer + i
				if !q.Push(&v) {
					t.Errorf("Failed to push item %d", v)
				}
			}
		}(p)
	}

	wg.Wait()
	<-done

	if len(received) != totalItems {
		t.Errorf("Expected %d items, received %d", totalItems, len(received))
	}
}

// TestCloseDelivery verifies queued items are still delivered after Close
func TestCloseDelivery(t *testing.T) {
	q := NewMPSC[int]()

	for i := 0; i < 5; i++ {
		q.Push(&i)
	}
	q.Close()

	if !q.IsClosed() {
		t.Error("Queue should report closed")
	}
	if v := 99; q.Push(&v) {
		t.Error("Push after Close should fail")
	}

	// all 5 items arrive, then the channel closes
	count := 0
	for range q.Recv() {
		count++
	}
	if count != 5 {
		t.Errorf("Expected 5 items before channel close, got %d", count)
	}
}

func TestPushNil(t *testing.T) {
	q := NewMPSC[int]()
	defer q.Close()

	if q.Push(nil) {
		t.Error("Pushing nil should fail")
	}
}
