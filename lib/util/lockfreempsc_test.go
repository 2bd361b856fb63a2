package util

import (
	"sync"
	"testing"
	"time"
)

// TestBasicOperations tests push and receive in order for a single producer
func TestBasicOperations(t *testing.T) {
	q := NewLockFreeMPSC[int]()
	defer q.Close()

	for i := 0; i < 10; i++ {
		i := i
		if !q.Push(&i) {
			t.Fatalf("Failed to push item %d", i)
		}
	}

	for i := 0; i < 10; i++ {
		select {
		case val := <-q.Recv():
			if *val != i {
				t.Errorf("Expected %d, got %d", i, *val)
			}
		case <-time.After(time.Second):
			t.Fatalf("Timeout waiting for item %d", i)
		}
	}

	select {
	case val := <-q.Recv():
		t.Errorf("Queue should be empty, but got %v", *val)
	case <-time.After(10 * time.Millisecond):
	}
}

// TestPushNil tests that nil items are rejected
func TestPushNil(t *testing.T) {
	q := NewLockFreeMPSC[int]()
	defer q.Close()

	if q.Push(nil) {
		t.Error("Push(nil) should return false")
	}
}

// TestConcurrentProducers verifies that every item of every producer arrives exactly once
func TestConcurrentProducers(t *testing.T) {
	q := NewLockFreeMPSC[int]()
	defer q.Close()

	const numProducers = 8
	const itemsPerProducer = 500
	total := numProducers * itemsPerProducer

	received := make(map[int]bool, total)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for len(received) < total {
			select {
			case val := <-q.Recv():
				if received[*val] {
					t.Errorf("Duplicate item received: %d", *val)
				}
				received[*val] = true
			case <-time.After(2 * time.Second):
				t.Errorf("Timeout, received %d of %d", len(received), total)
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for p := 0; p < numProducers; p++ {
		wg.Add(1)
		go func(producer int) {
			defer wg.Done()
			for i := 0; i < itemsPerProducer; i++ {
				v := producer*itemsPerProducer + i
				if !q.Push(&v) {
					t.Errorf("Producer %d failed to push %d", producer, i)
				}
			}
		}(p)
	}
	wg.Wait()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Timeout waiting for consumer")
	}

	if len(received) != total {
		t.Errorf("Expected %d items, got %d", total, len(received))
	}
}

// TestCloseQueue verifies that queued items survive Close and the channel closes afterwards
func TestCloseQueue(t *testing.T) {
	q := NewLockFreeMPSC[string]()

	for _, s := range []string{"a", "b", "c"} {
		s := s
		q.Push(&s)
	}
	q.Close()

	late := "late"
	if q.Push(&late) {
		t.Error("Should not be able to push after queue is closed")
	}
	if !q.IsClosed() {
		t.Error("IsClosed should report true")
	}

	var got []string
	for val := range q.Recv() {
		got = append(got, *val)
	}

	if len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Errorf("Expected [a b c], got %v", got)
	}

	select {
	case <-q.Done():
	case <-time.After(time.Second):
		t.Error("Consumer goroutine did not exit after Close")
	}
}

// BenchmarkMultiProducer benchmarks the queue with parallel producers
func BenchmarkMultiProducer(b *testing.B) {
	q := NewLockFreeMPSC[int]()
	defer q.Close()

	go func() {
		for range q.Recv() {
		}
	}()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			q.Push(&i)
			i++
		}
	})
}
