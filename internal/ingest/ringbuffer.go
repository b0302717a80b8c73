package ingest

import (
	"sync"
	"sync/atomic"

	"go-guildwatch/internal/models"
)

// RingBuffer is the multi-producer single-consumer queue between the host
// adapters and the engine consume loop. Gateway handlers each run on their
// own goroutine and the feed reader produces alongside them, so Enqueue
// serializes producers behind a mutex; Dequeue stays lock-free for the
// consume loop. Enqueue never blocks; a full buffer drops the event (the
// detectors degrade to "detect less" under overload).
type RingBuffer struct {
	buffer []models.Event
	mask   uint32
	mu     sync.Mutex
	head   uint32
	tail   uint32
	_      [52]byte
}

func NewRingBuffer(size uint32) *RingBuffer {
	if size&(size-1) != 0 {
		size = nextPowerOf2(size)
	}

	return &RingBuffer{
		buffer: make([]models.Event, size),
		mask:   size - 1,
	}
}

func (rb *RingBuffer) Enqueue(event models.Event) bool {
	rb.mu.Lock()

	head := rb.head
	tail := atomic.LoadUint32(&rb.tail)

	nextHead := (head + 1) & rb.mask
	if nextHead == tail {
		rb.mu.Unlock()
		return false
	}

	// slot write must complete before the head store publishes it to the
	// consumer
	rb.buffer[head] = event
	atomic.StoreUint32(&rb.head, nextHead)
	rb.mu.Unlock()
	return true
}

func (rb *RingBuffer) Dequeue() (models.Event, bool) {
	head := atomic.LoadUint32(&rb.head)
	tail := atomic.LoadUint32(&rb.tail)

	if tail == head {
		return models.Event{}, false
	}

	event := rb.buffer[tail]
	atomic.StoreUint32(&rb.tail, (tail+1)&rb.mask)
	return event, true
}

func (rb *RingBuffer) IsEmpty() bool {
	return atomic.LoadUint32(&rb.head) == atomic.LoadUint32(&rb.tail)
}

func (rb *RingBuffer) Size() uint32 {
	head := atomic.LoadUint32(&rb.head)
	tail := atomic.LoadUint32(&rb.tail)

	if head >= tail {
		return head - tail
	}
	return (rb.mask + 1) - (tail - head)
}

func (rb *RingBuffer) Capacity() uint32 {
	return rb.mask + 1
}

func nextPowerOf2(n uint32) uint32 {
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n++
	return n
}
