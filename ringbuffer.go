package msgnet

// minRingSize is the capacity a RingBuffer starts with on first insert.
const minRingSize = 16

// nextPow2Uint64 returns the smallest power of two >= v with a minimum of 1.
func nextPow2Uint64(v uint64) uint64 {
	if v == 0 {
		return 1
	}
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v |= v >> 32
	return v + 1
}

// RingBuffer is a growable double-ended circular buffer for items of any type.
// It is not safe for concurrent use; TSQueue supplies the locking.
type RingBuffer[T any] struct {
	buf  []T    // underlying buffer array, length is a power of two.
	mask uint64 // mask for index wrapping.
	head uint64 // position of the first item.
	tail uint64 // position after the last item.
}

// NewRingBuffer creates a new RingBuffer with capacity rounded up to a power of two.
func NewRingBuffer[T any](size uint64) *RingBuffer[T] {
	c := nextPow2Uint64(size)
	return &RingBuffer[T]{
		buf:  make([]T, c),
		mask: c - 1,
	}
}

// grow doubles the capacity, unwrapping the items to the start of the new buffer.
func (r *RingBuffer[T]) grow() {
	n := r.tail - r.head
	c := nextPow2Uint64(uint64(len(r.buf)) * 2)
	if c < minRingSize {
		c = minRingSize
	}
	buf := make([]T, c)
	for i := uint64(0); i < n; i++ {
		buf[i] = r.buf[(r.head+i)&r.mask]
	}
	r.buf = buf
	r.mask = c - 1
	r.head = 0
	r.tail = n
}

func (r *RingBuffer[T]) full() bool {
	return r.tail-r.head == uint64(len(r.buf))
}

// PushBack adds an item at the back, growing the buffer when full.
func (r *RingBuffer[T]) PushBack(item T) {
	if r.full() {
		r.grow()
	}
	r.buf[r.tail&r.mask] = item
	r.tail++
}

// PushFront adds an item at the front, growing the buffer when full.
func (r *RingBuffer[T]) PushFront(item T) {
	if r.full() {
		r.grow()
	}
	r.head--
	r.buf[r.head&r.mask] = item
}

// PopFront removes and returns the front item. It returns false if the buffer is empty.
func (r *RingBuffer[T]) PopFront() (T, bool) {
	var zero T
	if r.tail == r.head {
		return zero, false
	}
	i := r.head & r.mask
	item := r.buf[i]
	r.buf[i] = zero
	r.head++
	return item, true
}

// PopBack removes and returns the back item. It returns false if the buffer is empty.
func (r *RingBuffer[T]) PopBack() (T, bool) {
	var zero T
	if r.tail == r.head {
		return zero, false
	}
	r.tail--
	i := r.tail & r.mask
	item := r.buf[i]
	r.buf[i] = zero
	return item, true
}

// Front returns the front item without removing it.
func (r *RingBuffer[T]) Front() (T, bool) {
	var zero T
	if r.tail == r.head {
		return zero, false
	}
	return r.buf[r.head&r.mask], true
}

// Back returns the back item without removing it.
func (r *RingBuffer[T]) Back() (T, bool) {
	var zero T
	if r.tail == r.head {
		return zero, false
	}
	return r.buf[(r.tail-1)&r.mask], true
}

// Clear drops every item, keeping the allocated capacity.
func (r *RingBuffer[T]) Clear() {
	clear(r.buf)
	r.head, r.tail = 0, 0
}

// Len returns the number of items in the buffer.
func (r *RingBuffer[T]) Len() uint64 {
	return r.tail - r.head
}

// Cap returns the capacity of the buffer.
func (r *RingBuffer[T]) Cap() uint64 {
	return uint64(len(r.buf))
}
