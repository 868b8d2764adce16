package msgnet

import (
	"sync"
)

const (
	// minBufferSize is the smallest pooled size class.
	minBufferSize = 16
	// maxBufferSize is the maximum size of buffers that will be pooled.
	maxBufferSize = 64 * 1024 // 64KB
)

// bufferPool recycles scratch byte slices in power-of-two size classes.
type bufferPool struct {
	pools []*sync.Pool
}

// frameBuffers is shared by every frame reader and writer in the process.
var frameBuffers = newBufferPool()

func newBufferPool() *bufferPool {
	bp := &bufferPool{}
	for size := minBufferSize; size <= maxBufferSize; size <<= 1 {
		bp.pools = append(bp.pools, &sync.Pool{
			New: func() any {
				b := make([]byte, size)
				return &b
			},
		})
	}

	return bp
}

// class returns the pool index for size, or -1 when size is not pooled.
func (bp *bufferPool) class(size int) int {
	if size > maxBufferSize {
		return -1
	}
	idx := 0
	for c := minBufferSize; c < size; c <<= 1 {
		idx++
	}
	return idx
}

// getBuffer returns a slice of exactly size bytes. Its capacity is the size
// class the request fell into.
func (bp *bufferPool) getBuffer(size int) *[]byte {
	idx := bp.class(size)
	if idx < 0 {
		b := make([]byte, size)
		return &b
	}
	bufp := bp.pools[idx].Get().(*[]byte)
	*bufp = (*bufp)[:size]
	return bufp
}

// putBuffer returns a buffer obtained from getBuffer.
func (bp *bufferPool) putBuffer(bufp *[]byte) {
	if bufp == nil {
		return
	}
	c := cap(*bufp)
	idx := bp.class(c)
	if idx < 0 || minBufferSize<<idx != c {
		return // don't pool odd or oversized buffers.
	}
	*bufp = (*bufp)[:c]
	bp.pools[idx].Put(bufp)
}
