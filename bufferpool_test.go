package msgnet

import (
	"testing"
)

// nextPow2 returns the smallest power of two >= v, with a minimum of minBufferSize.
func nextPow2(v int) int {
	res := minBufferSize
	for res < v {
		res <<= 1
	}
	return res
}

func TestGetBufferBasic(t *testing.T) {
	cases := []struct {
		size        int
		expectedCap int
	}{
		{size: 1, expectedCap: 16},
		{size: 12, expectedCap: 16},
		{size: 16, expectedCap: 16},
		{size: 17, expectedCap: 32},
		{size: 1000, expectedCap: nextPow2(1000)},
		{size: maxBufferSize, expectedCap: maxBufferSize},
	}

	for _, c := range cases {
		bufp := frameBuffers.getBuffer(c.size)
		if len(*bufp) != c.size {
			t.Errorf("getBuffer(%d) returned len %d, want %d", c.size, len(*bufp), c.size)
		}
		if capBuf := cap(*bufp); capBuf != c.expectedCap {
			t.Errorf("getBuffer(%d) returned cap %d, want %d", c.size, capBuf, c.expectedCap)
		}
		// return buffer to pool
		frameBuffers.putBuffer(bufp)
	}
}

func TestGetBufferLarge(t *testing.T) {
	// request size > maxBufferSize should allocate exact size
	large := maxBufferSize*2 + 1
	bufp := frameBuffers.getBuffer(large)
	if len(*bufp) != large {
		t.Errorf("getBuffer(large) returned len %d, want %d", len(*bufp), large)
	}
	if cap(*bufp) != large {
		t.Errorf("getBuffer(large) returned cap %d, want %d", cap(*bufp), large)
	}
	// putBuffer should not panic
	frameBuffers.putBuffer(bufp)
	frameBuffers.putBuffer(nil)
}
