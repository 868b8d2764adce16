package msgnet

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrMaxLenExceeded indicates a frame body exceeds the maximum allowed length.
var ErrMaxLenExceeded = errors.New("maximum message length exceeded")

// EncodeHeader writes the wire form of h into dst, which must hold at least
// HeaderSize[T]() bytes.
func EncodeHeader[T ID](dst []byte, h Header[T]) {
	n, _ := binary.Encode(dst, ByteOrder, h.ID)
	ByteOrder.PutUint32(dst[n:], h.Size)
}

// DecodeHeader parses a header from the first HeaderSize[T]() bytes of src.
func DecodeHeader[T ID](src []byte) (Header[T], error) {
	var h Header[T]
	if len(src) < HeaderSize[T]() {
		return h, io.ErrUnexpectedEOF
	}
	n, err := binary.Decode(src, ByteOrder, &h.ID)
	if err != nil {
		return h, err
	}
	h.Size = ByteOrder.Uint32(src[n:])
	return h, nil
}

// WriteMessage writes one frame: the header, then the body. The body write is
// skipped when the body is empty.
func WriteMessage[T ID](w io.Writer, m *Message[T]) error {
	if uint64(len(m.Body)) > uint64(^uint32(0)) {
		return ErrMaxLenExceeded
	}
	m.sync()

	bufp := frameBuffers.getBuffer(HeaderSize[T]())
	defer frameBuffers.putBuffer(bufp)

	EncodeHeader(*bufp, m.Header)
	if _, err := w.Write(*bufp); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if len(m.Body) == 0 {
		return nil
	}
	if _, err := w.Write(m.Body); err != nil {
		return fmt.Errorf("writing body: %w", err)
	}

	return nil
}

// ReadMessage reads exactly one frame. A header announcing more than maxBody
// bytes fails with ErrMaxLenExceeded before the body is read; maxBody of 0
// means no limit.
func ReadMessage[T ID](r io.Reader, maxBody uint32) (Message[T], error) {
	var m Message[T]

	bufp := frameBuffers.getBuffer(HeaderSize[T]())
	defer frameBuffers.putBuffer(bufp)

	if _, err := io.ReadFull(r, *bufp); err != nil {
		return m, err
	}
	h, err := DecodeHeader[T](*bufp)
	if err != nil {
		return m, err
	}
	if maxBody > 0 && h.Size > maxBody {
		return m, fmt.Errorf("body of %d bytes: %w", h.Size, ErrMaxLenExceeded)
	}

	m.Header = h
	if h.Size == 0 {
		return m, nil
	}
	m.Body = make([]byte, h.Size)
	if _, err := io.ReadFull(r, m.Body); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return m, fmt.Errorf("reading body: %w", err)
	}

	return m, nil
}
