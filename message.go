package msgnet

import (
	"encoding/binary"
	"errors"
	"fmt"
	"weak"
)

// ByteOrder is the byte order of every multi-byte field on the wire. Both peers
// must agree on it; there is no negotiation.
var ByteOrder = binary.LittleEndian

var (
	// ErrBodyUnderflow indicates a pop asked for more bytes than the body holds.
	ErrBodyUnderflow = errors.New("message body underflow")

	// ErrNotFlat indicates a value has no fixed binary layout.
	ErrNotFlat = errors.New("value has no fixed binary layout")
)

// ID is the set of integer kinds usable as a message identifier.
type ID interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Scalar is the set of fixed-size values that Push and Pop move in and out of a
// message body.
type Scalar interface {
	ID | ~bool | ~float32 | ~float64 | ~complex64 | ~complex128
}

// Header is the fixed-size prefix of every frame.
type Header[T ID] struct {
	ID   T      // message kind, chosen by the application.
	Size uint32 // body length in bytes.
}

// Message is one application message: a typed header and a raw body.
//
// Fields are stacked: Push appends to the tail of the body and Pop removes
// from the tail, so values come back in the reverse order they were pushed.
type Message[T ID] struct {
	Header Header[T]
	Body   []byte
}

// NewMessage returns an empty message with the given id.
func NewMessage[T ID](id T) *Message[T] {
	return &Message[T]{Header: Header[T]{ID: id}}
}

// HeaderSize returns the encoded header length for id type T.
func HeaderSize[T ID]() int {
	var id T
	return binary.Size(id) + 4
}

// Size returns the encoded frame length: header plus current body.
func (m *Message[T]) Size() int {
	return HeaderSize[T]() + len(m.Body)
}

// Len returns the body length.
func (m *Message[T]) Len() int {
	return len(m.Body)
}

// Reset empties the body and keeps the id.
func (m *Message[T]) Reset() {
	m.Body = m.Body[:0]
	m.Header.Size = 0
}

// Clone returns a deep copy of m.
func (m *Message[T]) Clone() Message[T] {
	out := Message[T]{Header: m.Header}
	if len(m.Body) > 0 {
		out.Body = make([]byte, len(m.Body))
		copy(out.Body, m.Body)
	}
	return out
}

func (m *Message[T]) String() string {
	return fmt.Sprintf("ID:%d Size:%d", m.Header.ID, m.Header.Size)
}

func (m *Message[T]) sync() {
	m.Header.Size = uint32(len(m.Body))
}

// Push appends v to the tail of the body.
func Push[T ID, V Scalar](m *Message[T], v V) *Message[T] {
	// binary.Append cannot fail for Scalar kinds.
	m.Body, _ = binary.Append(m.Body, ByteOrder, v)
	m.sync()
	return m
}

// Pop removes a value from the tail of the body. On ErrBodyUnderflow the
// message is left untouched.
func Pop[V Scalar, T ID](m *Message[T]) (V, error) {
	var v V
	n := binary.Size(v)
	if n > len(m.Body) {
		return v, fmt.Errorf("pop %d bytes from %d: %w", n, len(m.Body), ErrBodyUnderflow)
	}
	i := len(m.Body) - n
	if _, err := binary.Decode(m.Body[i:], ByteOrder, &v); err != nil {
		return v, err
	}
	m.Body = m.Body[:i]
	m.sync()
	return v, nil
}

// PushValue appends a fixed-layout composite value, such as a struct of
// scalars or an array, to the tail of the body.
func PushValue[T ID](m *Message[T], v any) error {
	if binary.Size(v) < 0 {
		return fmt.Errorf("push %T: %w", v, ErrNotFlat)
	}
	body, err := binary.Append(m.Body, ByteOrder, v)
	if err != nil {
		return fmt.Errorf("push %T: %w", v, err)
	}
	m.Body = body
	m.sync()
	return nil
}

// PopValue removes a fixed-layout composite value from the tail of the body
// into the value ptr points to.
func PopValue[T ID](m *Message[T], ptr any) error {
	n := binary.Size(ptr)
	if n < 0 {
		return fmt.Errorf("pop %T: %w", ptr, ErrNotFlat)
	}
	if n > len(m.Body) {
		return fmt.Errorf("pop %d bytes from %d: %w", n, len(m.Body), ErrBodyUnderflow)
	}
	i := len(m.Body) - n
	if _, err := binary.Decode(m.Body[i:], ByteOrder, ptr); err != nil {
		return fmt.Errorf("pop %T: %w", ptr, err)
	}
	m.Body = m.Body[:i]
	m.sync()
	return nil
}

// PushBytes appends b verbatim to the tail of the body.
func PushBytes[T ID](m *Message[T], b []byte) *Message[T] {
	m.Body = append(m.Body, b...)
	m.sync()
	return m
}

// PopBytes removes the trailing n bytes of the body and returns a copy.
func PopBytes[T ID](m *Message[T], n int) ([]byte, error) {
	if n < 0 || n > len(m.Body) {
		return nil, fmt.Errorf("pop %d bytes from %d: %w", n, len(m.Body), ErrBodyUnderflow)
	}
	i := len(m.Body) - n
	out := make([]byte, n)
	copy(out, m.Body[i:])
	m.Body = m.Body[:i]
	m.sync()
	return out, nil
}

// OwnedMessage is an inbound message tagged with the connection it came from.
// The reference to the connection is weak: holding an OwnedMessage does not
// keep a dropped connection alive.
type OwnedMessage[T ID] struct {
	Msg    Message[T]
	remote weak.Pointer[Connection[T]]
}

// NewOwnedMessage tags msg with its origin connection.
func NewOwnedMessage[T ID](c *Connection[T], msg Message[T]) OwnedMessage[T] {
	om := OwnedMessage[T]{Msg: msg}
	if c != nil {
		om.remote = weak.Make(c)
	}
	return om
}

// Remote returns the origin connection, or nil once it has been released.
func (om OwnedMessage[T]) Remote() *Connection[T] {
	return om.remote.Value()
}

func (om OwnedMessage[T]) String() string {
	return om.Msg.String()
}
