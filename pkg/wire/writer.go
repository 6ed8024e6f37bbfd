package wire

import (
	"encoding/binary"
	"fmt"
)

// Writer is a write cursor over a destination buffer. The capacity of the
// destination is len(buf); a put that does not fit fails and writes nothing.
type Writer struct {
	buf []byte
	off int
}

// NewWriter returns a Writer positioned at the start of buf
func NewWriter(buf []byte) *Writer {
	return &Writer{buf: buf}
}

// Offset returns the number of bytes written so far
func (w *Writer) Offset() int {
	return w.off
}

// Remaining returns the unused capacity
func (w *Writer) Remaining() int {
	return len(w.buf) - w.off
}

// Reserve fails unless at least n bytes of capacity remain. Encoders call it
// once with their full length so that nothing is written on failure.
func (w *Writer) Reserve(n int) error {
	if w.Remaining() < n {
		return fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrInsufficientCapacity, n, w.off, w.Remaining())
	}
	return nil
}

// PutTag writes a constant tag byte
func (w *Writer) PutTag(tag byte) error {
	return w.PutUint8(tag)
}

// PutUint8 writes one byte
func (w *Writer) PutUint8(v uint8) error {
	if err := w.Reserve(1); err != nil {
		return err
	}
	w.buf[w.off] = v
	w.off++
	return nil
}

// PutUint16 writes a big-endian uint16
func (w *Writer) PutUint16(v uint16) error {
	if err := w.Reserve(2); err != nil {
		return err
	}
	binary.BigEndian.PutUint16(w.buf[w.off:], v)
	w.off += 2
	return nil
}

// PutUint32 writes a big-endian uint32
func (w *Writer) PutUint32(v uint32) error {
	if err := w.Reserve(4); err != nil {
		return err
	}
	binary.BigEndian.PutUint32(w.buf[w.off:], v)
	w.off += 4
	return nil
}

// PutUint64 writes a big-endian uint64
func (w *Writer) PutUint64(v uint64) error {
	if err := w.Reserve(8); err != nil {
		return err
	}
	binary.BigEndian.PutUint64(w.buf[w.off:], v)
	w.off += 8
	return nil
}

// PutBytes writes p verbatim
func (w *Writer) PutBytes(p []byte) error {
	if err := w.Reserve(len(p)); err != nil {
		return err
	}
	w.off += copy(w.buf[w.off:], p)
	return nil
}

// Encode writes e at the current offset
func (w *Writer) Encode(e Encoder) error {
	n, err := e.EncodeTo(w.buf[w.off:])
	if err != nil {
		return err
	}
	w.off += n
	return nil
}
