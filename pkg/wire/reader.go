package wire

import (
	"encoding/binary"
	"fmt"
)

// Reader is a read cursor over an immutable byte slice.
// Every read either advances the cursor by the full width or fails without
// advancing it.
type Reader struct {
	buf []byte
	off int
}

// NewReader returns a Reader positioned at the start of buf
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Offset returns the number of bytes consumed so far
func (r *Reader) Offset() int {
	return r.off
}

// Len returns the number of unread bytes
func (r *Reader) Len() int {
	return len(r.buf) - r.off
}

func (r *Reader) need(n int) error {
	if r.Len() < n {
		return fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrTruncated, n, r.off, r.Len())
	}
	return nil
}

// Tag consumes one byte and checks that it equals want.
func (r *Reader) Tag(want byte) error {
	if err := r.need(1); err != nil {
		return err
	}
	if got := r.buf[r.off]; got != want {
		return fmt.Errorf("%w: 0x%02x at offset %d, want 0x%02x", ErrWrongTag, got, r.off, want)
	}
	r.off++
	return nil
}

// Uint8 reads one byte
func (r *Reader) Uint8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.buf[r.off]
	r.off++
	return v, nil
}

// Uint16 reads a big-endian uint16
func (r *Reader) Uint16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v, nil
}

// Uint32 reads a big-endian uint32
func (r *Reader) Uint32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v, nil
}

// Uint64 reads a big-endian uint64
func (r *Reader) Uint64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return v, nil
}

// Bytes returns the next n bytes as a sub-slice of the input. The result
// aliases the input; copy it if it must outlive the buffer.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative length %d", ErrMalformed, n)
	}
	if err := r.need(n); err != nil {
		return nil, err
	}
	v := r.buf[r.off : r.off+n : r.off+n]
	r.off += n
	return v, nil
}

// Decode runs d against the unread bytes and advances by what it consumed.
func (r *Reader) Decode(d Decoder) error {
	n, err := d.DecodeFrom(r.buf[r.off:])
	if err != nil {
		return err
	}
	r.off += n
	return nil
}

// Rest consumes and returns all unread bytes
func (r *Reader) Rest() []byte {
	v := r.buf[r.off:len(r.buf):len(r.buf)]
	r.off = len(r.buf)
	return v
}
