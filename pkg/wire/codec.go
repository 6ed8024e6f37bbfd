package wire

import "fmt"

// Decoder is implemented by every type with a binary wire form.
//
// DecodeFrom parses one value from the front of buf and returns the number of
// bytes consumed, so that values can be decoded back-to-back from one buffer.
// It never reads past len(buf) and never panics. On error the receiver is left
// unchanged: a decode is all or nothing.
type Decoder interface {
	DecodeFrom(buf []byte) (int, error)
}

// Encoder is the write half of the codec.
//
// EncodeTo writes exactly EncodedLen() bytes to the front of buf and returns
// that count. When len(buf) < EncodedLen() it fails with
// ErrInsufficientCapacity before writing anything.
type Encoder interface {
	EncodedLen() int
	EncodeTo(buf []byte) (int, error)
}

// Codec is the full decode/encode pair
type Codec interface {
	Encoder
	Decoder
}

// Marshal encodes e into a freshly allocated slice of exactly EncodedLen() bytes.
func Marshal(e Encoder) ([]byte, error) {
	buf := make([]byte, e.EncodedLen())
	n, err := e.EncodeTo(buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

// Unmarshal decodes d from buf and requires that buf holds nothing else.
// On ErrTrailingBytes d has already been filled; decode into a temporary when
// the caller's value must stay untouched.
func Unmarshal(buf []byte, d Decoder) error {
	n, err := d.DecodeFrom(buf)
	if err != nil {
		return err
	}
	if n != len(buf) {
		return fmt.Errorf("%w: %d of %d bytes unread", ErrTrailingBytes, len(buf)-n, len(buf))
	}
	return nil
}
