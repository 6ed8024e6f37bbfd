package wire

import "errors"

// Codec errors. They are always local to one DecodeFrom/EncodeTo call and are
// returned wrapped with offset context, so match them with errors.Is.
var (
	ErrWrongTag             = errors.New("wrong tag")
	ErrTruncated            = errors.New("truncated input")
	ErrInsufficientCapacity = errors.New("insufficient buffer capacity")
	ErrMalformed            = errors.New("malformed field")
	ErrTrailingBytes        = errors.New("trailing bytes after packet")
)
