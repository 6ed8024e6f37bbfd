package wire

import (
	"bytes"
	"errors"
	"testing"
)

// pair is a minimal two-field codec used to exercise the helpers.
type pair struct {
	A uint16
	B uint32
}

func (p *pair) EncodedLen() int { return 1 + 2 + 4 }

func (p *pair) EncodeTo(buf []byte) (int, error) {
	w := NewWriter(buf)
	if err := w.Reserve(p.EncodedLen()); err != nil {
		return 0, err
	}
	w.PutTag(0x01)
	w.PutUint16(p.A)
	w.PutUint32(p.B)
	return w.Offset(), nil
}

func (p *pair) DecodeFrom(buf []byte) (int, error) {
	r := NewReader(buf)
	if err := r.Tag(0x01); err != nil {
		return 0, err
	}
	a, err := r.Uint16()
	if err != nil {
		return 0, err
	}
	b, err := r.Uint32()
	if err != nil {
		return 0, err
	}
	p.A, p.B = a, b
	return r.Offset(), nil
}

func TestMarshalUnmarshal(t *testing.T) {
	in := &pair{A: 7, B: 0xDEADBEEF}

	encoded, err := Marshal(in)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := []byte{0x01, 0x00, 0x07, 0xDE, 0xAD, 0xBE, 0xEF}
	if !bytes.Equal(encoded, want) {
		t.Errorf("Marshal() = %x, want %x", encoded, want)
	}

	out := &pair{}
	if err := Unmarshal(encoded, out); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if *out != *in {
		t.Errorf("Unmarshal() = %+v, want %+v", *out, *in)
	}
}

func TestUnmarshalTrailingBytes(t *testing.T) {
	buf := []byte{0x01, 0x00, 0x07, 0xDE, 0xAD, 0xBE, 0xEF, 0x00}
	err := Unmarshal(buf, &pair{})
	if !errors.Is(err, ErrTrailingBytes) {
		t.Errorf("Unmarshal() error = %v, want %v", err, ErrTrailingBytes)
	}
}

func TestBackToBackDecode(t *testing.T) {
	first, _ := Marshal(&pair{A: 1, B: 2})
	second, _ := Marshal(&pair{A: 3, B: 4})
	stream := append(append([]byte{}, first...), second...)

	r := NewReader(stream)
	var got []pair
	for r.Len() > 0 {
		var p pair
		if err := r.Decode(&p); err != nil {
			t.Fatalf("Decode() error = %v at offset %d", err, r.Offset())
		}
		got = append(got, p)
	}

	if len(got) != 2 || got[0] != (pair{1, 2}) || got[1] != (pair{3, 4}) {
		t.Errorf("decoded stream = %+v", got)
	}
}

func TestWriterEncodeNested(t *testing.T) {
	buf := make([]byte, 14)
	w := NewWriter(buf)
	if err := w.Encode(&pair{A: 1, B: 2}); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if err := w.Encode(&pair{A: 3, B: 4}); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if err := w.Encode(&pair{A: 5, B: 6}); !errors.Is(err, ErrInsufficientCapacity) {
		t.Errorf("Encode() into full buffer error = %v, want %v", err, ErrInsufficientCapacity)
	}
}
