package transport

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	frames := [][]byte{
		{0x63},
		bytes.Repeat([]byte{0xAB}, 76),
		bytes.Repeat([]byte{0x01}, MaxFrameSize),
	}

	var buf bytes.Buffer
	for _, f := range frames {
		if err := WriteFrame(&buf, f); err != nil {
			t.Fatalf("WriteFrame(%d bytes) error = %v", len(f), err)
		}
	}

	for i, want := range frames {
		got, err := ReadFrame(&buf)
		if err != nil {
			t.Fatalf("ReadFrame() #%d error = %v", i, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("ReadFrame() #%d = %d bytes, want %d", i, len(got), len(want))
		}
	}

	if _, err := ReadFrame(&buf); !errors.Is(err, io.EOF) {
		t.Errorf("ReadFrame() at end error = %v, want io.EOF", err)
	}
}

func TestFrameLengthPrefix(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, []byte{0xDE, 0xAD, 0xBE}); err != nil {
		t.Fatal(err)
	}
	want := []byte{0x00, 0x03, 0xDE, 0xAD, 0xBE}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("WriteFrame() wrote %x, want %x", buf.Bytes(), want)
	}
}

func TestFrameErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   []byte
		wantErr error
	}{
		{"half prefix", []byte{0x00}, io.ErrUnexpectedEOF},
		{"zero length", []byte{0x00, 0x00}, ErrEmptyFrame},
		{"too large", []byte{0x08, 0x01}, ErrFrameTooLarge},
		{"short body", []byte{0x00, 0x04, 0x01, 0x02}, io.ErrUnexpectedEOF},
		{"prefix only", []byte{0x00, 0x04}, io.ErrUnexpectedEOF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadFrame(bytes.NewReader(tt.input))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ReadFrame() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	var buf bytes.Buffer
	if err := WriteFrame(&buf, nil); !errors.Is(err, ErrEmptyFrame) {
		t.Errorf("WriteFrame(nil) error = %v, want %v", err, ErrEmptyFrame)
	}
	if err := WriteFrame(&buf, make([]byte, MaxFrameSize+1)); !errors.Is(err, ErrFrameTooLarge) {
		t.Errorf("WriteFrame(oversized) error = %v, want %v", err, ErrFrameTooLarge)
	}
	if buf.Len() != 0 {
		t.Errorf("failed writes left %d bytes", buf.Len())
	}
}
