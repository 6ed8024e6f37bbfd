package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/libp2p/go-libp2p/core/network"

	"github.com/ZentaChain/zentalk-wire/pkg/wire"
)

// MaxFrameSize bounds a single conference frame on a stream. The largest
// conference packet (an Action or Message at the text limit) is well below it.
const MaxFrameSize = 2048

// frameHeaderSize is the big-endian u16 length prefix
const frameHeaderSize = 2

var (
	ErrFrameTooLarge = errors.New("frame too large")
	ErrEmptyFrame    = errors.New("empty frame")
)

// WriteFrame writes one length-prefixed frame
func WriteFrame(w io.Writer, frame []byte) error {
	if len(frame) == 0 {
		return ErrEmptyFrame
	}
	if len(frame) > MaxFrameSize {
		return fmt.Errorf("%w: %d bytes, max %d", ErrFrameTooLarge, len(frame), MaxFrameSize)
	}

	buf := make([]byte, frameHeaderSize+len(frame))
	fw := wire.NewWriter(buf)
	if err := fw.PutUint16(uint16(len(frame))); err != nil {
		return err
	}
	if err := fw.PutBytes(frame); err != nil {
		return err
	}

	_, err := w.Write(buf)
	return err
}

// ReadFrame reads one length-prefixed frame. A clean end of stream before the
// prefix returns io.EOF; an end inside a frame returns io.ErrUnexpectedEOF.
func ReadFrame(r io.Reader) ([]byte, error) {
	var hdr [frameHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}

	size, err := wire.NewReader(hdr[:]).Uint16()
	if err != nil {
		return nil, err
	}
	if size == 0 {
		return nil, ErrEmptyFrame
	}
	if size > MaxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes, max %d", ErrFrameTooLarge, size, MaxFrameSize)
	}

	frame := make([]byte, size)
	if _, err := io.ReadFull(r, frame); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return frame, nil
}

// streamSink writes frames to a libp2p stream. A blocked write is cut short
// when ctx ends by moving the stream's write deadline.
type streamSink struct {
	stream network.Stream
}

func (s streamSink) Send(ctx context.Context, frame []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if deadline, ok := ctx.Deadline(); ok {
		s.stream.SetWriteDeadline(deadline)
	} else {
		s.stream.SetWriteDeadline(time.Time{})
	}
	stop := context.AfterFunc(ctx, func() {
		s.stream.SetWriteDeadline(time.Now())
	})
	defer stop()

	if err := WriteFrame(s.stream, frame); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}
