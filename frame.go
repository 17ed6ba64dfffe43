package mcserver

import (
	"errors"
	"fmt"
	"io"

	"github.com/gstoney/mcserver/packet"
)

var (
	ErrPacketTooBig        = errors.New("packet too big")
	ErrInvalidFrameLength  = errors.New("invalid frame length")
	ErrInvalidDataLength   = errors.New("invalid data length")
	ErrZlibPayloadOverrun  = errors.New("zlib stream exceeds declared payload length")
	ErrZlibPayloadUnderrun = errors.New("zlib stream shorter than declared payload length")
	ErrZlibTrailingData    = errors.New("trailing data in frame after zlib stream ends")
)

// Frame is one packet as it arrived on the wire:
// [VarInt length][VarInt packet id][payload].
type Frame struct {
	ID      int32
	Length  int32 // bytes of packet id plus payload
	Payload packet.FrameReader
}

// ParseFrame reads the packet id off body, which holds exactly one frame
// without its length prefix. The payload aliases body.
func ParseFrame(body []byte) (Frame, error) {
	r := packet.NewFrameReader(body)
	id, err := packet.ReadVarInt(&r)
	if err != nil {
		return Frame{}, fmt.Errorf("packet id: %w", err)
	}
	return Frame{ID: id, Length: int32(len(body)), Payload: r}, nil
}

// FrameBuffer accumulates inbound bytes and cuts them into frame bodies.
// Bytes of an incomplete trailing frame stay buffered until a later Write
// completes it.
type FrameBuffer struct {
	buf []byte
	off int

	// MaxLen bounds the declared frame length. Zero means no bound.
	MaxLen int32
}

func (b *FrameBuffer) Write(p []byte) (int, error) {
	if b.off > 0 {
		n := copy(b.buf, b.buf[b.off:])
		b.buf = b.buf[:n]
		b.off = 0
	}
	b.buf = append(b.buf, p...)
	return len(p), nil
}

// Buffered reports the number of bytes not yet claimed by a frame.
func (b *FrameBuffer) Buffered() int {
	return len(b.buf) - b.off
}

// Unread returns the bytes not yet claimed by a frame. The slice aliases the
// buffer and is valid until the next Write.
func (b *FrameBuffer) Unread() []byte {
	return b.buf[b.off:]
}

// Next returns a copy of the next complete frame body, length prefix
// stripped. ok is false when no complete frame is buffered.
func (b *FrameBuffer) Next() (body []byte, ok bool, err error) {
	data := b.buf[b.off:]
	if len(data) == 0 {
		return nil, false, nil
	}

	length, n, err := packet.ConsumeVarInt(data)
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, false, nil
		}
		return nil, false, err
	}

	if length < 1 {
		return nil, false, ErrInvalidFrameLength
	}
	if b.MaxLen > 0 && length > b.MaxLen {
		return nil, false, ErrPacketTooBig
	}
	if len(data)-n < int(length) {
		return nil, false, nil
	}

	body = make([]byte, length)
	copy(body, data[n:n+int(length)])
	b.off += n + int(length)
	return body, true, nil
}

// SplitFrames splits a batch of back-to-back frames. The bytes of a trailing
// incomplete frame are returned as rest so the caller can prepend them to
// the next read. An error aborts the batch; frames parsed before it are
// still returned.
func SplitFrames(buf []byte) (frames []Frame, rest []byte, err error) {
	fb := FrameBuffer{buf: buf}
	for {
		body, ok, err := fb.Next()
		if err != nil {
			return frames, nil, err
		}
		if !ok {
			break
		}

		f, err := ParseFrame(body)
		if err != nil {
			return frames, nil, err
		}
		frames = append(frames, f)
	}
	return frames, fb.Unread(), nil
}
