package mcserver

import (
	"bytes"
	"compress/zlib"
	"crypto/cipher"
	"errors"

	"github.com/gstoney/mcserver/packet"
)

var ErrEncoderFinalized = errors.New("encoder already finalized")

// Encoder accumulates the payload of one outgoing packet. Finalize turns it
// into wire bytes exactly once.
type Encoder struct {
	id        int32
	payload   bytes.Buffer
	finalized bool
}

func NewEncoder(id int32) *Encoder {
	return &Encoder{id: id}
}

func (e *Encoder) Write(p []byte) (int, error) {
	if e.finalized {
		return 0, ErrEncoderFinalized
	}
	return e.payload.Write(p)
}

func (e *Encoder) WriteByte(c byte) error {
	if e.finalized {
		return ErrEncoderFinalized
	}
	return e.payload.WriteByte(c)
}

// Len reports the payload length written so far.
func (e *Encoder) Len() int {
	return e.payload.Len()
}

// Finalize frames the packet. A negative threshold means compression is off.
// Otherwise the body is zlib compressed when it is at least threshold bytes
// long, and sent with a zero data length when it is not. A non-nil stream
// encrypts the whole frame, length prefix included.
func (e *Encoder) Finalize(threshold int, stream cipher.Stream) ([]byte, error) {
	if e.finalized {
		return nil, ErrEncoderFinalized
	}
	e.finalized = true

	bodyLen := packet.VarIntSize(e.id) + e.payload.Len()

	var frame []byte
	if threshold < 0 {
		frame = make([]byte, 0, packet.VarIntSize(int32(bodyLen))+bodyLen)
		frame = packet.AppendVarInt(frame, int32(bodyLen))
		frame = packet.AppendVarInt(frame, e.id)
		frame = append(frame, e.payload.Bytes()...)
	} else {
		var inner bytes.Buffer
		if bodyLen >= threshold {
			if err := packet.WriteVarInt(&inner, int32(bodyLen)); err != nil {
				return nil, err
			}
			zw := zlib.NewWriter(&inner)
			if err := packet.WriteVarInt(zw, e.id); err != nil {
				return nil, err
			}
			if _, err := zw.Write(e.payload.Bytes()); err != nil {
				return nil, err
			}
			if err := zw.Close(); err != nil {
				return nil, err
			}
		} else {
			inner.WriteByte(0)
			inner.Write(packet.AppendVarInt(nil, e.id))
			inner.Write(e.payload.Bytes())
		}

		frame = make([]byte, 0, packet.MaxVarIntLen+inner.Len())
		frame = packet.AppendVarInt(frame, int32(inner.Len()))
		frame = append(frame, inner.Bytes()...)
	}

	if stream != nil {
		stream.XORKeyStream(frame, frame)
	}
	return frame, nil
}

// Encode writes p through a fresh Encoder and finalizes it.
func Encode(p packet.Encodable, threshold int, stream cipher.Stream) ([]byte, error) {
	e := NewEncoder(p.ID())
	if err := p.Encode(e); err != nil {
		return nil, err
	}
	return e.Finalize(threshold, stream)
}
