package mcserver

import (
	"bytes"
	"compress/zlib"
	"crypto/cipher"
	"errors"
	"io"
	"iter"

	"github.com/gstoney/mcserver/packet"
)

var ErrEncryptionEnabled = errors.New("encryption already enabled")

type TransportConfig struct {
	MaxPacketLen       int32
	MaxDecompressedLen int32
}

// Transport holds the framing state of one connection: inbound bytes not yet
// framed, the compression threshold and the cipher streams.
// Transport does not deserialize packets and does no I/O of its own. It is
// not safe for concurrent use.
type Transport struct {
	in      FrameBuffer
	zReader io.ReadCloser

	// CompressionThreshold applies to both directions. Negative disables
	// compression.
	CompressionThreshold int

	enc, dec cipher.Stream

	cfg TransportConfig
}

func NewTransport(cfg TransportConfig) *Transport {
	return &Transport{
		in:                   FrameBuffer{MaxLen: cfg.MaxPacketLen},
		CompressionThreshold: -1,
		cfg:                  cfg,
	}
}

// Feed appends bytes read off the socket. With encryption on, raw is
// decrypted in place first.
func (t *Transport) Feed(raw []byte) {
	if t.dec != nil {
		t.dec.XORKeyStream(raw, raw)
	}
	t.in.Write(raw)
}

// Buffered reports how many inbound bytes are waiting for a complete frame.
func (t *Transport) Buffered() int {
	return t.in.Buffered()
}

// Frames yields every complete frame buffered so far, in arrival order.
// The sequence stops at the first incomplete frame, or after yielding an
// error; the connection is unusable after an error.
func (t *Transport) Frames() iter.Seq2[Frame, error] {
	return func(yield func(Frame, error) bool) {
		for {
			body, ok, err := t.in.Next()
			if err != nil {
				yield(Frame{}, err)
				return
			}
			if !ok {
				return
			}

			if t.CompressionThreshold >= 0 {
				if body, err = t.inflate(body); err != nil {
					yield(Frame{}, err)
					return
				}
			}

			f, err := ParseFrame(body)
			if err != nil {
				yield(Frame{}, err)
				return
			}
			if !yield(f, nil) {
				return
			}
		}
	}
}

// inflate unwraps [VarInt data length][zlib stream or raw body].
func (t *Transport) inflate(body []byte) ([]byte, error) {
	r := packet.NewFrameReader(body)
	dataLen, err := packet.ReadVarInt(&r)
	if err != nil {
		return nil, err
	}
	rest := r.Bytes()

	switch {
	case dataLen == 0:
		return rest, nil
	case dataLen < 0:
		return nil, ErrInvalidDataLength
	case t.cfg.MaxDecompressedLen > 0 && dataLen > t.cfg.MaxDecompressedLen:
		return nil, ErrPacketTooBig
	}

	src := bytes.NewReader(rest)
	if t.zReader == nil {
		t.zReader, err = zlib.NewReader(src)
	} else {
		err = t.zReader.(zlib.Resetter).Reset(src, nil)
	}
	if err != nil {
		return nil, err
	}

	out := make([]byte, dataLen)
	if _, err := io.ReadFull(t.zReader, out); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrZlibPayloadUnderrun
		}
		return nil, err
	}

	var one [1]byte
	n, err := t.zReader.Read(one[:])
	if err == nil || n > 0 {
		return nil, ErrZlibPayloadOverrun
	} else if err != io.EOF {
		return nil, err
	}

	if src.Len() > 0 {
		return nil, ErrZlibTrailingData
	}
	return out, nil
}

// Seal turns p into wire bytes, compressed and encrypted as configured.
func (t *Transport) Seal(p packet.Encodable) ([]byte, error) {
	return Encode(p, t.CompressionThreshold, t.enc)
}

// EnableEncryption switches both directions to AES/CFB8 keyed by secret.
// Bytes already buffered but not yet framed arrived after the client
// enabled its cipher, so they are decrypted in place.
func (t *Transport) EnableEncryption(secret []byte) error {
	if t.enc != nil {
		return ErrEncryptionEnabled
	}

	enc, dec, err := NewCipherStreams(secret)
	if err != nil {
		return err
	}
	t.enc, t.dec = enc, dec

	if rest := t.in.Unread(); len(rest) > 0 {
		dec.XORKeyStream(rest, rest)
	}
	return nil
}

func (t *Transport) Encrypted() bool {
	return t.enc != nil
}
