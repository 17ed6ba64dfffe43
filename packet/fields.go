package packet

import (
	"encoding/binary"
	"errors"
	"io"
)

// Reader is a bounded cursor over one packet payload.
type Reader interface {
	io.ByteReader
	Read(n int) ([]byte, error)
}

func WriteUnsignedShort(w io.Writer, v uint16) (err error) {
	return binary.Write(w, binary.BigEndian, v)
}

func ReadUnsignedShort(r Reader) (v uint16, err error) {
	b, err := r.Read(2)
	if err != nil {
		return
	}

	v = binary.BigEndian.Uint16(b)
	return
}

func WriteLong(w io.Writer, v int64) (err error) {
	return binary.Write(w, binary.BigEndian, v)
}

func ReadLong(r Reader) (v int64, err error) {
	b, err := r.Read(8)
	if err != nil {
		return
	}

	v = int64(binary.BigEndian.Uint64(b))
	return
}

var (
	ErrVarIntTooLong  = errors.New("VarInt is too long")
	ErrVarLongTooLong = errors.New("VarLong is too long")
)

const (
	MaxVarIntLen  = 5
	MaxVarLongLen = 10
)

func WriteVarInt(w io.Writer, v int32) error {
	var buf [MaxVarIntLen]byte
	_, err := w.Write(AppendVarInt(buf[:0], v))
	return err
}

// AppendVarInt appends the encoding of v to b. The value is encoded as its
// 32-bit pattern, so negative numbers always take five bytes.
func AppendVarInt(b []byte, v int32) []byte {
	uv := uint32(v)
	for {
		c := byte(uv & 0x7F)
		uv >>= 7

		if uv != 0 {
			c |= 0x80
		}
		b = append(b, c)

		if uv == 0 {
			return b
		}
	}
}

// VarIntSize reports how many bytes the encoding of v takes.
func VarIntSize(v int32) int {
	uv := uint32(v)
	n := 1
	for uv >= 0x80 {
		uv >>= 7
		n++
	}
	return n
}

func ReadVarInt(r io.ByteReader) (int32, error) {
	var v int32
	var shift uint

	for n := 0; n < MaxVarIntLen; n++ {
		b, err := r.ReadByte()
		if err != nil {
			return v, err
		}

		segment := b & 0x7F
		v |= int32(segment) << shift

		shift += 7

		if (b & 0x80) == 0 {
			return v, nil
		}
	}
	return v, ErrVarIntTooLong
}

// ConsumeVarInt decodes a VarInt from the start of b and returns it with the
// number of bytes it occupied. It returns io.ErrUnexpectedEOF when b ends
// before the VarInt does, so callers can wait for more input.
func ConsumeVarInt(b []byte) (v int32, n int, err error) {
	var shift uint

	for n < MaxVarIntLen {
		if n >= len(b) {
			return 0, 0, io.ErrUnexpectedEOF
		}
		c := b[n]
		n++

		v |= int32(c&0x7F) << shift
		shift += 7

		if c&0x80 == 0 {
			return v, n, nil
		}
	}
	return 0, n, ErrVarIntTooLong
}

func WriteVarLong(w io.Writer, v int64) error {
	var buf [MaxVarLongLen]byte
	_, err := w.Write(AppendVarLong(buf[:0], v))
	return err
}

func AppendVarLong(b []byte, v int64) []byte {
	uv := uint64(v)
	for {
		c := byte(uv & 0x7F)
		uv >>= 7

		if uv != 0 {
			c |= 0x80
		}
		b = append(b, c)

		if uv == 0 {
			return b
		}
	}
}

func ReadVarLong(r io.ByteReader) (int64, error) {
	var v int64
	var shift uint

	for n := 0; n < MaxVarLongLen; n++ {
		b, err := r.ReadByte()
		if err != nil {
			return v, err
		}

		v |= int64(b&0x7F) << shift
		shift += 7

		if (b & 0x80) == 0 {
			return v, nil
		}
	}
	return v, ErrVarLongTooLong
}

// ConsumeVarLong is the VarLong counterpart of ConsumeVarInt.
func ConsumeVarLong(b []byte) (v int64, n int, err error) {
	var shift uint

	for n < MaxVarLongLen {
		if n >= len(b) {
			return 0, 0, io.ErrUnexpectedEOF
		}
		c := b[n]
		n++

		v |= int64(c&0x7F) << shift
		shift += 7

		if c&0x80 == 0 {
			return v, n, nil
		}
	}
	return 0, n, ErrVarLongTooLong
}

var ErrNegativeLength = errors.New("negative length")

func WriteString(w io.Writer, v string) (err error) {
	err = WriteVarInt(w, int32(len(v)))
	if err != nil {
		return
	}
	_, err = io.WriteString(w, v)
	return
}

func ReadString(r Reader) (v string, err error) {
	buf, err := ReadByteArray(r)
	return string(buf), err
}

// WriteByteArray writes b prefixed with its VarInt length.
func WriteByteArray(w io.Writer, b []byte) (err error) {
	if err = WriteVarInt(w, int32(len(b))); err != nil {
		return
	}
	_, err = w.Write(b)
	return
}

// ReadByteArray reads a VarInt length prefixed byte array. The returned slice
// aliases the payload buffer.
func ReadByteArray(r Reader) (v []byte, err error) {
	length, err := ReadVarInt(r)
	if err != nil {
		return
	}

	if length < 0 {
		err = ErrNegativeLength
		return
	}

	return r.Read(int(length))
}
