//go:generate go run ../codegen/gen_packet_codec.go -- .
package packet

import (
	"io"
)

// Packet is implemented by every packet struct. The id is only meaningful
// together with the connection state and direction the packet belongs to.
type Packet interface {
	ID() int32
}

// Decodable packets can be read from a frame payload.
type Decodable interface {
	Packet
	Decode(r *FrameReader) error
}

// Encodable packets write their payload, without packet id, to w.
type Encodable interface {
	Packet
	Encode(w io.Writer) error
}
