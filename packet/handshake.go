package packet

// Handshake opens every connection. NextState is 1 for status, 2 for login.
//
// @gen:r,w,regserver
type Handshake struct {
	ProtocolVersion int32  `field:"VarInt"`
	ServerAddr      string `field:"String"`
	ServerPort      uint16 `field:"UnsignedShort"`
	NextState       int32  `field:"VarInt"`
}

func (p Handshake) ID() int32 {
	return 0
}
