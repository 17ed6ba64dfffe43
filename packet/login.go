package packet

// @gen:r,w,regserver
type LoginStart struct {
	Name string `field:"String"`
}

func (p LoginStart) ID() int32 {
	return 0
}

// EncryptionResponse carries the shared secret and the verify token, both
// encrypted with the server public key.
//
// @gen:r,w,regserver
type EncryptionResponse struct {
	SharedSecret []byte `field:"ByteArray"`
	VerifyToken  []byte `field:"ByteArray"`
}

func (p EncryptionResponse) ID() int32 {
	return 1
}

// @gen:r,w,regclient
type LoginDisconnect struct {
	Reason string `field:"String"` // JSON Text Component
}

func (p LoginDisconnect) ID() int32 {
	return 0
}

// EncryptionRequest advertises the DER encoded server public key.
//
// @gen:r,w,regclient
type EncryptionRequest struct {
	ServerID    string `field:"String"`
	PublicKey   []byte `field:"ByteArray"`
	VerifyToken []byte `field:"ByteArray"`
}

func (p EncryptionRequest) ID() int32 {
	return 1
}

// LoginSuccess carries the hyphenated player UUID.
//
// @gen:r,w,regclient
type LoginSuccess struct {
	UUID     string `field:"String"`
	Username string `field:"String"`
}

func (p LoginSuccess) ID() int32 {
	return 2
}

// @gen:r,w,regclient
type SetCompression struct {
	Threshold int32 `field:"VarInt"`
}

func (p SetCompression) ID() int32 {
	return 3
}
