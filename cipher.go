package mcserver

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"github.com/Tnze/go-mc/net/CFB8"
)

// SharedSecretLen is the AES-128 key size used for connection encryption.
const SharedSecretLen = 16

// NewCipherStreams returns the encrypting and decrypting AES/CFB8 streams
// for a shared secret. The secret is also the IV.
func NewCipherStreams(secret []byte) (enc, dec cipher.Stream, err error) {
	if len(secret) != SharedSecretLen {
		return nil, nil, fmt.Errorf("shared secret must be %d bytes, got %d", SharedSecretLen, len(secret))
	}

	block, err := aes.NewCipher(secret)
	if err != nil {
		return nil, nil, err
	}

	enc = CFB8.NewCFB8Encrypt(block, bytes.Clone(secret))
	dec = CFB8.NewCFB8Decrypt(block, bytes.Clone(secret))
	return enc, dec, nil
}
