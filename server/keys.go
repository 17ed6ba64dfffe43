package server

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"fmt"
)

// KeyPair is the RSA key used for every login handshake of the process.
type KeyPair struct {
	private   *rsa.PrivateKey
	publicDER []byte
}

func GenerateKeyPair(bits int) (*KeyPair, error) {
	priv, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("generate %d-bit RSA key: %w", bits, err)
	}

	der, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("encode public key: %w", err)
	}
	return &KeyPair{private: priv, publicDER: der}, nil
}

// PublicKeyDER returns the SubjectPublicKeyInfo encoding sent to clients.
func (k *KeyPair) PublicKeyDER() []byte {
	return k.publicDER
}

// Decrypt reverses RSA PKCS#1 v1.5 encryption done with the public key.
func (k *KeyPair) Decrypt(ciphertext []byte) ([]byte, error) {
	return rsa.DecryptPKCS1v15(rand.Reader, k.private, ciphertext)
}
