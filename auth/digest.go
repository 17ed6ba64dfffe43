package auth

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"

	"github.com/Tnze/go-mc/offline"
	"github.com/google/uuid"
)

// ServerHash computes the session server id: the SHA-1 of serverID, the
// shared secret and the DER public key, printed as a signed two's
// complement hex number without leading zeros.
func ServerHash(serverID string, secret, publicKey []byte) string {
	h := sha1.New()
	h.Write([]byte(serverID))
	h.Write(secret)
	h.Write(publicKey)
	sum := h.Sum(nil)

	negative := sum[0]&0x80 != 0
	if negative {
		carry := true
		for i := len(sum) - 1; i >= 0; i-- {
			sum[i] = ^sum[i]
			if carry {
				carry = sum[i] == 0xff
				sum[i]++
			}
		}
	}

	s := strings.TrimLeft(hex.EncodeToString(sum), "0")
	if s == "" {
		s = "0"
	}
	if negative {
		s = "-" + s
	}
	return s
}

// OfflineUUID is the UUID an offline mode server assigns to name.
func OfflineUUID(name string) uuid.UUID {
	return offline.NameToUUID(name)
}

// OfflineProfile builds the profile used when online mode is off.
func OfflineProfile(name string) Profile {
	return Profile{
		ID:   strings.ReplaceAll(OfflineUUID(name).String(), "-", ""),
		Name: name,
	}
}
