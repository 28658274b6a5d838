package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
)

// MACSize is the length of a MAC tag.
const MACSize = sha256.Size

// MAC returns HMAC-SHA256 under key over the concatenation of parts.
func MAC(key []byte, parts ...[]byte) []byte {
	h := hmac.New(sha256.New, key)
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

// VerifyMAC reports whether tag is the MAC of parts under key.
// The comparison is constant time.
func VerifyMAC(key, tag []byte, parts ...[]byte) bool {
	return hmac.Equal(tag, MAC(key, parts...))
}
