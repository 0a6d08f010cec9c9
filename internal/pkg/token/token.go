package token

import (
	"crypto/rand"
	"encoding/hex"
)

// Size is the number of random bytes behind every token.
const Size = 32

// Length is the length of the hex encoded token.
const Length = Size * 2

// Generate returns a 64 character hex token read from crypto/rand.
func Generate() string {
	buf := make([]byte, Size)
	// crypto/rand.Read never returns an error on supported platforms.
	if _, err := rand.Read(buf); err != nil {
		panic("token: failed to read random bytes: " + err.Error())
	}
	return hex.EncodeToString(buf)
}

// IsWellFormed reports whether s could have been produced by Generate.
func IsWellFormed(s string) bool {
	if len(s) != Length {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
