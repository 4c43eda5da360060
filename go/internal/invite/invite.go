// Package invite generates short human-shareable room codes.
package invite

import (
	"crypto/rand"
)

// Alphabet deliberately excludes visually ambiguous characters (0/O, 1/I).
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// CodeLength is the fixed invite code length. 32^8 possible codes make
// accidental collision negligible across any realistic room count.
const CodeLength = 8

// Generate returns a fresh invite code drawn uniformly from Alphabet.
// Codes are not guaranteed globally unique; the rooms table's unique
// constraint is the authority, and the caller retries on violation.
func Generate() string {
	buf := make([]byte, CodeLength)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	for i, b := range buf {
		// len(Alphabet) is 32, a power of two, so masking keeps the
		// distribution uniform.
		buf[i] = Alphabet[b&31]
	}
	return string(buf)
}
