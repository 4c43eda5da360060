package invite

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateShape(t *testing.T) {
	for i := 0; i < 10000; i++ {
		code := Generate()
		require.Len(t, code, CodeLength)
		for _, r := range code {
			require.True(t, strings.ContainsRune(Alphabet, r),
				"code %q contains %q outside the alphabet", code, r)
		}
	}
}

func TestGenerateExcludesAmbiguousCharacters(t *testing.T) {
	for _, c := range "0O1I" {
		assert.NotContains(t, Alphabet, string(c))
	}
	for i := 0; i < 10000; i++ {
		code := Generate()
		assert.NotContains(t, code, "0")
		assert.NotContains(t, code, "O")
		assert.NotContains(t, code, "1")
		assert.NotContains(t, code, "I")
	}
}

func TestGenerateCoversAlphabet(t *testing.T) {
	seen := make(map[rune]bool)
	for i := 0; i < 2000; i++ {
		for _, r := range Generate() {
			seen[r] = true
		}
	}
	// 16000 characters over a 32-symbol alphabet; every symbol should show up.
	assert.Len(t, seen, len(Alphabet))
}
