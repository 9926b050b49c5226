package format

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFletcher32Properties(t *testing.T) {
	require.Equal(t, uint32(0), Fletcher32(nil))
	require.Equal(t, uint32(0), Fletcher32([]byte{}))

	// A single byte contributes as the high byte of a zero-padded word.
	require.Equal(t, uint32(0x61006100), Fletcher32([]byte("a")))
	// A word contributes both bytes.
	require.Equal(t, uint32(0x61626162), Fletcher32([]byte("ab")))

	// Deterministic, and sensitive to every byte.
	var b = []byte("The quick brown fox jumps over the lazy dog")
	var sum = Fletcher32(b)
	require.Equal(t, sum, Fletcher32(b))

	for i := range b {
		var c = append([]byte(nil), b...)
		c[i] ^= 0x80
		require.NotEqual(t, sum, Fletcher32(c), "byte %d", i)
	}

	// Sensitive to byte order within a word, and to length.
	require.NotEqual(t, Fletcher32([]byte("ab")), Fletcher32([]byte("ba")))
	require.NotEqual(t, Fletcher32([]byte("ab")), Fletcher32([]byte("ab\x00")))
}

func TestFletcher32LargeInputReduces(t *testing.T) {
	// Inputs much larger than the internal reduction block still produce
	// a checksum with both halves within 16 bits.
	var b = make([]byte, 1<<20)
	for i := range b {
		b[i] = 0xff
	}
	var sum = Fletcher32(b)
	require.NotZero(t, sum)
	require.Equal(t, sum, Fletcher32(b))
}
