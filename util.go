// util.go - small pure helpers shared by the encoders
package main

import (
	"crypto/sha256"
	"fmt"
	"os"
)

// align rounds size up to the next multiple of padding+1, where padding is a
// power-of-two minus one (0xF aligns to 16, 0xFFF to 4096).
func align(size, padding int) int {
	return (size + padding) &^ padding
}

// addPadding grows buf with zero bytes until its length is aligned.
func addPadding(buf []byte, padding int) []byte {
	want := align(len(buf), padding)
	for len(buf) < want {
		buf = append(buf, 0)
	}
	return buf
}

// calculateSHA256 returns the SHA-256 digest of data.
func calculateSHA256(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}

// setFixedString copies s into the fixed-width field dst, keeping at least
// one trailing NUL byte. Longer input is truncated with a warning, not an
// error.
func setFixedString(dst []byte, s, fieldName string) {
	limit := len(dst) - 1
	if len(s) > limit {
		fmt.Fprintf(os.Stderr, "Warning: truncating %s to %d bytes\n", fieldName, limit)
		s = s[:limit]
	}
	copy(dst, s)
}
