package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// CorpusFingerprint hashes the chunk texts in order. Each text is length
// prefixed so that different splits of the same characters hash differently.
func CorpusFingerprint(texts []string) string {
	h := sha256.New()
	var prefix [8]byte
	for _, t := range texts {
		n := uint64(len(t))
		for i := 0; i < 8; i++ {
			prefix[i] = byte(n >> (8 * i))
		}
		h.Write(prefix[:])
		h.Write([]byte(t))
	}
	return hex.EncodeToString(h.Sum(nil))
}
