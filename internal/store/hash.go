package store

import (
	"crypto/sha256"
	"fmt"
)

// ComputeSignatureHash computes a deterministic hash from a symbol's
// semantic identity. Location changes do not affect the hash.
func ComputeSignatureHash(name, kind, signature string, exported bool) string {
	h := sha256.New()
	fmt.Fprintf(h, "name:%s\n", name)
	fmt.Fprintf(h, "kind:%s\n", kind)
	fmt.Fprintf(h, "signature:%s\n", signature)
	fmt.Fprintf(h, "exported:%v\n", exported)
	return fmt.Sprintf("%x", h.Sum(nil))
}

// ContentHash is the change-detection hash of a file's bytes.
func ContentHash(content []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(content))
}
