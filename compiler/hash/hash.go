package hash

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/chazu/jackc/compiler"
)

// Sum computes the SHA-256 content hash of a syntax tree.
//
// The hash is computed over a deterministic serialization of the normalized
// tree. Two sources that differ only in layout, comments or variable names
// produce the same hash.
func Sum(node compiler.Node) [32]byte {
	return sha256.Sum256(Serialize(Normalize(node)))
}

// Key returns the hex cache key for compiling node with the given operator
// order. The order is part of the key because it changes the output.
func Key(node compiler.Node, order compiler.OperatorOrder) string {
	h := sha256.New()
	h.Write(Serialize(Normalize(node)))
	h.Write([]byte{0xFF, byte(order)})
	return hex.EncodeToString(h.Sum(nil))
}

// SumSubroutine hashes a single subroutine declaration.
func SumSubroutine(sub *compiler.Subroutine) [32]byte {
	return Sum(sub.Decl)
}
