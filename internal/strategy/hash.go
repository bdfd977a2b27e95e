package strategy

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashStrategy rewrites a value to a hex SHA-256 digest of entityType
// and the original value. The digest is deterministic — the same pair
// always hashes to the same value — so repeat occurrences collapse the
// way the other reversible strategies do. Reversal is one-way: the
// mapping must separately track digest→original (see
// mapping.Mapping.PutHash), since a hash cannot be inverted.
type HashStrategy struct{}

func (HashStrategy) Name() string     { return "hash" }
func (HashStrategy) Reversible() bool { return true }

func (HashStrategy) Render(entityType, original string, _ int) string {
	sum := sha256.Sum256([]byte(entityType + ":" + original))
	return hex.EncodeToString(sum[:])
}
