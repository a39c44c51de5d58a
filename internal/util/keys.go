package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// EntryKey returns the deterministic storage key for a normalized query in a
// given request context. Two queries that normalize to the same text under the
// same (context, model) always map to the same key.
func EntryKey(normalized, context, model string) string {
	h := sha256.New()
	h.Write([]byte(normalized))
	h.Write([]byte{0})
	h.Write([]byte(context))
	h.Write([]byte{0})
	h.Write([]byte(model))
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:16])
}

// IntentKey returns the secondary-index key grouping entries that share an
// intent label within a (context, model) scope.
func IntentKey(intent, context, model string) string {
	return intent + "\x00" + context + "\x00" + model
}
