// Package codec provides pluggable value serialization for the write-through
// storage path. Encoded bytes are wrapped in the engine's wire framing before
// they reach a storage backend.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
