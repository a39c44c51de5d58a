package codec

import "fmt"

// Limit wraps another codec to cap the permitted payload size at Decode
// time. Encode is forwarded unchanged. MaxDecode <= 0 disables the cap.
//
// Protects warm start against oversized or hostile payloads coming from a
// shared storage backend.
type Limit[V any] struct {
	// Inner is the wrapped codec. Must be set.
	Inner Codec[V]

	// MaxDecode is the maximum incoming payload length in bytes.
	MaxDecode int
}

func (c Limit[V]) Encode(v V) ([]byte, error) { return c.Inner.Encode(v) }
func (c Limit[V]) Decode(b []byte) (V, error) {
	if c.MaxDecode > 0 && len(b) > c.MaxDecode {
		var zero V
		return zero, fmt.Errorf("payload too large: %d > %d", len(b), c.MaxDecode)
	}
	return c.Inner.Decode(b)
}
