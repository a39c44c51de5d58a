package codec

// Bytes is an identity codec for []byte values. Useful when the cached value
// is already a raw byte slice and only the wire framing matters.
type Bytes struct{}

func (Bytes) Encode(b []byte) ([]byte, error) { return b, nil }
func (Bytes) Decode(b []byte) ([]byte, error) { return b, nil }

// String converts Go strings to bytes and back. Assumes UTF-8, performs no
// validation.
type String struct{}

func (String) Encode(s string) ([]byte, error) { return []byte(s), nil }
func (String) Decode(b []byte) (string, error) { return string(b), nil }
