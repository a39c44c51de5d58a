package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const version byte = 1

var (
	ErrCorrupt = errors.New("aicache: corrupt persisted entry")
	magic4     = [...]byte{'A', 'I', 'Q', 'C'}
)

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Frame: magic(4) | ver(1) | entryVer(u64 be) | vlen(u32 be) | payload(vlen)
//
// entryVer is the store version of the entry at write-through time. A reload
// that observes a frame it cannot parse treats the record as corrupt and
// deletes it (self-heal) rather than surfacing an error.
func Encode(entryVer uint64, payload []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(4 + 1 + 8 + 4 + len(payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)

	var u8 [8]byte
	var u4 [4]byte

	binary.BigEndian.PutUint64(u8[:], entryVer)
	buf.Write(u8[:])

	binary.BigEndian.PutUint32(u4[:], uint32(len(payload)))
	buf.Write(u4[:])

	buf.Write(payload)
	return buf.Bytes()
}

func Decode(b []byte) (entryVer uint64, payload []byte, err error) {
	const hdr = 4 + 1 + 8 + 4
	if len(b) < hdr || !hasMagic(b) || b[4] != version {
		return 0, nil, ErrCorrupt
	}

	off := 5

	entryVer = binary.BigEndian.Uint64(b[off : off+8])
	off += 8

	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if vlen < 0 || vlen > len(b)-off { // overflow-safe bound check
		return 0, nil, ErrCorrupt
	}

	return entryVer, b[off : off+vlen], nil
}
