// Package wire frames the files the disk cache writes: a fixed header with
// magic bytes, a format version and a record kind, followed by a length-
// prefixed payload. The header lets the store reject truncated or foreign
// files before handing bytes to a codec.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const (
	version      byte = 1
	KindManifest byte = 1
	KindChunk    byte = 2
)

var (
	ErrCorrupt = errors.New("cachestore: corrupt cache file")
	magic4     = [...]byte{'W', 'M', 'R', 'T'}
)

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Encode frames payload: magic(4) | ver(1) | kind(1) | plen(u32 be) | payload.
func Encode(kind byte, payload []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(4 + 1 + 1 + 4 + len(payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kind)

	var u4 [4]byte
	binary.BigEndian.PutUint32(u4[:], uint32(len(payload)))
	buf.Write(u4[:])

	buf.Write(payload)
	return buf.Bytes()
}

// Decode validates the frame and returns the payload. The payload aliases b.
func Decode(kind byte, b []byte) ([]byte, error) {
	const hdr = 4 + 1 + 1 + 4
	if len(b) < hdr || !hasMagic(b) || b[4] != version || b[5] != kind {
		return nil, ErrCorrupt
	}

	plen := int(binary.BigEndian.Uint32(b[6:10]))
	if plen < 0 || plen > len(b)-hdr {
		return nil, ErrCorrupt
	}
	return b[hdr : hdr+plen], nil
}
