// Package codec defines how dataset manifests and variable chunks are
// serialized for the cache store. The CBOR codec in deterministic mode is the
// default: identical inputs encode to identical bytes, which keeps repeated
// cache writes bit-stable.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
