package codec

import "encoding/json"

// JSON is a Codec using encoding/json. Mainly useful for inspecting cache
// entries with standard tools; CBOR is the default for real stores.
type JSON[V any] struct{}

func (JSON[V]) Encode(v V) ([]byte, error) { return json.Marshal(v) }
func (JSON[V]) Decode(b []byte) (V, error) {
	var v V
	err := json.Unmarshal(b, &v)
	return v, err
}
