package types

import "github.com/fxamacker/cbor/v2"

// encMode uses core deterministic encoding so equal values encode to equal
// bytes (map keys sorted, shortest integer forms).
var encMode = mustEncMode()

func mustEncMode() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}

// Encode serialises v as CBOR. It is used for persisted state records and for
// the opaque payloads handed to the transport.
func Encode(v any) ([]byte, error) { return encMode.Marshal(v) }

// Decode parses CBOR produced by Encode.
func Decode[T any](b []byte) (T, error) {
	var out T
	err := cbor.Unmarshal(b, &out)
	return out, err
}
