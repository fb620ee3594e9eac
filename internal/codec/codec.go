// Package codec provides the pluggable value-sequence codec used on the
// worker wire.
//
// A codec turns a sequence of values into bytes and back. Both ends of a run
// live in the same binary and resolve the codec from the task registration,
// so parent and worker always agree on the encoding.
package codec

import "github.com/fxamacker/cbor/v2"

// Codec encodes and decodes value sequences for transport between the parent
// and a worker process.
//
// Implementations must round-trip at least nil markers, strings and byte
// slices with arbitrary content, and nested sequences.
type Codec interface {
	// Encode serializes a sequence of values into a byte slice.
	Encode(values []any) ([]byte, error)

	// Decode deserializes a byte slice back into a sequence of values.
	Decode(data []byte) ([]any, error)
}

// CBOR is the default codec: a generic, self-describing binary object
// serializer. Unlike JSON it is safe for strings carrying arbitrary bytes.
type CBOR struct{}

// Compile-time verification that CBOR implements Codec.
var _ Codec = CBOR{}

// Encode implements Codec.
func (CBOR) Encode(values []any) ([]byte, error) {
	if values == nil {
		values = []any{}
	}

	return cbor.Marshal(values)
}

// Decode implements Codec.
func (CBOR) Decode(data []byte) ([]any, error) {
	var values []any
	if err := cbor.Unmarshal(data, &values); err != nil {
		return nil, err
	}

	return values, nil
}

// Default returns the codec used when a task does not configure its own.
func Default() Codec {
	return CBOR{}
}
