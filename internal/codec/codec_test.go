package codec

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestCBOR_RoundTripEmpty(t *testing.T) {
	c := Default()

	data, err := c.Encode(nil)
	require.NoError(t, err)

	values, err := c.Decode(data)
	require.NoError(t, err)
	require.Empty(t, values)
}

func TestCBOR_RoundTripFailureMarker(t *testing.T) {
	// The terminal frame leads with a nil-or-string failure slot.
	c := Default()

	for _, seq := range [][]any{
		{nil, "a", "b"},
		{"boom"},
		{nil},
	} {
		data, err := c.Encode(seq)
		require.NoError(t, err)

		values, err := c.Decode(data)
		require.NoError(t, err)
		require.Len(t, values, len(seq))

		for i, want := range seq {
			require.Equal(t, want, values[i])
		}
	}
}

func TestCBOR_RoundTripArbitraryBytes(t *testing.T) {
	c := Default()

	raw := make([]byte, 256)
	for i := range raw {
		raw[i] = byte(i)
	}

	data, err := c.Encode([]any{raw})
	require.NoError(t, err)

	values, err := c.Decode(data)
	require.NoError(t, err)
	require.Len(t, values, 1)
	require.Equal(t, raw, values[0])
}

func TestCBOR_RoundTripNestedSequences(t *testing.T) {
	c := Default()

	data, err := c.Encode([]any{"outer", []any{"inner", []any{"deep"}}})
	require.NoError(t, err)

	values, err := c.Decode(data)
	require.NoError(t, err)
	require.Len(t, values, 2)
	require.Equal(t, "outer", values[0])
	require.Equal(t, []any{"inner", []any{"deep"}}, values[1])
}

func TestCBOR_DecodeGarbage(t *testing.T) {
	c := Default()

	_, err := c.Decode([]byte("definitely not cbor\xff\xfe"))
	require.Error(t, err)
}

func TestCBOR_RoundTripProperty(t *testing.T) {
	c := Default()

	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 8).Draw(t, "n")

		seq := make([]any, 0, n)
		for i := 0; i < n; i++ {
			if rapid.Bool().Draw(t, "isBytes") {
				seq = append(seq, rapid.SliceOfN(rapid.Byte(), 0, 64).Draw(t, "bytes"))
			} else {
				seq = append(seq, rapid.String().Draw(t, "str"))
			}
		}

		data, err := c.Encode(seq)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}

		values, err := c.Decode(data)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}

		if len(values) != len(seq) {
			t.Fatalf("length mismatch: want %d, got %d", len(seq), len(values))
		}

		for i := range seq {
			require.Equal(t, normalize(seq[i]), normalize(values[i]))
		}
	})
}

// normalize maps empty byte slices to nil so reflect-based equality does not
// distinguish []byte{} from a nil slice after a round trip.
func normalize(v any) any {
	if b, ok := v.([]byte); ok && len(b) == 0 {
		return nil
	}

	return v
}
