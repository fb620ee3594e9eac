package frame

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

// drain pulls every complete frame currently buffered in the decoder.
func drain(t *testing.T, d *Decoder) []*Frame {
	t.Helper()

	var frames []*Frame

	for {
		f, err := d.Next()
		require.NoError(t, err)

		if f == nil {
			return frames
		}

		frames = append(frames, f)
	}
}

func TestRoundTrip_SingleFrame(t *testing.T) {
	var buf bytes.Buffer

	enc := NewEncoder(&buf)
	require.NoError(t, enc.Write(KindProgress, []byte("hello")))

	dec := NewDecoder(0)
	dec.Feed(buf.Bytes())

	frames := drain(t, dec)
	require.Len(t, frames, 1)
	require.Equal(t, KindProgress, frames[0].Kind)
	require.Equal(t, []byte("hello"), frames[0].Payload)
	require.Zero(t, dec.Buffered())
}

func TestRoundTrip_EmptyPayload(t *testing.T) {
	var buf bytes.Buffer

	enc := NewEncoder(&buf)
	require.NoError(t, enc.Write(KindResult, nil))

	dec := NewDecoder(0)
	dec.Feed(buf.Bytes())

	frames := drain(t, dec)
	require.Len(t, frames, 1)
	require.Equal(t, KindResult, frames[0].Kind)
	require.Empty(t, frames[0].Payload)
}

func TestDecoder_MultipleFramesInOneFeed(t *testing.T) {
	var buf bytes.Buffer

	enc := NewEncoder(&buf)
	require.NoError(t, enc.Write(KindHello, []byte("token")))
	require.NoError(t, enc.Write(KindProgress, []byte("one")))
	require.NoError(t, enc.Write(KindProgress, []byte("two")))
	require.NoError(t, enc.Write(KindResult, []byte("done")))

	dec := NewDecoder(0)
	dec.Feed(buf.Bytes())

	frames := drain(t, dec)
	require.Len(t, frames, 4)
	require.Equal(t, KindHello, frames[0].Kind)
	require.Equal(t, []byte("one"), frames[1].Payload)
	require.Equal(t, []byte("two"), frames[2].Payload)
	require.Equal(t, KindResult, frames[3].Kind)
}

func TestDecoder_FrameSpansFeeds(t *testing.T) {
	var buf bytes.Buffer

	enc := NewEncoder(&buf)
	require.NoError(t, enc.Write(KindProgress, bytes.Repeat([]byte{0xAB}, 100)))

	wire := buf.Bytes()
	dec := NewDecoder(0)

	// Byte-at-a-time delivery: nothing until the last byte lands.
	for i, b := range wire {
		dec.Feed([]byte{b})

		f, err := dec.Next()
		require.NoError(t, err)

		if i < len(wire)-1 {
			require.Nil(t, f)
		} else {
			require.NotNil(t, f)
			require.Equal(t, bytes.Repeat([]byte{0xAB}, 100), f.Payload)
		}
	}
}

func TestDecoder_PartialHeader(t *testing.T) {
	dec := NewDecoder(0)
	dec.Feed([]byte{byte(KindProgress), 0x00})

	f, err := dec.Next()
	require.NoError(t, err)
	require.Nil(t, f)
	require.Equal(t, 2, dec.Buffered())
}

func TestDecoder_UnknownKind(t *testing.T) {
	dec := NewDecoder(0)
	dec.Feed([]byte{0xFF, 0, 0, 0, 0})

	_, err := dec.Next()
	require.ErrorContains(t, err, "unknown frame kind")
}

func TestDecoder_PayloadTooLarge(t *testing.T) {
	var buf bytes.Buffer

	enc := NewEncoder(&buf)
	require.NoError(t, enc.Write(KindProgress, bytes.Repeat([]byte{'x'}, 32)))

	dec := NewDecoder(16)
	dec.Feed(buf.Bytes())

	_, err := dec.Next()
	require.ErrorContains(t, err, "exceeds limit")
}

func TestDecoder_ArbitraryBinaryPayload(t *testing.T) {
	// Payloads may contain any byte value, including the kind bytes and
	// header-looking sequences.
	payload := make([]byte, 512)
	for i := range payload {
		payload[i] = byte(i % 256)
	}

	var buf bytes.Buffer

	enc := NewEncoder(&buf)
	require.NoError(t, enc.Write(KindProgress, payload))
	require.NoError(t, enc.Write(KindResult, []byte{byte(KindProgress), 0, 0, 0, 1}))

	dec := NewDecoder(0)
	dec.Feed(buf.Bytes())

	frames := drain(t, dec)
	require.Len(t, frames, 2)
	require.Equal(t, payload, frames[0].Payload)
	require.Equal(t, []byte{byte(KindProgress), 0, 0, 0, 1}, frames[1].Payload)
}
