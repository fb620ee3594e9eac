// Package frame implements the length-prefixed wire protocol between the
// parent process and a spawned worker.
//
// Each frame is a kind byte, a 4-byte big-endian payload length, and the
// payload itself. Zero or more progress frames precede exactly one result
// frame; the wire carries a hello frame first so the parent can verify it is
// talking to the worker it spawned.
package frame

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Kind identifies the frame type on the wire.
type Kind byte

const (
	// KindHello is the first frame on a wire, carrying the spawn token.
	KindHello Kind = 'h'

	// KindProgress carries one encoded progress value sequence.
	KindProgress Kind = 'p'

	// KindResult is the single terminal frame, carrying the encoded
	// failure-or-nil marker followed by the result values.
	KindResult Kind = 'r'
)

const headerSize = 5

// DefaultMaxPayload is the default upper bound for a single frame payload.
const DefaultMaxPayload = 16 * 1024 * 1024 // 16MB

// Frame is one decoded unit of the wire protocol.
type Frame struct {
	Kind    Kind
	Payload []byte
}

// Encoder writes frames to an io.Writer.
//
// Writes go straight to the underlying writer with no buffering, so a
// progress frame is visible to the reading side as soon as Write returns.
type Encoder struct {
	w io.Writer
}

// NewEncoder creates an Encoder over w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Write emits one frame.
func (e *Encoder) Write(kind Kind, payload []byte) error {
	buf := make([]byte, headerSize+len(payload))
	buf[0] = byte(kind)
	binary.BigEndian.PutUint32(buf[1:headerSize], uint32(len(payload)))
	copy(buf[headerSize:], payload)

	if _, err := e.w.Write(buf); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}

	return nil
}

// Decoder reassembles frames from an incoming byte stream.
//
// Bytes are pushed in with Feed as they arrive; Next is then called in a
// loop until it returns nil, because one read may deliver several frames and
// a single frame may span several reads. The accumulation buffer is owned
// exclusively by the decoder and shrinks only when a complete frame is
// extracted from its front.
type Decoder struct {
	buf        []byte
	maxPayload int
}

// NewDecoder creates a Decoder with the given payload size limit.
// A limit of zero means DefaultMaxPayload.
func NewDecoder(maxPayload int) *Decoder {
	if maxPayload <= 0 {
		maxPayload = DefaultMaxPayload
	}

	return &Decoder{maxPayload: maxPayload}
}

// Feed appends newly arrived bytes to the accumulation buffer.
func (d *Decoder) Feed(p []byte) {
	d.buf = append(d.buf, p...)
}

// Next extracts the first complete frame from the front of the buffer.
// It returns nil when no complete frame is buffered yet.
func (d *Decoder) Next() (*Frame, error) {
	if len(d.buf) < headerSize {
		return nil, nil
	}

	kind := Kind(d.buf[0])

	switch kind {
	case KindHello, KindProgress, KindResult:
	default:
		return nil, fmt.Errorf("unknown frame kind 0x%02x", d.buf[0])
	}

	size := int(binary.BigEndian.Uint32(d.buf[1:headerSize]))
	if size > d.maxPayload {
		return nil, fmt.Errorf("frame payload %d exceeds limit %d", size, d.maxPayload)
	}

	if len(d.buf) < headerSize+size {
		return nil, nil
	}

	payload := make([]byte, size)
	copy(payload, d.buf[headerSize:headerSize+size])
	d.buf = d.buf[headerSize+size:]

	return &Frame{Kind: kind, Payload: payload}, nil
}

// Buffered reports how many bytes are waiting in the accumulation buffer.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}
