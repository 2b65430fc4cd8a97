package ernie

import (
	"encoding/binary"
	"errors"
	"io"
)

const frameHeaderSize = 4

// MaxFrameSize is the largest payload accepted or produced in a single frame.
const MaxFrameSize = 8 * 1024 * 1024

// ErrEmptyFrame indicates a frame with a zero-length payload.
var ErrEmptyFrame = errors.New("empty frame")

// ErrMaxFrameExceeded indicates the frame length exceeds the maximum allowed.
var ErrMaxFrameExceeded = errors.New("maximum frame size exceeded")

// WriteFrame writes payload prefixed with a 4-byte big-endian length header.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) == 0 {
		return ErrEmptyFrame
	}
	if len(payload) > MaxFrameSize {
		return ErrMaxFrameExceeded
	}

	// Single write to avoid interleaving header and payload on shared conns.
	out := make([]byte, frameHeaderSize+len(payload))
	binary.BigEndian.PutUint32(out[:frameHeaderSize], uint32(len(payload)))
	copy(out[frameHeaderSize:], payload)

	_, err := w.Write(out)

	return err
}

// ReadFrame reads one length-prefixed frame from r and returns the payload.
func ReadFrame(r io.Reader) ([]byte, error) {
	var hdr [frameHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}

	length := binary.BigEndian.Uint32(hdr[:])
	if length == 0 {
		return nil, ErrEmptyFrame
	}
	if length > MaxFrameSize {
		return nil, ErrMaxFrameExceeded
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}

	return payload, nil
}
