package ernie_test

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	ernie "github.com/SusannaWull/ernie-2"
	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	payload := []byte("hello frame")

	require.NoError(t, ernie.WriteFrame(&buf, payload))
	require.Equal(t, len(payload)+4, buf.Len())

	got, err := ernie.ReadFrame(&buf)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestFrameHeaderIsBigEndian(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, ernie.WriteFrame(&buf, []byte{0xAB}))

	raw := buf.Bytes()
	require.Equal(t, uint32(1), binary.BigEndian.Uint32(raw[:4]))
	require.Equal(t, byte(0xAB), raw[4])
}

func TestWriteFrameRejectsEmptyPayload(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.ErrorIs(t, ernie.WriteFrame(&buf, nil), ernie.ErrEmptyFrame)
	require.Zero(t, buf.Len())
}

func TestReadFrameRejectsOversizedHeader(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], ernie.MaxFrameSize+1)
	buf.Write(hdr[:])

	_, err := ernie.ReadFrame(&buf)
	require.ErrorIs(t, err, ernie.ErrMaxFrameExceeded)
}

func TestReadFrameRejectsZeroLength(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	buf.Write([]byte{0, 0, 0, 0})

	_, err := ernie.ReadFrame(&buf)
	require.ErrorIs(t, err, ernie.ErrEmptyFrame)
}

func TestReadFrameTruncatedPayload(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], 10)
	buf.Write(hdr[:])
	buf.Write([]byte("short"))

	_, err := ernie.ReadFrame(&buf)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestReadFrameEOFOnEmptyStream(t *testing.T) {
	t.Parallel()

	_, err := ernie.ReadFrame(bytes.NewReader(nil))
	require.ErrorIs(t, err, io.EOF)
}
