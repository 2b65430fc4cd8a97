// Package ernie_test provides tests for the ernie package.
package ernie_test

import (
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	ernie "github.com/SusannaWull/ernie-2"
	"github.com/okeuday/erlang_go/v2/erlang"
	"github.com/stretchr/testify/require"
)

// startTestWorker runs a framed TCP server standing in for an out-of-process
// worker. Every inbound frame is passed to handler and the result written
// back as one frame. Returns the worker's address and a stop function.
func startTestWorker(t *testing.T, handler func(frame []byte) []byte) (string, func()) {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	quit := make(chan struct{})
	var conns sync.WaitGroup

	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}

			conns.Add(1)
			go func(conn net.Conn) {
				defer func() {
					_ = conn.Close()
					conns.Done()
				}()

				for {
					frame, err := ernie.ReadFrame(conn)
					if err != nil {
						if err != io.EOF && !errors.Is(err, net.ErrClosed) {
							select {
							case <-quit:
							default:
								t.Logf("test worker read error: %v", err)
							}
						}
						return
					}

					if err := ernie.WriteFrame(conn, handler(frame)); err != nil {
						return
					}
				}
			}(conn)
		}
	}()

	return l.Addr().String(), func() {
		close(quit)
		_ = l.Close()

		done := make(chan struct{})
		go func() {
			conns.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Log("timed out waiting for test worker connections to close")
		}
	}
}

// encodeCall builds an encoded {call, Mod, Fun, Args} frame payload.
func encodeCall(t *testing.T, module, function string, args ...interface{}) []byte {
	t.Helper()
	return encodeAction(t, "call", module, function, args...)
}

// encodeCast builds an encoded {cast, Mod, Fun, Args} frame payload.
func encodeCast(t *testing.T, module, function string, args ...interface{}) []byte {
	t.Helper()
	return encodeAction(t, "cast", module, function, args...)
}

func encodeAction(t *testing.T, kind, module, function string, args ...interface{}) []byte {
	t.Helper()

	if args == nil {
		args = []interface{}{}
	}
	term := erlang.OtpErlangTuple{
		erlang.OtpErlangAtom(kind),
		erlang.OtpErlangAtom(module),
		erlang.OtpErlangAtom(function),
		erlang.OtpErlangList{Value: args},
	}
	payload, err := erlang.TermToBinary(term, -1)
	require.NoError(t, err)

	return payload
}

// encodeInfo builds an encoded {info, Command, Args} frame payload.
func encodeInfo(t *testing.T, command string, args ...interface{}) []byte {
	t.Helper()

	if args == nil {
		args = []interface{}{}
	}
	term := erlang.OtpErlangTuple{
		erlang.OtpErlangAtom("info"),
		erlang.OtpErlangAtom(command),
		erlang.OtpErlangList{Value: args},
	}
	payload, err := erlang.TermToBinary(term, -1)
	require.NoError(t, err)

	return payload
}

// decodeReplyPayload unpacks a {reply, <<Payload>>} frame into its payload.
func decodeReplyPayload(t *testing.T, frame []byte) string {
	t.Helper()

	term, err := erlang.BinaryToTerm(frame)
	require.NoError(t, err)

	tuple, ok := term.(erlang.OtpErlangTuple)
	require.True(t, ok, "reply is not a tuple: %#v", term)
	require.Len(t, tuple, 2)
	require.Equal(t, erlang.OtpErlangAtom("reply"), tuple[0])

	bin, ok := tuple[1].(erlang.OtpErlangBinary)
	require.True(t, ok, "reply payload is not a binary: %#v", tuple[1])

	return string(bin.Value)
}

// requireNoReply asserts that frame is the {noreply} acknowledgement.
func requireNoReply(t *testing.T, frame []byte) {
	t.Helper()

	term, err := erlang.BinaryToTerm(frame)
	require.NoError(t, err)

	tuple, ok := term.(erlang.OtpErlangTuple)
	require.True(t, ok, "acknowledgement is not a tuple: %#v", term)
	require.Len(t, tuple, 1)
	require.Equal(t, erlang.OtpErlangAtom("noreply"), tuple[0])
}
