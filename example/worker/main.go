// Command worker is a minimal out-of-process worker for manual testing of
// the gateway. It answers every call with {reply, <<"echo:Mod:Fun">>} over
// the framed worker protocol.
package main

import (
	"flag"
	"fmt"
	"io"
	"net"
	"os"

	ernie "github.com/SusannaWull/ernie-2"
	"github.com/okeuday/erlang_go/v2/erlang"
	"github.com/rs/zerolog"
)

func main() {
	listen := flag.String("listen", "127.0.0.1:4000", "address to serve workers on")
	flag.Parse()

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	l, err := net.Listen("tcp", *listen)
	if err != nil {
		logger.Fatal().Err(err).Msg("listen")
	}
	logger.Info().Str("addr", l.Addr().String()).Msg("worker up")

	for {
		conn, err := l.Accept()
		if err != nil {
			logger.Fatal().Err(err).Msg("accept")
		}

		go serve(conn, logger)
	}
}

func serve(conn net.Conn, logger zerolog.Logger) {
	defer func() { _ = conn.Close() }()

	for {
		frame, err := ernie.ReadFrame(conn)
		if err != nil {
			if err != io.EOF {
				logger.Warn().Err(err).Msg("read")
			}
			return
		}

		msg, err := ernie.DecodeMessage(frame)
		if err != nil {
			logger.Warn().Err(err).Msg("decode")
			return
		}

		reply, err := erlang.TermToBinary(erlang.OtpErlangTuple{
			erlang.OtpErlangAtom("reply"),
			erlang.OtpErlangBinary{
				Value: []byte(fmt.Sprintf("echo:%s:%s", msg.Module, msg.Function)),
				Bits:  8,
			},
		}, -1)
		if err != nil {
			logger.Warn().Err(err).Msg("encode")
			return
		}

		if err := ernie.WriteFrame(conn, reply); err != nil {
			logger.Warn().Err(err).Msg("write")
			return
		}
	}
}
