package ernie

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// ErrBadAsset indicates a leased asset that is not a worker connection.
var ErrBadAsset = errors.New("asset is not a worker connection")

// Transport performs one worker invocation with a leased asset.
type Transport interface {
	Invoke(ctx context.Context, a Asset, request []byte) ([]byte, error)
}

// ConnTransport speaks the framed worker protocol over pooled TCP
// connections: one framed request out, one framed response back.
type ConnTransport struct {
	// WriteTimeout bounds writing the request to the worker. Default 5s.
	WriteTimeout time.Duration
	// ReadTimeout bounds waiting for the worker response. Default 30s.
	ReadTimeout time.Duration
}

func (t *ConnTransport) writeTimeout() time.Duration {
	if t.WriteTimeout > 0 {
		return t.WriteTimeout
	}
	return 5 * time.Second
}

func (t *ConnTransport) readTimeout() time.Duration {
	if t.ReadTimeout > 0 {
		return t.ReadTimeout
	}
	return 30 * time.Second
}

// Invoke sends the raw action frame to the worker behind the asset and reads
// one framed response.
func (t *ConnTransport) Invoke(ctx context.Context, a Asset, request []byte) ([]byte, error) {
	conn, ok := a.(net.Conn)
	if !ok {
		return nil, ErrBadAsset
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := conn.SetWriteDeadline(time.Now().Add(t.writeTimeout())); err != nil {
		return nil, fmt.Errorf("setting write deadline: %w", err)
	}
	if err := WriteFrame(conn, request); err != nil {
		return nil, fmt.Errorf("writing to worker: %w", err)
	}

	if err := conn.SetReadDeadline(time.Now().Add(t.readTimeout())); err != nil {
		return nil, fmt.Errorf("setting read deadline: %w", err)
	}
	resp, err := ReadFrame(conn)
	if err != nil {
		return nil, fmt.Errorf("reading from worker: %w", err)
	}

	_ = conn.SetDeadline(time.Time{})

	return resp, nil
}
