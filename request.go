package ernie

import (
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Request is one in-flight client request. Exactly one request is ever
// associated with one connection.
type Request struct {
	ID         uuid.UUID // correlation ID for logging only
	Conn       net.Conn
	InfoFrames [][]byte // raw metadata frames preceding the action
	Action     Message  // resolved action term (call or cast)
	PoolID     string   // routing result, set before admission

	writeTimeout time.Duration
	closeOnce    sync.Once
}

func newRequest(conn net.Conn, writeTimeout time.Duration) *Request {
	return &Request{
		ID:           uuid.New(),
		Conn:         conn,
		writeTimeout: writeTimeout,
	}
}

// Reply writes one framed payload to the client connection.
func (r *Request) Reply(payload []byte) error {
	if r.writeTimeout > 0 {
		if err := r.Conn.SetWriteDeadline(time.Now().Add(r.writeTimeout)); err != nil {
			return err
		}
	}

	return WriteFrame(r.Conn, payload)
}

// Close closes the client connection. Safe to call from any path; only the
// first call closes the socket.
func (r *Request) Close() {
	r.closeOnce.Do(func() {
		if r.Conn != nil {
			_ = r.Conn.Close()
		}
	})
}
