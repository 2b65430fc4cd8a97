package ernie

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Server accepts client connections, runs the per-connection protocol
// decoder, and feeds routed requests into the dispatcher. Acceptance is
// never blocked by admission.
type Server struct {
	address    string
	config     *ServerConfig
	routes     *RouteTable
	pools      PoolManager
	dispatcher *Dispatcher
	logger     zerolog.Logger

	listener net.Listener
	connWG   sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
	eg       errgroup.Group
}

// NewServer wires the routing table, pool manager, and worker transport into
// a server listening on address.
func NewServer(
	address string,
	routes *RouteTable,
	pools PoolManager,
	transport Transport,
	config *ServerConfig,
) (*Server, error) {
	if routes == nil {
		return nil, errors.New("route table is required")
	}
	if pools == nil {
		return nil, errors.New("pool manager is required")
	}
	if transport == nil {
		return nil, errors.New("transport is required")
	}
	if config == nil {
		config = &ServerConfig{}
	}
	config.applyDefaults()

	logger := zerolog.Nop()
	if config.Logger != nil {
		logger = *config.Logger
	}

	s := &Server{
		address:    address,
		config:     config,
		routes:     routes,
		pools:      pools,
		dispatcher: NewDispatcher(pools, transport, logger),
		logger:     logger.With().Str("component", "server").Logger(),
		stopChan:   make(chan struct{}),
	}

	return s, nil
}

// Start binds the listener, retrying per the configured budget, then
// launches the dispatcher and the accept loop. It returns once listening.
func (s *Server) Start() error {
	ln, err := s.listenWithRetry()
	if err != nil {
		return err
	}
	s.listener = ln
	s.logger.Info().Str("addr", ln.Addr().String()).Msg("listening")

	s.eg.Go(s.dispatcher.Run)
	s.eg.Go(s.acceptLoop)

	return nil
}

// Addr returns the bound listen address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop closes the listener, waits for connection goroutines to drain within
// the shutdown timeout, and terminates the dispatcher.
func (s *Server) Stop() error {
	var err error

	s.stopOnce.Do(func() {
		close(s.stopChan)

		if s.listener != nil {
			err = s.listener.Close()
		}

		done := make(chan struct{})
		go func() {
			s.connWG.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(s.config.ShutdownTimeout):
			s.logger.Warn().Msg("timeout waiting for connections to close")
		}

		s.dispatcher.Stop()
		_ = s.eg.Wait()
	})

	return err
}

// listenWithRetry binds the listen address, retrying with a fixed delay
// until the retry budget is exhausted. Exhaustion is a startup-fatal error.
func (s *Server) listenWithRetry() (net.Listener, error) {
	var lastErr error

	for attempt := 1; attempt <= s.config.ListenRetryLimit; attempt++ {
		ln, err := net.Listen("tcp", s.address)
		if err == nil {
			return ln, nil
		}
		lastErr = err
		s.logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("limit", s.config.ListenRetryLimit).
			Msg("listen failed, retrying")

		select {
		case <-s.stopChan:
			return nil, fmt.Errorf("listen on %s aborted: %w", s.address, lastErr)
		case <-time.After(s.config.ListenRetryDelay):
		}
	}

	return nil, fmt.Errorf("listen on %s: retries exhausted: %w", s.address, lastErr)
}

// acceptLoop accepts connections forever and hands each one to the decoder.
func (s *Server) acceptLoop() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				time.Sleep(100 * time.Millisecond)

				continue
			}

			select {
			case <-s.stopChan:
				return nil
			default:
			}
			s.logger.Error().Err(err).Msg("accept failed")

			return err
		}

		s.connWG.Add(1)
		go s.handleConn(conn)
	}
}

// handleConn runs the protocol decoder for one client connection: zero or
// more info frames, then a single admin or action frame.
func (s *Server) handleConn(conn net.Conn) {
	defer s.connWG.Done()

	if tcpConn, ok := conn.(*net.TCPConn); ok && s.config.KeepAliveInterval > 0 {
		_ = tcpConn.SetKeepAlive(true)
		_ = tcpConn.SetKeepAlivePeriod(s.config.KeepAliveInterval)
	}

	req := newRequest(conn, s.config.WriteTimeout)
	logger := s.logger.With().Str("request", req.ID.String()).Logger()

	for {
		if s.config.ReadTimeout > 0 {
			if err := conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout)); err != nil {
				logger.Debug().Err(err).Msg("setting read deadline")
				req.Close()

				return
			}
		}

		frame, err := ReadFrame(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Debug().Err(err).Msg("reading request frame")
			}
			req.Close()

			return
		}

		msg, err := DecodeMessage(frame)
		if err != nil {
			logger.Warn().Err(err).Msg("undecodable request term")
			req.Close()

			return
		}

		switch msg.Kind {
		case KindInfo:
			// Metadata prefix; retain the raw frame and read the next one.
			req.InfoFrames = append(req.InfoFrames, frame)

			continue
		case KindAdmin:
			s.handleAdmin(req, msg)
			req.Close()

			return
		default:
			req.Action = msg
			s.routeRequest(req, logger)

			return
		}
	}
}

// routeRequest resolves the action's target pool and hands the request to
// admission. Unrouted modules take the native stub path and never queue.
func (s *Server) routeRequest(req *Request, logger zerolog.Logger) {
	poolID, ok := s.routes.Lookup(req.Action.Module)
	if !ok {
		s.handleNative(req, logger)

		return
	}
	req.PoolID = poolID

	if req.Action.Kind == KindCast {
		// Fire-and-forget: acknowledge and close before dispatch.
		ack, err := EncodeNoReply()
		if err != nil {
			logger.Error().Err(err).Msg("encoding cast acknowledgement")
		} else if err := req.Reply(ack); err != nil {
			logger.Debug().Err(err).Msg("writing cast acknowledgement")
		}
		req.Close()
	}

	s.dispatcher.Admit(req)
}

// handleNative is the stub path for modules served in-process. There are
// none yet; the request is dropped without a response.
func (s *Server) handleNative(req *Request, logger zerolog.Logger) {
	logger.Warn().Str("module", req.Action.Module).Msg("no pool serves module")
	req.Close()
}
