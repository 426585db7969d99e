package server

import (
	"context"
	"errors"
	"net"
	"sync"

	"github.com/indigo-web/h1/config"
	"go.uber.org/zap"
)

var ErrServerClosed = errors.New("server closed")

// Server accepts connections from a listener and serves every one of them in its own
// goroutine.
type Server struct {
	handler  Handler
	cfg      *config.Config
	opts     []Option
	logger   *zap.Logger
	wg       sync.WaitGroup
	mu       sync.Mutex
	sock     net.Listener
	conns    map[net.Conn]struct{}
	shutdown bool
}

func New(handler Handler, cfg *config.Config, opts ...Option) *Server {
	return &Server{
		handler: handler,
		cfg:     cfg,
		opts:    opts,
		logger:  newOptions(opts).logger.Named("server"),
		conns:   make(map[net.Conn]struct{}),
	}
}

// Serve runs the accept loop until the listener fails or the server is shut down, in which
// case ErrServerClosed is returned. The listener is closed on return.
func (s *Server) Serve(sock net.Listener) error {
	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		_ = sock.Close()
		return ErrServerClosed
	}

	s.sock = sock
	s.mu.Unlock()
	defer sock.Close()

	for {
		conn, err := sock.Accept()
		if err != nil {
			s.mu.Lock()
			shutdown := s.shutdown
			s.mu.Unlock()

			if shutdown {
				return ErrServerClosed
			}

			return err
		}

		if !s.track(conn) {
			_ = conn.Close()
			return ErrServerClosed
		}

		go s.connHandler(conn)
	}
}

func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.shutdown {
		return false
	}

	s.conns[conn] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) connHandler(conn net.Conn) {
	defer s.wg.Done()

	if err := ServeConn(conn, s.handler, s.cfg, s.opts...); err != nil {
		s.logger.Warn("connection failed", zap.Stringer("remote", addr{conn}), zap.Error(err))
	}

	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

// Shutdown stops accepting new connections and waits until the served ones are done. If the
// context is done earlier, all the connections are closed immediately and the error of the
// context is returned.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopListener()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.closeConns()
		<-done
		return ctx.Err()
	}
}

// Close shuts the listener and ALL the connections down.
func (s *Server) Close() error {
	s.stopListener()
	s.closeConns()
	s.wg.Wait()

	return nil
}

func (s *Server) stopListener() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.shutdown = true
	if s.sock != nil {
		_ = s.sock.Close()
	}
}

func (s *Server) closeConns() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for conn := range s.conns {
		_ = conn.Close()
	}
}

// addr renders the remote address lazily, as it may be unavailable.
type addr struct {
	conn net.Conn
}

func (a addr) String() string {
	if remote := a.conn.RemoteAddr(); remote != nil {
		return remote.String()
	}

	return "unknown"
}
