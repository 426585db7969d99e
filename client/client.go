// Package client drives the client role of a single HTTP/1.1 connection: requests are
// serialized into the connection and responses are read back in the same order.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/indigo-web/h1/config"
	"github.com/indigo-web/h1/http"
	"github.com/indigo-web/h1/http/status"
	"github.com/indigo-web/h1/http1"
	"github.com/indigo-web/h1/transport"
	"go.uber.org/zap"
)

type Option func(*Session)

// WithLogger sets the logger of the session, which is also passed down to the codec.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Session sends requests over a single connection one by one. It isn't safe for concurrent
// use.
type Session struct {
	conn     net.Conn
	cfg      *config.Config
	decoder  *http1.Decoder
	logger   *zap.Logger
	previous *http.Response
}

func NewSession(conn net.Conn, cfg *config.Config, opts ...Option) *Session {
	s := &Session{
		conn:   conn,
		cfg:    cfg,
		logger: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(s)
	}

	// deadlines are controlled by contexts of requests, so no read timeout is set.
	client := transport.NewClient(conn, 0, make([]byte, cfg.NET.ReadBufferSize))
	s.decoder = http1.NewDecoder(client, cfg, http1.WithLogger(s.logger))
	s.logger = s.logger.Named("client")

	return s
}

// Send writes the request and reads the response. The body of the previous response is
// discarded if it wasn't read till the end. Cancellation of the context interrupts writing
// the request and reading the response head, the deadline of it applies also to reading the
// response body. Interim (1xx) responses are skipped, except 101 Switching Protocols.
func (s *Session) Send(ctx context.Context, request *http.Request) (*http.Response, error) {
	if s.previous != nil {
		previous := s.previous
		s.previous = nil

		if err := previous.Body.Discard(); err != nil {
			return nil, fmt.Errorf("discard previous response body: %w", err)
		}
	}

	encoder, err := http1.EncodeRequest(request, http1.WithLogger(s.logger), http1.WithConfig(s.cfg))
	if err != nil {
		return nil, err
	}

	deadline, _ := ctx.Deadline()
	if err = s.conn.SetDeadline(deadline); err != nil {
		return nil, err
	}

	stop := context.AfterFunc(ctx, func() {
		// unblocks pending reads and writes
		_ = s.conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	n, err := io.Copy(s.conn, encoder)
	if err != nil {
		return nil, s.contextError(ctx, fmt.Errorf("write request: %w", err))
	}

	s.logger.Debug("request sent",
		zap.Stringer("method", request.Method),
		zap.String("target", request.Target()),
		zap.Int64("bytes", n),
	)

	for {
		response, err := s.decoder.DecodeResponse(request.Method)
		if err != nil {
			return nil, s.contextError(ctx, err)
		}

		s.logger.Debug("response received", zap.Int("code", int(response.StatusCode)))

		if response.StatusCode >= 100 && response.StatusCode < 200 &&
			response.StatusCode != status.SwitchingProtocols {
			continue
		}

		s.previous = response
		return response, nil
	}
}

// Close closes the underlying connection.
func (s *Session) Close() error {
	return s.conn.Close()
}

func (s *Session) contextError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %w", ctxErr, err)
	}

	if _, ok := ctx.Deadline(); ok && errors.Is(err, os.ErrDeadlineExceeded) {
		return fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
	}

	return err
}

// Connect sends a single request over the connection with default settings and returns the
// response.
func Connect(ctx context.Context, conn net.Conn, request *http.Request) (*http.Response, error) {
	return NewSession(conn, config.Default()).Send(ctx, request)
}
