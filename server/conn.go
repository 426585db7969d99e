// Package server drives the server role: requests are decoded from connections, passed to
// the handler, and the returned responses are written back.
package server

import (
	"errors"
	"io"
	"net"

	"github.com/indigo-web/h1/config"
	"github.com/indigo-web/h1/http"
	"github.com/indigo-web/h1/http/status"
	"github.com/indigo-web/h1/http1"
	"github.com/indigo-web/h1/kv"
	"github.com/indigo-web/h1/transport"
	"github.com/indigo-web/utils/strcomp"
	"go.uber.org/zap"
)

// Handler produces a response for the request. The request body may be read by the handler,
// whatever is left of it is discarded after the response was written. Returning nil results
// in an empty 200 OK response.
type Handler func(request *http.Request) *http.Response

type options struct {
	logger *zap.Logger
}

type Option func(*options)

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func newOptions(opts []Option) options {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// ServeConn serves requests from the connection until the client closes it, or an error
// occurs. Requests that can't be decoded are answered with the status code carried by the
// error and the connection is closed. The connection is always closed on return. Closing
// the connection by the client between requests isn't an error, so nil is returned.
func ServeConn(conn net.Conn, handler Handler, cfg *config.Config, opts ...Option) error {
	defer conn.Close()

	o := newOptions(opts)
	logger := o.logger.Named("server")
	client := transport.NewClient(conn, cfg.NET.ReadTimeout, make([]byte, cfg.NET.ReadBufferSize))
	decoder := http1.NewDecoder(client, cfg, http1.WithLogger(o.logger))

	for {
		request, err := decoder.DecodeRequest()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}

			logger.Debug("failed to decode request", zap.Error(err))
			respondError(conn, err, cfg, logger)
			return err
		}

		response := notNil(handler(request))
		closing := wantsClose(request.Headers) || wantsClose(response.Headers)
		if closing {
			response.Headers.Set("Connection", "close")
		}

		encoder, err := http1.EncodeResponse(response,
			http1.WithLogger(o.logger),
			http1.WithConfig(cfg),
			http1.WithRequestMethod(request.Method),
		)
		if err != nil {
			logger.Warn("bad response", zap.Error(err))
			respondError(conn, status.NewError(status.InternalServerError, "internal server error"), cfg, logger)
			return err
		}

		if _, err = io.Copy(conn, encoder); err != nil {
			logger.Warn("failed to write response", zap.Error(err))
			return err
		}

		if closing {
			return nil
		}

		if err = request.Body.Discard(); err != nil {
			// the response was already written, so nothing is left to do except
			// closing the connection
			logger.Debug("failed to discard request body", zap.Error(err))
			return err
		}
	}
}

// respondError writes a response describing the error. Errors that don't map to a status
// code, e.g. I/O errors, aren't answered at all.
func respondError(conn net.Conn, err error, cfg *config.Config, logger *zap.Logger) {
	var httpErr status.HTTPError
	if !errors.As(err, &httpErr) || httpErr.Code == status.CloseConnection {
		return
	}

	response := http.Error(err)
	response.Headers.Set("Connection", "close")

	encoder, err := http1.EncodeResponse(response, http1.WithConfig(cfg))
	if err != nil {
		return
	}

	if _, err = io.Copy(conn, encoder); err != nil {
		logger.Debug("failed to write error response", zap.Error(err))
	}
}

func wantsClose(headers http.Headers) bool {
	value, found := headers.Last("Connection")
	return found && strcomp.EqualFold(value, "close")
}

func notNil(response *http.Response) *http.Response {
	if response == nil {
		return http.NewResponse()
	}

	if response.Headers == nil {
		response.Headers = kv.New()
	}

	return response
}
