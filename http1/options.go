package http1

import (
	"time"

	"github.com/indigo-web/h1/config"
	"github.com/indigo-web/h1/http/method"
	"go.uber.org/zap"
)

type options struct {
	logger *zap.Logger
	clock  func() time.Time
	cfg    *config.Config
	method method.Method
}

func newOptions(opts []Option) options {
	o := options{
		logger: zap.NewNop(),
		clock:  time.Now,
	}

	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// Option customizes encoders and decoders.
type Option func(*options)

// WithLogger sets the logger. By default, nothing is logged.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock replaces the clock used to generate Date headers.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithConfig sets the config for encoders. Decoders always use the config passed to
// NewDecoder.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) {
		o.cfg = cfg
	}
}

// WithRequestMethod tells the response encoder which request is being answered. Responses to
// HEAD requests carry the same framing headers, but never the body.
func WithRequestMethod(m method.Method) Option {
	return func(o *options) {
		o.method = m
	}
}
