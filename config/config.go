package config

import (
	"time"
)

type (
	HeadersNumber struct {
		Default, Maximal int
	}

	HeadersSpace struct {
		Default, Maximal int
	}

	NETWriteBufferSize struct {
		Default, Maximal int
	}
)

type (
	Headers struct {
		// Number is responsible for headers storage size.
		// Default value is an initial number of pre-allocated pairs.
		// Maximal value is maximum number of field lines allowed to be presented in a single
		// head or trailer section.
		Number HeadersNumber
		// Space limits the amount of memory occupied by a message head, starting from the
		// request- or status-line and up to the empty line terminating the head. The same
		// limit is applied to a trailer section of chunked bodies.
		Space HeadersSpace
	}

	Body struct {
		// MaxSize describes the maximal declared length of a body, that can be accepted.
		// Chunked bodies are limited by the total amount of decoded data. In order to disable
		// the setting, use the math.MaxUint64 value.
		MaxSize uint64
		// ReadUntilClose makes responses carrying neither Content-Length nor Transfer-Encoding
		// be read until the connection is closed by the peer. By default such responses are
		// considered bodiless.
		ReadUntilClose bool `test:"nullable"`
	}

	NET struct {
		// ReadBufferSize is a size of buffer in bytes which will be used to read from
		// the connection.
		ReadBufferSize int
		// ReadTimeout controls the maximal time a single read may block. If no data was
		// received in this period of time, the read fails.
		ReadTimeout time.Duration
		// WriteBufferSize controls the buffers used when producing the bytes of an outgoing
		// message. Default is the size of a single chunk of a body with an unknown length,
		// as well as of the buffer used to copy an encoded message into the connection.
		// Maximal caps both of them.
		WriteBufferSize NETWriteBufferSize
	}
)

// Config holds settings used across the codec, mainly restrictions, limitations
// and pre-allocations.
//
// You must ALWAYS modify defaults (returned via Default()) and NEVER try to initialize the
// config manually, because most likely this will result in ambiguous errors.
type Config struct {
	Headers Headers
	Body    Body
	NET     NET
}

// Default returns default config. Those are initially well-balanced, however maximal defaults
// are pretty permitting.
func Default() *Config {
	return &Config{
		Headers: Headers{
			Number: HeadersNumber{
				Default: 10,
				Maximal: 100,
			},
			Space: HeadersSpace{
				Default: 1 * 1024,  // 1kb for a head must be fairly enough in most cases.
				Maximal: 64 * 1024, // However, there also might be extremely long cookies.
			},
		},
		Body: Body{
			MaxSize: 512 * 1024 * 1024, // 512 megabytes
		},
		NET: NET{
			ReadBufferSize: 4 * 1024,
			ReadTimeout:    90 * time.Second,
			WriteBufferSize: NETWriteBufferSize{
				Default: 4 * 1024,
				Maximal: 64 * 1024,
			},
		},
	}
}
