package http1

import (
	"strconv"
	"strings"

	"github.com/indigo-web/h1/http/status"
	"github.com/indigo-web/h1/kv"
	"github.com/indigo-web/utils/strcomp"
)

// FramingKind denotes how the end of a message body is determined.
type FramingKind uint8

const (
	// FrameEmpty means the message has no body.
	FrameEmpty FramingKind = iota
	// FrameFixed means the body is exactly Length bytes long.
	FrameFixed
	// FrameChunked means the body uses the chunked transfer coding.
	FrameChunked
	// FrameUntilClose means the body lasts until the connection is closed. Only responses
	// may be framed this way.
	FrameUntilClose
)

func (f FramingKind) String() string {
	switch f {
	case FrameEmpty:
		return "empty"
	case FrameFixed:
		return "fixed"
	case FrameChunked:
		return "chunked"
	case FrameUntilClose:
		return "until-close"
	default:
		return "unknown"
	}
}

type Framing struct {
	Kind FramingKind
	// Length is set only for FrameFixed.
	Length int64
}

// Frame decides how the body of a message with the headers is delimited. Both Content-Length
// and Transfer-Encoding being presented is an error, even if they would agree. Whenever a
// header has multiple values, the last one is authoritative.
func Frame(headers *kv.Storage) (Framing, error) {
	contentLength, hasCL := headers.Last("Content-Length")
	transferEncoding, hasTE := headers.Last("Transfer-Encoding")

	switch {
	case hasCL && hasTE:
		return Framing{}, status.ErrAmbiguousFraming
	case hasTE:
		if chunked(transferEncoding) {
			return Framing{Kind: FrameChunked}, nil
		}

		return Framing{Kind: FrameEmpty}, nil
	case hasCL:
		length, err := strconv.ParseUint(contentLength, 10, 63)
		if err != nil {
			return Framing{}, status.ErrBadContentLength
		}

		return Framing{Kind: FrameFixed, Length: int64(length)}, nil
	default:
		return Framing{Kind: FrameEmpty}, nil
	}
}

// chunked reports whether the last transfer coding in the list is chunked.
func chunked(value string) bool {
	if comma := strings.LastIndexByte(value, ','); comma != -1 {
		value = value[comma+1:]
	}

	return strcomp.EqualFold(strings.Trim(value, " \t"), "chunked")
}
