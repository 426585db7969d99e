package http1

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/indigo-web/h1/config"
	"github.com/indigo-web/h1/http"
	"github.com/indigo-web/h1/http/method"
	"github.com/indigo-web/h1/http/proto"
	"github.com/indigo-web/h1/http/status"
	"github.com/indigo-web/h1/internal/httpdate"
	"github.com/indigo-web/h1/kv"
	"github.com/indigo-web/utils/strcomp"
	"go.uber.org/zap"
)

var (
	chunkTerminator = []byte("0\r\n")
	crlfBytes       = []byte(crlf)
)

// Encoder serializes a single message into its wire form. It's an io.Reader: the head is
// produced first, the body follows right after it, possibly in the same Read. The encoder
// never writes anything on its own, so the produced bytes must be copied to the transport,
// e.g. by io.Copy, which is going to use the io.WriterTo implementation.
type Encoder struct {
	// pending holds serialized bytes (the head or a framed chunk), which weren't read yet.
	pending []byte
	frame   []byte
	staging []byte
	body    io.Reader
	// length is the declared length of a fixed body, or -1 for chunked ones.
	length   int64
	produced int64
	trailers *kv.Storage
	copySize int
	done     bool
	err      error
}

// EncodeRequest prepares the request for serialization. The Host header is derived from the
// request URL, therefore the URL must carry a host.
func EncodeRequest(request *http.Request, opts ...Option) (*Encoder, error) {
	o := newOptions(opts)

	if request.URL == nil || len(request.URL.Hostname()) == 0 {
		return nil, fmt.Errorf("%w: request target carries no host", status.ErrInvalidInput)
	}

	if request.Method == method.Unknown {
		return nil, fmt.Errorf("%w: unknown request method", status.ErrInvalidInput)
	}

	target := http.Target(request.URL)
	if strings.ContainsAny(target, " \r\n") {
		return nil, fmt.Errorf("%w: request target contains whitespaces", status.ErrInvalidInput)
	}

	head := make([]byte, 0, 512)
	head = append(head, request.Method.String()...)
	head = append(head, ' ')
	head = append(head, target...)
	head = append(head, ' ')
	head = append(head, proto.HTTP11.String()...)
	head = append(head, crlf...)
	head = appendKnownHeader(head, "Host: ", request.URL.Host)

	return newEncoder(head, request.Headers, request.Body, true, true, o)
}

// EncodeResponse prepares the response for serialization. If the reason-phrase is empty,
// the registered one for the status code is used. Responses with status codes, which never
// carry a body (1xx, 204 and 304), are serialized without any framing headers and a body.
// See also WithRequestMethod.
func EncodeResponse(response *http.Response, opts ...Option) (*Encoder, error) {
	o := newOptions(opts)

	code := response.StatusCode
	if code < 100 || code > 599 {
		return nil, fmt.Errorf("%w: status code %d", status.ErrInvalidInput, code)
	}

	reason := response.Reason
	if len(reason) == 0 {
		reason = status.Text(code)
	}

	if strings.ContainsAny(string(reason), "\r\n") {
		return nil, fmt.Errorf("%w: reason-phrase contains line breaks", status.ErrInvalidInput)
	}

	head := make([]byte, 0, 512)
	head = append(head, proto.HTTP11.String()...)
	head = append(head, ' ')
	head = strconv.AppendUint(head, uint64(code), 10)
	head = append(head, ' ')
	head = append(head, reason...)
	head = append(head, crlf...)

	body := response.Body
	if status.Bodiless(code) {
		body = nil
	}

	return newEncoder(head, response.Headers, body, false, !status.Bodiless(code), o)
}

func newEncoder(
	head []byte, headers *kv.Storage, body *http.Body, request, framed bool, o options,
) (*Encoder, error) {
	cfg := o.cfg
	if cfg == nil {
		cfg = config.Default()
	}

	if body == nil {
		body = http.EmptyBody()
	}

	bufferSize := min(cfg.NET.WriteBufferSize.Default, cfg.NET.WriteBufferSize.Maximal)
	e := &Encoder{
		body:     body,
		length:   body.Len(),
		copySize: bufferSize,
	}

	switch {
	case !framed:
		e.length = 0
	case body.Sized():
		head = appendContentLength(head, body.Len())
	default:
		head = appendKnownHeader(head, "Transfer-Encoding: ", "chunked")
		e.staging = make([]byte, bufferSize)
		e.trailers = body.OutgoingTrailers()
	}

	if o.method == method.HEAD && !request {
		e.length, e.trailers = 0, nil
	}

	if headers == nil || !headers.Has("Date") {
		head = appendKnownHeader(head, "Date: ", httpdate.Format(o.clock()))
	}

	if headers != nil {
		for key, value := range headers.Pairs() {
			if strcomp.EqualFold(key, "Host") ||
				strcomp.EqualFold(key, "Content-Length") ||
				strcomp.EqualFold(key, "Transfer-Encoding") {
				continue
			}

			if err := validateField(key, value); err != nil {
				return nil, err
			}

			head = appendHeader(head, key, value)
		}
	}

	head = append(head, crlf...)
	e.pending = head

	if e.trailers != nil {
		for key, value := range e.trailers.Pairs() {
			if err := validateField(key, value); err != nil {
				return nil, err
			}
		}
	}

	o.logger.Named("encoder").Debug("encoded head",
		zap.Int("size", len(head)),
		zap.Int64("length", e.length),
	)

	return e, nil
}

// Read implements io.Reader. Once the whole message was produced, io.EOF is returned on
// every call.
func (e *Encoder) Read(p []byte) (n int, err error) {
	readBody := false

	for n < len(p) {
		if len(e.pending) > 0 {
			copied := copy(p[n:], e.pending)
			e.pending = e.pending[copied:]
			n += copied
			continue
		}

		if e.done || e.err != nil || readBody {
			break
		}

		readBody = true
		if e.length < 0 {
			e.readChunk()
		} else {
			n += e.readFixed(p[n:])
		}
	}

	switch {
	case n > 0:
		return n, nil
	case e.err != nil:
		return 0, e.err
	case e.done:
		return 0, io.EOF
	default:
		return 0, nil
	}
}

// readFixed reads the body directly into p, never exceeding the declared length.
func (e *Encoder) readFixed(p []byte) int {
	left := e.length - e.produced
	if left == 0 {
		e.done = true
		return 0
	}

	if int64(len(p)) > left {
		p = p[:left]
	}

	n, err := e.body.Read(p)
	e.produced += int64(n)

	switch {
	case e.produced == e.length:
		e.done = true
	case errors.Is(err, io.EOF):
		e.err = fmt.Errorf(
			"%w: produced %d of %d bytes", status.ErrBodyLengthMismatch, e.produced, e.length,
		)
	case err != nil:
		e.err = err
	}

	return n
}

// readChunk reads the body into the staging buffer and frames it as a single chunk. If the body
// is exhausted, the terminating chunk and the trailer section are appended as well.
func (e *Encoder) readChunk() {
	n, err := e.body.Read(e.staging)
	e.frame = e.frame[:0]

	if n > 0 {
		e.produced += int64(n)
		e.frame = strconv.AppendUint(e.frame, uint64(n), 16)
		e.frame = append(e.frame, crlf...)
		e.frame = append(e.frame, e.staging[:n]...)
		e.frame = append(e.frame, crlf...)
	}

	switch {
	case errors.Is(err, io.EOF):
		e.frame = append(e.frame, chunkTerminator...)
		if e.trailers != nil {
			for key, value := range e.trailers.Pairs() {
				e.frame = appendHeader(e.frame, key, value)
			}
		}

		e.frame = append(e.frame, crlfBytes...)
		e.done = true
	case err != nil:
		e.err = err
	}

	e.pending = e.frame
}

// WriteTo implements io.WriterTo.
func (e *Encoder) WriteTo(w io.Writer) (total int64, err error) {
	buff := make([]byte, e.copySize)

	for {
		var n int
		if len(e.pending) > 0 {
			n, err = w.Write(e.pending)
			e.pending = e.pending[n:]
		} else {
			n, err = e.Read(buff)
			if n > 0 {
				n, err = w.Write(buff[:n])
			}
		}

		total += int64(n)

		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			return total, nil
		default:
			return total, err
		}
	}
}

func validateField(key, value string) error {
	if len(key) == 0 || strings.ContainsAny(key, ": \t\r\n") || strings.ContainsAny(value, "\r\n") {
		return fmt.Errorf("%w: bad header field %q", status.ErrInvalidInput, key)
	}

	return nil
}

// appendHeader writes a complete header field line.
func appendHeader(buff []byte, key, value string) []byte {
	buff = append(buff, key...)
	buff = append(buff, ':', ' ')
	buff = append(buff, value...)
	return append(buff, crlf...)
}

// appendKnownHeader differs from appendHeader only by the fact that the key is known to already
// have a colon and a space included.
func appendKnownHeader(buff []byte, key, value string) []byte {
	buff = append(buff, key...)
	buff = append(buff, value...)
	return append(buff, crlf...)
}

func appendContentLength(buff []byte, value int64) []byte {
	buff = append(buff, "Content-Length: "...)
	buff = strconv.AppendUint(buff, uint64(value), 10)
	return append(buff, crlf...)
}
