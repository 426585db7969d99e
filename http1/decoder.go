// Package http1 implements the HTTP/1.1 message codec: encoding of requests and responses
// into their wire form, and decoding them back with bodies streamed from the connection.
package http1

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/indigo-web/h1/config"
	"github.com/indigo-web/h1/http"
	"github.com/indigo-web/h1/http/method"
	"github.com/indigo-web/h1/http/proto"
	"github.com/indigo-web/h1/http/status"
	"github.com/indigo-web/h1/internal/buffer"
	"github.com/indigo-web/h1/internal/httpdate"
	"github.com/indigo-web/h1/internal/tokenizer"
	"github.com/indigo-web/h1/kv"
	"github.com/indigo-web/h1/transport"
	"go.uber.org/zap"
)

const (
	crlf         = "\r\n"
	headBoundary = "\r\n\r\n"
)

// Decoder reads messages from a client one by one. Only a single message is consumed at a
// time: the head is read until the empty line, and the body is streamed directly from the
// client by the Body of the returned message. The body must be fully consumed before the
// next message can be decoded, so decoding the next message discards whatever is left of the
// previous body.
type Decoder struct {
	client   transport.Client
	cfg      *config.Config
	head     buffer.Buffer
	progress int
	previous *http.Body
	logger   *zap.Logger
	clock    func() time.Time
}

func NewDecoder(client transport.Client, cfg *config.Config, opts ...Option) *Decoder {
	o := newOptions(opts)

	return &Decoder{
		client: client,
		cfg:    cfg,
		head:   buffer.New(cfg.Headers.Space.Default, cfg.Headers.Space.Maximal),
		logger: o.logger.Named("decoder"),
		clock:  o.clock,
	}
}

// DecodeRequest reads the next request. io.EOF is returned if the client was closed before
// a single byte of the next request was received, which is a normal termination of the
// connection.
func (d *Decoder) DecodeRequest() (*http.Request, error) {
	head, err := d.readHead()
	if err != nil {
		return nil, err
	}

	line, fields, err := tokenizer.Request(head, d.cfg.Headers.Number.Maximal)
	if err != nil {
		return nil, tokenizerError(err)
	}

	protocol := proto.FromString(line.Version)
	if protocol != proto.HTTP11 {
		return nil, fmt.Errorf("%w: %q", status.ErrHTTPVersionNotSupported, line.Version)
	}

	m := method.Parse(line.Method)
	if m == method.Unknown {
		return nil, fmt.Errorf("%w: %q", status.ErrMethodNotImplemented, line.Method)
	}

	target, err := parseTarget(line.Target)
	if err != nil {
		return nil, fmt.Errorf("%w: bad request target: %w", status.ErrMalformedHead, err)
	}

	headers := kv.NewFromPairs(fields...)
	framing, err := Frame(headers)
	if err != nil {
		return nil, err
	}

	body, err := d.body(framing)
	if err != nil {
		return nil, err
	}

	d.logger.Debug("decoded request head",
		zap.Stringer("method", m),
		zap.String("target", line.Target),
		zap.Int("fields", len(fields)),
		zap.Stringer("framing", framing.Kind),
	)

	return &http.Request{
		Method:   m,
		URL:      target,
		Protocol: protocol,
		Headers:  headers,
		Body:     body,
	}, nil
}

// DecodeResponse reads the next response. The method of the request the response answers
// is required, as responses to HEAD requests never carry a body. method.Unknown may be passed
// if the method isn't known. If the response carries no Date header, one with the current
// time is added, so it doesn't necessarily reflect what the peer has sent.
func (d *Decoder) DecodeResponse(m method.Method) (*http.Response, error) {
	head, err := d.readHead()
	if err != nil {
		if errors.Is(err, io.EOF) {
			// io.EOF is kept, so it's still distinguishable whether a single byte of the
			// response was received
			err = fmt.Errorf("%w: %w", status.ErrConnectionClosed, io.EOF)
		}

		return nil, err
	}

	line, fields, err := tokenizer.Response(head, d.cfg.Headers.Number.Maximal)
	if err != nil {
		return nil, tokenizerError(err)
	}

	protocol := proto.FromString(line.Version)
	if protocol != proto.HTTP11 {
		return nil, fmt.Errorf("%w: %q", status.ErrHTTPVersionNotSupported, line.Version)
	}

	if line.Code < 100 {
		return nil, fmt.Errorf("%w: status code %d", status.ErrMalformedHead, line.Code)
	}

	code := status.Code(line.Code)
	headers := kv.NewFromPairs(fields...)
	framing, err := Frame(headers)
	if err != nil {
		return nil, err
	}

	switch {
	case status.Bodiless(code) || m == method.HEAD:
		framing = Framing{Kind: FrameEmpty}
	case framing.Kind == FrameEmpty && !headers.Has("Content-Length") && d.cfg.Body.ReadUntilClose:
		framing = Framing{Kind: FrameUntilClose}
	}

	body, err := d.body(framing)
	if err != nil {
		return nil, err
	}

	if !headers.Has("Date") {
		headers.Add("Date", httpdate.Format(d.clock()))
	}

	d.logger.Debug("decoded response head",
		zap.Int("code", line.Code),
		zap.Int("fields", len(fields)),
		zap.Stringer("framing", framing.Kind),
	)

	return &http.Response{
		Protocol:   protocol,
		StatusCode: code,
		Reason:     status.Status(line.Reason),
		Headers:    headers,
		Body:       body,
	}, nil
}

// readHead reads the client until the head boundary is met. The rest of the data is pushed
// back.
func (d *Decoder) readHead() (string, error) {
	if d.previous != nil {
		previous := d.previous
		d.previous = nil

		if err := previous.Discard(); err != nil {
			return "", fmt.Errorf("discard previous body: %w", err)
		}
	}

	d.head.Clear()
	d.progress = 0
	started := false

	for {
		data, err := d.client.Read()
		if !started {
			// empty lines preceding the head are ignored
			data = bytes.TrimLeft(data, crlf)
			started = len(data) > 0
		}

		if len(data) == 0 {
			if err == nil {
				continue
			}

			if errors.Is(err, io.EOF) {
				if d.head.SegmentLength() == 0 {
					return "", io.EOF
				}

				return "", status.ErrConnectionClosed
			}

			return "", err
		}

		if boundary := d.scan(data); boundary != -1 {
			if !d.head.Append(data[:boundary]) {
				return "", status.ErrHeaderFieldsTooLarge
			}

			d.client.Pushback(data[boundary:])
			return string(d.head.Finish()), nil
		}

		if !d.head.Append(data) {
			return "", status.ErrHeaderFieldsTooLarge
		}
	}
}

// scan looks for the head boundary, remembering the progress of matching it, so the boundary
// may be split between reads arbitrarily. Returns the offset right after the boundary, or -1.
func (d *Decoder) scan(data []byte) int {
	for i, char := range data {
		switch {
		case char == headBoundary[d.progress]:
			d.progress++
		case char == '\r':
			d.progress = 1
		default:
			d.progress = 0
		}

		if d.progress == len(headBoundary) {
			return i + 1
		}
	}

	return -1
}

func (d *Decoder) body(framing Framing) (*http.Body, error) {
	var body *http.Body

	switch framing.Kind {
	case FrameEmpty:
		return http.EmptyBody(), nil
	case FrameFixed:
		if uint64(framing.Length) > d.cfg.Body.MaxSize {
			return nil, status.ErrBodyTooLarge
		}

		if framing.Length == 0 {
			return http.EmptyBody(), nil
		}

		body = http.NewBody(newFixedReader(d.client, framing.Length), framing.Length)
	case FrameChunked:
		decoder, trailers := NewChunkedDecoder(d.client, d.cfg)
		body = http.NewChunkedBody(decoder, trailers)
	case FrameUntilClose:
		body = http.NewStream(newUntilCloseReader(d.client))
	}

	d.previous = body
	return body, nil
}

func tokenizerError(err error) error {
	if errors.Is(err, tokenizer.ErrTooManyFields) {
		return status.ErrTooManyHeaders
	}

	return fmt.Errorf("%w: %w", status.ErrMalformedHead, err)
}

func parseTarget(target string) (*url.URL, error) {
	if target == "*" {
		return &url.URL{Path: "*"}, nil
	}

	return url.Parse(target)
}
