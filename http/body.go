package http

import (
	"bytes"
	"io"
	"strings"

	"github.com/indigo-web/h1/kv"
)

// Body is a message body of one of three kinds: empty, sized (Content-Length) and unsized
// (chunked transfer encoding). The same type serves both as an outgoing body, being a byte
// producer for the encoder, and as an incoming body, streaming the decoded payload directly
// from the connection.
type Body struct {
	reader   io.Reader
	length   int64
	trailers *Trailers
	outgoing *kv.Storage
}

// NewBody returns a body, producing exactly length bytes from r. Negative length marks the
// body as unsized, which is going to be transferred using the chunked transfer encoding.
func NewBody(r io.Reader, length int64) *Body {
	if length < 0 {
		length = -1
	}

	return &Body{reader: r, length: length}
}

// NewStream returns an unsized body.
func NewStream(r io.Reader) *Body {
	return NewBody(r, -1)
}

// NewChunkedBody returns an unsized body, whose trailer fields will be delivered by the
// passed Trailers.
func NewChunkedBody(r io.Reader, trailers *Trailers) *Body {
	return &Body{reader: r, length: -1, trailers: trailers}
}

func EmptyBody() *Body {
	return &Body{length: 0}
}

// BodyBytes returns a sized body over the slice WITHOUT COPYING it.
func BodyBytes(b []byte) *Body {
	return NewBody(bytes.NewReader(b), int64(len(b)))
}

func BodyString(s string) *Body {
	return NewBody(strings.NewReader(s), int64(len(s)))
}

// Len returns the length of the body, or -1 if it isn't known in advance.
func (b *Body) Len() int64 {
	return b.length
}

// Sized reports whether the length of the body is known in advance.
func (b *Body) Sized() bool {
	return b.length >= 0
}

// Read implements io.Reader. An empty body always returns io.EOF.
func (b *Body) Read(p []byte) (int, error) {
	if b.reader == nil {
		return 0, io.EOF
	}

	return b.reader.Read(p)
}

// Bytes reads the rest of the body and returns it.
func (b *Body) Bytes() ([]byte, error) {
	if b.reader == nil {
		return nil, nil
	}

	if b.length > 0 {
		buff := bytes.NewBuffer(make([]byte, 0, b.length))
		_, err := buff.ReadFrom(b.reader)
		return buff.Bytes(), err
	}

	return io.ReadAll(b.reader)
}

// String reads the rest of the body and returns it as a string.
func (b *Body) String() (string, error) {
	data, err := b.Bytes()
	return string(data), err
}

// Discard reads the rest of the body, throwing it away. Incoming bodies must be discarded
// before the next message can be read from the same connection.
func (b *Body) Discard() error {
	if b.reader == nil {
		return nil
	}

	_, err := io.Copy(io.Discard, b.reader)
	return err
}

// Trailers returns the trailer fields of an incoming chunked body. For any other body nil is
// returned.
func (b *Body) Trailers() *Trailers {
	return b.trailers
}

// Trailer adds a trailer field to an outgoing unsized body. Trailer fields of sized bodies are
// never transmitted.
func (b *Body) Trailer(key, value string) *Body {
	if b.outgoing == nil {
		b.outgoing = kv.New()
	}

	b.outgoing.Add(key, value)
	return b
}

// OutgoingTrailers returns the trailer fields, which must be transmitted after an unsized body.
// May be nil.
func (b *Body) OutgoingTrailers() *kv.Storage {
	return b.outgoing
}
