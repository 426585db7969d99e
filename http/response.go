package http

import (
	"errors"
	"io"

	"github.com/indigo-web/h1/http/proto"
	"github.com/indigo-web/h1/http/status"
	"github.com/indigo-web/h1/kv"
)

// Response represents HTTP response. Exported fields are filled by the decoder and read by
// the encoder; the methods provide a builder-like way to construct outgoing responses.
type Response struct {
	Protocol proto.Protocol
	// StatusCode is the numeric status code.
	StatusCode status.Code
	// Reason is the reason-phrase. If left empty for an outgoing response, the registered
	// phrase of the code is used.
	Reason  status.Status
	Headers Headers
	Body    *Body
}

// NewResponse returns a new instance of the Response object with status code set to 200 OK
// and an empty body.
func NewResponse() *Response {
	return &Response{
		Protocol:   proto.HTTP11,
		StatusCode: status.OK,
		Headers:    kv.New(),
		Body:       EmptyBody(),
	}
}

// Code sets a Response code.
func (r *Response) Code(code status.Code) *Response {
	r.StatusCode = code
	return r
}

// Status sets a custom reason-phrase. Usually it's totally ignored by clients, so there are
// no reasons to use this except some rare cases.
func (r *Response) Status(reason status.Status) *Response {
	r.Reason = reason
	return r
}

// Header adds header values to a key. In case it already exists the value will be appended.
func (r *Response) Header(key string, values ...string) *Response {
	for _, value := range values {
		r.Headers.Add(key, value)
	}

	return r
}

// String sets the response's body to the passed string.
func (r *Response) String(body string) *Response {
	r.Body = BodyString(body)
	return r
}

// Bytes sets the response's body to passed slice WITHOUT COPYING. Changing
// the passed slice later will affect the response by itself
func (r *Response) Bytes(body []byte) *Response {
	r.Body = BodyBytes(body)
	return r
}

// Stream sets the response's body to the reader. Negative size means the size is unknown,
// therefore chunked transfer encoding will be used.
func (r *Response) Stream(reader io.Reader, size int64) *Response {
	r.Body = NewBody(reader, size)
	return r
}

// Error returns a response describing the error. HTTP errors (see status.HTTPError) define
// the response code, any other error results in 500 Internal Server Error.
func Error(err error) *Response {
	code := status.InternalServerError

	var httpErr status.HTTPError
	if errors.As(err, &httpErr) && httpErr.Code != status.CloseConnection {
		code = httpErr.Code
	}

	return NewResponse().
		Code(code).
		Header("Content-Type", "text/plain").
		String(err.Error())
}
