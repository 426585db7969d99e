package http

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/indigo-web/h1/http/method"
	"github.com/indigo-web/h1/http/proto"
	"github.com/indigo-web/h1/http/status"
	"github.com/indigo-web/h1/kv"
)

type (
	Headers = *kv.Storage
	Header  = kv.Pair
)

// Request represents HTTP request
type Request struct {
	// Method is an enum representing the request method.
	Method method.Method
	// URL is the request target. Outgoing requests must carry a host in it, as the Host
	// header is derived from it. For incoming requests it holds the request-target as it
	// was received, so the host is normally unset.
	URL *url.URL
	// Protocol is the enum of a protocol used for the request.
	Protocol proto.Protocol
	// Headers holds non-normalized header pairs in the order they were received or added,
	// even though lookup is case-insensitive.
	Headers Headers
	// Body is a dedicated entity providing access to the message body.
	Body *Body
}

// NewRequest returns a new request with an empty body.
func NewRequest(m method.Method, target string) (*Request, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("%w: bad request target %q: %s", status.ErrInvalidInput, target, err)
	}

	return &Request{
		Method:   m,
		URL:      u,
		Protocol: proto.HTTP11,
		Headers:  kv.New(),
		Body:     EmptyBody(),
	}, nil
}

// Header adds header values to a key. Already existing values are kept.
func (r *Request) Header(key string, values ...string) *Request {
	for _, value := range values {
		r.Headers.Add(key, value)
	}

	return r
}

// WithBody replaces the request body.
func (r *Request) WithBody(body *Body) *Request {
	r.Body = body
	return r
}

// String sets a sized body to the passed string.
func (r *Request) String(body string) *Request {
	return r.WithBody(BodyString(body))
}

// Target returns the request-target in the form of path[?query][#fragment].
func (r *Request) Target() string {
	return Target(r.URL)
}

// Target builds the origin-form of the request-target from the URL, keeping the fragment if
// any.
func Target(u *url.URL) string {
	var b strings.Builder

	path := u.EscapedPath()
	if len(path) == 0 {
		path = "/"
	}

	b.WriteString(path)

	if len(u.RawQuery) > 0 || u.ForceQuery {
		b.WriteByte('?')
		b.WriteString(u.RawQuery)
	}

	if len(u.Fragment) > 0 {
		b.WriteByte('#')
		b.WriteString(u.EscapedFragment())
	}

	return b.String()
}
