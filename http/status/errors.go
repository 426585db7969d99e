package status

// HTTPError is an error, which can be mapped onto a protocol-level response. Errors are
// compared by their identity, therefore wrapping them (fmt.Errorf with %w) with details
// keeps them recognizable via errors.Is.
type HTTPError struct {
	Message string
	Code    Code
}

func NewError(code Code, message string) error {
	return HTTPError{
		Code:    code,
		Message: message,
	}
}

func (h HTTPError) Error() string {
	return h.Message
}

var (
	// ErrConnectionClosed signals that the byte stream ended where a message was expected.
	ErrConnectionClosed = NewError(CloseConnection, "connection closed before a complete message head")

	// ErrInvalidInput is returned by encoders when the message can't be serialized, e.g. a
	// request target carries no host.
	ErrInvalidInput = NewError(BadRequest, "invalid input")
	// ErrMalformedHead is returned when the head boundary was found, but the head itself
	// couldn't be tokenized.
	ErrMalformedHead           = NewError(BadRequest, "malformed message head")
	ErrHTTPVersionNotSupported = NewError(HTTPVersionNotSupported, "HTTP version not supported")
	// ErrAmbiguousFraming is returned when both Content-Length and Transfer-Encoding are
	// presented, independently of whether their values agree.
	ErrAmbiguousFraming     = NewError(BadRequest, "both Content-Length and Transfer-Encoding are presented")
	ErrBadContentLength     = NewError(BadRequest, "invalid Content-Length value")
	ErrBadChunk             = NewError(BadRequest, "malformed chunk-encoded data")
	ErrMethodNotImplemented = NewError(NotImplemented, "request method is not supported")
	ErrHeaderFieldsTooLarge = NewError(RequestHeaderFieldsTooLarge, "too large headers section")
	ErrTooManyHeaders       = NewError(RequestHeaderFieldsTooLarge, "too many headers")
	ErrBodyTooLarge         = NewError(RequestEntityTooLarge, "body is too large")
	// ErrBodyLengthMismatch is returned by encoders, when a body produced fewer bytes than
	// its declared length.
	ErrBodyLengthMismatch = NewError(InternalServerError, "body is shorter than its declared length")
)
