package dummy

import (
	"io"

	"github.com/indigo-web/h1/transport"
)

var _ transport.Client = new(Client)

// Client returns the same data as it was initialised with on every read, unless set to
// shoot once.
type Client struct {
	closed  bool
	once    bool
	pointer int
	tmp     []byte
	data    [][]byte
}

func NewMockClient(data ...[]byte) *Client {
	return &Client{
		data: data,
	}
}

func (c *Client) Read() (data []byte, err error) {
	if c.closed {
		return nil, io.EOF
	}

	if len(c.tmp) > 0 {
		data, c.tmp = c.tmp, nil

		return data, nil
	}

	if c.pointer >= len(c.data) {
		if c.once || len(c.data) == 0 {
			c.closed = true
			return nil, io.EOF
		}

		c.pointer = 0
	}

	piece := c.data[c.pointer]
	c.pointer++

	return piece, nil
}

func (c *Client) Pushback(takeback []byte) {
	c.tmp = takeback
}

// Pending returns the data preserved by the last Pushback and not read yet.
func (c *Client) Pending() []byte {
	return c.tmp
}

// Once makes the client return io.EOF after all the data was read once instead of starting
// from the beginning.
func (c *Client) Once() *Client {
	c.once = true
	return c
}

// Scatter splits the data into pieces of n bytes. The last piece may be shorter.
func Scatter(data []byte, n int) (pieces [][]byte) {
	for len(data) > n {
		pieces = append(pieces, data[:n])
		data = data[n:]
	}

	if len(data) > 0 {
		pieces = append(pieces, data)
	}

	return pieces
}

// NewScatteredClient returns a one-shot client, returning the data in pieces of n bytes.
func NewScatteredClient(data string, n int) *Client {
	return NewMockClient(Scatter([]byte(data), n)...).Once()
}
