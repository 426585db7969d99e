package transport

import (
	"net"
	"time"
)

// Client is the byte source the codec decodes messages from. Every Read returns a piece of
// data, owned by the client and valid until the next Read. Data that was read but not
// consumed must be returned via Pushback, so the next Read returns it back first.
type Client interface {
	Read() ([]byte, error)
	Pushback([]byte)
}

type client struct {
	conn    net.Conn
	buff    []byte
	pending []byte
	timeout time.Duration
}

// NewClient returns a Client reading from conn into buff. Non-zero timeout is applied as a
// read deadline before every read from the connection.
func NewClient(conn net.Conn, timeout time.Duration, buff []byte) Client {
	return &client{
		buff:    buff,
		conn:    conn,
		timeout: timeout,
	}
}

// Read returns pushed back data, if any, otherwise reads data into the internal buffer and
// returns a piece of it back.
func (c *client) Read() ([]byte, error) {
	if len(c.pending) > 0 {
		pending := c.pending
		c.pending = nil

		return pending, nil
	}

	if c.timeout > 0 {
		// fails only if the connection is already closed by either side, which the read
		// reports more precisely, e.g. by io.EOF.
		_ = c.conn.SetReadDeadline(time.Now().Add(c.timeout))
	}

	n, err := c.conn.Read(c.buff)
	if n > 0 {
		// data is returned even if an error occurred, the error is going to be
		// returned by the next read.
		return c.buff[:n], nil
	}

	return nil, err
}

// Pushback preserves a chunk of data from previous read for the next read.
func (c *client) Pushback(b []byte) {
	c.pending = b
}
