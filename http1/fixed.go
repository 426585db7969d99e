package http1

import (
	"errors"
	"io"

	"github.com/indigo-web/h1/transport"
)

// fixedReader reads exactly n bytes from the client. Everything beyond that is pushed back.
// Negative n makes it read until the client reports io.EOF.
type fixedReader struct {
	client transport.Client
	left   int64
	err    error
}

func newFixedReader(client transport.Client, n int64) *fixedReader {
	return &fixedReader{
		client: client,
		left:   n,
	}
}

func newUntilCloseReader(client transport.Client) *fixedReader {
	return newFixedReader(client, -1)
}

func (f *fixedReader) Read(p []byte) (int, error) {
	switch {
	case f.err != nil:
		return 0, f.err
	case f.left == 0:
		return 0, io.EOF
	case len(p) == 0:
		return 0, nil
	}

	for {
		data, err := f.client.Read()
		if len(data) == 0 {
			if err == nil {
				continue
			}

			if errors.Is(err, io.EOF) && f.left > 0 {
				err = io.ErrUnexpectedEOF
			}

			f.err = err
			return 0, err
		}

		if f.left > 0 && int64(len(p)) > f.left {
			p = p[:f.left]
		}

		n := copy(p, data)
		f.client.Pushback(data[n:])
		if f.left > 0 {
			f.left -= int64(n)
		}

		return n, nil
	}
}
