package http1

import (
	"io"
	"time"
)

const testDate = "Sun, 06 Nov 1994 08:49:37 GMT"

func testClock() time.Time {
	return time.Date(1994, time.November, 6, 8, 49, 37, 0, time.UTC)
}

// readAll reads the reader till the end using a buffer of the size.
func readAll(r io.Reader, size int) (string, error) {
	var (
		output []byte
		buff   = make([]byte, size)
	)

	for {
		n, err := r.Read(buff)
		output = append(output, buff[:n]...)

		switch err {
		case nil:
		case io.EOF:
			return string(output), nil
		default:
			return string(output), err
		}
	}
}
