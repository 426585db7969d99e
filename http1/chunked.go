package http1

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/indigo-web/h1/config"
	"github.com/indigo-web/h1/http"
	"github.com/indigo-web/h1/http/status"
	"github.com/indigo-web/h1/internal/buffer"
	"github.com/indigo-web/h1/internal/hexconv"
	"github.com/indigo-web/h1/internal/tokenizer"
	"github.com/indigo-web/h1/kv"
	"github.com/indigo-web/h1/transport"
)

type chunkedParserState uint8

const (
	eChunkLength chunkedParserState = iota
	eChunkLengthWS
	eChunkExt
	eChunkLengthLF
	eChunkBody
	eChunkBodyCR
	eChunkBodyLF
	eTrailerLineStart
	eTrailerLine
	eTrailerEndLF
	eDone
)

// maxChunkLengthDigits limits a single chunk length by the capacity of uint64.
const maxChunkLengthDigits = 16

type chunkedParser struct {
	state        chunkedParserState
	lengthDigits uint8
	chunkLength  uint64
	maxFields    int
	trailer      buffer.Buffer
	trailers     *kv.Storage
}

func newChunkedParser(cfg *config.Config) chunkedParser {
	return chunkedParser{
		state:     eChunkLength,
		maxFields: cfg.Headers.Number.Maximal,
		trailer:   buffer.New(0, cfg.Headers.Space.Maximal),
	}
}

// Parse consumes the data, returning a piece of the payload (not longer than limit bytes) as
// soon as it's available. Both chunk and extra are nil if the whole data was consumed without
// yielding anything, so more data is required. io.EOF signals that the terminating chunk and
// the trailer section were consumed, so Trailers are available.
func (c *chunkedParser) Parse(data []byte, limit int) (chunk, extra []byte, err error) {
	switch c.state {
	case eChunkLength:
		goto chunkLength
	case eChunkLengthWS:
		goto chunkLengthWS
	case eChunkExt:
		goto chunkExt
	case eChunkLengthLF:
		goto chunkLengthLF
	case eChunkBody:
		goto chunkBody
	case eChunkBodyCR:
		goto chunkBodyCR
	case eChunkBodyLF:
		goto chunkBodyLF
	case eTrailerLineStart:
		goto trailerLineStart
	case eTrailerLine:
		goto trailerLine
	case eTrailerEndLF:
		goto trailerEndLF
	case eDone:
		return nil, data, io.EOF
	default:
		panic("unreachable code")
	}

chunkLength:
	for i := 0; i < len(data); i++ {
		switch char := data[i]; char {
		case '\r':
			if c.lengthDigits == 0 {
				return nil, nil, fmt.Errorf("%w: empty chunk size", status.ErrBadChunk)
			}

			data = data[i+1:]
			goto chunkLengthLF
		case ';':
			if c.lengthDigits == 0 {
				return nil, nil, fmt.Errorf("%w: empty chunk size", status.ErrBadChunk)
			}

			data = data[i+1:]
			goto chunkExt
		case ' ', '\t':
			if c.lengthDigits == 0 {
				return nil, nil, fmt.Errorf("%w: empty chunk size", status.ErrBadChunk)
			}

			data = data[i+1:]
			goto chunkLengthWS
		default:
			val := hexconv.Halfbyte[char]
			if val == 0xFF {
				return nil, nil, fmt.Errorf("%w: invalid chunk size character %q", status.ErrBadChunk, char)
			}

			c.chunkLength = (c.chunkLength << 4) | uint64(val)
			if c.lengthDigits++; c.lengthDigits > maxChunkLengthDigits {
				return nil, nil, fmt.Errorf("%w: chunk size is too long", status.ErrBadChunk)
			}
		}
	}

	c.state = eChunkLength
	return nil, nil, nil

chunkLengthWS:
	for i := 0; i < len(data); i++ {
		switch char := data[i]; char {
		case ' ', '\t':
		case '\r':
			data = data[i+1:]
			goto chunkLengthLF
		case ';':
			data = data[i+1:]
			goto chunkExt
		default:
			return nil, nil, fmt.Errorf("%w: unexpected %q after chunk size", status.ErrBadChunk, char)
		}
	}

	c.state = eChunkLengthWS
	return nil, nil, nil

chunkExt:
	{
		// chunk extensions aren't supported, therefore completely ignored.
		boundary := bytes.IndexByte(data, '\r')
		if boundary == -1 {
			if bytes.IndexByte(data, '\n') != -1 {
				return nil, nil, fmt.Errorf("%w: bare LF in chunk extension", status.ErrBadChunk)
			}

			c.state = eChunkExt
			return nil, nil, nil
		}

		if bytes.IndexByte(data[:boundary], '\n') != -1 {
			return nil, nil, fmt.Errorf("%w: bare LF in chunk extension", status.ErrBadChunk)
		}

		data = data[boundary+1:]
		goto chunkLengthLF
	}

chunkLengthLF:
	if len(data) == 0 {
		c.state = eChunkLengthLF
		return nil, nil, nil
	}

	if data[0] != '\n' {
		return nil, nil, fmt.Errorf("%w: chunk size line isn't terminated by CRLF", status.ErrBadChunk)
	}

	data = data[1:]
	c.lengthDigits = 0

	if c.chunkLength == 0 {
		goto trailerLineStart
	}

	goto chunkBody

chunkBody:
	if len(data) == 0 {
		c.state = eChunkBody
		return nil, nil, nil
	}

	{
		n := min(c.chunkLength, uint64(len(data)), uint64(limit))
		c.chunkLength -= n
		chunk = data[:n]

		if c.chunkLength == 0 {
			c.state = eChunkBodyCR
		} else {
			c.state = eChunkBody
		}

		return chunk, data[n:], nil
	}

chunkBodyCR:
	if len(data) == 0 {
		c.state = eChunkBodyCR
		return nil, nil, nil
	}

	if data[0] != '\r' {
		return nil, nil, fmt.Errorf("%w: chunk data isn't terminated by CRLF", status.ErrBadChunk)
	}

	data = data[1:]
	goto chunkBodyLF

chunkBodyLF:
	if len(data) == 0 {
		c.state = eChunkBodyLF
		return nil, nil, nil
	}

	if data[0] != '\n' {
		return nil, nil, fmt.Errorf("%w: chunk data isn't terminated by CRLF", status.ErrBadChunk)
	}

	data = data[1:]
	goto chunkLength

trailerLineStart:
	if len(data) == 0 {
		c.state = eTrailerLineStart
		return nil, nil, nil
	}

	if data[0] == '\r' {
		data = data[1:]
		goto trailerEndLF
	}

	goto trailerLine

trailerLine:
	{
		boundary := bytes.IndexByte(data, '\n')
		if boundary == -1 {
			if !c.trailer.Append(data) {
				return nil, nil, status.ErrHeaderFieldsTooLarge
			}

			c.state = eTrailerLine
			return nil, nil, nil
		}

		if !c.trailer.Append(data[:boundary+1]) {
			return nil, nil, status.ErrHeaderFieldsTooLarge
		}

		data = data[boundary+1:]
		goto trailerLineStart
	}

trailerEndLF:
	if len(data) == 0 {
		c.state = eTrailerEndLF
		return nil, nil, nil
	}

	if data[0] != '\n' {
		return nil, nil, fmt.Errorf("%w: trailer section isn't terminated by CRLF", status.ErrBadChunk)
	}

	if err = c.parseTrailers(); err != nil {
		return nil, nil, err
	}

	c.state = eDone
	return nil, data[1:], io.EOF
}

func (c *chunkedParser) parseTrailers() error {
	fields, err := tokenizer.Fields(string(c.trailer.Finish())+crlf, c.maxFields)
	switch {
	case err == nil:
	case errors.Is(err, tokenizer.ErrTooManyFields):
		return status.ErrTooManyHeaders
	default:
		return fmt.Errorf("%w: %w", status.ErrBadChunk, err)
	}

	c.trailers = kv.NewFromPairs(fields...)
	return nil
}

// ChunkedState is the position of a ChunkedDecoder within the chunked body.
type ChunkedState uint8

const (
	AwaitingChunkSize ChunkedState = iota
	ReadingChunkData
	AwaitingChunkDataTerminator
	AwaitingTrailersOrEnd
	Done
)

func (s ChunkedState) String() string {
	switch s {
	case AwaitingChunkSize:
		return "AwaitingChunkSize"
	case ReadingChunkData:
		return "ReadingChunkData"
	case AwaitingChunkDataTerminator:
		return "AwaitingChunkDataTerminator"
	case AwaitingTrailersOrEnd:
		return "AwaitingTrailersOrEnd"
	case Done:
		return "Done"
	default:
		return "Unknown"
	}
}

// ChunkedDecoder is an io.Reader over a chunked body, read directly from the client. Data
// following the body is pushed back to the client, so the next message can be decoded.
// Errors are sticky: once failed, the decoder never yields payload again.
type ChunkedDecoder struct {
	client   transport.Client
	parser   chunkedParser
	maxSize  uint64
	received uint64
	resolve  func(*kv.Storage)
	err      error
}

// NewChunkedDecoder returns a decoder and the trailers of the body, which are resolved as
// soon as the decoder reaches the Done state.
func NewChunkedDecoder(client transport.Client, cfg *config.Config) (*ChunkedDecoder, *http.Trailers) {
	trailers, resolve := http.NewTrailers()

	return &ChunkedDecoder{
		client:  client,
		parser:  newChunkedParser(cfg),
		maxSize: cfg.Body.MaxSize,
		resolve: resolve,
	}, trailers
}

func (c *ChunkedDecoder) Read(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}

	if len(p) == 0 {
		return 0, nil
	}

	for {
		data, err := c.client.Read()
		if len(data) == 0 {
			if err == nil {
				continue
			}

			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}

			return 0, c.fail(err)
		}

		chunk, extra, err := c.parser.Parse(data, len(p))
		switch err {
		case nil:
		case io.EOF:
			c.client.Pushback(extra)
			c.err = io.EOF
			c.resolve(c.parser.trailers)
			return 0, io.EOF
		default:
			return 0, c.fail(err)
		}

		c.client.Pushback(extra)
		if len(chunk) == 0 {
			continue
		}

		if c.received += uint64(len(chunk)); c.received > c.maxSize {
			return 0, c.fail(status.ErrBodyTooLarge)
		}

		return copy(p, chunk), nil
	}
}

func (c *ChunkedDecoder) fail(err error) error {
	c.err = err
	return err
}

// State returns the current position within the body.
func (c *ChunkedDecoder) State() ChunkedState {
	switch c.parser.state {
	case eChunkLength, eChunkLengthWS, eChunkExt, eChunkLengthLF:
		return AwaitingChunkSize
	case eChunkBody:
		return ReadingChunkData
	case eChunkBodyCR, eChunkBodyLF:
		return AwaitingChunkDataTerminator
	case eTrailerLineStart, eTrailerLine, eTrailerEndLF:
		return AwaitingTrailersOrEnd
	default:
		return Done
	}
}
