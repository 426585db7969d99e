package http1

import (
	"context"
	"io"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/indigo-web/h1/config"
	"github.com/indigo-web/h1/http/status"
	"github.com/indigo-web/h1/transport/dummy"
	"github.com/stretchr/testify/require"
)

func feed(c *chunkedParser, input []byte) (output, extra []byte, err error) {
	for len(input) > 0 {
		var data []byte
		data, input, err = c.Parse(input, len(input))
		output = append(output, data...)
		if err != nil {
			return output, input, err
		}
	}

	return output, nil, nil
}

func TestChunkedParser(t *testing.T) {
	newParser := func() *chunkedParser {
		p := newChunkedParser(config.Default())
		return &p
	}

	t.Run("just terminator", func(t *testing.T) {
		p := newParser()
		output, extra, err := feed(p, []byte("0\r\n\r\n"))
		require.ErrorIs(t, err, io.EOF)
		require.Empty(t, extra)
		require.Empty(t, output)
		require.True(t, p.trailers.Empty())
	})

	t.Run("trailer with field lines", func(t *testing.T) {
		p := newParser()
		output, extra, err := feed(p, []byte("0\r\nHello: world\r\nworld: Hello\r\n\r\n"))
		require.ErrorIs(t, err, io.EOF)
		require.Empty(t, extra)
		require.Empty(t, output)
		require.Equal(t, "world", p.trailers.Value("hello"))
		require.Equal(t, "Hello", p.trailers.Value("World"))
	})

	t.Run("single simple small chunk", func(t *testing.T) {
		p := newParser()
		output, extra, err := feed(p, []byte("d\r\nHello, world!\r\n0\r\n\r\n"))
		require.ErrorIs(t, err, io.EOF)
		require.Empty(t, extra)
		require.Equal(t, "Hello, world!", string(output))
	})

	t.Run("extension", func(t *testing.T) {
		p := newParser()
		output, _, err := feed(p, []byte("d;hello=world\r\nHello, world!\r\n0; checksum=no one cares\r\n\r\n"))
		require.ErrorIs(t, err, io.EOF)
		require.Equal(t, "Hello, world!", string(output))
	})

	t.Run("whitespace after length", func(t *testing.T) {
		sample := "4 \r\nWiki\r\n5\t ;ext\r\npedia\r\n0  \r\n\r\n"
		for split := 1; split <= len(sample); split++ {
			p := newParser()
			var output []byte
			var err error
			for _, piece := range dummy.Scatter([]byte(sample), split) {
				var data []byte
				data, _, err = feed(p, piece)
				output = append(output, data...)
				if err != nil {
					break
				}
			}

			require.ErrorIs(t, err, io.EOF, "split by %d", split)
			require.Equal(t, "Wikipedia", string(output), "split by %d", split)
		}
	})

	t.Run("extra data", func(t *testing.T) {
		p := newParser()
		_, extra, err := feed(p, []byte("1\r\na\r\n0\r\n\r\nGET / HTTP/1.1\r\n"))
		require.ErrorIs(t, err, io.EOF)
		require.Equal(t, "GET / HTTP/1.1\r\n", string(extra))
	})

	t.Run("fuzz input chunk sizes", func(t *testing.T) {
		sample := []byte(
			"d;hello=world\r\nHello, world!\r\nd\r\nHello, Pavlo!\r\n0; checksum=no one cares\r\nA: b\r\n\r\n",
		)

		for i := range len(sample) - 1 {
			p := newParser()
			var output []byte
			var err error

			for _, chunk := range dummy.Scatter(sample, i+1) {
				require.NoError(t, err)
				var out, extra []byte
				out, extra, err = feed(p, chunk)
				require.Empty(t, extra)
				output = append(output, out...)
			}

			require.ErrorIs(t, err, io.EOF)
			require.Equal(t, "Hello, world!Hello, Pavlo!", string(output))
			require.Equal(t, "b", p.trailers.Value("a"))
		}
	})

	t.Run("limited output", func(t *testing.T) {
		p := newParser()
		input := []byte("d\r\nHello, world!\r\n0\r\n\r\n")
		var pieces []string

		for len(input) > 0 {
			chunk, extra, err := p.Parse(input, 4)
			if err == io.EOF {
				break
			}

			require.NoError(t, err)
			require.LessOrEqual(t, len(chunk), 4)
			pieces = append(pieces, string(chunk))
			input = extra
		}

		require.Equal(t, []string{"Hell", "o, w", "orld", "!"}, pieces[:4])
	})

	t.Run("maximal length characters", func(t *testing.T) {
		p := newParser()
		output, _, err := feed(p, []byte("000000000000000d\r\nHello, world!\r\n0\r\n\r\n"))
		require.ErrorIs(t, err, io.EOF)
		require.Equal(t, "Hello, world!", string(output))
	})

	for name, sample := range map[string]string{
		"bad hex character":          "dg\r\nHello, world!\r\n0\r\n\r\n",
		"too many length characters": "0000000000000000d\r\nHello, world!\r\n0\r\n\r\n",
		"empty length":               "\r\nHello, world!\r\n0\r\n\r\n",
		"bare LF after length":       "d\nHello, world!\r\n0\r\n\r\n",
		"bare LF in extension":       "d;ext\nHello, world!\r\n0\r\n\r\n",
		"no CRLF after data":         "d\r\nHello, world!!!\r\n0\r\n\r\n",
		"malformed trailer":          "0\r\nno colon\r\n\r\n",
		"bare LF in trailers":        "0\r\nA: b\nC: d\r\n\r\n",
		"trailer end without LF":     "0\r\n\rX",
		"whitespace before length":   " d\r\nHello, world!\r\n0\r\n\r\n",
		"garbage after whitespace":   "d x\r\nHello, world!\r\n0\r\n\r\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, _, err := feed(newParser(), []byte(sample))
			require.ErrorIs(t, err, status.ErrBadChunk)
		})
	}

	t.Run("too large trailers", func(t *testing.T) {
		cfg := config.Default()
		cfg.Headers.Space.Maximal = 16
		p := newChunkedParser(cfg)
		_, _, err := feed(&p, []byte("0\r\nHello: "+strings.Repeat("a", 32)+"\r\n\r\n"))
		require.ErrorIs(t, err, status.ErrHeaderFieldsTooLarge)
	})
}

const (
	wikipedia        = "4\r\nWiki\r\n5\r\npedia\r\nE\r\n in\r\n\r\nchunks.\r\n0\r\n\r\n"
	wikipediaPayload = "Wikipedia in\r\n\r\nchunks."
)

func TestChunkedDecoder(t *testing.T) {
	t.Run("wikipedia", func(t *testing.T) {
		client := dummy.NewScatteredClient(wikipedia, len(wikipedia))
		decoder, trailers := NewChunkedDecoder(client, config.Default())
		require.Equal(t, AwaitingChunkSize, decoder.State())
		require.False(t, trailers.Ready())

		payload, err := readAll(decoder, 4096)
		require.NoError(t, err)
		require.Equal(t, wikipediaPayload, payload)
		require.Equal(t, Done, decoder.State())

		fields, ok := trailers.Fields()
		require.True(t, ok)
		require.True(t, fields.Empty())

		for range 3 {
			n, err := decoder.Read(make([]byte, 10))
			require.Zero(t, n)
			require.ErrorIs(t, err, io.EOF)
		}
	})

	t.Run("buffer and read sizes", func(t *testing.T) {
		for _, split := range []int{1, 2, 7, 4096} {
			for _, size := range []int{1, 2, 7, 4096} {
				client := dummy.NewScatteredClient(wikipedia, split)
				decoder, trailers := NewChunkedDecoder(client, config.Default())
				payload, err := readAll(decoder, size)
				require.NoError(t, err)
				require.Equal(t, wikipediaPayload, payload, "split=%d size=%d", split, size)
				require.True(t, trailers.Ready())
			}
		}
	})

	t.Run("states", func(t *testing.T) {
		client := dummy.NewMockClient(
			[]byte("4\r\nWi"), []byte("ki\r"), []byte("\n0\r\nA: b\r\n"), []byte("\r\n"),
		).Once()
		decoder, trailers := NewChunkedDecoder(client, config.Default())
		buff := make([]byte, 10)

		n, err := decoder.Read(buff)
		require.NoError(t, err)
		require.Equal(t, "Wi", string(buff[:n]))
		require.Equal(t, ReadingChunkData, decoder.State())

		n, err = decoder.Read(buff)
		require.NoError(t, err)
		require.Equal(t, "ki", string(buff[:n]))
		require.Equal(t, AwaitingChunkDataTerminator, decoder.State())
		require.Equal(t, "\r", string(client.Pending()))
		require.False(t, trailers.Ready())

		n, err = decoder.Read(buff)
		require.Zero(t, n)
		require.ErrorIs(t, err, io.EOF)
		require.Equal(t, Done, decoder.State())

		fields, ok := trailers.Fields()
		require.True(t, ok)
		require.Equal(t, "b", fields.Value("a"))
	})

	t.Run("trailers are delivered after the payload", func(t *testing.T) {
		sample := "4\r\nWiki\r\n0\r\nChecksum: abc\r\nChecksum: def\r\n\r\n"
		client := dummy.NewScatteredClient(sample, 3)
		decoder, trailers := NewChunkedDecoder(client, config.Default())

		values := make(chan []string, 1)
		go func() {
			fields, err := trailers.Wait(context.Background())
			if err != nil {
				values <- nil
				return
			}

			values <- slices.Collect(fields.Values("checksum"))
		}()

		buff := make([]byte, 2)
		n, err := decoder.Read(buff)
		require.NoError(t, err)
		require.Equal(t, "Wi", string(buff[:n]))
		require.False(t, trailers.Ready())

		payload, err := readAll(decoder, 2)
		require.NoError(t, err)
		require.Equal(t, "ki", payload)

		select {
		case got := <-values:
			require.Equal(t, []string{"abc", "def"}, got)
		case <-time.After(time.Second):
			t.Fatal("trailers weren't resolved")
		}
	})

	t.Run("truncated", func(t *testing.T) {
		client := dummy.NewScatteredClient("4\r\nWi", 100)
		decoder, trailers := NewChunkedDecoder(client, config.Default())
		payload, err := readAll(decoder, 100)
		require.ErrorIs(t, err, io.ErrUnexpectedEOF)
		require.Equal(t, "Wi", payload)
		require.False(t, trailers.Ready())

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_, err = trailers.Wait(ctx)
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("malformed chunk size", func(t *testing.T) {
		client := dummy.NewScatteredClient("4\r\nWiki\r\nzz\r\npedia\r\n0\r\n\r\n", 100)
		decoder, trailers := NewChunkedDecoder(client, config.Default())
		buff := make([]byte, 100)

		n, err := decoder.Read(buff)
		require.NoError(t, err)
		require.Equal(t, "Wiki", string(buff[:n]))

		for range 3 {
			n, err = decoder.Read(buff)
			require.Zero(t, n)
			require.ErrorIs(t, err, status.ErrBadChunk)
		}

		require.False(t, trailers.Ready())
	})

	t.Run("body too large", func(t *testing.T) {
		cfg := config.Default()
		cfg.Body.MaxSize = 3
		decoder, _ := NewChunkedDecoder(dummy.NewScatteredClient(wikipedia, 100), cfg)
		_, err := readAll(decoder, 100)
		require.ErrorIs(t, err, status.ErrBodyTooLarge)
	})

	t.Run("pushback the rest", func(t *testing.T) {
		client := dummy.NewScatteredClient(wikipedia+"next message", 1000)
		decoder, _ := NewChunkedDecoder(client, config.Default())
		_, err := readAll(decoder, 4096)
		require.NoError(t, err)
		require.Equal(t, "next message", string(client.Pending()))
	})
}
