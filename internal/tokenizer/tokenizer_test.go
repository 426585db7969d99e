package tokenizer

import (
	"strings"
	"testing"

	"github.com/indigo-web/h1/kv"
	"github.com/stretchr/testify/require"
)

func TestRequest(t *testing.T) {
	t.Run("simple", func(t *testing.T) {
		line, fields, err := Request("GET /hello?a=b HTTP/1.1\r\nHost: example.com\r\n\r\n", 10)
		require.NoError(t, err)
		require.Equal(t, RequestLine{Method: "GET", Target: "/hello?a=b", Version: "HTTP/1.1"}, line)
		require.Equal(t, []kv.Pair{{Key: "Host", Value: "example.com"}}, fields)
	})

	t.Run("leading empty lines", func(t *testing.T) {
		line, fields, err := Request("\r\n\r\nPOST / HTTP/1.1\r\n\r\n", 10)
		require.NoError(t, err)
		require.Equal(t, "POST", line.Method)
		require.Empty(t, fields)
	})

	t.Run("optional whitespaces", func(t *testing.T) {
		_, fields, err := Request("GET / HTTP/1.1\r\nA:b\r\nC: \t d e \t\r\nEmpty:\r\n\r\n", 10)
		require.NoError(t, err)
		require.Equal(t, []kv.Pair{
			{Key: "A", Value: "b"},
			{Key: "C", Value: "d e"},
			{Key: "Empty", Value: ""},
		}, fields)
	})

	t.Run("incomplete", func(t *testing.T) {
		_, _, err := Request("GET / HTTP/1.1", 10)
		require.ErrorIs(t, err, ErrIncomplete)
		_, _, err = Request("GET / HTTP/1.1\r\nHost: x\r\n", 10)
		require.ErrorIs(t, err, ErrIncomplete)
	})

	t.Run("malformed", func(t *testing.T) {
		for _, head := range []string{
			"GET\r\n\r\n",
			"GET /\r\n\r\n",
			" / HTTP/1.1\r\n\r\n",
			"GET  HTTP/1.1\r\n\r\n",
			"GET / HTTP/1.1 extra\r\n\r\n",
			"G(T / HTTP/1.1\r\n\r\n",
			"GET / HTTP/1.1\r\nno colon\r\n\r\n",
			"GET / HTTP/1.1\r\n: empty name\r\n\r\n",
			"GET / HTTP/1.1\r\nSpace : before colon\r\n\r\n",
			"GET / HTTP/1.1\r\nHost: x\r\n folded\r\n\r\n",
			"GET / HTTP/1.1\r\nHost: x\nY: z\r\n\r\n",
			"GET / HTTP/1.1\r\n\r\ntrailing garbage",
		} {
			_, _, err := Request(head, 10)
			require.ErrorIs(t, err, ErrMalformed, head)
		}
	})

	t.Run("too many fields", func(t *testing.T) {
		head := "GET / HTTP/1.1\r\n" + strings.Repeat("A: b\r\n", 3) + "\r\n"
		_, fields, err := Request(head, 3)
		require.NoError(t, err)
		require.Len(t, fields, 3)

		_, _, err = Request(head, 2)
		require.ErrorIs(t, err, ErrTooManyFields)
	})
}

func TestResponse(t *testing.T) {
	t.Run("simple", func(t *testing.T) {
		line, fields, err := Response("HTTP/1.1 404 Not Found\r\nContent-Length: 0\r\n\r\n", 10)
		require.NoError(t, err)
		require.Equal(t, StatusLine{Version: "HTTP/1.1", Code: 404, Reason: "Not Found"}, line)
		require.Equal(t, []kv.Pair{{Key: "Content-Length", Value: "0"}}, fields)
	})

	t.Run("empty reason", func(t *testing.T) {
		for _, head := range []string{"HTTP/1.1 204 \r\n\r\n", "HTTP/1.1 204\r\n\r\n"} {
			line, _, err := Response(head, 10)
			require.NoError(t, err)
			require.Equal(t, 204, line.Code)
			require.Empty(t, line.Reason)
		}
	})

	t.Run("malformed", func(t *testing.T) {
		for _, head := range []string{
			"HTTP/1.1\r\n\r\n",
			"HTTP/1.1 20 OK\r\n\r\n",
			"HTTP/1.1 2000 OK\r\n\r\n",
			"HTTP/1.1 2x0 OK\r\n\r\n",
			" 200 OK\r\n\r\n",
		} {
			_, _, err := Response(head, 10)
			require.ErrorIs(t, err, ErrMalformed, head)
		}
	})
}

func TestFields(t *testing.T) {
	fields, err := Fields("\r\n", 0)
	require.NoError(t, err)
	require.Empty(t, fields)

	fields, err = Fields("Checksum: abc\r\nChecksum: def\r\n\r\n", 5)
	require.NoError(t, err)
	require.Equal(t, []kv.Pair{{Key: "Checksum", Value: "abc"}, {Key: "Checksum", Value: "def"}}, fields)

	_, err = Fields("", 5)
	require.ErrorIs(t, err, ErrIncomplete)
}
